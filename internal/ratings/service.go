// Package ratings implements the submission workflow: a batch of ratings is
// accepted only from users at the reservoir, at most once per cooldown per
// species, and is enriched with the weather at the moment of submission.
package ratings

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"biteindex/internal/bite"
	"biteindex/internal/geo"
	"biteindex/internal/types"
)

// DefaultCooldown is how long a user must wait before rating a species again.
const DefaultCooldown = 6 * time.Hour

// WarningWeatherUnavailable is returned when ratings were stored without weather.
const WarningWeatherUnavailable = "weather_unavailable"

// Store persists ratings and answers cooldown queries.
type Store interface {
	InsertBatch(ctx context.Context, records []types.RatingRecord) error
	LastRatedByUser(ctx context.Context, userID string, since time.Time) (map[string]time.Time, error)
}

// CategoryLister returns the configured species.
type CategoryLister interface {
	List(ctx context.Context) ([]types.Category, error)
}

// WeatherLookup returns current weather or nil when it is unavailable.
type WeatherLookup interface {
	Lookup(ctx context.Context, at types.Coordinate) *types.WeatherSnapshot
}

// EventPublisher announces stored batches.
type EventPublisher interface {
	PublishRatings(ctx context.Context, records []types.RatingRecord) error
}

// SubmissionMetrics counts submission outcomes.
type SubmissionMetrics interface {
	RecordRatingsSubmitted(ctx context.Context, categoryIDs []string)
	RecordGeofenceRejected(ctx context.Context)
}

type nopMetrics struct{}

func (nopMetrics) RecordRatingsSubmitted(context.Context, []string) {}
func (nopMetrics) RecordGeofenceRejected(context.Context) {}

// Entry is one species rating within a submission.
type Entry struct {
	CategoryID string `json:"fish_type_id" validate:"required,fish_type_id"`
	Value      int    `json:"rating" validate:"rating"`
}

// SubmitResult describes a stored batch.
type SubmitResult struct {
	Ratings  []types.RatingRecord
	Weather  *types.WeatherSnapshot
	Warnings []string
}

// Service runs the submission workflow.
type Service struct {
	store      Store
	categories CategoryLister
	geofence   *geo.Validator
	weather    WeatherLookup
	events     EventPublisher
	metrics    SubmissionMetrics
	cooldown   time.Duration
	locale     bite.Locale
	clock      types.Clock
	logger     *slog.Logger
}

// Config holds the collaborators of a Service. Weather, Events and Metrics
// are optional.
type Config struct {
	Store      Store
	Categories CategoryLister
	Geofence   *geo.Validator
	Weather    WeatherLookup
	Events     EventPublisher
	Metrics    SubmissionMetrics
	Cooldown   time.Duration
	Locale     bite.Locale
	Clock      types.Clock
	Logger     *slog.Logger
}

// NewService creates a Service. A cooldown of zero or less disables the limit.
func NewService(cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	return &Service{
		store:      cfg.Store,
		categories: cfg.Categories,
		geofence:   cfg.Geofence,
		weather:    cfg.Weather,
		events:     cfg.Events,
		metrics:    cfg.Metrics,
		cooldown:   cfg.Cooldown,
		locale:     bite.ParseLocale(string(cfg.Locale)),
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
}

// Cooldown returns the effective per-species cooldown.
func (s *Service) Cooldown() time.Duration {
	return max(s.cooldown, 0)
}

// Submit stores a batch of ratings for actor at the location reported by loc.
//
// All entries share one location fix and one weather snapshot. The batch is
// rejected as a whole if any entry fails validation or is still cooling down.
func (s *Service) Submit(ctx context.Context, actor types.Actor, loc LocationProvider, entries []Entry) (*SubmitResult, error) {
	if err := checkEntries(entries); err != nil {
		return nil, err
	}

	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(cats))
	for _, c := range cats {
		known[c.ID] = struct{}{}
	}
	for _, e := range entries {
		if _, ok := known[e.CategoryID]; !ok {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationUnknownFish,
				"unknown fish type", nil, map[string]any{"fish_type_id": e.CategoryID})
		}
	}

	point, err := s.locate(ctx, loc)
	if err != nil {
		return nil, err
	}
	if err := s.checkGeofence(ctx, actor, point); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if err := s.checkCooldown(ctx, actor.ID, entries, now); err != nil {
		return nil, err
	}

	result := &SubmitResult{}
	if s.weather != nil {
		result.Weather = s.weather.Lookup(ctx, point)
	}
	if result.Weather == nil {
		result.Warnings = append(result.Warnings, WarningWeatherUnavailable)
	}

	records := make([]types.RatingRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, types.RatingRecord{
			ID:          uuid.NewString(),
			UserID:      actor.ID,
			CategoryID:  e.CategoryID,
			Value:       e.Value,
			SubmittedAt: now,
			Location:    point,
			Weather:     result.Weather,
		})
	}

	if err := s.store.InsertBatch(ctx, records); err != nil {
		return nil, err
	}
	result.Ratings = records

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.CategoryID
	}
	s.metrics.RecordRatingsSubmitted(ctx, ids)

	s.logger.InfoContext(ctx, "ratings stored",
		slog.String("user_id", actor.ID),
		slog.Int("count", len(records)),
		slog.Bool("weather", result.Weather != nil),
	)

	if s.events != nil {
		if err := s.events.PublishRatings(ctx, records); err != nil {
			s.logger.WarnContext(ctx, "failed to publish ratings event", slog.String("error", err.Error()))
		}
	}

	return result, nil
}

// Limits reports for every species whether userID may rate it now.
func (s *Service) Limits(ctx context.Context, userID string) ([]types.CategoryLimit, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	cooldown := s.Cooldown()
	var last map[string]time.Time
	if cooldown > 0 {
		last, err = s.store.LastRatedByUser(ctx, userID, s.clock.Now().Add(-cooldown))
		if err != nil {
			return nil, err
		}
	}

	limits := make([]types.CategoryLimit, 0, len(cats))
	for _, c := range cats {
		l := types.CategoryLimit{CategoryID: c.ID, CanRate: true}
		if at, ok := last[c.ID]; ok {
			next := at.Add(cooldown)
			l.CanRate = false
			l.LastRatedAt = &at
			l.NextRateAt = &next
		}
		limits = append(limits, l)
	}
	return limits, nil
}

func checkEntries(entries []Entry) error {
	if len(entries) == 0 {
		return types.NewAppError(types.ErrCodeValidationMissingField, "at least one rating is required", nil)
	}
	if len(entries) > types.MaxRatingsPerSubmission {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationBatchSize,
			"too many ratings in one submission", nil,
			map[string]any{"max": types.MaxRatingsPerSubmission, "got": len(entries)})
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.CategoryID == "" {
			return types.NewAppError(types.ErrCodeValidationMissingField, "fish_type_id is required", nil)
		}
		if err := types.ValidateRating(e.Value); err != nil {
			return err
		}
		if _, dup := seen[e.CategoryID]; dup {
			return types.NewAppErrorWithDetails(types.ErrCodeValidationDuplicateFish,
				"each fish type may appear once per submission", nil,
				map[string]any{"fish_type_id": e.CategoryID})
		}
		seen[e.CategoryID] = struct{}{}
	}
	return nil
}

func (s *Service) locate(ctx context.Context, loc LocationProvider) (types.Coordinate, error) {
	if loc == nil {
		return types.Coordinate{}, s.locationUnavailable(nil)
	}
	point, err := loc.Locate(ctx)
	if err != nil {
		return types.Coordinate{}, s.locationUnavailable(err)
	}
	if err := types.ValidateCoordinate(point); err != nil {
		return types.Coordinate{}, err
	}
	return point, nil
}

func (s *Service) locationUnavailable(err error) *types.AppError {
	appErr := types.NewAppError(types.ErrCodeGeolocationUnavailable, messages[s.locale].locationUnavailable, err)
	if err != nil {
		appErr.Details = map[string]any{"reason": err.Error()}
	}
	return appErr
}

func (s *Service) checkGeofence(ctx context.Context, actor types.Actor, point types.Coordinate) error {
	if s.geofence.IsWithinReservoir(point) {
		return nil
	}
	distance := s.geofence.NearestVertexKm(point)
	s.metrics.RecordGeofenceRejected(ctx)
	s.logger.InfoContext(ctx, "rating rejected outside reservoir",
		slog.String("user_id", actor.ID),
		slog.Float64("distance_km", distance),
	)
	return types.NewAppErrorWithDetails(types.ErrCodeGeofenceOutside, messages[s.locale].outsideReservoir, nil,
		map[string]any{
			"distance_km":  math.Round(distance*10) / 10,
			"tolerance_km": s.geofence.Boundary().ToleranceKm,
		})
}

func (s *Service) checkCooldown(ctx context.Context, userID string, entries []Entry, now time.Time) error {
	cooldown := s.Cooldown()
	if cooldown == 0 {
		return nil
	}
	last, err := s.store.LastRatedByUser(ctx, userID, now.Add(-cooldown))
	if err != nil {
		return err
	}

	var blocked []string
	var nextAt time.Time
	for _, e := range entries {
		at, ok := last[e.CategoryID]
		if !ok {
			continue
		}
		blocked = append(blocked, e.CategoryID)
		if next := at.Add(cooldown); next.After(nextAt) {
			nextAt = next
		}
	}
	if len(blocked) == 0 {
		return nil
	}
	sort.Strings(blocked)
	return types.NewAppErrorWithDetails(types.ErrCodeConflictRatingCooldown, messages[s.locale].cooldown, nil,
		map[string]any{
			"fish_type_ids": blocked,
			"next_rate_at":  nextAt.UTC().Format(time.RFC3339),
		})
}

type localizedMessages struct {
	locationUnavailable string
	outsideReservoir    string
	cooldown            string
}

var messages = map[bite.Locale]localizedMessages{
	bite.LocaleRU: {
		locationUnavailable: "Ошибка! Включите геолокацию на вашем устройстве.",
		outsideReservoir:    "Для оценки клёва Вы должны находиться на водохранилище Аргази или вблизи его береговой линии.",
		cooldown:            "Эту рыбу можно оценить не чаще чем раз в 6 часов.",
	},
	bite.LocaleEN: {
		locationUnavailable: "Location is unavailable. Enable geolocation on your device.",
		outsideReservoir:    "You must be at the Argazi reservoir or near its shoreline to rate the bite.",
		cooldown:            "Each fish can be rated at most once every 6 hours.",
	},
}
