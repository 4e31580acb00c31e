package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"biteindex/internal/core"
	"biteindex/internal/types"
)

// WeatherService returns current conditions. Implemented by *weather.Service.
type WeatherService interface {
	Current(ctx context.Context, at types.Coordinate) (*types.WeatherSnapshot, error)
	Center() types.Coordinate
}

// WeatherHandler serves current weather, by default at the reservoir centre.
type WeatherHandler struct {
	service WeatherService
	logger  *slog.Logger
}

func NewWeatherHandler(svc WeatherService, logger *slog.Logger) *WeatherHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherHandler{service: svc, logger: logger}
}

func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleCurrent)
}

// HandleCurrent handles GET /v1/weather. lat and lon are optional but must be
// given together.
func (h *WeatherHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	at, err := h.pointFromQuery(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	snap, err := h.service.Current(r.Context(), at)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: snap})
}

func (h *WeatherHandler) pointFromQuery(r *http.Request) (types.Coordinate, error) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")
	if latStr == "" && lonStr == "" {
		return h.service.Center(), nil
	}
	if latStr == "" || lonStr == "" {
		return types.Coordinate{}, types.NewAppError(types.ErrCodeValidationMissingField,
			"lat and lon must be given together", nil)
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return types.Coordinate{}, types.NewAppError(types.ErrCodeValidationInvalidLat, "lat must be a valid number", nil)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return types.Coordinate{}, types.NewAppError(types.ErrCodeValidationInvalidLon, "lon must be a valid number", nil)
	}

	at := types.Coordinate{Latitude: lat, Longitude: lon}
	if err := types.ValidateCoordinate(at); err != nil {
		return types.Coordinate{}, err
	}
	return at, nil
}
