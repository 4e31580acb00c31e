package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"biteindex/internal/core"
	"biteindex/internal/ratings"
	"biteindex/internal/types"
)

// RatingService runs the submission workflow. Implemented by *ratings.Service.
type RatingService interface {
	Submit(ctx context.Context, actor types.Actor, loc ratings.LocationProvider, entries []ratings.Entry) (*ratings.SubmitResult, error)
	Limits(ctx context.Context, userID string) ([]types.CategoryLimit, error)
}

// SubmitRatingsRequest is the body of POST /v1/ratings.
//
// Location is null when the device could not produce a fix, in which case
// LocationError should say why.
type SubmitRatingsRequest struct {
	Location      *types.Coordinate `json:"location"`
	LocationError string            `json:"location_error,omitempty"`
	Ratings       []ratings.Entry   `json:"ratings" validate:"required,min=1,max=20,unique=CategoryID,dive"`
}

// SubmitRatingsResponse is the body of a successful submission.
type SubmitRatingsResponse struct {
	Ratings []RatingView           `json:"ratings"`
	Weather *types.WeatherSnapshot `json:"weather"`
}

// RatingView is a stored rating as returned to its author.
type RatingView struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"fish_type_id"`
	Value      int       `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
}

// RatingsHandler accepts ratings and reports cooldowns.
type RatingsHandler struct {
	service   RatingService
	validator *core.Validator
	logger    *slog.Logger
}

func NewRatingsHandler(svc RatingService, val *core.Validator, logger *slog.Logger) *RatingsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RatingsHandler{service: svc, validator: val, logger: logger}
}

// RegisterRoutes mounts the rating endpoints. The caller wraps them with
// core.Server.RequireActor.
func (h *RatingsHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleSubmit)
	r.Get("/limits", h.HandleLimits)
}

// HandleSubmit handles POST /v1/ratings.
func (h *RatingsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	var req SubmitRatingsRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	loc := ratings.ReportedLocation{Point: req.Location, Reason: req.LocationError}
	res, err := h.service.Submit(r.Context(), actor, loc, req.Ratings)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	views := make([]RatingView, 0, len(res.Ratings))
	for _, rec := range res.Ratings {
		views = append(views, RatingView{
			ID:         rec.ID,
			CategoryID: rec.CategoryID,
			Value:      rec.Value,
			CreatedAt:  rec.SubmittedAt,
		})
	}

	resp := core.APIResponse{Data: SubmitRatingsResponse{Ratings: views, Weather: res.Weather}}
	if len(res.Warnings) > 0 {
		resp.Meta = &core.ResponseMeta{Warnings: res.Warnings}
	}
	core.JSON(w, r, http.StatusCreated, resp)
}

// HandleLimits handles GET /v1/ratings/limits.
func (h *RatingsHandler) HandleLimits(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	limits, err := h.service.Limits(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: limits})
}
