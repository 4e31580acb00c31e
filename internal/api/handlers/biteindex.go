package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"biteindex/internal/bite"
	"biteindex/internal/core"
	"biteindex/internal/index"
)

// IndexService computes bite indices. Implemented by *index.Service.
type IndexService interface {
	Summary(ctx context.Context, period bite.Period) (*index.Summary, error)
	Series(ctx context.Context, period bite.Period) (*index.Series, error)
}

// BiteIndexHandler serves the aggregated bite index.
type BiteIndexHandler struct {
	service IndexService
	logger  *slog.Logger
}

func NewBiteIndexHandler(svc IndexService, logger *slog.Logger) *BiteIndexHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BiteIndexHandler{service: svc, logger: logger}
}

// RegisterRoutes mounts the bite index endpoints. Both accept
// ?period=today|week|month|year and default to today.
func (h *BiteIndexHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleSummary)
	r.Get("/series", h.HandleSeries)
}

// HandleSummary handles GET /v1/bite-index.
func (h *BiteIndexHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := bite.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), period)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: summary})
}

// HandleSeries handles GET /v1/bite-index/series.
func (h *BiteIndexHandler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	period, err := bite.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	series, err := h.service.Series(r.Context(), period)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: series})
}
