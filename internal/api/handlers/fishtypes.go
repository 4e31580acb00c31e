package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"biteindex/internal/core"
	"biteindex/internal/types"
)

// CategoryLister returns the configured fish species.
type CategoryLister interface {
	List(ctx context.Context) ([]types.Category, error)
}

// FishTypesHandler serves the species catalogue.
type FishTypesHandler struct {
	categories CategoryLister
	logger     *slog.Logger
}

func NewFishTypesHandler(categories CategoryLister, logger *slog.Logger) *FishTypesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FishTypesHandler{categories: categories, logger: logger}
}

func (h *FishTypesHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleList)
}

// HandleList handles GET /v1/fish-types.
func (h *FishTypesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	cats, err := h.categories.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if cats == nil {
		cats = []types.Category{}
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: cats})
}
