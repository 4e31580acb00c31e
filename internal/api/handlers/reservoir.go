package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"biteindex/internal/core"
	"biteindex/internal/geo"
	"biteindex/internal/types"
)

// ReservoirView describes the geofence to clients, which draw it on a map.
type ReservoirView struct {
	Name        string             `json:"name"`
	Center      types.Coordinate   `json:"center"`
	Polygon     []types.Coordinate `json:"polygon"`
	ToleranceKm float64            `json:"tolerance_km"`
}

// ReservoirHandler serves the configured reservoir outline.
type ReservoirHandler struct {
	view ReservoirView
}

func NewReservoirHandler(name string, center types.Coordinate, boundary geo.Boundary) *ReservoirHandler {
	return &ReservoirHandler{view: ReservoirView{
		Name:        name,
		Center:      center,
		Polygon:     boundary.Vertices,
		ToleranceKm: boundary.ToleranceKm,
	}}
}

func (h *ReservoirHandler) RegisterRoutes(r chi.Router) {
	r.Get("/boundary", h.HandleBoundary)
}

// HandleBoundary handles GET /v1/reservoir/boundary.
func (h *ReservoirHandler) HandleBoundary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.view})
}
