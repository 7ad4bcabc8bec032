package inventory

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/levels/{warehouseID}", h.Levels)
	r.Get("/movements", h.Movements)
}
