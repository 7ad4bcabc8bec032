package checkout

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.CreateSale)
	r.Get("/", h.ListOrders)
	r.Get("/{id}", h.GetOrder)
	r.Post("/{id}/cancel", h.CancelSale)
}
