package orders

import "github.com/go-chi/chi/v5"

func MountRoutes(r chi.Router, h *Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/overdue", h.Overdue)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Post("/transition", h.Transition)
			r.Post("/cancel", h.Cancel)
			r.Post("/invoice", h.Invoice)
			r.Get("/receipt", h.Receipt)
		})
	})
}
