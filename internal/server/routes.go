package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cardshop/pkg/httpx/reply"
)

func (s Server) RegisterRoutes(r chi.Router) {
	r.Route("/", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			// unauthorized zone
			r.Route("/orders", func(r chi.Router) {
				r.Post("/", handler(s.postV1Order))
				r.Post("/{id}/pay", handler(s.postV1OrderPay))
				r.Get("/{id}/status", handler(s.getV1OrderStatus))
				r.Get("/{id}/keys", handler(s.getV1OrderKeys))
			})
			r.Route("/payments", func(r chi.Router) {
				r.Get("/{reference}", handler(s.getV1Payment))
			})
			r.Route("/variants", func(r chi.Router) {
				r.Get("/", handler(s.getV1Variants))
				r.Get("/{id}", handler(s.getV1Variant))
			})
		})
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, mapDomainError(err))
		}
	}
}
