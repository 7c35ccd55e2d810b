package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the API routes on the given chi router. The caller
// applies auth to this group and mounts the open health endpoint itself.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Conversation
		r.Post("/sessions/{session_id}/messages", h.PostMessage)
		r.Get("/sessions/{session_id}/transcript", h.GetTranscript)

		// Support dashboard lookups
		r.Get("/orders/{order_id}", h.GetOrder)
		r.Get("/products", h.SearchProducts)

		// Ops event feed
		r.Get("/ws", h.hub.HandleWS)
	})
}
