package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	nr "github.com/newrelic/go-agent/v3/newrelic"
)

// NewRouter mounts the API under /api and the viewer websocket at /ws.
func NewRouter(api *API, viewers http.Handler, nrApp *nr.Application) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/ws", viewers)

	r.Group(func(r chi.Router) {
		r.Use(requestLogger)
		r.Use(newRelicMiddleware(nrApp))

		r.Get("/api/new_url_endpoint", api.newEndpoint)

		r.Post("/api/baskets/{endpoint}", api.createBasket)
		r.Get("/api/baskets/{endpoint}", api.listRequests)
		r.Put("/api/baskets/{endpoint}", api.clearBasket)
		r.Delete("/api/baskets/{endpoint}", api.deleteBasket)

		r.HandleFunc("/api/{endpoint}", api.capture)
	})

	return r
}
