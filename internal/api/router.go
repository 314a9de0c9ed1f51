package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/starford/tasklist/internal/itemservice"
)

// NewRouter creates a chi router with the item routes. It is mounted
// under /api by the server.
func NewRouter(svc *itemservice.Service, allowedOrigins []string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))

	r.Get("/items", h.ListItems)
	r.Post("/items", h.CreateItem)
	r.Get("/items/{id}", h.GetItem)
	r.Patch("/items/{id}", h.UpdateItem)
	r.Delete("/items/{id}", h.DeleteItem)

	return r
}

// Mount registers the health endpoints and the item API on r.
func Mount(r chi.Router, svc *itemservice.Service, allowedOrigins []string) {
	r.Get("/health/live", Live)
	r.Get("/health/ready", Ready(svc))
	r.Mount("/api", NewRouter(svc, allowedOrigins))
}
