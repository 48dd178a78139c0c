package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/livetag/internal/sse"
	"github.com/starford/livetag/internal/storage"
	"github.com/starford/livetag/internal/tagservice"
)

// Events streams change notifications to clients. *sse.Broker implements it.
type Events interface {
	http.Handler
	Publish(event sse.Event)
}

// NewRouter creates a chi router with all API routes mounted.
// store backs the sample preview and upload routes.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is mounted at GET /events inside the auth group and
// told about every committed tag operation.
func NewRouter(svc *tagservice.Service, store storage.Provider, authEnabled bool, token string, events Events) chi.Router {
	h := NewHandler(svc, events)
	sh := NewSampleHandler(store, svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Catalog.
	r.Get("/folders", h.ListFolders)
	r.Get("/folders/*", h.GetFolder)
	r.Get("/files", h.ListFiles)
	r.Get("/tags", h.ListTags)
	r.Get("/search", h.Search)
	r.Post("/sync", h.Sync)

	// Live view of the library, bypassing the catalog.
	r.Get("/match", h.Match)

	// Tag operations.
	r.Post("/tags/add", h.ApplyTags(tagservice.OpAdd))
	r.Post("/tags/remove", h.ApplyTags(tagservice.OpRemove))
	r.Post("/tags/remove-all", h.ApplyTags(tagservice.OpRemoveAll))

	// Sample files.
	r.Get("/samples/*", sh.ServeFile)
	r.Post("/samples", sh.Upload)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
