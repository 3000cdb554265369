package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sanctum/internal/prefs"
	"github.com/starford/sanctum/internal/records"
	"github.com/starford/sanctum/internal/tags"
)

// collectionPaths maps URL segments to record domains.
var collectionPaths = []struct {
	path   string
	domain tags.Domain
}{
	{"books", tags.Book},
	{"transactions", tags.Transaction},
	{"goals", tags.Goal},
	{"journal", tags.Journal},
	{"meditations", tags.Meditation},
	{"detox", tags.Detox},
}

// RouterConfig carries the optional parts of the API.
type RouterConfig struct {
	AuthEnabled bool
	Token       string
	// Owner is the identity every request acts as.
	Owner string
	// Preferences, if non-nil, serves /preferences.
	Preferences *prefs.File
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
	// OnMutation, if non-nil, runs before every write request.
	OnMutation func()
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(store *records.Store, cfg RouterConfig) chi.Router {
	h := NewHandler(store, cfg.Preferences)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))
	r.Use(OwnerMiddleware(cfg.Owner))
	r.Use(MutationHook(cfg.OnMutation))

	for _, cp := range collectionPaths {
		ch := h.collection(cp.domain)
		r.Route("/"+cp.path, func(r chi.Router) {
			switch cp.domain {
			case tags.Book:
				r.Get("/genres", h.Genres)
			case tags.Transaction:
				r.Get("/categories", h.Categories)
			case tags.Detox:
				r.Post("/sessions", h.RecordDetox)
			}
			r.Get("/", ch.List)
			r.Post("/", ch.Create)
			r.Get("/stats", ch.Stats)
			r.Get("/{id}", ch.Get)
			r.Put("/{id}", ch.Replace)
			r.Patch("/{id}", ch.Patch)
			r.Delete("/{id}", ch.Delete)
		})
	}

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Post("/quick", h.QuickNote)
		r.Get("/{id}", h.GetNote)
		r.Put("/{id}", h.UpdateNote)
		r.Post("/{id}/pin", h.TogglePin)
		r.Delete("/{id}", h.DeleteNote)
	})

	r.Get("/dashboard", h.Dashboard)
	r.Get("/tags", h.Tags)

	if cfg.Preferences != nil {
		r.Get("/preferences", h.GetPreferences)
		r.Put("/preferences", h.PutPreferences)
	}

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}
