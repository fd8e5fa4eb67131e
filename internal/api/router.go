package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds settings for the API router, passed from main.go so the
// router can configure CORS and auth from env vars.
type RouterConfig struct {
	// BackendAPIKey protects the pipeline routes when set. Empty skips auth
	// (development mode).
	BackendAPIKey string

	// CorsAllowedOrigins is a comma-separated list of allowed origins.
	// Empty means "*" — the rendering UI may be served from anywhere.
	CorsAllowedOrigins string
}

func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	allowedOrigins := []string{"*"}
	allowCredentials := false
	if cfg.CorsAllowedOrigins != "" {
		origins := strings.Split(cfg.CorsAllowedOrigins, ",")
		trimmed := make([]string, 0, len(origins))
		for _, o := range origins {
			if s := strings.TrimSpace(o); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			allowedOrigins = trimmed
			allowCredentials = true
		}
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})

	// Health check — public, no auth required
	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		if cfg.BackendAPIKey != "" {
			r.Use(APIKeyAuth(cfg.BackendAPIKey))
		}

		// Per-slide pipeline
		r.Post("/generate-slide", h.GenerateSlide)
		r.Post("/generate-slide-audio", h.GenerateSlideAudio)
		r.Post("/generate-slide-image", h.GenerateSlideImage)
		r.Post("/render-slide-video", h.RenderSlideVideo)
		r.Post("/render-slide", h.RenderSingleSlide)

		// Deck-level operations
		r.Post("/render-deck", h.RenderDeck)
		r.Post("/generate-deck", h.GenerateDeck)

		// Status and assembly
		r.Get("/render-status", h.RenderStatus)
		r.Post("/concatenate-videos", h.ConcatenateVideos)
	})

	return r
}
