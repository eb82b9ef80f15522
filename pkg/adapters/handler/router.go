package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/config"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

// Services bundles what the router dispatches to.
type Services struct {
	Links     ports.LinkService
	Slugs     ports.SlugService
	Clicks    ports.ClickService
	Analytics ports.AnalyticsService
}

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, svc Services) http.Handler {
	h := NewHTTPHandler(svc.Links, svc.Analytics)
	ph := NewPageHandler(svc.Links, svc.Slugs, cfg.AppURL)
	th := NewTrackHandler(svc.Clicks)

	mw := NewMiddleware(cfg)
	authHandler := NewAuthHandler(cfg, svc.Slugs)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.HandleFunc("GET /u/{slug}", ph.GetPublicPage)
	mux.HandleFunc("POST /api/track-click", th.Track)
	mux.HandleFunc("GET /api/v1/slugs/{slug}", ph.ResolveSlug)
	mux.HandleFunc("GET /api/v1/usernames/{username}/availability", ph.Availability)
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// Protected Routes
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /api/v1/links", h.Create)
	protectedMux.HandleFunc("GET /api/v1/links", h.List)
	protectedMux.HandleFunc("GET /api/v1/links/count", h.Count)
	protectedMux.HandleFunc("GET /api/v1/links/events", h.Events)
	protectedMux.HandleFunc("PUT /api/v1/links/order", h.Reorder)
	protectedMux.HandleFunc("GET /api/v1/links/{id}", h.Get)
	protectedMux.HandleFunc("PUT /api/v1/links/{id}", h.Update)
	protectedMux.HandleFunc("DELETE /api/v1/links/{id}", h.Delete)
	protectedMux.HandleFunc("GET /api/v1/links/{id}/analytics", h.Analytics)
	protectedMux.HandleFunc("GET /api/v1/me/username", ph.GetMyUsername)
	protectedMux.HandleFunc("PUT /api/v1/me/username", ph.SetMyUsername)

	// protectedMux holds full paths, so mounting it on the prefix dispatches as-is.
	// The public /api/v1 patterns above are more specific and win.
	mux.Handle("/api/v1/", mw.AuthMiddleware(protectedMux))

	return WithLogging(mux)
}
