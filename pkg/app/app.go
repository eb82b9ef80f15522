// Package app wires the adapters and services into the HTTP handler shared
// by the standalone server and the serverless entrypoint.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/adapters/notify"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/adapters/tinybird"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/config"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/core/services"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/ports"
)

// App owns the long-lived resources behind Handler.
type App struct {
	Handler http.Handler

	repo  *sqlstore.Repository
	redis *notify.Redis
}

// New opens the store and, when configured, the redis notifier. Without
// REDIS_URL link changes fan out in-process only.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	repo, err := sqlstore.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	a := &App{repo: repo}

	var notifier ports.LinkNotifier = notify.NewBroker()
	if cfg.RedisURL != "" {
		r, err := notify.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = r
		notifier = r
		slog.Info("link change notifications via redis")
	}

	if cfg.AnalyticsHost == "" || cfg.AnalyticsToken == "" {
		slog.Warn("analytics service not configured, dashboards will show sample data")
	}

	sink := tinybird.NewEventSink(cfg.EventSinkHost, cfg.EventSinkToken, cfg.UpstreamTimeout)
	pipes := tinybird.NewPipeClient(cfg.AnalyticsHost, cfg.AnalyticsToken, cfg.UpstreamTimeout)

	slugs := services.NewSlugService(repo, repo)
	a.Handler = handler.NewRouter(cfg, handler.Services{
		Links:  services.NewLinkService(repo, slugs, notifier),
		Slugs:  slugs,
		Clicks: services.NewClickService(slugs, sink),
		Analytics: services.NewAnalyticsService(pipes, services.AnalyticsPipes{
			Fast:     cfg.AnalyticsFastPipe,
			Fallback: cfg.AnalyticsFallbackPipe,
			Country:  cfg.AnalyticsCountryPipe,
		}),
	})
	return a, nil
}

func (a *App) Close() error {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("closing redis", "error", err)
		}
	}
	return a.repo.Close()
}

// NewLogger returns the process logger: JSON in production, text elsewhere.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
