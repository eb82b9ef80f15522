package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/wadjakorntonsri/go-link-in-bio/pkg/app"
	"github.com/wadjakorntonsri/go-link-in-bio/pkg/config"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	slog.SetDefault(app.NewLogger(cfg))

	// On Vercel the local file is ephemeral; point DATABASE_URL at libsql or postgres.
	application, err := app.New(context.Background(), cfg)
	if err != nil {
		panic(err)
	}
	mux = application.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
