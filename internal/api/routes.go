package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blueberrycongee/memgate/internal/observability"
)

// RoutesConfig controls optional route registration.
type RoutesConfig struct {
	MetricsEnabled bool
	MetricsPath    string
}

// NewMux builds the gateway's HTTP mux with request ID propagation.
func NewMux(handler *Handler, cfg RoutesConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handler.Health)
	mux.HandleFunc("POST /v1/turns", handler.Turn)
	mux.HandleFunc("DELETE /v1/conversations/{user}", handler.ClearConversation)

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, promhttp.Handler())
	}

	return observability.RequestIDMiddleware(mux)
}
