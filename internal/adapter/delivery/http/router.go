// Package http exposes the URL registry over HTTP: shortening, redirects,
// click analytics, liveness, Prometheus metrics and the OpenAPI document.
package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter builds the chi router of the service. Each router owns its
// own Prometheus registry, served on /metrics.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase) *chi.Mux {
	r := chi.NewRouter()

	reg := prometheus.NewRegistry()
	m := newMetrics(reg)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(m.instrument)

	r.Get("/ping", handlePing)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))
	r.Get("/docs/swagger.yml", handleSwaggerDoc)

	h := newURLHandler(urlUseCase, newValidator())

	r.Post("/shorten", h.shorten)
	r.Get("/analytics/{shortCode}", h.getAnalytics)
	r.Get("/{shortCode}", h.resolve)

	return r
}
