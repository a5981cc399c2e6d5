package habitbot

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duragon35SG/habit-bot/internal/http/handlers/health"
)

// RegisterRoutes регистрирует служебные маршруты: проверку готовности и метрики.
func RegisterRoutes(r chi.Router, logger *slog.Logger, storage health.Pinger, gatherer prometheus.Gatherer) {
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
	)

	r.Get("/health", health.New(logger, storage).ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
