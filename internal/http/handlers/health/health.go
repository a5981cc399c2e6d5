// Package health реализует проверку готовности бота для оркестратора.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/duragon35SG/habit-bot/internal/http/response"
	"github.com/duragon35SG/habit-bot/internal/lib/sl"
)

const pingTimeout = 2 * time.Second

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	log     *slog.Logger
	storage Pinger
}

func New(log *slog.Logger, storage Pinger) *Handler {
	return &Handler{
		log:     log,
		storage: storage,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	log := h.log.With(
		sl.Op(op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		log.Error("storage is unavailable", sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("storage is unavailable"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"status": "ok",
	}))
}
