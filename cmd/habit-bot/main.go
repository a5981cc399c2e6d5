// Package main запускает Telegram-бота для отслеживания привычек.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/duragon35SG/habit-bot/internal/app/habitbot"
	"github.com/duragon35SG/habit-bot/internal/config"
	"github.com/duragon35SG/habit-bot/internal/lib/logger"
	"github.com/duragon35SG/habit-bot/internal/lib/sl"
)

func main() {
	// .env необязателен, переменные окружения могут быть заданы снаружи.
	_ = godotenv.Load()

	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env, cfg.Level, cfg.File)

	log.Info("starting habit-bot", slog.String("env", cfg.Env))
	log.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := habitbot.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("habit-bot stopped gracefully")
}
