// Package logger настраивает slog-логгер приложения в зависимости от окружения.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// Setup создаёт логгер: текстовый вывод для local, JSON для dev и prod.
// Если file не пустой, записи дублируются в файл с ротацией.
func Setup(env, level, file string) *slog.Logger {
	var w io.Writer = os.Stdout
	if file != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	return New(w, env, level)
}

// New создаёт логгер, пишущий в w.
func New(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(env, level)}

	switch env {
	case envDev, envProd:
		return slog.New(slog.NewJSONHandler(w, opts))
	default:
		return slog.New(slog.NewTextHandler(w, opts))
	}
}

func parseLevel(env, level string) slog.Level {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err == nil {
			return lvl
		}
	}
	if env == envProd {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
