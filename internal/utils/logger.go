package utils

import (
	"io"
	"log/slog"
	"os"

	"github.com/ahmadqo/bengkel-pinjam/internal/config"
)

// NewLogger membuat logger slog sesuai konfigurasi LOG_JSON / LOG_DEBUG.
func NewLogger(cfg *config.LogConfig) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
