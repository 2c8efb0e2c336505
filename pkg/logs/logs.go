// Package logs builds the process logger. Records go to stdout, a rotated
// file and Loki in any combination, and every record logged with a
// context picks up the request id and caller scope.
package logs

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Alijeyrad/simward_backend/config"
)

func New(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)
	dev := strings.EqualFold(cfg.Server.Environment, "development")

	var handlers []slog.Handler
	if w := localWriter(cfg.Logging.Output); w != nil {
		opts := &slog.HandlerOptions{Level: level, AddSource: dev}
		// Text output is a development convenience only.
		if dev && !strings.EqualFold(cfg.Logging.Format, "json") {
			handlers = append(handlers, slog.NewTextHandler(w, opts))
		} else {
			handlers = append(handlers, slog.NewJSONHandler(w, opts))
		}
	}
	if cfg.Logging.Output.Loki.Enabled {
		handlers = append(handlers, newLokiHandler(cfg, level))
	}

	return slog.New(contextHandler{combine(handlers)}).With(
		slog.String("service", cfg.Observability.ServiceName),
		slog.String("version", cfg.Observability.ServiceVersion),
		slog.String("env", cfg.Server.Environment),
	)
}

// Default is the logger used by CLI commands before config is read.
func Default() *slog.Logger {
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(contextHandler{h}).With(slog.String("service", "simward"))
}

// localWriter returns stdout and the rotated file as configured. Stdout is
// the fallback when no output at all is enabled.
func localWriter(out config.OutputConfig) io.Writer {
	var ws []io.Writer
	if out.Stdout || (!out.File.Enabled && !out.Loki.Enabled) {
		ws = append(ws, os.Stdout)
	}
	if f := out.File; f.Enabled {
		ws = append(ws, &lumberjack.Logger{
			Filename:   f.Path,
			MaxSize:    f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAge:     f.MaxAgeDays,
			Compress:   f.Compress,
		})
	}
	switch len(ws) {
	case 0:
		return nil
	case 1:
		return ws[0]
	}
	return io.MultiWriter(ws...)
}

func combine(hs []slog.Handler) slog.Handler {
	if len(hs) == 1 {
		return hs[0]
	}
	return &multiHandler{handlers: hs}
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
