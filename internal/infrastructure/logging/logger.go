package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/inventory-core/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "inventory"

// Logger is a slog.Logger carrying the service's default fields.
// It is safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to cfg.Output ("stdout" or "stderr").
// Format "text" selects the text handler; anything else logs JSON.
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWithWriter(cfg, version, outputFor(cfg.Output))
}

// NewWithWriter is New with an explicit destination. cfg.Output is ignored.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	}

	return &Logger{slog.New(h.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	}))}
}

// Default creates a logger for use before configuration is loaded:
// JSON on stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

func outputFor(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps debug, info, warn(ing) and error to slog levels,
// case-insensitively. Anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a Logger with additional default attributes.
//
//	apiLogger := logger.With("component", "api")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// WithSite tags every entry with the deployment's site id.
func (l *Logger) WithSite(site config.SiteConfig) *Logger {
	if site.ID == "" {
		return l
	}
	return l.With("site_id", site.ID)
}
