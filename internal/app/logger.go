package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger. Production always
// emits JSON so log shipping does not depend on LOG_FORMAT; elsewhere
// the format follows configuration and defaults to text. Every record
// carries a service attribute so taskforge and worker lines can be told
// apart from co-located processes.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg.IsProduction() || (cfg != nil && cfg.LogFormat == "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler.WithAttrs([]slog.Attr{slog.String("service", "taskforge")}))
}
