package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// newLogger builds the process logger. "pretty" is a colorized handler for
// terminals; "text" and "json" are the standard slog handlers.
func newLogger(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	var handler slog.Handler
	switch format {
	case "", "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "pretty":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	default:
		return nil, fmt.Errorf("unknown log format %q: must be one of %v", format, ValidLogFormats)
	}
	return slog.New(handler), nil
}
