// Package logger configures the process-wide slog handler.
package logger

import (
	"io"
	"log/slog"

	"github.com/fatih/color"
)

// Options controls the handler returned by NewHandler
type Options struct {
	Level     slog.Leveler
	AddSource bool
	Color     bool
}

// DefaultOptions logs at info level with colored levels
var DefaultOptions = &Options{
	Level: slog.LevelInfo,
	Color: true,
}

var levelColors = map[slog.Level]*color.Color{
	slog.LevelDebug: color.New(color.FgHiBlack),
	slog.LevelInfo:  color.New(color.FgGreen),
	slog.LevelWarn:  color.New(color.FgYellow),
	slog.LevelError: color.New(color.FgRed, color.Bold),
}

// NewHandler returns a text handler. Level names are colored unless color
// output is disabled, either in opts or globally through color.NoColor.
func NewHandler(w io.Writer, opts *Options) slog.Handler {
	if opts == nil {
		opts = DefaultOptions
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.AddSource,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if !opts.Color || len(groups) > 0 || a.Key != slog.LevelKey {
				return a
			}
			level, ok := a.Value.Any().(slog.Level)
			if !ok {
				return a
			}
			if c, ok := levelColors[level]; ok {
				a.Value = slog.StringValue(c.Sprint(level.String()))
			}
			return a
		},
	})
}

// ParseLevel maps a level name to a slog.Level, defaulting to info
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Err wraps an error as a structured attribute
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
