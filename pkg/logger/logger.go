package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger for one binary (api, consumer). Every line
// carries the service name and the caller. pretty switches to console output
// for local runs.
func New(service, level string, pretty bool) zerolog.Logger {
	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return build(out, level).With().Caller().Str("service", service).Logger()
}

// NewWithWriter is New without service tagging, writing JSON to w.
func NewWithWriter(level string, w io.Writer) zerolog.Logger {
	return build(w, level)
}

// Component tags a child logger with the subsystem it belongs to, e.g.
// "outbox-relay" or "settlement".
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func build(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(Level(level)).With().Timestamp().Logger()
}

// Level maps a configured level name to zerolog's. Unknown or empty names,
// and levels quieter than error, fall back to info so a typo in config never
// silences the ledger.
func Level(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel || lvl > zerolog.ErrorLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
