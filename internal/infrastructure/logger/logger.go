// Package logger builds the zerolog.Logger used throughout the engine,
// grounded on the teacher's infrastructure/logger: a console writer for
// interactive use, plain JSON for everything else, one shared level knob.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Options configures the shared logger.
type Options struct {
	Level  string // "debug", "info", "warn", "error"; defaults to "info"
	Pretty bool   // force the console writer even when stdout isn't a TTY
}

// New builds a zerolog.Logger writing to stdout, using a colorized
// console writer when stdout is a terminal (or Pretty is forced) and
// structured JSON otherwise.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var w io.Writer = os.Stdout
	if opts.Pretty || isatty.IsTerminal(os.Stdout.Fd()) {
		w = zerolog.ConsoleWriter{Out: colorable.NewColorable(os.Stdout), TimeFormat: "15:04:05"}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
