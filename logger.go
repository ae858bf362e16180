package reason

import (
	"github.com/rs/zerolog"

	"github.com/smilemakc/reason/internal/infrastructure/logger"
)

// LoggerOptions configures the default logger NewLogger builds.
type LoggerOptions = logger.Options

// NewLogger builds the zerolog.Logger a Run call should be given when the
// caller has no logger of its own.
func NewLogger(opts LoggerOptions) zerolog.Logger {
	return logger.New(opts)
}
