package nndquant

import (
	"time"

	"github.com/rs/zerolog"
)

// Option configures optional behavior of a batch run.
type Option func(*options)

// options holds the optional collaborators for one Run call.
type options struct {
	logger zerolog.Logger
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		logger: zerolog.Nop(),
		now:    time.Now,
	}
}

// WithLogger sets the logger used for per-sample warnings and run progress.
// If not provided, logging is disabled.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock overrides the time source used for the run timestamp and the
// generated output file name. Intended for tests that need reproducible
// output paths.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
