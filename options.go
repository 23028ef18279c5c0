package lowrank

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

type Option func(*settings) error

type settings struct {
	workers int
	logger  logrus.FieldLogger
}

// WithLogger sends stage logs to logger. Stage timings are logged at debug level.
// Nothing is logged by default.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *settings) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithConcurrency limits how many channels are factorized at once.
// Zero, the default, runs every channel in its own goroutine.
func WithConcurrency(n int) Option {
	return func(s *settings) error {
		if n < 0 {
			return errors.New("concurrency must not be negative")
		}
		s.workers = n
		return nil
	}
}

func (s *settings) init(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return err
		}
	}
	if s.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.logger = l
	}
	return nil
}
