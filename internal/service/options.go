package service

import (
	"log/slog"
	"time"
)

// DefaultTimeout bounds one structural write, lock wait included.
const DefaultTimeout = 50 * time.Second

// Option configures the services built by this package.
type Option func(*settings)

type settings struct {
	now      func() time.Time
	timeout  time.Duration
	logger   *slog.Logger
	observer UseCaseObserver

	batchSize   int
	concurrency int
}

func newSettings(opts []Option) settings {
	s := settings{
		now:         func() time.Time { return time.Now().UTC() },
		timeout:     DefaultTimeout,
		logger:      slog.New(slog.DiscardHandler),
		observer:    NoopUseCaseObserver{},
		batchSize:   10,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithClock replaces the wall clock. The engine only uses its date.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithTimeout bounds each structural write.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger for projection warnings and sweep failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver receives one event per use case.
func WithObserver(o UseCaseObserver) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithSweepBatch sets how many stale projects one sweep tick picks up and
// how many it recomputes at once.
func WithSweepBatch(size, concurrency int) Option {
	return func(s *settings) {
		if size > 0 {
			s.batchSize = size
		}
		if concurrency > 0 {
			s.concurrency = concurrency
		}
	}
}
