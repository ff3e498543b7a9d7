package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	logging "github.com/ipfs/go-log/v2"
	"github.com/raulk/clock"
	"go.opencensus.io/stats"
	"go.uber.org/zap"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/metrics"
)

var log = logging.Logger("lakeflow/retry")

var (
	DefaultBase     = 100 * time.Millisecond
	DefaultMax      = 120 * time.Second
	DefaultAttempts = 10
)

// Config controls the backoff schedule of an Executor. The first retry waits Base, each following
// retry waits twice as long as the previous one, never more than Max.
type Config struct {
	Base     time.Duration
	Max      time.Duration
	Attempts int
}

func DefaultConfig() Config {
	return Config{
		Base:     DefaultBase,
		Max:      DefaultMax,
		Attempts: DefaultAttempts,
	}
}

func (c Config) Validate() error {
	if c.Attempts < 1 {
		return xerrors.Errorf("retry attempts must be at least 1, got %d", c.Attempts)
	}
	if c.Base <= 0 {
		return xerrors.Errorf("retry base interval must be positive, got %s", c.Base)
	}
	if c.Max < c.Base {
		return xerrors.Errorf("retry max interval %s is lower than base interval %s", c.Max, c.Base)
	}
	return nil
}

// ExhaustedError is returned when an operation failed on every attempt it was given.
type ExhaustedError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Name, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Permanent marks err as not worth retrying. The executor returns it to the caller after the
// first attempt.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// A Hook observes every failed attempt that will be retried.
type Hook func(name string, attempt int, next time.Duration, err error)

type Option func(e *Executor)

// WithClock sets the clock used to wait between attempts.
func WithClock(clk clock.Clock) Option {
	return func(e *Executor) {
		e.clock = clk
	}
}

// WithHook registers a function that is called after each failed attempt that will be retried.
func WithHook(h Hook) Option {
	return func(e *Executor) {
		e.hooks = append(e.hooks, h)
	}
}

// WithLogger replaces the package logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Executor) {
		e.log = l
	}
}

// Executor runs store operations, retrying failures with exponential backoff.
type Executor struct {
	cfg   Config
	clock clock.Clock
	hooks []Hook
	log   *zap.SugaredLogger
}

func NewExecutor(cfg Config, opts ...Option) *Executor {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	e := &Executor{
		cfg:   cfg,
		clock: clock.New(),
		log:   &log.SugaredLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Config() Config {
	return e.cfg
}

func (e *Executor) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.Base
	b.MaxInterval = e.cfg.Max
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.cfg.Attempts-1)), ctx)
}

// Do runs op until it succeeds, it returns a permanent error, ctx is cancelled or the attempt
// budget is spent. In the last case an *ExhaustedError wrapping the final failure is returned.
// Each call starts a fresh backoff schedule.
func (e *Executor) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	attempt := 0
	permanent := false
	operation := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		var perr *backoff.PermanentError
		if errors.As(err, &perr) {
			permanent = true
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		stats.Record(ctx, metrics.RetryAttempt.M(1))
		e.log.Errorw("operation failed, retrying", "operation", name, "attempt", attempt, "retry_in", next, "error", err)
		for _, h := range e.hooks {
			h(name, attempt, next, err)
		}
	}

	err := backoff.RetryNotifyWithTimer(operation, e.newBackOff(ctx), notify, &clockTimer{clk: e.clock})
	switch {
	case err == nil:
		return nil
	case permanent:
		return err
	case ctx.Err() != nil:
		return xerrors.Errorf("%s: %w", name, ctx.Err())
	}

	stats.Record(ctx, metrics.RetryExhausted.M(1))
	e.log.Errorw("operation failed on every attempt", "operation", name, "attempts", attempt, "error", err)
	return &ExhaustedError{Name: name, Attempts: attempt, Err: err}
}

// clockTimer adapts a clock.Clock to the timer used by backoff.
type clockTimer struct {
	clk   clock.Clock
	timer *clock.Timer
}

func (t *clockTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = t.clk.Timer(d)
		return
	}
	t.timer.Reset(d)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.timer.C
}
