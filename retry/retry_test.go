package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("connection reset by peer")

type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) hook(_ string, _ int, next time.Duration, _ error) {
	r.mu.Lock()
	r.delays = append(r.delays, next)
	r.mu.Unlock()
}

func (r *delayRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func testConfig(attempts int) Config {
	return Config{Base: time.Millisecond, Max: 4 * time.Millisecond, Attempts: attempts}
}

func TestExecutorSuccessConsumesNoBudget(t *testing.T) {
	rec := &delayRecorder{}
	e := NewExecutor(testConfig(3), WithHook(rec.hook))

	calls := 0
	for i := 0; i < 5; i++ {
		err := e.Do(context.Background(), "select", func(ctx context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 5, calls)
	assert.Empty(t, rec.recorded())
}

func TestExecutorAttemptCount(t *testing.T) {
	const attempts = 4

	testCases := []struct {
		name     string
		failures int
		wantErr  bool
	}{
		{name: "no failures", failures: 0},
		{name: "fewer failures than attempts", failures: 2},
		{name: "one failure short of budget", failures: attempts - 1},
		{name: "exactly the budget", failures: attempts, wantErr: true},
		{name: "more failures than budget", failures: attempts + 3, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewExecutor(testConfig(attempts))
			calls := 0
			err := e.Do(context.Background(), "insert blocks", func(ctx context.Context) error {
				calls++
				if calls <= tc.failures {
					return errFlaky
				}
				return nil
			})

			want := tc.failures + 1
			if tc.failures >= attempts {
				want = attempts
			}
			assert.Equal(t, want, calls)

			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			var exhausted *ExhaustedError
			require.ErrorAs(t, err, &exhausted)
			assert.Equal(t, "insert blocks", exhausted.Name)
			assert.Equal(t, attempts, exhausted.Attempts)
			assert.ErrorIs(t, err, errFlaky)
		})
	}
}

func TestExecutorBackoffMonotonicAndCapped(t *testing.T) {
	rec := &delayRecorder{}
	cfg := testConfig(8)
	e := NewExecutor(cfg, WithHook(rec.hook))

	err := e.Do(context.Background(), "delete chunks", func(ctx context.Context) error {
		return errFlaky
	})
	require.Error(t, err)

	delays := rec.recorded()
	require.Len(t, delays, cfg.Attempts-1)
	assert.Equal(t, cfg.Base, delays[0])
	for i := 1; i < len(delays); i++ {
		assert.GreaterOrEqual(t, delays[i], delays[i-1])
		assert.LessOrEqual(t, delays[i], cfg.Max)
	}
	assert.Equal(t, []time.Duration{
		time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond,
	}, delays)
}

func TestExecutorScheduleResetsBetweenCalls(t *testing.T) {
	rec := &delayRecorder{}
	e := NewExecutor(testConfig(5), WithHook(rec.hook))

	for i := 0; i < 2; i++ {
		calls := 0
		err := e.Do(context.Background(), "insert receipts", func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errFlaky
			}
			return nil
		})
		require.NoError(t, err)
	}

	assert.Equal(t, []time.Duration{
		time.Millisecond, 2 * time.Millisecond,
		time.Millisecond, 2 * time.Millisecond,
	}, rec.recorded())
}

func TestExecutorPermanentErrorIsNotRetried(t *testing.T) {
	e := NewExecutor(testConfig(5))
	errBad := errors.New("invalid input syntax for type numeric")

	calls := 0
	err := e.Do(context.Background(), "insert transactions", func(ctx context.Context) error {
		calls++
		return Permanent(errBad)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBad)
	assert.Equal(t, 1, calls)

	var exhausted *ExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestExecutorStopsOnCancelledContext(t *testing.T) {
	e := NewExecutor(Config{Base: time.Hour, Max: time.Hour, Attempts: 5})
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error)
	go func() {
		done <- e.Do(ctx, "select", func(ctx context.Context) error {
			calls++
			return errFlaky
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("executor did not observe context cancellation")
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Base: time.Second, Max: time.Second, Attempts: 0}.Validate())
	assert.Error(t, Config{Base: 0, Max: time.Second, Attempts: 1}.Validate())
	assert.Error(t, Config{Base: time.Second, Max: time.Millisecond, Attempts: 1}.Validate())
}
