package chain

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model"
	"github.com/near/lake-flows-into-sql/model/chunks"
	"github.com/near/lake-flows-into-sql/retry"
	"github.com/near/lake-flows-into-sql/testutil"
)

func feed(from, to uint64) <-chan *lake.StreamerMessage {
	ch := make(chan *lake.StreamerMessage, to-from+1)
	for h := from; h <= to; h++ {
		ch <- testutil.NewMessage(h)
	}
	close(ch)
	return ch
}

type commitLog struct {
	mu      sync.Mutex
	heights []uint64
}

func (c *commitLog) record(h uint64) {
	c.mu.Lock()
	c.heights = append(c.heights, h)
	c.mu.Unlock()
}

func (c *commitLog) all() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.heights...)
}

func blockHeights(rows []model.Row) []uint64 {
	out := make([]uint64, 0, len(rows))
	for _, r := range rows {
		out = append(out, uint64(r.Values()[0].(decimal.Decimal).IntPart()))
	}
	return out
}

func heightRange(from, to uint64) []uint64 {
	var out []uint64
	for h := from; h <= to; h++ {
		out = append(out, h)
	}
	return out
}

// slowStorage delays the chunk rows of a block by an amount depending on the block's height.
type slowStorage struct {
	model.Storage
	delay func(height uint64) time.Duration
}

func (s *slowStorage) PersistBatch(ctx context.Context, ps ...model.Persistable) error {
	for _, p := range ps {
		if cs, ok := p.(chunks.Chunks); ok && len(cs) > 0 {
			ts := uint64(cs[0].IncludedInBlockTimestamp.IntPart())
			time.Sleep(s.delay((ts - testutil.GenesisTimestamp) / 1_000_000_000))
		}
	}
	return s.Storage.PersistBatch(ctx, ps...)
}

func TestDispatcherSequential(t *testing.T) {
	s, mem := newMemStore(1, nil)
	cl := &commitLog{}
	d := NewDispatcher(NewIndexer(s, "test"), 1, "test")
	d.OnCommit = cl.record

	require.NoError(t, d.Run(context.Background(), feed(1, 6)))
	assert.Equal(t, heightRange(1, 6), cl.all())
	assert.Equal(t, heightRange(1, 6), blockHeights(mem.Rows("blocks")))
	assert.Len(t, mem.Rows("account_changes"), 12)
}

func TestDispatcherCommitsInOrderWhenConcurrent(t *testing.T) {
	s, mem := newMemStore(1, nil)
	slow := &slowStorage{
		Storage: s,
		delay: func(h uint64) time.Duration {
			// earlier blocks take longer
			return time.Duration(12-h) * 2 * time.Millisecond
		},
	}
	cl := &commitLog{}
	d := NewDispatcher(NewIndexer(slow, "test"), 4, "test")
	d.OnCommit = cl.record

	require.NoError(t, d.Run(context.Background(), feed(1, 12)))
	assert.Equal(t, heightRange(1, 12), cl.all())
	assert.Equal(t, heightRange(1, 12), blockHeights(mem.Rows("blocks")))
}

func TestDispatcherStopsOnFatalError(t *testing.T) {
	for _, concurrency := range []int{1, 3} {
		s, mem := newMemStore(1, nil)
		cl := &commitLog{}
		d := NewDispatcher(NewIndexer(s, "test"), concurrency, "test")

		// The first block row goes through, the second one fails on its only attempt.
		errDown := errors.New("connection refused")
		ctx, cancel := context.WithCancel(context.Background())
		d.OnCommit = func(h uint64) {
			cl.record(h)
			if h == 1 {
				mem.FailInserts("blocks", errDown)
			}
		}

		msgs := make(chan *lake.StreamerMessage)
		go func() {
			defer close(msgs)
			for h := uint64(1); h <= 10; h++ {
				select {
				case msgs <- testutil.NewMessage(h):
				case <-ctx.Done():
					return
				}
			}
		}()

		err := d.Run(ctx, msgs)
		cancel()
		var exhausted *retry.ExhaustedError
		require.ErrorAs(t, err, &exhausted, "concurrency=%d", concurrency)
		assert.Equal(t, "insert blocks", exhausted.Name)
		assert.ErrorIs(t, err, errDown)

		// No block after the failed one is committed.
		assert.Equal(t, []uint64{1}, cl.all(), "concurrency=%d", concurrency)
		assert.Equal(t, []uint64{1}, blockHeights(mem.Rows("blocks")), "concurrency=%d", concurrency)
	}
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	s, _ := newMemStore(1, nil)
	d := NewDispatcher(NewIndexer(s, "test"), 2, "test")

	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan *lake.StreamerMessage)
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, msgs) }()

	msgs <- testutil.NewMessage(1)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcherRejectsUnconvertibleBlock(t *testing.T) {
	s, mem := newMemStore(1, nil)
	d := NewDispatcher(NewIndexer(s, "test"), 1, "test")

	bad := testutil.NewMessage(2)
	bad.Shards[0].StateChanges = append(bad.Shards[0].StateChanges,
		testutil.AccountUpdate("carol.near", lake.StateChangeCauseView{Type: lake.CauseNotWritableToDisk}, "1", "0", 1))

	msgs := make(chan *lake.StreamerMessage, 3)
	msgs <- testutil.NewMessage(1)
	msgs <- bad
	msgs <- testutil.NewMessage(3)
	close(msgs)

	err := d.Run(context.Background(), msgs)
	require.Error(t, err)
	assert.Equal(t, []uint64{1}, blockHeights(mem.Rows("blocks")))
}
