package chain

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"go.opencensus.io/stats"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/metrics"
)

// DefaultConcurrency is the number of blocks persisted at the same time unless configured otherwise.
const DefaultConcurrency = 1

// A Dispatcher indexes a stream of messages with a bounded number of messages in flight.
//
// Rows of up to concurrency messages are persisted at the same time, but block rows are committed strictly in
// the order the messages arrived: a message's block row waits for the block row of the message before it. The
// most recent block in the store is therefore always the last block that may be incomplete, whatever the
// concurrency.
type Dispatcher struct {
	indexer     *Indexer
	concurrency int
	name        string

	inFlight atomic.Int64
	// OnCommit, when set, is called after the block row of each message has been written.
	OnCommit func(height uint64)
}

func NewDispatcher(i *Indexer, concurrency int, name string) *Dispatcher {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Dispatcher{
		indexer:     i,
		concurrency: concurrency,
		name:        name,
	}
}

// Run indexes messages from msgs until the channel is closed, ctx is cancelled or a message fails to be indexed.
// Messages already in flight are allowed to finish before Run returns. The first indexing failure is returned;
// it is fatal since skipping the message would leave a gap in the store.
func (d *Dispatcher) Run(ctx context.Context, msgs <-chan *lake.StreamerMessage) error {
	ctx = metrics.WithTagValue(ctx, metrics.Name, d.name)
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		fatalOnce sync.Once
		fatal     error
	)
	fail := func(err error) {
		fatalOnce.Do(func() {
			fatal = err
			cancel()
		})
	}

	pool := workerpool.New(d.concurrency)
	slots := semaphore.NewWeighted(int64(d.concurrency))

	// prev is closed once the block row of the previous message is committed.
	prev := make(chan struct{})
	close(prev)

loop:
	for {
		var msg *lake.StreamerMessage
		select {
		case <-wctx.Done():
			break loop
		case m, ok := <-msgs:
			if !ok {
				break loop
			}
			msg = m
		}

		if err := slots.Acquire(wctx, 1); err != nil {
			break loop
		}
		d.recordInFlight(wctx, 1)

		after := prev
		committed := make(chan struct{})
		prev = committed

		pool.Submit(func() {
			defer slots.Release(1)
			defer d.recordInFlight(wctx, -1)
			if err := d.process(wctx, msg, after); err != nil {
				fail(err)
				return
			}
			close(committed)
		})
	}

	pool.StopWait()

	if fatal != nil {
		return fatal
	}
	return ctx.Err()
}

func (d *Dispatcher) process(ctx context.Context, msg *lake.StreamerMessage, after <-chan struct{}) error {
	start := time.Now()
	height := msg.Height()
	ll := log.With("height", height, "reporter", d.name)

	res, err := Extract(msg)
	if err != nil {
		ll.Errorw("failed to convert block", "error", err)
		return err
	}
	if err := d.indexer.PersistRows(ctx, res); err != nil {
		ll.Errorw("failed to persist block rows", "error", err)
		return err
	}

	select {
	case <-after:
	case <-ctx.Done():
		return xerrors.Errorf("block %d waiting for its predecessor: %w", height, ctx.Err())
	}

	if err := d.indexer.Commit(ctx, res); err != nil {
		ll.Errorw("failed to commit block", "error", err)
		return err
	}

	stats.Record(ctx, metrics.ProcessingDuration.M(metrics.SinceInMilliseconds(start)), metrics.IndexedHeight.M(int64(height)))
	ll.Infow("block indexed",
		"transactions", len(res.Transactions),
		"receipts", len(res.Receipts.Receipts),
		"account_changes", len(res.AccountChanges),
		"duration", time.Since(start),
	)
	if d.OnCommit != nil {
		d.OnCommit(height)
	}
	return nil
}

func (d *Dispatcher) recordInFlight(ctx context.Context, delta int64) {
	stats.Record(ctx, metrics.InFlightMessages.M(d.inFlight.Add(delta)))
}
