package lake

import (
	"context"
	"time"

	"github.com/raulk/clock"
	"go.opencensus.io/stats"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/near/lake-flows-into-sql/metrics"
	"github.com/near/lake-flows-into-sql/retry"
)

var (
	DefaultPrefetchSize = 10
	DefaultPollInterval = 2 * time.Second
)

type StreamerConfig struct {
	StartHeight  uint64
	StopHeight   uint64 // last height to stream, zero streams forever
	PrefetchSize int    // blocks fetched concurrently ahead of the consumer
	PollInterval time.Duration
	Follow       bool // wait for new blocks once the lake is exhausted instead of ending the stream
}

type StreamerOption func(s *Streamer)

// WithStreamerClock sets the clock used to wait between polls.
func WithStreamerClock(clk clock.Clock) StreamerOption {
	return func(s *Streamer) {
		s.clock = clk
	}
}

// Streamer turns a Fetcher into an ordered stream of messages.
type Streamer struct {
	fetcher Fetcher
	cfg     StreamerConfig
	retry   *retry.Executor
	clock   clock.Clock
}

func NewStreamer(f Fetcher, cfg StreamerConfig, r *retry.Executor, opts ...StreamerOption) *Streamer {
	if cfg.PrefetchSize < 1 {
		cfg.PrefetchSize = DefaultPrefetchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	s := &Streamer{
		fetcher: f,
		cfg:     cfg,
		retry:   r,
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sends every block at or above the start height to out in ascending height order and closes out when it
// returns. It returns nil when the stream ends, the context error when ctx is cancelled and the fetch error
// when the source could not be read after retrying.
func (s *Streamer) Run(ctx context.Context, out chan<- *StreamerMessage) error {
	defer close(out)
	ctx = metrics.WithTagValue(ctx, metrics.Source, s.fetcher.Kind())

	next := s.cfg.StartHeight
	log.Infow("streaming blocks", "source", s.fetcher.Kind(), "from", next, "follow", s.cfg.Follow)
	for {
		if s.cfg.StopHeight > 0 && next > s.cfg.StopHeight {
			log.Infow("reached stop height", "height", s.cfg.StopHeight)
			return nil
		}

		heights, passedStop, err := s.list(ctx, next)
		if err != nil {
			return err
		}
		if len(heights) == 0 {
			if passedStop {
				log.Infow("reached stop height", "height", s.cfg.StopHeight)
				return nil
			}
			if !s.cfg.Follow {
				log.Infow("no more blocks in lake", "from", next)
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(s.cfg.PollInterval):
			}
			continue
		}

		msgs, err := s.fetchAll(ctx, heights)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			select {
			case out <- m:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if passedStop {
			log.Infow("reached stop height", "height", s.cfg.StopHeight)
			return nil
		}
		next = heights[len(heights)-1] + 1
	}
}

// list returns the next heights to fetch. The boolean is true when the source holds a block above the stop
// height, in which case no height after the returned ones will ever be streamed.
func (s *Streamer) list(ctx context.Context, from uint64) ([]uint64, bool, error) {
	var heights []uint64
	err := s.retry.Do(ctx, "list "+s.fetcher.Kind(), func(ctx context.Context) error {
		var err error
		heights, err = s.fetcher.ListBlocks(ctx, from, s.cfg.PrefetchSize)
		if err != nil {
			stats.Record(ctx, metrics.FetchFailure.M(1))
		}
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if s.cfg.StopHeight > 0 {
		for i, h := range heights {
			if h > s.cfg.StopHeight {
				return heights[:i], true, nil
			}
		}
	}
	return heights, false, nil
}

// fetchAll fetches heights concurrently and returns the messages in the order of heights.
func (s *Streamer) fetchAll(ctx context.Context, heights []uint64) ([]*StreamerMessage, error) {
	ctx, span := otel.Tracer("").Start(ctx, "Streamer.fetchAll")
	span.SetAttributes(attribute.Int("count", len(heights)), attribute.Int64("from", int64(heights[0])))
	defer span.End()

	msgs := make([]*StreamerMessage, len(heights))
	grp, gctx := errgroup.WithContext(ctx)
	for i, h := range heights {
		i, h := i, h
		grp.Go(func() error {
			stop := metrics.Timer(gctx, metrics.FetchDuration)
			defer stop()
			return s.retry.Do(gctx, "fetch "+HeightPrefix(h), func(ctx context.Context) error {
				m, err := s.fetcher.FetchMessage(ctx, h)
				if err != nil {
					stats.Record(ctx, metrics.FetchFailure.M(1))
					return err
				}
				msgs[i] = m
				return nil
			})
		})
	}
	if err := grp.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return msgs, nil
}
