package chain

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/multierr"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/metrics"
	"github.com/near/lake-flows-into-sql/model"
	"github.com/near/lake-flows-into-sql/model/blocks"
	"github.com/near/lake-flows-into-sql/storage"
)

// DefaultInitialHeight is the height indexing starts from when the store holds no blocks.
const DefaultInitialHeight uint64 = 83030086

// RecoveryStore is the part of the store used to find and remove the rows of an interrupted block.
type RecoveryStore interface {
	MaxBlockTimestamp(ctx context.Context) (decimal.Decimal, bool, error)
	MaxBlockHeight(ctx context.Context) (uint64, bool, error)
	DeleteFromTimestamp(ctx context.Context, t model.Table, ts decimal.Decimal) error
}

// Recover makes the store safe to resume into and returns the height of the first block to index.
//
// The most recent block in the store may have been interrupted while its rows were being written, so the rows
// of every table belonging to it, or to any later block, are deleted and the block will be indexed again. The
// block row itself is deleted last, once every other table is clean, so a failed recovery can simply be rerun.
// The returned height is one above the highest remaining block, or initialHeight when no block remains.
func Recover(ctx context.Context, s RecoveryStore, initialHeight uint64) (uint64, error) {
	ctx, span := otel.Tracer("").Start(ctx, "Recover")
	defer span.End()

	ts, ok, err := s.MaxBlockTimestamp(ctx)
	if err != nil {
		return 0, xerrors.Errorf("find last block: %w", err)
	}
	if !ok {
		log.Infow("store holds no blocks", "resume_height", initialHeight)
		return initialHeight, nil
	}

	log.Infow("removing rows of last block", "block_timestamp", ts)
	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	var marker []model.Table
	for _, t := range storage.Tables {
		t := t
		if t.Name == blocks.Table.Name {
			marker = append(marker, t)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.DeleteFromTimestamp(ctx, t, ts)
			mu.Lock()
			errs = multierr.Append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()
	if errs != nil {
		span.RecordError(errs)
		return 0, xerrors.Errorf("remove rows of last block: %w", errs)
	}

	for _, t := range marker {
		if err := s.DeleteFromTimestamp(ctx, t, ts); err != nil {
			return 0, xerrors.Errorf("remove last block: %w", err)
		}
	}
	metrics.RecordCount(ctx, metrics.RecoveredTables, len(storage.Tables))

	height, ok, err := s.MaxBlockHeight(ctx)
	if err != nil {
		return 0, xerrors.Errorf("find last remaining block: %w", err)
	}
	if !ok {
		log.Infow("no blocks remain after recovery", "resume_height", initialHeight)
		return initialHeight, nil
	}
	log.Infow("recovered store", "last_block", height, "resume_height", height+1)
	return height + 1, nil
}
