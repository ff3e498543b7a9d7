package chain

import (
	"context"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/metrics"
	"github.com/near/lake-flows-into-sql/model"
	"github.com/near/lake-flows-into-sql/model/blocks"
)

var log = logging.Logger("lakeflow/chain")

// An Indexer persists the rows of a block. The block row is the block's commit marker: it is written only after
// the rows of every other kind have been stored, so the most recent block in the store is always the last block
// whose rows may be incomplete.
type Indexer struct {
	storage model.Storage
	name    string
}

func NewIndexer(s model.Storage, name string) *Indexer {
	return &Indexer{
		storage: s,
		name:    name,
	}
}

// Index converts msg and persists all of its rows.
func (i *Indexer) Index(ctx context.Context, msg *lake.StreamerMessage) error {
	res, err := Extract(msg)
	if err != nil {
		return err
	}
	if err := i.PersistRows(ctx, res); err != nil {
		return err
	}
	return i.Commit(ctx, res)
}

// PersistRows persists the rows of every kind except the block concurrently, one batch per kind. It returns the
// first fatal failure; batches of other kinds that already completed are not undone.
func (i *Indexer) PersistRows(ctx context.Context, res *Result) error {
	ctx, span := otel.Tracer("").Start(ctx, "Indexer.PersistRows")
	span.SetAttributes(attribute.Int64("height", int64(res.Height)))
	defer span.End()

	start := time.Now()
	grp, gctx := errgroup.WithContext(ctx)
	for _, mr := range res.Models() {
		mr := mr
		grp.Go(func() error {
			ctx, span := otel.Tracer("").Start(gctx, fmt.Sprintf("Indexer.PersistRows.%s", mr.Name))
			defer span.End()
			ctx = metrics.WithTagValue(ctx, metrics.Table, mr.Name)

			if err := i.storage.PersistBatch(ctx, mr.Model); err != nil {
				span.RecordError(err)
				return xerrors.Errorf("persist %s of block %d: %w", mr.Name, res.Height, err)
			}
			log.Debugw("rows persisted", "height", res.Height, "table", mr.Name, "duration", time.Since(start), "reporter", i.name)
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Commit writes the block row.
func (i *Indexer) Commit(ctx context.Context, res *Result) error {
	ctx, span := otel.Tracer("").Start(ctx, "Indexer.Commit")
	span.SetAttributes(attribute.Int64("height", int64(res.Height)))
	defer span.End()
	ctx = metrics.WithTagValue(ctx, metrics.Table, blocks.Table.Name)

	if err := i.storage.PersistBatch(ctx, res.Block); err != nil {
		span.RecordError(err)
		return xerrors.Errorf("persist block %d: %w", res.Height, err)
	}
	return nil
}
