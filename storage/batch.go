package storage

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/metrics"
	"github.com/near/lake-flows-into-sql/model"
	"github.com/near/lake-flows-into-sql/retry"
)

// DefaultMaxRowsPerStatement bounds the number of rows inserted by a single statement.
var DefaultMaxRowsPerStatement = 100

// An Inserter writes rows of one table with a single statement.
type Inserter interface {
	Insert(ctx context.Context, t model.Table, rows []model.Row) error
}

// A BatchWriter splits rows into chunks of at most MaxRows and inserts the chunks concurrently, each through
// the retry executor. Chunks are not written atomically: when one chunk fails for good the chunks already
// written stay in the store.
type BatchWriter struct {
	inserter Inserter
	retry    *retry.Executor
	maxRows  int
}

func NewBatchWriter(i Inserter, r *retry.Executor, maxRows int) *BatchWriter {
	if maxRows < 1 {
		maxRows = DefaultMaxRowsPerStatement
	}
	return &BatchWriter{
		inserter: i,
		retry:    r,
		maxRows:  maxRows,
	}
}

func (w *BatchWriter) MaxRows() int {
	return w.maxRows
}

// Write inserts rows into t and returns once every chunk is written or one of them failed on every attempt.
func (w *BatchWriter) Write(ctx context.Context, t model.Table, rows []model.Row) error {
	if len(rows) == 0 {
		return xerrors.Errorf("write %s: %w", t.Name, ErrEmptyInput)
	}

	ctx, span := otel.Tracer("").Start(ctx, "BatchWriter.Write", trace.WithAttributes(
		attribute.String("table", t.Name),
		attribute.Int("rows", len(rows)),
	))
	defer span.End()

	ctx = metrics.WithTagValue(ctx, metrics.Table, t.Name)
	stop := metrics.Timer(ctx, metrics.PersistDuration)
	defer stop()

	name := "insert " + t.Name
	grp, gctx := errgroup.WithContext(ctx)
	for _, chunk := range ChunkRows(rows, w.maxRows) {
		chunk := chunk
		grp.Go(func() error {
			err := w.retry.Do(gctx, name, func(ctx context.Context) error {
				metrics.RecordInc(ctx, metrics.PersistStatements)
				return w.inserter.Insert(ctx, t, chunk)
			})
			if err != nil {
				return err
			}
			metrics.RecordCount(ctx, metrics.PersistRows, len(chunk))
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		metrics.RecordInc(ctx, metrics.PersistFailure)
		span.RecordError(err)
		return xerrors.Errorf("write %d rows to %s: %w", len(rows), t.Name, err)
	}
	return nil
}

// ChunkRows splits rows into consecutive chunks of at most size rows, keeping their order.
func ChunkRows(rows []model.Row, size int) [][]model.Row {
	if size < 1 {
		size = 1
	}
	chunks := make([][]model.Row, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end:end])
	}
	return chunks
}
