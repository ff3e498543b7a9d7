package storage

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/model"
	"github.com/near/lake-flows-into-sql/model/blocks"
	"github.com/near/lake-flows-into-sql/retry"
)

var log = logging.Logger("lakeflow/storage")

// A Backend runs single statements against a store. It does not retry.
type Backend interface {
	Inserter

	// DeleteFrom removes the rows of t belonging to blocks with a timestamp at or after ts and returns how
	// many were removed.
	DeleteFrom(ctx context.Context, t model.Table, ts decimal.Decimal) (int, error)

	// Max returns the largest value of a numeric column, invalid when the table is empty.
	Max(ctx context.Context, t model.Table, column string) (decimal.NullDecimal, error)

	// CountAt returns the number of rows of t belonging to the block with timestamp ts.
	CountAt(ctx context.Context, t model.Table, ts decimal.Decimal) (int64, error)

	Close() error
}

var (
	_ model.Storage      = (*Store)(nil)
	_ model.StorageBatch = (*Store)(nil)
)

// Store runs every operation of a Backend through a retry executor. Inserts go through a BatchWriter.
type Store struct {
	backend Backend
	retry   *retry.Executor
	writer  *BatchWriter
}

func NewStore(b Backend, r *retry.Executor, maxRowsPerStatement int) *Store {
	return &Store{
		backend: b,
		retry:   r,
		writer:  NewBatchWriter(b, r, maxRowsPerStatement),
	}
}

func (s *Store) Backend() Backend {
	return s.backend
}

// PersistBatch persists each model in turn.
func (s *Store) PersistBatch(ctx context.Context, ps ...model.Persistable) error {
	for _, p := range ps {
		if p == nil {
			continue
		}
		if err := p.Persist(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// PersistRows writes rows to t. Writing no rows is a no-op.
func (s *Store) PersistRows(ctx context.Context, t model.Table, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}
	return s.writer.Write(ctx, t, rows)
}

// DeleteFromTimestamp removes every row of t belonging to a block at or after ts.
func (s *Store) DeleteFromTimestamp(ctx context.Context, t model.Table, ts decimal.Decimal) error {
	return s.retry.Do(ctx, "delete "+t.Name, func(ctx context.Context) error {
		n, err := s.backend.DeleteFrom(ctx, t, ts)
		if err != nil {
			return err
		}
		log.Infow("deleted rows", "table", t.Name, "from_timestamp", ts, "rows", n)
		return nil
	})
}

// MaxBlockTimestamp returns the timestamp of the most recent block in the store. The boolean is false when
// the store holds no blocks.
func (s *Store) MaxBlockTimestamp(ctx context.Context) (decimal.Decimal, bool, error) {
	v, err := s.maxBlocks(ctx, "block_timestamp")
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	return v.Decimal, v.Valid, nil
}

// MaxBlockHeight returns the height of the highest block in the store. The boolean is false when the store
// holds no blocks.
func (s *Store) MaxBlockHeight(ctx context.Context) (uint64, bool, error) {
	v, err := s.maxBlocks(ctx, "block_height")
	if err != nil {
		return 0, false, err
	}
	if !v.Valid {
		return 0, false, nil
	}
	if v.Decimal.Sign() < 0 || !v.Decimal.IsInteger() || v.Decimal.BigInt().BitLen() > 64 {
		return 0, false, xerrors.Errorf("block height %s is not a valid height", v.Decimal)
	}
	return v.Decimal.BigInt().Uint64(), true, nil
}

func (s *Store) maxBlocks(ctx context.Context, column string) (decimal.NullDecimal, error) {
	var out decimal.NullDecimal
	err := s.retry.Do(ctx, "select max "+column, func(ctx context.Context) error {
		v, err := s.backend.Max(ctx, blocks.Table, column)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// A TableCount is the number of rows a table holds for one block.
type TableCount struct {
	Table string
	Rows  int64
}

// RowCounts returns, for every table, the number of rows belonging to the block with timestamp ts.
func (s *Store) RowCounts(ctx context.Context, ts decimal.Decimal) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(Tables))
	for _, t := range Tables {
		t := t
		var n int64
		err := s.retry.Do(ctx, "count "+t.Name, func(ctx context.Context) error {
			var err error
			n, err = s.backend.CountAt(ctx, t, ts)
			return err
		})
		if err != nil {
			return nil, err
		}
		counts = append(counts, TableCount{Table: t.Name, Rows: n})
	}
	return counts, nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}
