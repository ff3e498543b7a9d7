package model

import (
	"context"
	"math/big"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// A Storage persists batches of models.
type Storage interface {
	PersistBatch(ctx context.Context, ps ...Persistable) error
}

// A StorageBatch writes rows of a single table as part of a batch.
type StorageBatch interface {
	PersistRows(ctx context.Context, t Table, rows []Row) error
}

// A Persistable can persist a full copy of itself or its components as part of a storage batch
type Persistable interface {
	Persist(ctx context.Context, s StorageBatch) error
}

// A PersistableList is a list of Persistables that should be persisted together
type PersistableList []Persistable

// Ensure that a PersistableList can be used as a Persistable
var _ Persistable = (PersistableList)(nil)

func (pl PersistableList) Persist(ctx context.Context, s StorageBatch) error {
	if len(pl) == 0 {
		return nil
	}
	for _, p := range pl {
		if p == nil {
			continue
		}
		if err := p.Persist(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// A Row is a single record of a table. Values must be returned in the order of the table's columns.
type Row interface {
	Values() []interface{}
}

// A Table describes where rows of one entity kind are stored. TimestampColumn holds the timestamp of the
// block the row belongs to.
type Table struct {
	Name            string
	Columns         []string
	TimestampColumn string
}

func (t Table) FieldCount() int {
	return len(t.Columns)
}

// ColumnIndex returns the position of the named column or -1.
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// InsertQuery returns the insert statement for the table with the given VALUES list appended. Rows that
// collide with a stored row are skipped so a chunk written twice leaves the table unchanged.
func (t Table) InsertQuery(values string) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = pq.QuoteIdentifier(c)
	}
	return "INSERT INTO " + pq.QuoteIdentifier(t.Name) + " (" + strings.Join(cols, ", ") + ") VALUES " + values + " ON CONFLICT DO NOTHING"
}

// DeleteFromQuery returns a statement removing every row at or after the block timestamp passed as its only
// parameter.
func (t Table) DeleteFromQuery() string {
	return "DELETE FROM " + pq.QuoteIdentifier(t.Name) + " WHERE " + pq.QuoteIdentifier(t.TimestampColumn) + " >= ?0"
}

// CountAtQuery returns a statement counting the rows of the block with the timestamp passed as its only parameter.
func (t Table) CountAtQuery() string {
	return "SELECT count(*) FROM " + pq.QuoteIdentifier(t.Name) + " WHERE " + pq.QuoteIdentifier(t.TimestampColumn) + " = ?0"
}

// DecimalFromUint64 converts v without going through int64.
func DecimalFromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// OptionalString returns nil for an empty string so the column is stored as NULL.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
