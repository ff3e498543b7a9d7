package storage

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/model"
)

var _ Backend = (*MemStorage)(nil)

func NewMemStorage() *MemStorage {
	return &MemStorage{
		Data:     map[string][]model.Row{},
		inserts:  map[string]int{},
		failures: map[string][]error{},
		deletes:  map[string][]error{},
	}
}

// MemStorage keeps rows in memory. Failures can be queued per table to exercise retries.
type MemStorage struct {
	Data   map[string][]model.Row
	DataMu sync.Mutex

	inserts  map[string]int
	failures map[string][]error
	deletes  map[string][]error
}

// FailInserts makes the next len(errs) inserts into table fail with errs, in order.
func (j *MemStorage) FailInserts(table string, errs ...error) {
	j.DataMu.Lock()
	defer j.DataMu.Unlock()
	j.failures[table] = append(j.failures[table], errs...)
}

// FailDeletes makes the next len(errs) deletes from table fail with errs, in order.
func (j *MemStorage) FailDeletes(table string, errs ...error) {
	j.DataMu.Lock()
	defer j.DataMu.Unlock()
	j.deletes[table] = append(j.deletes[table], errs...)
}

// InsertCalls returns the number of insert statements received for table, including failed ones.
func (j *MemStorage) InsertCalls(table string) int {
	j.DataMu.Lock()
	defer j.DataMu.Unlock()
	return j.inserts[table]
}

// Rows returns a copy of the rows held for table.
func (j *MemStorage) Rows(table string) []model.Row {
	j.DataMu.Lock()
	defer j.DataMu.Unlock()
	return append([]model.Row(nil), j.Data[table]...)
}

func (j *MemStorage) Insert(ctx context.Context, t model.Table, rows []model.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range rows {
		if got := len(r.Values()); got != t.FieldCount() {
			return xerrors.Errorf("%s row has %d values, want %d", t.Name, got, t.FieldCount())
		}
	}

	j.DataMu.Lock()
	defer j.DataMu.Unlock()
	j.inserts[t.Name]++
	if pending := j.failures[t.Name]; len(pending) > 0 {
		j.failures[t.Name] = pending[1:]
		return pending[0]
	}
	j.Data[t.Name] = append(j.Data[t.Name], rows...)
	return nil
}

func (j *MemStorage) DeleteFrom(ctx context.Context, t model.Table, ts decimal.Decimal) (int, error) {
	idx := t.ColumnIndex(t.TimestampColumn)
	if idx < 0 {
		return 0, xerrors.Errorf("%s has no column %s", t.Name, t.TimestampColumn)
	}

	j.DataMu.Lock()
	defer j.DataMu.Unlock()
	if pending := j.deletes[t.Name]; len(pending) > 0 {
		j.deletes[t.Name] = pending[1:]
		return 0, pending[0]
	}
	var kept []model.Row
	deleted := 0
	for _, r := range j.Data[t.Name] {
		v, err := decimalAt(r, idx)
		if err != nil {
			return 0, xerrors.Errorf("%s: %w", t.Name, err)
		}
		if v.GreaterThanOrEqual(ts) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	j.Data[t.Name] = kept
	return deleted, nil
}

func (j *MemStorage) Max(ctx context.Context, t model.Table, column string) (decimal.NullDecimal, error) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return decimal.NullDecimal{}, xerrors.Errorf("%s has no column %s", t.Name, column)
	}

	j.DataMu.Lock()
	defer j.DataMu.Unlock()
	var out decimal.NullDecimal
	for _, r := range j.Data[t.Name] {
		v, err := decimalAt(r, idx)
		if err != nil {
			return decimal.NullDecimal{}, xerrors.Errorf("%s: %w", t.Name, err)
		}
		if !out.Valid || v.GreaterThan(out.Decimal) {
			out = decimal.NullDecimal{Decimal: v, Valid: true}
		}
	}
	return out, nil
}

func (j *MemStorage) CountAt(ctx context.Context, t model.Table, ts decimal.Decimal) (int64, error) {
	idx := t.ColumnIndex(t.TimestampColumn)
	if idx < 0 {
		return 0, xerrors.Errorf("%s has no column %s", t.Name, t.TimestampColumn)
	}

	j.DataMu.Lock()
	defer j.DataMu.Unlock()
	var n int64
	for _, r := range j.Data[t.Name] {
		v, err := decimalAt(r, idx)
		if err != nil {
			return 0, xerrors.Errorf("%s: %w", t.Name, err)
		}
		if v.Equal(ts) {
			n++
		}
	}
	return n, nil
}

func (j *MemStorage) Close() error {
	return nil
}

func decimalAt(r model.Row, idx int) (decimal.Decimal, error) {
	switch v := r.Values()[idx].(type) {
	case decimal.Decimal:
		return v, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	default:
		return decimal.Decimal{}, xerrors.Errorf("column %d holds %T, not a number", idx, v)
	}
}
