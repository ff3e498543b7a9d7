package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTable = Table{
	Name:            "blocks",
	Columns:         []string{"block_height", "block_timestamp"},
	TimestampColumn: "block_timestamp",
}

func TestTableQueries(t *testing.T) {
	assert.Equal(t, 2, testTable.FieldCount())
	assert.Equal(t, 1, testTable.ColumnIndex("block_timestamp"))
	assert.Equal(t, -1, testTable.ColumnIndex("height"))

	assert.Equal(t, `INSERT INTO "blocks" ("block_height", "block_timestamp") VALUES (?0, ?1) ON CONFLICT DO NOTHING`, testTable.InsertQuery("(?0, ?1)"))
	assert.Equal(t, `DELETE FROM "blocks" WHERE "block_timestamp" >= ?0`, testTable.DeleteFromQuery())
	assert.Equal(t, `SELECT count(*) FROM "blocks" WHERE "block_timestamp" = ?0`, testTable.CountAtQuery())
}

func TestDecimalFromUint64(t *testing.T) {
	assert.Equal(t, "18446744073709551615", DecimalFromUint64(^uint64(0)).String())
	assert.Equal(t, "0", DecimalFromUint64(0).String())
}

type recordingBatch struct {
	tables []string
}

func (r *recordingBatch) PersistRows(_ context.Context, t Table, rows []Row) error {
	r.tables = append(r.tables, t.Name)
	return nil
}

type tableRows string

func (tr tableRows) Persist(ctx context.Context, s StorageBatch) error {
	return s.PersistRows(ctx, Table{Name: string(tr)}, nil)
}

func TestPersistableListSkipsNil(t *testing.T) {
	b := &recordingBatch{}
	pl := PersistableList{tableRows("chunks"), nil, tableRows("receipts")}
	require.NoError(t, pl.Persist(context.Background(), b))
	assert.Equal(t, []string{"chunks", "receipts"}, b.tables)
}
