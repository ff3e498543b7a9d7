package receipts

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model"
)

var DataReceiptsTable = model.Table{
	Name: "data_receipts",
	Columns: []string{
		"data_id",
		"included_in_block_hash",
		"included_in_block_timestamp",
		"receipt_id",
		"data",
	},
	TimestampColumn: "included_in_block_timestamp",
}

// A DataReceipt carries the value returned to a receipt waiting on it. Data is nil when nothing was returned.
type DataReceipt struct {
	DataID                   string
	IncludedInBlockHash      string
	IncludedInBlockTimestamp decimal.Decimal
	ReceiptID                string
	Data                     []byte
}

func NewDataReceipt(r *lake.ReceiptView, blockHash string, blockTimestamp uint64) *DataReceipt {
	return &DataReceipt{
		DataID:                   r.Receipt.Data.DataID,
		IncludedInBlockHash:      blockHash,
		IncludedInBlockTimestamp: model.DecimalFromUint64(blockTimestamp),
		ReceiptID:                r.ReceiptID,
		Data:                     r.Receipt.Data.Data,
	}
}

func (d *DataReceipt) Values() []interface{} {
	return []interface{}{
		d.DataID,
		d.IncludedInBlockHash,
		d.IncludedInBlockTimestamp,
		d.ReceiptID,
		d.Data,
	}
}

type DataReceipts []*DataReceipt

func (ds DataReceipts) Persist(ctx context.Context, s model.StorageBatch) error {
	if len(ds) == 0 {
		return nil
	}
	rows := make([]model.Row, len(ds))
	for i, d := range ds {
		rows[i] = d
	}
	return s.PersistRows(ctx, DataReceiptsTable, rows)
}
