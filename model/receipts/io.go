package receipts

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model"
)

var InputDataTable = model.Table{
	Name: "action_receipt_input_data",
	Columns: []string{
		"input_data_id",
		"input_to_receipt_id",
		"block_timestamp",
	},
	TimestampColumn: "block_timestamp",
}

var OutputDataTable = model.Table{
	Name: "action_receipt_output_data",
	Columns: []string{
		"output_data_id",
		"output_from_receipt_id",
		"receiver_account_id",
		"block_timestamp",
	},
	TimestampColumn: "block_timestamp",
}

// InputData records that an action receipt waits for a data receipt before it executes.
type InputData struct {
	InputDataID      string
	InputToReceiptID string
	BlockTimestamp   decimal.Decimal
}

func NewInputData(r *lake.ReceiptView, blockTimestamp uint64) InputDataList {
	ts := model.DecimalFromUint64(blockTimestamp)
	out := make(InputDataList, 0, len(r.Receipt.Action.InputDataIDs))
	for _, id := range r.Receipt.Action.InputDataIDs {
		out = append(out, &InputData{
			InputDataID:      id,
			InputToReceiptID: r.ReceiptID,
			BlockTimestamp:   ts,
		})
	}
	return out
}

func (d *InputData) Values() []interface{} {
	return []interface{}{d.InputDataID, d.InputToReceiptID, d.BlockTimestamp}
}

type InputDataList []*InputData

func (l InputDataList) Persist(ctx context.Context, s model.StorageBatch) error {
	if len(l) == 0 {
		return nil
	}
	rows := make([]model.Row, len(l))
	for i, d := range l {
		rows[i] = d
	}
	return s.PersistRows(ctx, InputDataTable, rows)
}

// OutputData records a data receipt an action receipt will produce and who receives it.
type OutputData struct {
	OutputDataID        string
	OutputFromReceiptID string
	ReceiverAccountID   string
	BlockTimestamp      decimal.Decimal
}

func NewOutputData(r *lake.ReceiptView, blockTimestamp uint64) OutputDataList {
	ts := model.DecimalFromUint64(blockTimestamp)
	out := make(OutputDataList, 0, len(r.Receipt.Action.OutputDataReceivers))
	for _, recv := range r.Receipt.Action.OutputDataReceivers {
		out = append(out, &OutputData{
			OutputDataID:        recv.DataID,
			OutputFromReceiptID: r.ReceiptID,
			ReceiverAccountID:   recv.ReceiverID,
			BlockTimestamp:      ts,
		})
	}
	return out
}

func (d *OutputData) Values() []interface{} {
	return []interface{}{d.OutputDataID, d.OutputFromReceiptID, d.ReceiverAccountID, d.BlockTimestamp}
}

type OutputDataList []*OutputData

func (l OutputDataList) Persist(ctx context.Context, s model.StorageBatch) error {
	if len(l) == 0 {
		return nil
	}
	rows := make([]model.Row, len(l))
	for i, d := range l {
		rows[i] = d
	}
	return s.PersistRows(ctx, OutputDataTable, rows)
}
