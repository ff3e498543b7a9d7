package receipts

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model"
)

var Table = model.Table{
	Name: "receipts",
	Columns: []string{
		"receipt_id",
		"included_in_block_hash",
		"included_in_chunk_hash",
		"index_in_chunk",
		"included_in_block_timestamp",
		"predecessor_account_id",
		"receiver_account_id",
		"receipt_kind",
	},
	TimestampColumn: "included_in_block_timestamp",
}

type Receipt struct {
	ReceiptID                string
	IncludedInBlockHash      string
	IncludedInChunkHash      string
	IndexInChunk             int
	IncludedInBlockTimestamp decimal.Decimal
	PredecessorAccountID     string
	ReceiverAccountID        string
	ReceiptKind              string
}

func NewReceipt(r *lake.ReceiptView, blockHash, chunkHash string, blockTimestamp uint64, index int) (*Receipt, error) {
	kind, err := r.Receipt.Kind.Label()
	if err != nil {
		return nil, xerrors.Errorf("receipt %s: %w", r.ReceiptID, err)
	}
	return &Receipt{
		ReceiptID:                r.ReceiptID,
		IncludedInBlockHash:      blockHash,
		IncludedInChunkHash:      chunkHash,
		IndexInChunk:             index,
		IncludedInBlockTimestamp: model.DecimalFromUint64(blockTimestamp),
		PredecessorAccountID:     r.PredecessorID,
		ReceiverAccountID:        r.ReceiverID,
		ReceiptKind:              kind,
	}, nil
}

func (r *Receipt) Values() []interface{} {
	return []interface{}{
		r.ReceiptID,
		r.IncludedInBlockHash,
		r.IncludedInChunkHash,
		r.IndexInChunk,
		r.IncludedInBlockTimestamp,
		r.PredecessorAccountID,
		r.ReceiverAccountID,
		r.ReceiptKind,
	}
}

type Receipts []*Receipt

func (rs Receipts) Persist(ctx context.Context, s model.StorageBatch) error {
	if len(rs) == 0 {
		return nil
	}
	rows := make([]model.Row, len(rs))
	for i, r := range rs {
		rows[i] = r
	}
	return s.PersistRows(ctx, Table, rows)
}

// Result holds every row derived from the receipts of one chunk.
type Result struct {
	Receipts     Receipts
	DataReceipts DataReceipts
	Actions      ActionReceiptActions
	InputData    InputDataList
	OutputData   OutputDataList
}

// NewResult converts the receipts of a chunk. Action receipts contribute their actions and data dependencies,
// data receipts their payload.
func NewResult(c *lake.IndexerChunkView, blockHash string, blockTimestamp uint64) (*Result, error) {
	res := &Result{}
	for i := range c.Receipts {
		rv := &c.Receipts[i]
		r, err := NewReceipt(rv, blockHash, c.Header.ChunkHash, blockTimestamp, i)
		if err != nil {
			return nil, err
		}
		res.Receipts = append(res.Receipts, r)

		switch rv.Receipt.Kind {
		case lake.ReceiptKindAction:
			if rv.Receipt.Action == nil {
				return nil, xerrors.Errorf("action receipt %s has no action payload", rv.ReceiptID)
			}
			actions, err := NewActionReceiptActions(rv, blockTimestamp)
			if err != nil {
				return nil, err
			}
			res.Actions = append(res.Actions, actions...)
			res.InputData = append(res.InputData, NewInputData(rv, blockTimestamp)...)
			res.OutputData = append(res.OutputData, NewOutputData(rv, blockTimestamp)...)
		case lake.ReceiptKindData:
			if rv.Receipt.Data == nil {
				return nil, xerrors.Errorf("data receipt %s has no data payload", rv.ReceiptID)
			}
			res.DataReceipts = append(res.DataReceipts, NewDataReceipt(rv, blockHash, blockTimestamp))
		}
	}
	return res, nil
}

// Merge appends the rows of o to r.
func (r *Result) Merge(o *Result) {
	r.Receipts = append(r.Receipts, o.Receipts...)
	r.DataReceipts = append(r.DataReceipts, o.DataReceipts...)
	r.Actions = append(r.Actions, o.Actions...)
	r.InputData = append(r.InputData, o.InputData...)
	r.OutputData = append(r.OutputData, o.OutputData...)
}
