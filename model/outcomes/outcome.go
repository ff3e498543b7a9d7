package outcomes

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model"
)

var Table = model.Table{
	Name: "execution_outcomes",
	Columns: []string{
		"receipt_id",
		"executed_in_block_hash",
		"executed_in_block_timestamp",
		"index_in_chunk",
		"gas_burnt",
		"tokens_burnt",
		"executor_account_id",
		"status",
		"shard_id",
	},
	TimestampColumn: "executed_in_block_timestamp",
}

var ReceiptsTable = model.Table{
	Name: "execution_outcome_receipts",
	Columns: []string{
		"executed_receipt_id",
		"index_in_execution_outcome",
		"produced_receipt_id",
		"executed_in_block_timestamp",
	},
	TimestampColumn: "executed_in_block_timestamp",
}

type ExecutionOutcome struct {
	ReceiptID                string
	ExecutedInBlockHash      string
	ExecutedInBlockTimestamp decimal.Decimal
	IndexInChunk             int
	GasBurnt                 decimal.Decimal
	TokensBurnt              decimal.Decimal
	ExecutorAccountID        string
	Status                   string
	ShardID                  decimal.Decimal
}

func NewExecutionOutcome(o *lake.ExecutionOutcomeWithIDView, blockHash string, blockTimestamp uint64, index int, shardID uint64) (*ExecutionOutcome, error) {
	status, err := o.Outcome.Status.Kind.Label()
	if err != nil {
		return nil, xerrors.Errorf("outcome of %s: %w", o.ID, err)
	}
	return &ExecutionOutcome{
		ReceiptID:                o.ID,
		ExecutedInBlockHash:      blockHash,
		ExecutedInBlockTimestamp: model.DecimalFromUint64(blockTimestamp),
		IndexInChunk:             index,
		GasBurnt:                 o.Outcome.GasBurnt,
		TokensBurnt:              o.Outcome.TokensBurnt,
		ExecutorAccountID:        o.Outcome.ExecutorID,
		Status:                   status,
		ShardID:                  model.DecimalFromUint64(shardID),
	}, nil
}

func (o *ExecutionOutcome) Values() []interface{} {
	return []interface{}{
		o.ReceiptID,
		o.ExecutedInBlockHash,
		o.ExecutedInBlockTimestamp,
		o.IndexInChunk,
		o.GasBurnt,
		o.TokensBurnt,
		o.ExecutorAccountID,
		o.Status,
		o.ShardID,
	}
}

type ExecutionOutcomes []*ExecutionOutcome

func (eos ExecutionOutcomes) Persist(ctx context.Context, s model.StorageBatch) error {
	if len(eos) == 0 {
		return nil
	}
	rows := make([]model.Row, len(eos))
	for i, o := range eos {
		rows[i] = o
	}
	return s.PersistRows(ctx, Table, rows)
}

// An ExecutionOutcomeReceipt links an executed receipt to a receipt its execution produced.
type ExecutionOutcomeReceipt struct {
	ExecutedReceiptID        string
	IndexInExecutionOutcome  int
	ProducedReceiptID        string
	ExecutedInBlockTimestamp decimal.Decimal
}

func (r *ExecutionOutcomeReceipt) Values() []interface{} {
	return []interface{}{
		r.ExecutedReceiptID,
		r.IndexInExecutionOutcome,
		r.ProducedReceiptID,
		r.ExecutedInBlockTimestamp,
	}
}

type ExecutionOutcomeReceipts []*ExecutionOutcomeReceipt

func (rs ExecutionOutcomeReceipts) Persist(ctx context.Context, s model.StorageBatch) error {
	if len(rs) == 0 {
		return nil
	}
	rows := make([]model.Row, len(rs))
	for i, r := range rs {
		rows[i] = r
	}
	return s.PersistRows(ctx, ReceiptsTable, rows)
}

func NewExecutionOutcomeReceipts(o *lake.ExecutionOutcomeWithIDView, blockTimestamp uint64) ExecutionOutcomeReceipts {
	ts := model.DecimalFromUint64(blockTimestamp)
	out := make(ExecutionOutcomeReceipts, 0, len(o.Outcome.ReceiptIDs))
	for i, produced := range o.Outcome.ReceiptIDs {
		out = append(out, &ExecutionOutcomeReceipt{
			ExecutedReceiptID:        o.ID,
			IndexInExecutionOutcome:  i,
			ProducedReceiptID:        produced,
			ExecutedInBlockTimestamp: ts,
		})
	}
	return out
}

// NewShardOutcomes converts the receipt execution outcomes of a shard, numbering them by their position in the
// shard.
func NewShardOutcomes(shard *lake.IndexerShard, blockHash string, blockTimestamp uint64) (ExecutionOutcomes, ExecutionOutcomeReceipts, error) {
	outcomes := make(ExecutionOutcomes, 0, len(shard.ReceiptExecutionOutcomes))
	var produced ExecutionOutcomeReceipts
	for i := range shard.ReceiptExecutionOutcomes {
		eo := &shard.ReceiptExecutionOutcomes[i].ExecutionOutcome
		o, err := NewExecutionOutcome(eo, blockHash, blockTimestamp, i, shard.ShardID)
		if err != nil {
			return nil, nil, err
		}
		outcomes = append(outcomes, o)
		produced = append(produced, NewExecutionOutcomeReceipts(eo, blockTimestamp)...)
	}
	return outcomes, produced, nil
}
