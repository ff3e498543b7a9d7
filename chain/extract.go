package chain

import (
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model"
	"github.com/near/lake-flows-into-sql/model/accounts"
	"github.com/near/lake-flows-into-sql/model/blocks"
	"github.com/near/lake-flows-into-sql/model/chunks"
	"github.com/near/lake-flows-into-sql/model/outcomes"
	"github.com/near/lake-flows-into-sql/model/receipts"
	"github.com/near/lake-flows-into-sql/model/transactions"
)

// A Result holds every row derived from one block.
type Result struct {
	Height          uint64
	Block           *blocks.Block
	Chunks          chunks.Chunks
	Transactions    transactions.Transactions
	Receipts        *receipts.Result
	Outcomes        outcomes.ExecutionOutcomes
	OutcomeReceipts outcomes.ExecutionOutcomeReceipts
	AccountChanges  accounts.AccountChanges
}

// A ModelResult is the rows of one entity kind, named after the table they are written to.
type ModelResult struct {
	Name  string
	Model model.Persistable
}

// Extract converts a message into rows. It fails when the message holds a value the conversion has no mapping
// for; such a message can never be indexed.
func Extract(msg *lake.StreamerMessage) (*Result, error) {
	hdr := msg.Block.Header
	res := &Result{
		Height:   hdr.Height,
		Block:    blocks.NewBlock(&msg.Block),
		Chunks:   chunks.NewChunks(msg.Shards, hdr.Hash, hdr.Timestamp),
		Receipts: &receipts.Result{},
	}

	for i := range msg.Shards {
		shard := &msg.Shards[i]
		if shard.Chunk != nil {
			txs, err := transactions.NewTransactions(shard.Chunk, hdr.Hash, hdr.Timestamp)
			if err != nil {
				return nil, xerrors.Errorf("block %d shard %d transactions: %w", hdr.Height, shard.ShardID, err)
			}
			res.Transactions = append(res.Transactions, txs...)

			rr, err := receipts.NewResult(shard.Chunk, hdr.Hash, hdr.Timestamp)
			if err != nil {
				return nil, xerrors.Errorf("block %d shard %d receipts: %w", hdr.Height, shard.ShardID, err)
			}
			res.Receipts.Merge(rr)
		}

		eos, produced, err := outcomes.NewShardOutcomes(shard, hdr.Hash, hdr.Timestamp)
		if err != nil {
			return nil, xerrors.Errorf("block %d shard %d outcomes: %w", hdr.Height, shard.ShardID, err)
		}
		res.Outcomes = append(res.Outcomes, eos...)
		res.OutcomeReceipts = append(res.OutcomeReceipts, produced...)
	}

	changes, err := accounts.NewAccountChanges(msg.Shards, hdr.Hash, hdr.Timestamp)
	if err != nil {
		return nil, xerrors.Errorf("block %d account changes: %w", hdr.Height, err)
	}
	res.AccountChanges = changes
	return res, nil
}

// Models returns the rows of every kind except the block itself, which is written once all of them are stored.
func (r *Result) Models() []*ModelResult {
	return []*ModelResult{
		{Name: chunks.Table.Name, Model: r.Chunks},
		{Name: transactions.Table.Name, Model: r.Transactions},
		{Name: receipts.Table.Name, Model: r.Receipts.Receipts},
		{Name: receipts.DataReceiptsTable.Name, Model: r.Receipts.DataReceipts},
		{Name: receipts.ActionsTable.Name, Model: r.Receipts.Actions},
		{Name: receipts.InputDataTable.Name, Model: r.Receipts.InputData},
		{Name: receipts.OutputDataTable.Name, Model: r.Receipts.OutputData},
		{Name: outcomes.Table.Name, Model: r.Outcomes},
		{Name: outcomes.ReceiptsTable.Name, Model: r.OutcomeReceipts},
		{Name: accounts.Table.Name, Model: r.AccountChanges},
	}
}
