package transactions

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model"
)

var Table = model.Table{
	Name: "transactions",
	Columns: []string{
		"transaction_hash",
		"included_in_block_hash",
		"included_in_chunk_hash",
		"index_in_chunk",
		"block_timestamp",
		"signer_account_id",
		"signer_public_key",
		"nonce",
		"receiver_account_id",
		"signature",
		"status",
		"converted_into_receipt_id",
		"receipt_conversion_gas_burnt",
		"receipt_conversion_tokens_burnt",
	},
	TimestampColumn: "block_timestamp",
}

// ErrNotConverted is returned for a transaction whose outcome names no receipt.
var ErrNotConverted = xerrors.New("transaction was not converted into a receipt")

type Transaction struct {
	TransactionHash              string
	IncludedInBlockHash          string
	IncludedInChunkHash          string
	IndexInChunk                 int
	BlockTimestamp               decimal.Decimal
	SignerAccountID              string
	SignerPublicKey              string
	Nonce                        decimal.Decimal
	ReceiverAccountID            string
	Signature                    string
	Status                       string
	ConvertedIntoReceiptID       string
	ReceiptConversionGasBurnt    decimal.Decimal
	ReceiptConversionTokensBurnt decimal.Decimal
}

func NewTransaction(tx *lake.IndexerTransactionWithOutcome, blockHash, chunkHash string, blockTimestamp uint64, index int) (*Transaction, error) {
	outcome := tx.Outcome.ExecutionOutcome.Outcome
	status, err := outcome.Status.Kind.Label()
	if err != nil {
		return nil, xerrors.Errorf("transaction %s status: %w", tx.Transaction.Hash, err)
	}
	if len(outcome.ReceiptIDs) == 0 {
		return nil, xerrors.Errorf("transaction %s: %w", tx.Transaction.Hash, ErrNotConverted)
	}

	return &Transaction{
		TransactionHash:              tx.Transaction.Hash,
		IncludedInBlockHash:          blockHash,
		IncludedInChunkHash:          chunkHash,
		IndexInChunk:                 index,
		BlockTimestamp:               model.DecimalFromUint64(blockTimestamp),
		SignerAccountID:              tx.Transaction.SignerID,
		SignerPublicKey:              tx.Transaction.PublicKey,
		Nonce:                        tx.Transaction.Nonce,
		ReceiverAccountID:            tx.Transaction.ReceiverID,
		Signature:                    tx.Transaction.Signature,
		Status:                       status,
		ConvertedIntoReceiptID:       outcome.ReceiptIDs[0],
		ReceiptConversionGasBurnt:    outcome.GasBurnt,
		ReceiptConversionTokensBurnt: outcome.TokensBurnt,
	}, nil
}

// NewTransactions converts the transactions of a chunk, numbering them by their position in the chunk.
func NewTransactions(c *lake.IndexerChunkView, blockHash string, blockTimestamp uint64) (Transactions, error) {
	out := make(Transactions, 0, len(c.Transactions))
	for i := range c.Transactions {
		tx, err := NewTransaction(&c.Transactions[i], blockHash, c.Header.ChunkHash, blockTimestamp, i)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (t *Transaction) Values() []interface{} {
	return []interface{}{
		t.TransactionHash,
		t.IncludedInBlockHash,
		t.IncludedInChunkHash,
		t.IndexInChunk,
		t.BlockTimestamp,
		t.SignerAccountID,
		t.SignerPublicKey,
		t.Nonce,
		t.ReceiverAccountID,
		t.Signature,
		t.Status,
		t.ConvertedIntoReceiptID,
		t.ReceiptConversionGasBurnt,
		t.ReceiptConversionTokensBurnt,
	}
}

type Transactions []*Transaction

func (ts Transactions) Persist(ctx context.Context, s model.StorageBatch) error {
	if len(ts) == 0 {
		return nil
	}
	rows := make([]model.Row, len(ts))
	for i, t := range ts {
		rows[i] = t
	}
	return s.PersistRows(ctx, Table, rows)
}
