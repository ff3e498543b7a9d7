package transactions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/testutil"
)

func TestNewTransactions(t *testing.T) {
	msg := testutil.NewMessage(42)
	chunk := msg.Shards[0].Chunk

	got, err := NewTransactions(chunk, msg.Block.Header.Hash, msg.Block.Header.Timestamp)
	require.NoError(t, err)
	require.Len(t, got, 1)

	tx := got[0]
	assert.Equal(t, testutil.TxHash(42, 0), tx.TransactionHash)
	assert.Equal(t, chunk.Header.ChunkHash, tx.IncludedInChunkHash)
	assert.Equal(t, 0, tx.IndexInChunk)
	assert.Equal(t, "SUCCESS_RECEIPT_ID", tx.Status)
	assert.Equal(t, testutil.ReceiptID(42, "action"), tx.ConvertedIntoReceiptID)
	assert.Equal(t, "22318256250000000000", tx.ReceiptConversionTokensBurnt.String())
	assert.Len(t, tx.Values(), Table.FieldCount())
}

func TestNewTransactionsErrors(t *testing.T) {
	t.Run("no receipt", func(t *testing.T) {
		msg := testutil.NewMessage(42)
		msg.Shards[0].Chunk.Transactions[0].Outcome.ExecutionOutcome.Outcome.ReceiptIDs = nil
		_, err := NewTransactions(msg.Shards[0].Chunk, msg.Block.Header.Hash, msg.Block.Header.Timestamp)
		assert.ErrorIs(t, err, ErrNotConverted)
	})

	t.Run("unknown status", func(t *testing.T) {
		msg := testutil.NewMessage(42)
		msg.Shards[0].Chunk.Transactions[0].Outcome.ExecutionOutcome.Outcome.Status = lake.ExecutionStatusView{}
		_, err := NewTransactions(msg.Shards[0].Chunk, msg.Block.Header.Hash, msg.Block.Header.Timestamp)
		assert.ErrorIs(t, err, lake.ErrUnknownVariant)
	})
}
