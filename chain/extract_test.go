package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model/accounts"
	"github.com/near/lake-flows-into-sql/model/blocks"
	"github.com/near/lake-flows-into-sql/storage"
	"github.com/near/lake-flows-into-sql/testutil"
)

func TestExtract(t *testing.T) {
	const height = 83030086
	res, err := Extract(testutil.NewMessage(height))
	require.NoError(t, err)

	assert.EqualValues(t, height, res.Height)
	require.NotNil(t, res.Block)
	assert.Equal(t, testutil.BlockHash(height), res.Block.Hash)
	assert.Len(t, res.Chunks, 1)
	assert.Len(t, res.Transactions, 1)
	assert.Len(t, res.Receipts.Receipts, 2)
	assert.Len(t, res.Receipts.DataReceipts, 1)
	assert.Len(t, res.Receipts.Actions, 1)
	assert.Len(t, res.Receipts.InputData, 1)
	assert.Len(t, res.Receipts.OutputData, 1)
	assert.Len(t, res.Outcomes, 1)
	assert.Len(t, res.OutcomeReceipts, 1)
	assert.Len(t, res.AccountChanges, 2)
}

func TestExtractEmptyBlock(t *testing.T) {
	msg := testutil.NewEmptyMessage(10)
	msg.Shards = append(msg.Shards, lake.IndexerShard{ShardID: 1})

	res, err := Extract(msg)
	require.NoError(t, err)
	assert.Len(t, res.Chunks, 1)
	assert.Empty(t, res.Transactions)
	assert.Empty(t, res.Receipts.Receipts)
	assert.Empty(t, res.AccountChanges)
}

func TestExtractImpossibleCause(t *testing.T) {
	msg := testutil.NewMessage(10)
	bad := testutil.AccountUpdate("carol.near", lake.StateChangeCauseView{Type: lake.CauseInitialState}, "1", "0", 100)
	msg.Shards[0].StateChanges = append(msg.Shards[0].StateChanges, bad)

	_, err := Extract(msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, accounts.ErrImpossibleCause)

	var ice *accounts.ImpossibleCauseError
	require.ErrorAs(t, err, &ice)
	assert.Equal(t, "carol.near", ice.Change.AccountID)
}

func TestModelsCoverEveryTableButBlocks(t *testing.T) {
	res, err := Extract(testutil.NewMessage(10))
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mr := range res.Models() {
		names[mr.Name] = true
	}
	for _, tbl := range storage.Tables {
		if tbl.Name == blocks.Table.Name {
			assert.False(t, names[tbl.Name])
			continue
		}
		assert.True(t, names[tbl.Name], tbl.Name)
	}
}
