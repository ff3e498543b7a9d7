package chunks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/testutil"
)

func TestNewChunksSkipsMissingChunks(t *testing.T) {
	msg := testutil.NewEmptyMessage(7)
	msg.Shards = append(msg.Shards, lake.IndexerShard{ShardID: 1})

	got := NewChunks(msg.Shards, msg.Block.Header.Hash, msg.Block.Header.Timestamp)
	require.Len(t, got, 1)
	assert.Equal(t, "chunk-7-0", got[0].ChunkHash)
	assert.Equal(t, "0", got[0].ShardID.String())
	assert.Equal(t, testutil.BlockHash(7), got[0].IncludedInBlockHash)
	assert.Len(t, got[0].Values(), Table.FieldCount())
}
