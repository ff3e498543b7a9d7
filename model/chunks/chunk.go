package chunks

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model"
)

var Table = model.Table{
	Name: "chunks",
	Columns: []string{
		"included_in_block_hash",
		"included_in_block_timestamp",
		"chunk_hash",
		"shard_id",
		"signature",
		"gas_limit",
		"gas_used",
		"author_account_id",
	},
	TimestampColumn: "included_in_block_timestamp",
}

type Chunk struct {
	IncludedInBlockHash      string
	IncludedInBlockTimestamp decimal.Decimal
	ChunkHash                string
	ShardID                  decimal.Decimal
	Signature                string
	GasLimit                 decimal.Decimal
	GasUsed                  decimal.Decimal
	AuthorAccountID          string
}

func NewChunk(c *lake.IndexerChunkView, blockHash string, blockTimestamp uint64) *Chunk {
	return &Chunk{
		IncludedInBlockHash:      blockHash,
		IncludedInBlockTimestamp: model.DecimalFromUint64(blockTimestamp),
		ChunkHash:                c.Header.ChunkHash,
		ShardID:                  model.DecimalFromUint64(c.Header.ShardID),
		Signature:                c.Header.Signature,
		GasLimit:                 c.Header.GasLimit,
		GasUsed:                  c.Header.GasUsed,
		AuthorAccountID:          c.Author,
	}
}

// NewChunks converts the chunks of every shard that has one.
func NewChunks(shards []lake.IndexerShard, blockHash string, blockTimestamp uint64) Chunks {
	var out Chunks
	for i := range shards {
		if shards[i].Chunk == nil {
			continue
		}
		out = append(out, NewChunk(shards[i].Chunk, blockHash, blockTimestamp))
	}
	return out
}

func (c *Chunk) Values() []interface{} {
	return []interface{}{
		c.IncludedInBlockHash,
		c.IncludedInBlockTimestamp,
		c.ChunkHash,
		c.ShardID,
		c.Signature,
		c.GasLimit,
		c.GasUsed,
		c.AuthorAccountID,
	}
}

type Chunks []*Chunk

func (cs Chunks) Persist(ctx context.Context, s model.StorageBatch) error {
	if len(cs) == 0 {
		return nil
	}
	rows := make([]model.Row, len(cs))
	for i, c := range cs {
		rows[i] = c
	}
	return s.PersistRows(ctx, Table, rows)
}
