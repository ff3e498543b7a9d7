package blocks

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model"
)

var Table = model.Table{
	Name: "blocks",
	Columns: []string{
		"block_height",
		"block_hash",
		"prev_block_hash",
		"block_timestamp",
		"total_supply",
		"gas_price",
		"author_account_id",
	},
	TimestampColumn: "block_timestamp",
}

// A Block is the row written last for a block, once every other row of the block is persisted. Its presence
// marks the block as complete.
type Block struct {
	Height          decimal.Decimal
	Hash            string
	PrevHash        string
	Timestamp       decimal.Decimal
	TotalSupply     decimal.Decimal
	GasPrice        decimal.Decimal
	AuthorAccountID string
}

func NewBlock(bv *lake.BlockView) *Block {
	return &Block{
		Height:          model.DecimalFromUint64(bv.Header.Height),
		Hash:            bv.Header.Hash,
		PrevHash:        bv.Header.PrevHash,
		Timestamp:       model.DecimalFromUint64(bv.Header.Timestamp),
		TotalSupply:     bv.Header.TotalSupply,
		GasPrice:        bv.Header.GasPrice,
		AuthorAccountID: bv.Author,
	}
}

func (b *Block) Values() []interface{} {
	return []interface{}{
		b.Height,
		b.Hash,
		b.PrevHash,
		b.Timestamp,
		b.TotalSupply,
		b.GasPrice,
		b.AuthorAccountID,
	}
}

func (b *Block) Persist(ctx context.Context, s model.StorageBatch) error {
	return s.PersistRows(ctx, Table, []model.Row{b})
}
