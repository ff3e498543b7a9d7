package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/near/lake-flows-into-sql/lake"
)

// GenesisTimestamp is the block timestamp of height zero in synthetic messages.
const GenesisTimestamp uint64 = 1_600_000_000_000_000_000

func BlockHash(height uint64) string {
	return fmt.Sprintf("block-%d", height)
}

// BlockTimestamp grows by one second per height.
func BlockTimestamp(height uint64) uint64 {
	return GenesisTimestamp + height*1_000_000_000
}

func TxHash(height uint64, i int) string {
	return fmt.Sprintf("tx-%d-%d", height, i)
}

func ReceiptID(height uint64, name string) string {
	return fmt.Sprintf("receipt-%d-%s", height, name)
}

// NewEmptyMessage returns a block at height with a single shard and no activity.
func NewEmptyMessage(height uint64) *lake.StreamerMessage {
	prev := height - 1
	return &lake.StreamerMessage{
		Block: lake.BlockView{
			Author: "validator.near",
			Header: lake.BlockHeaderView{
				Height:      height,
				PrevHeight:  &prev,
				EpochID:     "epoch-1",
				Hash:        BlockHash(height),
				PrevHash:    BlockHash(prev),
				Timestamp:   BlockTimestamp(height),
				TotalSupply: decimal.RequireFromString("1157000000000000000000000000000000"),
				GasPrice:    decimal.NewFromInt(100000000),
			},
			Chunks: []lake.ChunkHeaderView{chunkHeader(height, 0)},
		},
		Shards: []lake.IndexerShard{{
			ShardID: 0,
			Chunk: &lake.IndexerChunkView{
				Author: "validator.near",
				Header: chunkHeader(height, 0),
			},
		}},
	}
}

// NewMessage returns a block at height whose only chunk holds one transaction, the action receipt it was
// converted into and a data receipt. The action receipt's execution outcome and the account changes it caused
// are in the shard.
func NewMessage(height uint64) *lake.StreamerMessage {
	msg := NewEmptyMessage(height)
	shard := &msg.Shards[0]

	actionID := ReceiptID(height, "action")
	dataID := fmt.Sprintf("data-%d", height)

	shard.Chunk.Transactions = []lake.IndexerTransactionWithOutcome{{
		Transaction: lake.SignedTransactionView{
			SignerID:   "alice.near",
			PublicKey:  "ed25519:alice",
			Nonce:      decimal.NewFromInt(int64(height)),
			ReceiverID: "bob.near",
			Actions:    []lake.ActionView{Transfer("1000000000000000000000000")},
			Signature:  "ed25519:sig",
			Hash:       TxHash(height, 0),
		},
		Outcome: lake.IndexerExecutionOutcomeWithOptionalReceipt{
			ExecutionOutcome: lake.ExecutionOutcomeWithIDView{
				BlockHash: BlockHash(height),
				ID:        TxHash(height, 0),
				Outcome: lake.ExecutionOutcomeView{
					ReceiptIDs:  []string{actionID},
					GasBurnt:    decimal.NewFromInt(223182562500),
					TokensBurnt: decimal.RequireFromString("22318256250000000000"),
					ExecutorID:  "alice.near",
					Status:      lake.ExecutionStatusView{Kind: lake.ExecutionStatusSuccessReceiptID, ReceiptID: actionID},
				},
			},
		},
	}}

	shard.Chunk.Receipts = []lake.ReceiptView{
		{
			PredecessorID: "alice.near",
			ReceiverID:    "bob.near",
			ReceiptID:     actionID,
			Receipt: lake.ReceiptEnumView{
				Kind: lake.ReceiptKindAction,
				Action: &lake.ActionReceiptView{
					SignerID:        "alice.near",
					SignerPublicKey: "ed25519:alice",
					GasPrice:        decimal.NewFromInt(100000000),
					OutputDataReceivers: []lake.DataReceiverView{
						{DataID: dataID, ReceiverID: "carol.near"},
					},
					InputDataIDs: []string{fmt.Sprintf("input-%d", height)},
					Actions:      []lake.ActionView{Transfer("1000000000000000000000000")},
				},
			},
		},
		{
			PredecessorID: "bob.near",
			ReceiverID:    "carol.near",
			ReceiptID:     ReceiptID(height, "data"),
			Receipt: lake.ReceiptEnumView{
				Kind: lake.ReceiptKindData,
				Data: &lake.DataReceiptView{DataID: dataID, Data: []byte("ok")},
			},
		},
	}

	shard.ReceiptExecutionOutcomes = []lake.IndexerExecutionOutcomeWithReceipt{{
		ExecutionOutcome: lake.ExecutionOutcomeWithIDView{
			BlockHash: BlockHash(height),
			ID:        actionID,
			Outcome: lake.ExecutionOutcomeView{
				ReceiptIDs:  []string{ReceiptID(height, "refund")},
				GasBurnt:    decimal.NewFromInt(223182562500),
				TokensBurnt: decimal.RequireFromString("22318256250000000000"),
				ExecutorID:  "bob.near",
				Status:      lake.ExecutionStatusView{Kind: lake.ExecutionStatusSuccessValue, Value: []byte{}},
			},
		},
		Receipt: shard.Chunk.Receipts[0],
	}}

	shard.StateChanges = []lake.StateChangeWithCauseView{
		AccountUpdate("alice.near", lake.StateChangeCauseView{Type: lake.CauseTransactionProcessing, TxHash: TxHash(height, 0)}, "9000", "0", 182),
		AccountUpdate("bob.near", lake.StateChangeCauseView{Type: lake.CauseReceiptProcessing, ReceiptHash: actionID}, "1000", "0", 182),
	}
	return msg
}

func chunkHeader(height uint64, shard uint64) lake.ChunkHeaderView {
	return lake.ChunkHeaderView{
		ChunkHash:      fmt.Sprintf("chunk-%d-%d", height, shard),
		PrevBlockHash:  BlockHash(height - 1),
		HeightCreated:  height,
		HeightIncluded: height,
		ShardID:        shard,
		GasUsed:        decimal.NewFromInt(424182562500),
		GasLimit:       decimal.NewFromInt(1000000000000000),
		BalanceBurnt:   decimal.Zero,
		Signature:      "ed25519:chunk",
	}
}

// Transfer returns a Transfer action moving deposit yoctoNEAR.
func Transfer(deposit string) lake.ActionView {
	args, _ := json.Marshal(map[string]string{"deposit": deposit})
	return lake.ActionView{Kind: lake.ActionTransfer, Args: args}
}

func AccountUpdate(account string, cause lake.StateChangeCauseView, amount, locked string, storage int64) lake.StateChangeWithCauseView {
	av := &lake.AccountView{
		Amount:       decimal.RequireFromString(amount),
		Locked:       decimal.RequireFromString(locked),
		CodeHash:     "11111111111111111111111111111111",
		StorageUsage: decimal.NewFromInt(storage),
	}
	change, _ := json.Marshal(struct {
		AccountID string `json:"account_id"`
		*lake.AccountView
	}{AccountID: account, AccountView: av})
	return lake.StateChangeWithCauseView{
		Cause:     cause,
		Kind:      lake.StateChangeAccountUpdate,
		AccountID: account,
		Account:   av,
		Change:    change,
	}
}

func AccountDeletion(account string, cause lake.StateChangeCauseView) lake.StateChangeWithCauseView {
	return accountOnly(lake.StateChangeAccountDeletion, account, cause)
}

// DataUpdate returns a contract storage change, which never produces an account change.
func DataUpdate(account string, cause lake.StateChangeCauseView) lake.StateChangeWithCauseView {
	return accountOnly(lake.StateChangeDataUpdate, account, cause)
}

func accountOnly(kind lake.StateChangeKind, account string, cause lake.StateChangeCauseView) lake.StateChangeWithCauseView {
	change, _ := json.Marshal(map[string]string{"account_id": account})
	return lake.StateChangeWithCauseView{
		Cause:     cause,
		Kind:      kind,
		AccountID: account,
		Change:    change,
	}
}
