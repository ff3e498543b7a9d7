package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model"
)

var Table = model.Table{
	Name: "account_changes",
	Columns: []string{
		"affected_account_id",
		"changed_in_block_timestamp",
		"changed_in_block_hash",
		"caused_by_transaction_hash",
		"caused_by_receipt_id",
		"update_reason",
		"affected_account_nonstaked_balance",
		"affected_account_staked_balance",
		"affected_account_storage_usage",
		"index_in_block",
	},
	TimestampColumn: "changed_in_block_timestamp",
}

// ErrImpossibleCause is matched by every ImpossibleCauseError.
var ErrImpossibleCause = errors.New("impossible state change cause")

// ImpossibleCauseError reports a state change whose cause never occurs in a block. Seeing one means the stream
// source broke its contract, so it is never retried.
type ImpossibleCauseError struct {
	BlockHash string
	Change    lake.StateChangeWithCauseView
}

func (e *ImpossibleCauseError) Error() string {
	record, err := json.Marshal(e.Change)
	if err != nil {
		record = []byte(fmt.Sprintf("%+v", e.Change))
	}
	return fmt.Sprintf("%s %q in block %s: %s", ErrImpossibleCause, e.Change.Cause.Type, e.BlockHash, record)
}

func (e *ImpossibleCauseError) Is(target error) bool {
	return target == ErrImpossibleCause
}

// CauseLabel returns the stored name of a state change cause.
func CauseLabel(c lake.StateChangeCause) (string, error) {
	switch c {
	case lake.CauseNotWritableToDisk, lake.CauseInitialState:
		return "", xerrors.Errorf("%q: %w", string(c), ErrImpossibleCause)
	case lake.CauseTransactionProcessing:
		return "TRANSACTION_PROCESSING", nil
	case lake.CauseActionReceiptProcessingStarted:
		return "ACTION_RECEIPT_PROCESSING_STARTED", nil
	case lake.CauseActionReceiptGasReward:
		return "ACTION_RECEIPT_GAS_REWARD", nil
	case lake.CauseReceiptProcessing:
		return "RECEIPT_PROCESSING", nil
	case lake.CausePostponedReceipt:
		return "POSTPONED_RECEIPT", nil
	case lake.CauseUpdatedDelayedReceipts:
		return "UPDATED_DELAYED_RECEIPTS", nil
	case lake.CauseValidatorAccountsUpdate:
		return "VALIDATOR_ACCOUNTS_UPDATE", nil
	case lake.CauseMigration:
		return "MIGRATION", nil
	case lake.CauseResharding:
		return "RESHARDING", nil
	}
	return "", xerrors.Errorf("state change cause %q: %w", string(c), lake.ErrUnknownVariant)
}

type AccountChange struct {
	AffectedAccountID               string
	ChangedInBlockTimestamp         decimal.Decimal
	ChangedInBlockHash              string
	CausedByTransactionHash         *string
	CausedByReceiptID               *string
	UpdateReason                    string
	AffectedAccountNonstakedBalance decimal.Decimal
	AffectedAccountStakedBalance    decimal.Decimal
	AffectedAccountStorageUsage     decimal.Decimal
	IndexInBlock                    int
}

// NewAccountChange converts an account update or deletion. Any other kind of state change yields nil and no
// error.
func NewAccountChange(sc *lake.StateChangeWithCauseView, blockHash string, blockTimestamp uint64, index int) (*AccountChange, error) {
	if sc.Kind != lake.StateChangeAccountUpdate && sc.Kind != lake.StateChangeAccountDeletion {
		return nil, nil
	}

	reason, err := CauseLabel(sc.Cause.Type)
	if err != nil {
		if errors.Is(err, ErrImpossibleCause) {
			return nil, &ImpossibleCauseError{BlockHash: blockHash, Change: *sc}
		}
		return nil, xerrors.Errorf("state change of %s: %w", sc.AccountID, err)
	}

	ac := &AccountChange{
		AffectedAccountID:               sc.AccountID,
		ChangedInBlockTimestamp:         model.DecimalFromUint64(blockTimestamp),
		ChangedInBlockHash:              blockHash,
		UpdateReason:                    reason,
		AffectedAccountNonstakedBalance: decimal.Zero,
		AffectedAccountStakedBalance:    decimal.Zero,
		AffectedAccountStorageUsage:     decimal.Zero,
		IndexInBlock:                    index,
	}

	switch sc.Cause.Type {
	case lake.CauseTransactionProcessing:
		hash := sc.Cause.TxHash
		ac.CausedByTransactionHash = &hash
	case lake.CauseActionReceiptProcessingStarted,
		lake.CauseActionReceiptGasReward,
		lake.CauseReceiptProcessing,
		lake.CausePostponedReceipt:
		id := sc.Cause.ReceiptHash
		ac.CausedByReceiptID = &id
	}

	if sc.Account != nil {
		ac.AffectedAccountNonstakedBalance = sc.Account.Amount
		ac.AffectedAccountStakedBalance = sc.Account.Locked
		ac.AffectedAccountStorageUsage = sc.Account.StorageUsage
	}
	return ac, nil
}

// NewAccountChanges converts the state changes of every shard of a block. index_in_block counts the produced
// rows across shards in shard order.
func NewAccountChanges(shards []lake.IndexerShard, blockHash string, blockTimestamp uint64) (AccountChanges, error) {
	var out AccountChanges
	for i := range shards {
		for j := range shards[i].StateChanges {
			ac, err := NewAccountChange(&shards[i].StateChanges[j], blockHash, blockTimestamp, len(out))
			if err != nil {
				return nil, err
			}
			if ac != nil {
				out = append(out, ac)
			}
		}
	}
	return out, nil
}

func (ac *AccountChange) Values() []interface{} {
	return []interface{}{
		ac.AffectedAccountID,
		ac.ChangedInBlockTimestamp,
		ac.ChangedInBlockHash,
		ac.CausedByTransactionHash,
		ac.CausedByReceiptID,
		ac.UpdateReason,
		ac.AffectedAccountNonstakedBalance,
		ac.AffectedAccountStakedBalance,
		ac.AffectedAccountStorageUsage,
		ac.IndexInBlock,
	}
}

type AccountChanges []*AccountChange

func (acs AccountChanges) Persist(ctx context.Context, s model.StorageBatch) error {
	if len(acs) == 0 {
		return nil
	}
	rows := make([]model.Row, len(acs))
	for i, ac := range acs {
		rows[i] = ac
	}
	return s.PersistRows(ctx, Table, rows)
}
