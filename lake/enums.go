package lake

import (
	"errors"

	"golang.org/x/xerrors"
)

// ErrUnknownVariant is returned when a tagged value carries a tag outside of its closed set.
var ErrUnknownVariant = errors.New("unknown variant")

// ExecutionStatus is the outcome tag of a transaction or receipt execution.
type ExecutionStatus int

const (
	ExecutionStatusUnknown ExecutionStatus = iota + 1
	ExecutionStatusFailure
	ExecutionStatusSuccessValue
	ExecutionStatusSuccessReceiptID
)

// Label returns the stored name of the status.
func (s ExecutionStatus) Label() (string, error) {
	switch s {
	case ExecutionStatusUnknown:
		return "UNKNOWN", nil
	case ExecutionStatusFailure:
		return "FAILURE", nil
	case ExecutionStatusSuccessValue:
		return "SUCCESS_VALUE", nil
	case ExecutionStatusSuccessReceiptID:
		return "SUCCESS_RECEIPT_ID", nil
	}
	return "", xerrors.Errorf("execution status %d: %w", int(s), ErrUnknownVariant)
}

// ReceiptKind tags the two receipt variants.
type ReceiptKind int

const (
	ReceiptKindAction ReceiptKind = iota + 1
	ReceiptKindData
)

func (k ReceiptKind) Label() (string, error) {
	switch k {
	case ReceiptKindAction:
		return "ACTION", nil
	case ReceiptKindData:
		return "DATA", nil
	}
	return "", xerrors.Errorf("receipt kind %d: %w", int(k), ErrUnknownVariant)
}

// ActionKind tags the action variants carried by transactions and action receipts.
type ActionKind string

const (
	ActionCreateAccount  ActionKind = "CreateAccount"
	ActionDeployContract ActionKind = "DeployContract"
	ActionFunctionCall   ActionKind = "FunctionCall"
	ActionTransfer       ActionKind = "Transfer"
	ActionStake          ActionKind = "Stake"
	ActionAddKey         ActionKind = "AddKey"
	ActionDeleteKey      ActionKind = "DeleteKey"
	ActionDeleteAccount  ActionKind = "DeleteAccount"
)

func (k ActionKind) Label() (string, error) {
	switch k {
	case ActionCreateAccount:
		return "CREATE_ACCOUNT", nil
	case ActionDeployContract:
		return "DEPLOY_CONTRACT", nil
	case ActionFunctionCall:
		return "FUNCTION_CALL", nil
	case ActionTransfer:
		return "TRANSFER", nil
	case ActionStake:
		return "STAKE", nil
	case ActionAddKey:
		return "ADD_KEY", nil
	case ActionDeleteKey:
		return "DELETE_KEY", nil
	case ActionDeleteAccount:
		return "DELETE_ACCOUNT", nil
	}
	return "", xerrors.Errorf("action %q: %w", string(k), ErrUnknownVariant)
}

// AccessKeyPermission tags the permission granted by an access key.
type AccessKeyPermission int

const (
	PermissionFullAccess AccessKeyPermission = iota + 1
	PermissionFunctionCall
)

func (p AccessKeyPermission) Label() (string, error) {
	switch p {
	case PermissionFullAccess:
		return "FULL_ACCESS", nil
	case PermissionFunctionCall:
		return "FUNCTION_CALL", nil
	}
	return "", xerrors.Errorf("access key permission %d: %w", int(p), ErrUnknownVariant)
}

// StateChangeKind tags the value of a state change.
type StateChangeKind string

const (
	StateChangeAccountUpdate        StateChangeKind = "account_update"
	StateChangeAccountDeletion      StateChangeKind = "account_deletion"
	StateChangeAccessKeyUpdate      StateChangeKind = "access_key_update"
	StateChangeAccessKeyDeletion    StateChangeKind = "access_key_deletion"
	StateChangeDataUpdate           StateChangeKind = "data_update"
	StateChangeDataDeletion         StateChangeKind = "data_deletion"
	StateChangeContractCodeUpdate   StateChangeKind = "contract_code_update"
	StateChangeContractCodeDeletion StateChangeKind = "contract_code_deletion"
)

func (k *StateChangeKind) UnmarshalText(text []byte) error {
	switch v := StateChangeKind(text); v {
	case StateChangeAccountUpdate, StateChangeAccountDeletion,
		StateChangeAccessKeyUpdate, StateChangeAccessKeyDeletion,
		StateChangeDataUpdate, StateChangeDataDeletion,
		StateChangeContractCodeUpdate, StateChangeContractCodeDeletion:
		*k = v
		return nil
	}
	return xerrors.Errorf("state change %q: %w", string(text), ErrUnknownVariant)
}

// StateChangeCause tags what triggered a state change.
type StateChangeCause string

const (
	CauseNotWritableToDisk              StateChangeCause = "not_writable_to_disk"
	CauseInitialState                   StateChangeCause = "initial_state"
	CauseTransactionProcessing          StateChangeCause = "transaction_processing"
	CauseActionReceiptProcessingStarted StateChangeCause = "action_receipt_processing_started"
	CauseActionReceiptGasReward         StateChangeCause = "action_receipt_gas_reward"
	CauseReceiptProcessing              StateChangeCause = "receipt_processing"
	CausePostponedReceipt               StateChangeCause = "postponed_receipt"
	CauseUpdatedDelayedReceipts         StateChangeCause = "updated_delayed_receipts"
	CauseValidatorAccountsUpdate        StateChangeCause = "validator_accounts_update"
	CauseMigration                      StateChangeCause = "migration"
	CauseResharding                     StateChangeCause = "resharding"
)

func (c *StateChangeCause) UnmarshalText(text []byte) error {
	switch v := StateChangeCause(text); v {
	case CauseNotWritableToDisk, CauseInitialState,
		CauseTransactionProcessing, CauseActionReceiptProcessingStarted,
		CauseActionReceiptGasReward, CauseReceiptProcessing, CausePostponedReceipt,
		CauseUpdatedDelayedReceipts, CauseValidatorAccountsUpdate,
		CauseMigration, CauseResharding:
		*c = v
		return nil
	}
	return xerrors.Errorf("state change cause %q: %w", string(text), ErrUnknownVariant)
}
