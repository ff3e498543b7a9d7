package lake

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"
)

// StreamerMessage bundles a block with everything that happened in it. It is assembled from the
// block.json and shard_<id>.json objects stored under the block's height in the lake.
type StreamerMessage struct {
	Block  BlockView      `json:"block"`
	Shards []IndexerShard `json:"shards"`
}

// Height is the height of the message's block.
func (m *StreamerMessage) Height() uint64 {
	return m.Block.Header.Height
}

type BlockView struct {
	Author string            `json:"author"`
	Header BlockHeaderView   `json:"header"`
	Chunks []ChunkHeaderView `json:"chunks"`
}

type BlockHeaderView struct {
	Height      uint64          `json:"height"`
	PrevHeight  *uint64         `json:"prev_height"`
	EpochID     string          `json:"epoch_id"`
	Hash        string          `json:"hash"`
	PrevHash    string          `json:"prev_hash"`
	Timestamp   uint64          `json:"timestamp"`
	TotalSupply decimal.Decimal `json:"total_supply"`
	GasPrice    decimal.Decimal `json:"gas_price"`
}

type ChunkHeaderView struct {
	ChunkHash      string          `json:"chunk_hash"`
	PrevBlockHash  string          `json:"prev_block_hash"`
	HeightCreated  uint64          `json:"height_created"`
	HeightIncluded uint64          `json:"height_included"`
	ShardID        uint64          `json:"shard_id"`
	GasUsed        decimal.Decimal `json:"gas_used"`
	GasLimit       decimal.Decimal `json:"gas_limit"`
	BalanceBurnt   decimal.Decimal `json:"balance_burnt"`
	Signature      string          `json:"signature"`
}

type IndexerShard struct {
	ShardID                  uint64                               `json:"shard_id"`
	Chunk                    *IndexerChunkView                    `json:"chunk"`
	ReceiptExecutionOutcomes []IndexerExecutionOutcomeWithReceipt `json:"receipt_execution_outcomes"`
	StateChanges             []StateChangeWithCauseView           `json:"state_changes"`
}

type IndexerChunkView struct {
	Author       string                          `json:"author"`
	Header       ChunkHeaderView                 `json:"header"`
	Transactions []IndexerTransactionWithOutcome `json:"transactions"`
	Receipts     []ReceiptView                   `json:"receipts"`
}

type IndexerTransactionWithOutcome struct {
	Transaction SignedTransactionView                      `json:"transaction"`
	Outcome     IndexerExecutionOutcomeWithOptionalReceipt `json:"outcome"`
}

type SignedTransactionView struct {
	SignerID   string          `json:"signer_id"`
	PublicKey  string          `json:"public_key"`
	Nonce      decimal.Decimal `json:"nonce"`
	ReceiverID string          `json:"receiver_id"`
	Actions    []ActionView    `json:"actions"`
	Signature  string          `json:"signature"`
	Hash       string          `json:"hash"`
}

type IndexerExecutionOutcomeWithOptionalReceipt struct {
	ExecutionOutcome ExecutionOutcomeWithIDView `json:"execution_outcome"`
	Receipt          *ReceiptView               `json:"receipt"`
}

type IndexerExecutionOutcomeWithReceipt struct {
	ExecutionOutcome ExecutionOutcomeWithIDView `json:"execution_outcome"`
	Receipt          ReceiptView                `json:"receipt"`
}

type ExecutionOutcomeWithIDView struct {
	BlockHash string               `json:"block_hash"`
	ID        string               `json:"id"`
	Outcome   ExecutionOutcomeView `json:"outcome"`
}

type ExecutionOutcomeView struct {
	Logs        []string            `json:"logs"`
	ReceiptIDs  []string            `json:"receipt_ids"`
	GasBurnt    decimal.Decimal     `json:"gas_burnt"`
	TokensBurnt decimal.Decimal     `json:"tokens_burnt"`
	ExecutorID  string              `json:"executor_id"`
	Status      ExecutionStatusView `json:"status"`
}

// ExecutionStatusView is encoded either as the string "Unknown" or as a single key object
// naming the variant: {"Failure": {...}}, {"SuccessValue": "<base64>"}, {"SuccessReceiptId": "<id>"}.
type ExecutionStatusView struct {
	Kind      ExecutionStatus
	Value     []byte
	ReceiptID string
	Failure   json.RawMessage
}

func (s *ExecutionStatusView) UnmarshalJSON(b []byte) error {
	var tag string
	if err := json.Unmarshal(b, &tag); err == nil {
		if tag != "Unknown" {
			return xerrors.Errorf("execution status %q: %w", tag, ErrUnknownVariant)
		}
		*s = ExecutionStatusView{Kind: ExecutionStatusUnknown}
		return nil
	}

	name, payload, err := singleKeyObject(b)
	if err != nil {
		return xerrors.Errorf("execution status: %w", err)
	}
	switch name {
	case "Failure":
		*s = ExecutionStatusView{Kind: ExecutionStatusFailure, Failure: payload}
	case "SuccessValue":
		var value []byte
		if err := json.Unmarshal(payload, &value); err != nil {
			return xerrors.Errorf("execution status value: %w", err)
		}
		*s = ExecutionStatusView{Kind: ExecutionStatusSuccessValue, Value: value}
	case "SuccessReceiptId":
		var id string
		if err := json.Unmarshal(payload, &id); err != nil {
			return xerrors.Errorf("execution status receipt id: %w", err)
		}
		*s = ExecutionStatusView{Kind: ExecutionStatusSuccessReceiptID, ReceiptID: id}
	default:
		return xerrors.Errorf("execution status %q: %w", name, ErrUnknownVariant)
	}
	return nil
}

type ReceiptView struct {
	PredecessorID string          `json:"predecessor_id"`
	ReceiverID    string          `json:"receiver_id"`
	ReceiptID     string          `json:"receipt_id"`
	Receipt       ReceiptEnumView `json:"receipt"`
}

// ReceiptEnumView holds exactly one of Action or Data, as named by Kind.
type ReceiptEnumView struct {
	Kind   ReceiptKind
	Action *ActionReceiptView
	Data   *DataReceiptView
}

func (r *ReceiptEnumView) UnmarshalJSON(b []byte) error {
	name, payload, err := singleKeyObject(b)
	if err != nil {
		return xerrors.Errorf("receipt: %w", err)
	}
	switch name {
	case "Action":
		var action ActionReceiptView
		if err := json.Unmarshal(payload, &action); err != nil {
			return xerrors.Errorf("action receipt: %w", err)
		}
		*r = ReceiptEnumView{Kind: ReceiptKindAction, Action: &action}
	case "Data":
		var data DataReceiptView
		if err := json.Unmarshal(payload, &data); err != nil {
			return xerrors.Errorf("data receipt: %w", err)
		}
		*r = ReceiptEnumView{Kind: ReceiptKindData, Data: &data}
	default:
		return xerrors.Errorf("receipt %q: %w", name, ErrUnknownVariant)
	}
	return nil
}

type ActionReceiptView struct {
	SignerID            string             `json:"signer_id"`
	SignerPublicKey     string             `json:"signer_public_key"`
	GasPrice            decimal.Decimal    `json:"gas_price"`
	OutputDataReceivers []DataReceiverView `json:"output_data_receivers"`
	InputDataIDs        []string           `json:"input_data_ids"`
	Actions             []ActionView       `json:"actions"`
}

type DataReceiverView struct {
	DataID     string `json:"data_id"`
	ReceiverID string `json:"receiver_id"`
}

// DataReceiptView carries the base64 decoded data, nil when the producing call returned nothing.
type DataReceiptView struct {
	DataID string `json:"data_id"`
	Data   []byte `json:"data"`
}

// ActionView is encoded either as the bare string "CreateAccount" or as a single key object
// naming the action and holding its arguments.
type ActionView struct {
	Kind ActionKind
	Args json.RawMessage
}

func (a *ActionView) UnmarshalJSON(b []byte) error {
	var name string
	payload := json.RawMessage(`{}`)
	if err := json.Unmarshal(b, &name); err != nil {
		name, payload, err = singleKeyObject(b)
		if err != nil {
			return xerrors.Errorf("action: %w", err)
		}
	}
	kind := ActionKind(name)
	if _, err := kind.Label(); err != nil {
		return err
	}
	*a = ActionView{Kind: kind, Args: payload}
	return nil
}

// AccessKeyView is the access_key argument of an AddKey action.
type AccessKeyView struct {
	Nonce      decimal.Decimal         `json:"nonce"`
	Permission AccessKeyPermissionView `json:"permission"`
}

// AccessKeyPermissionView is encoded either as the string "FullAccess" or as
// {"FunctionCall": {"allowance": ..., "receiver_id": ..., "method_names": [...]}}.
type AccessKeyPermissionView struct {
	Kind         AccessKeyPermission
	FunctionCall json.RawMessage
}

func (p *AccessKeyPermissionView) UnmarshalJSON(b []byte) error {
	var tag string
	if err := json.Unmarshal(b, &tag); err == nil {
		if tag != "FullAccess" {
			return xerrors.Errorf("access key permission %q: %w", tag, ErrUnknownVariant)
		}
		*p = AccessKeyPermissionView{Kind: PermissionFullAccess}
		return nil
	}
	name, payload, err := singleKeyObject(b)
	if err != nil {
		return xerrors.Errorf("access key permission: %w", err)
	}
	if name != "FunctionCall" {
		return xerrors.Errorf("access key permission %q: %w", name, ErrUnknownVariant)
	}
	*p = AccessKeyPermissionView{Kind: PermissionFunctionCall, FunctionCall: payload}
	return nil
}

type StateChangeCauseView struct {
	Type        StateChangeCause `json:"type"`
	TxHash      string           `json:"tx_hash,omitempty"`
	ReceiptHash string           `json:"receipt_hash,omitempty"`
}

// AccountView is the state of an account after an account_update state change.
type AccountView struct {
	Amount        decimal.Decimal `json:"amount"`
	Locked        decimal.Decimal `json:"locked"`
	CodeHash      string          `json:"code_hash"`
	StorageUsage  decimal.Decimal `json:"storage_usage"`
	StoragePaidAt uint64          `json:"storage_paid_at"`
}

// StateChangeWithCauseView is a single state change. AccountID is filled for every kind, Account
// only for account updates.
type StateChangeWithCauseView struct {
	Cause     StateChangeCauseView
	Kind      StateChangeKind
	AccountID string
	Account   *AccountView
	Change    json.RawMessage
}

func (v *StateChangeWithCauseView) UnmarshalJSON(b []byte) error {
	var raw struct {
		Cause  StateChangeCauseView `json:"cause"`
		Type   StateChangeKind      `json:"type"`
		Change json.RawMessage      `json:"change"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return xerrors.Errorf("state change: %w", err)
	}

	var change struct {
		AccountID string `json:"account_id"`
	}
	if err := json.Unmarshal(raw.Change, &change); err != nil {
		return xerrors.Errorf("state change %s: %w", raw.Type, err)
	}

	out := StateChangeWithCauseView{
		Cause:     raw.Cause,
		Kind:      raw.Type,
		AccountID: change.AccountID,
		Change:    raw.Change,
	}
	if raw.Type == StateChangeAccountUpdate {
		var account AccountView
		if err := json.Unmarshal(raw.Change, &account); err != nil {
			return xerrors.Errorf("account update of %s: %w", change.AccountID, err)
		}
		out.Account = &account
	}
	*v = out
	return nil
}

// MarshalJSON restores the wire shape so a decoded change can be reported verbatim.
func (v StateChangeWithCauseView) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Cause  StateChangeCauseView `json:"cause"`
		Type   StateChangeKind      `json:"type"`
		Change json.RawMessage      `json:"change"`
	}{Cause: v.Cause, Type: v.Kind, Change: v.Change})
}

// singleKeyObject decodes the {"Variant": payload} encoding used for tagged values.
func singleKeyObject(b []byte) (string, json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return "", nil, err
	}
	if len(obj) != 1 {
		return "", nil, xerrors.Errorf("expected a single variant, got %d keys", len(obj))
	}
	for name, payload := range obj {
		return name, payload, nil
	}
	return "", nil, nil
}

func (s ExecutionStatusView) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case ExecutionStatusUnknown:
		return json.Marshal("Unknown")
	case ExecutionStatusFailure:
		failure := s.Failure
		if failure == nil {
			failure = json.RawMessage(`{}`)
		}
		return json.Marshal(map[string]json.RawMessage{"Failure": failure})
	case ExecutionStatusSuccessValue:
		value := s.Value
		if value == nil {
			value = []byte{}
		}
		return json.Marshal(map[string][]byte{"SuccessValue": value})
	case ExecutionStatusSuccessReceiptID:
		return json.Marshal(map[string]string{"SuccessReceiptId": s.ReceiptID})
	}
	return nil, xerrors.Errorf("execution status %d: %w", int(s.Kind), ErrUnknownVariant)
}

func (r ReceiptEnumView) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ReceiptKindAction:
		return json.Marshal(map[string]*ActionReceiptView{"Action": r.Action})
	case ReceiptKindData:
		return json.Marshal(map[string]*DataReceiptView{"Data": r.Data})
	}
	return nil, xerrors.Errorf("receipt kind %d: %w", int(r.Kind), ErrUnknownVariant)
}

func (a ActionView) MarshalJSON() ([]byte, error) {
	if _, err := a.Kind.Label(); err != nil {
		return nil, err
	}
	if a.Kind == ActionCreateAccount {
		return json.Marshal(string(a.Kind))
	}
	args := a.Args
	if args == nil {
		args = json.RawMessage(`{}`)
	}
	return json.Marshal(map[string]json.RawMessage{string(a.Kind): args})
}

func (p AccessKeyPermissionView) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PermissionFullAccess:
		return json.Marshal("FullAccess")
	case PermissionFunctionCall:
		return json.Marshal(map[string]json.RawMessage{"FunctionCall": p.FunctionCall})
	}
	return nil, xerrors.Errorf("access key permission %d: %w", int(p.Kind), ErrUnknownVariant)
}
