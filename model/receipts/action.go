package receipts

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/minio/sha256-simd"
	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/lake"
	"github.com/near/lake-flows-into-sql/model"
)

var ActionsTable = model.Table{
	Name: "action_receipt_actions",
	Columns: []string{
		"receipt_id",
		"index_in_action_receipt",
		"action_kind",
		"args",
		"receipt_predecessor_account_id",
		"receipt_receiver_account_id",
		"receipt_included_in_block_timestamp",
	},
	TimestampColumn: "receipt_included_in_block_timestamp",
}

// ActionReceiptAction is one action of an action receipt. Args holds the action's arguments as JSON text.
type ActionReceiptAction struct {
	ReceiptID                       string
	IndexInActionReceipt            int
	ActionKind                      string
	Args                            string
	ReceiptPredecessorAccountID     string
	ReceiptReceiverAccountID        string
	ReceiptIncludedInBlockTimestamp decimal.Decimal
}

func NewActionReceiptActions(r *lake.ReceiptView, blockTimestamp uint64) (ActionReceiptActions, error) {
	ts := model.DecimalFromUint64(blockTimestamp)
	out := make(ActionReceiptActions, 0, len(r.Receipt.Action.Actions))
	for i, a := range r.Receipt.Action.Actions {
		kind, args, err := ActionArgs(a)
		if err != nil {
			return nil, xerrors.Errorf("receipt %s action %d: %w", r.ReceiptID, i, err)
		}
		out = append(out, &ActionReceiptAction{
			ReceiptID:                       r.ReceiptID,
			IndexInActionReceipt:            i,
			ActionKind:                      kind,
			Args:                            args,
			ReceiptPredecessorAccountID:     r.PredecessorID,
			ReceiptReceiverAccountID:        r.ReceiverID,
			ReceiptIncludedInBlockTimestamp: ts,
		})
	}
	return out, nil
}

func (a *ActionReceiptAction) Values() []interface{} {
	return []interface{}{
		a.ReceiptID,
		a.IndexInActionReceipt,
		a.ActionKind,
		a.Args,
		a.ReceiptPredecessorAccountID,
		a.ReceiptReceiverAccountID,
		a.ReceiptIncludedInBlockTimestamp,
	}
}

type ActionReceiptActions []*ActionReceiptAction

func (as ActionReceiptActions) Persist(ctx context.Context, s model.StorageBatch) error {
	if len(as) == 0 {
		return nil
	}
	rows := make([]model.Row, len(as))
	for i, a := range as {
		rows[i] = a
	}
	return s.PersistRows(ctx, ActionsTable, rows)
}

// ActionArgs returns the stored kind of an action and its arguments rendered as JSON text.
//
// Function call arguments are kept base64 encoded under args_base64 and, when they decode to JSON, also under
// args_json. Contract code is replaced by its sha256. Access key permissions are flattened to a
// permission_kind label with the function call restrictions under permission_details.
func ActionArgs(a lake.ActionView) (string, string, error) {
	kind, err := a.Kind.Label()
	if err != nil {
		return "", "", err
	}
	raw := a.Args
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	var args map[string]json.RawMessage
	if err := json.Unmarshal(raw, &args); err != nil {
		return "", "", xerrors.Errorf("%s args: %w", kind, err)
	}

	switch a.Kind {
	case lake.ActionFunctionCall:
		err = functionCallArgs(args)
	case lake.ActionDeployContract:
		err = deployContractArgs(args)
	case lake.ActionAddKey:
		err = addKeyArgs(args)
	}
	if err != nil {
		return "", "", xerrors.Errorf("%s args: %w", kind, err)
	}

	out, err := json.Marshal(args)
	if err != nil {
		return "", "", xerrors.Errorf("%s args: %w", kind, err)
	}
	return kind, string(out), nil
}

func functionCallArgs(args map[string]json.RawMessage) error {
	encoded, ok := args["args"]
	if !ok {
		return nil
	}
	delete(args, "args")
	args["args_base64"] = encoded

	var b64 string
	if err := json.Unmarshal(encoded, &b64); err != nil {
		return err
	}
	decoded, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil
	}
	if len(decoded) > 0 && json.Valid(decoded) {
		args["args_json"] = decoded
	}
	return nil
}

func deployContractArgs(args map[string]json.RawMessage) error {
	encoded, ok := args["code"]
	if !ok {
		return nil
	}
	delete(args, "code")

	var b64 string
	if err := json.Unmarshal(encoded, &b64); err != nil {
		return err
	}
	code, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(code)
	hash, err := json.Marshal(hex.EncodeToString(sum[:]))
	if err != nil {
		return err
	}
	args["code_sha256"] = hash
	return nil
}

func addKeyArgs(args map[string]json.RawMessage) error {
	raw, ok := args["access_key"]
	if !ok {
		return nil
	}
	var key lake.AccessKeyView
	if err := json.Unmarshal(raw, &key); err != nil {
		return err
	}
	label, err := key.Permission.Kind.Label()
	if err != nil {
		return err
	}

	permission := map[string]json.RawMessage{}
	permission["permission_kind"], err = json.Marshal(label)
	if err != nil {
		return err
	}
	if key.Permission.Kind == lake.PermissionFunctionCall {
		permission["permission_details"] = key.Permission.FunctionCall
	}

	accessKey := map[string]interface{}{
		"nonce":      key.Nonce,
		"permission": permission,
	}
	args["access_key"], err = json.Marshal(accessKey)
	return err
}
