package v1

func init() {
	patches.Register(
		2,
		`
		CREATE INDEX IF NOT EXISTS account_changes_affected_account_id_idx ON {{ .Schema }}.account_changes USING btree (affected_account_id);
		CREATE INDEX IF NOT EXISTS receipts_predecessor_account_id_idx ON {{ .Schema }}.receipts USING btree (predecessor_account_id);
		CREATE INDEX IF NOT EXISTS receipts_receiver_account_id_idx ON {{ .Schema }}.receipts USING btree (receiver_account_id);
		CREATE INDEX IF NOT EXISTS transactions_signer_account_id_idx ON {{ .Schema }}.transactions USING btree (signer_account_id);
		`,
	)
}
