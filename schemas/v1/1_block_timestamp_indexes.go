package v1

// Recovery deletes by block timestamp from every table.
func init() {
	patches.Register(
		1,
		`
		CREATE INDEX IF NOT EXISTS blocks_timestamp_idx ON {{ .Schema }}.blocks USING btree (block_timestamp DESC);
		CREATE INDEX IF NOT EXISTS chunks_timestamp_idx ON {{ .Schema }}.chunks USING btree (included_in_block_timestamp);
		CREATE INDEX IF NOT EXISTS transactions_timestamp_idx ON {{ .Schema }}.transactions USING btree (block_timestamp);
		CREATE INDEX IF NOT EXISTS receipts_timestamp_idx ON {{ .Schema }}.receipts USING btree (included_in_block_timestamp);
		CREATE INDEX IF NOT EXISTS data_receipts_timestamp_idx ON {{ .Schema }}.data_receipts USING btree (included_in_block_timestamp);
		CREATE INDEX IF NOT EXISTS action_receipt_actions_timestamp_idx ON {{ .Schema }}.action_receipt_actions USING btree (receipt_included_in_block_timestamp);
		CREATE INDEX IF NOT EXISTS action_receipt_input_data_timestamp_idx ON {{ .Schema }}.action_receipt_input_data USING btree (block_timestamp);
		CREATE INDEX IF NOT EXISTS action_receipt_output_data_timestamp_idx ON {{ .Schema }}.action_receipt_output_data USING btree (block_timestamp);
		CREATE INDEX IF NOT EXISTS execution_outcomes_timestamp_idx ON {{ .Schema }}.execution_outcomes USING btree (executed_in_block_timestamp);
		CREATE INDEX IF NOT EXISTS execution_outcome_receipts_timestamp_idx ON {{ .Schema }}.execution_outcome_receipts USING btree (executed_in_block_timestamp);
		CREATE INDEX IF NOT EXISTS account_changes_timestamp_idx ON {{ .Schema }}.account_changes USING btree (changed_in_block_timestamp);
		`,
	)
}
