package v1

// BaseTemplate is the template the initial schema for this major version. The template expects variables to be
// passed using the schemas.Config struct. Patches are applied on top of this base.
//
// Every table carries the timestamp of the block its rows belong to. Numbers that may not fit in 64 bits are
// stored as numeric.
var BaseTemplate = `

{{- if ne .Schema "public" }}
SET search_path TO {{ .Schema }},public;
{{- end }}

-- ----------------------------------------------------------------
-- Name: blocks
-- Model: blocks.Block
-- Growth: One row per block, written after every other row of the block
-- ----------------------------------------------------------------
CREATE TABLE IF NOT EXISTS {{ .Schema }}.blocks (
    block_height numeric(20,0) NOT NULL,
    block_hash text NOT NULL,
    prev_block_hash text NOT NULL,
    block_timestamp numeric(20,0) NOT NULL,
    total_supply numeric(45,0) NOT NULL,
    gas_price numeric(45,0) NOT NULL,
    author_account_id text NOT NULL,
    PRIMARY KEY (block_hash)
);

-- ----------------------------------------------------------------
-- Name: chunks
-- Model: chunks.Chunk
-- Growth: One row per shard per block
-- ----------------------------------------------------------------
CREATE TABLE IF NOT EXISTS {{ .Schema }}.chunks (
    included_in_block_hash text NOT NULL,
    included_in_block_timestamp numeric(20,0) NOT NULL,
    chunk_hash text NOT NULL,
    shard_id numeric(20,0) NOT NULL,
    signature text NOT NULL,
    gas_limit numeric(20,0) NOT NULL,
    gas_used numeric(20,0) NOT NULL,
    author_account_id text NOT NULL,
    PRIMARY KEY (chunk_hash)
);

-- ----------------------------------------------------------------
-- Name: transactions
-- Model: transactions.Transaction
-- ----------------------------------------------------------------
CREATE TABLE IF NOT EXISTS {{ .Schema }}.transactions (
    transaction_hash text NOT NULL,
    included_in_block_hash text NOT NULL,
    included_in_chunk_hash text NOT NULL,
    index_in_chunk integer NOT NULL,
    block_timestamp numeric(20,0) NOT NULL,
    signer_account_id text NOT NULL,
    signer_public_key text NOT NULL,
    nonce numeric(20,0) NOT NULL,
    receiver_account_id text NOT NULL,
    signature text NOT NULL,
    status text NOT NULL,
    converted_into_receipt_id text NOT NULL,
    receipt_conversion_gas_burnt numeric(20,0) NOT NULL,
    receipt_conversion_tokens_burnt numeric(45,0) NOT NULL,
    PRIMARY KEY (transaction_hash)
);

-- ----------------------------------------------------------------
-- Name: receipts
-- Model: receipts.Receipt
-- ----------------------------------------------------------------
CREATE TABLE IF NOT EXISTS {{ .Schema }}.receipts (
    receipt_id text NOT NULL,
    included_in_block_hash text NOT NULL,
    included_in_chunk_hash text NOT NULL,
    index_in_chunk integer NOT NULL,
    included_in_block_timestamp numeric(20,0) NOT NULL,
    predecessor_account_id text NOT NULL,
    receiver_account_id text NOT NULL,
    receipt_kind text NOT NULL,
    PRIMARY KEY (receipt_id)
);

-- ----------------------------------------------------------------
-- Name: data_receipts
-- Model: receipts.DataReceipt
-- ----------------------------------------------------------------
CREATE TABLE IF NOT EXISTS {{ .Schema }}.data_receipts (
    data_id text NOT NULL,
    included_in_block_hash text NOT NULL,
    included_in_block_timestamp numeric(20,0) NOT NULL,
    receipt_id text NOT NULL,
    data bytea,
    PRIMARY KEY (data_id)
);

-- ----------------------------------------------------------------
-- Name: action_receipt_actions
-- Model: receipts.ActionReceiptAction
-- ----------------------------------------------------------------
CREATE TABLE IF NOT EXISTS {{ .Schema }}.action_receipt_actions (
    receipt_id text NOT NULL,
    index_in_action_receipt integer NOT NULL,
    action_kind text NOT NULL,
    args jsonb NOT NULL,
    receipt_predecessor_account_id text NOT NULL,
    receipt_receiver_account_id text NOT NULL,
    receipt_included_in_block_timestamp numeric(20,0) NOT NULL,
    PRIMARY KEY (receipt_id, index_in_action_receipt)
);

-- ----------------------------------------------------------------
-- Name: action_receipt_input_data
-- Model: receipts.InputData
-- ----------------------------------------------------------------
CREATE TABLE IF NOT EXISTS {{ .Schema }}.action_receipt_input_data (
    input_data_id text NOT NULL,
    input_to_receipt_id text NOT NULL,
    block_timestamp numeric(20,0) NOT NULL,
    PRIMARY KEY (input_data_id, input_to_receipt_id)
);

-- ----------------------------------------------------------------
-- Name: action_receipt_output_data
-- Model: receipts.OutputData
-- ----------------------------------------------------------------
CREATE TABLE IF NOT EXISTS {{ .Schema }}.action_receipt_output_data (
    output_data_id text NOT NULL,
    output_from_receipt_id text NOT NULL,
    receiver_account_id text NOT NULL,
    block_timestamp numeric(20,0) NOT NULL,
    PRIMARY KEY (output_data_id, output_from_receipt_id)
);

-- ----------------------------------------------------------------
-- Name: execution_outcomes
-- Model: outcomes.ExecutionOutcome
-- ----------------------------------------------------------------
CREATE TABLE IF NOT EXISTS {{ .Schema }}.execution_outcomes (
    receipt_id text NOT NULL,
    executed_in_block_hash text NOT NULL,
    executed_in_block_timestamp numeric(20,0) NOT NULL,
    index_in_chunk integer NOT NULL,
    gas_burnt numeric(20,0) NOT NULL,
    tokens_burnt numeric(45,0) NOT NULL,
    executor_account_id text NOT NULL,
    status text NOT NULL,
    shard_id numeric(20,0) NOT NULL,
    PRIMARY KEY (receipt_id)
);

-- ----------------------------------------------------------------
-- Name: execution_outcome_receipts
-- Model: outcomes.ExecutionOutcomeReceipt
-- ----------------------------------------------------------------
CREATE TABLE IF NOT EXISTS {{ .Schema }}.execution_outcome_receipts (
    executed_receipt_id text NOT NULL,
    index_in_execution_outcome integer NOT NULL,
    produced_receipt_id text NOT NULL,
    executed_in_block_timestamp numeric(20,0) NOT NULL,
    PRIMARY KEY (executed_receipt_id, index_in_execution_outcome, produced_receipt_id)
);

-- ----------------------------------------------------------------
-- Name: account_changes
-- Model: accounts.AccountChange
-- ----------------------------------------------------------------
CREATE TABLE IF NOT EXISTS {{ .Schema }}.account_changes (
    id bigserial NOT NULL,
    affected_account_id text NOT NULL,
    changed_in_block_timestamp numeric(20,0) NOT NULL,
    changed_in_block_hash text NOT NULL,
    caused_by_transaction_hash text,
    caused_by_receipt_id text,
    update_reason text NOT NULL,
    affected_account_nonstaked_balance numeric(45,0) NOT NULL,
    affected_account_staked_balance numeric(45,0) NOT NULL,
    affected_account_storage_usage numeric(20,0) NOT NULL,
    index_in_block integer NOT NULL,
    PRIMARY KEY (id),
    UNIQUE (changed_in_block_hash, index_in_block)
);
`
