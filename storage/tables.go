package storage

import (
	"github.com/near/lake-flows-into-sql/model"
	"github.com/near/lake-flows-into-sql/model/accounts"
	"github.com/near/lake-flows-into-sql/model/blocks"
	"github.com/near/lake-flows-into-sql/model/chunks"
	"github.com/near/lake-flows-into-sql/model/outcomes"
	"github.com/near/lake-flows-into-sql/model/receipts"
	"github.com/near/lake-flows-into-sql/model/transactions"
)

// Tables lists every table written by the indexer. The blocks table comes last.
var Tables = []model.Table{
	chunks.Table,
	transactions.Table,
	receipts.Table,
	receipts.DataReceiptsTable,
	receipts.ActionsTable,
	receipts.InputDataTable,
	receipts.OutputDataTable,
	outcomes.Table,
	outcomes.ReceiptsTable,
	accounts.Table,
	blocks.Table,
}
