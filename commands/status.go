package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/retry"
	"github.com/near/lake-flows-into-sql/storage"
)

var StatusCmd = &cli.Command{
	Name:  "status",
	Usage: "Show the schema version, the last stored block and the rows stored for it in each table.",
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context

		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		db, err := newDatabase(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		if err := db.Connect(ctx); err != nil {
			return xerrors.Errorf("connect database: %w", err)
		}

		rcfg := retryConfig(cfg.Retry)
		if err := rcfg.Validate(); err != nil {
			return xerrors.Errorf("retry config: %w", err)
		}
		store := storage.NewStore(db, retry.NewExecutor(rcfg), cfg.Storage.MaxRowsPerStatement)
		defer store.Close() // nolint: errcheck

		dbVersion, latestVersion, err := db.GetSchemaVersions(ctx)
		if err != nil {
			return xerrors.Errorf("get schema versions: %w", err)
		}
		fmt.Fprintf(cctx.App.Writer, "schema version: %s (latest %s)\n", dbVersion, latestVersion)

		return printStatus(ctx, cctx.App.Writer, store)
	},
}

func printStatus(ctx context.Context, w io.Writer, store *storage.Store) error {
	height, ok, err := store.MaxBlockHeight(ctx)
	if err != nil {
		return xerrors.Errorf("last block height: %w", err)
	}
	if !ok {
		fmt.Fprintln(w, "no blocks stored")
		return nil
	}
	ts, _, err := store.MaxBlockTimestamp(ctx)
	if err != nil {
		return xerrors.Errorf("last block timestamp: %w", err)
	}
	counts, err := store.RowCounts(ctx, ts)
	if err != nil {
		return xerrors.Errorf("row counts: %w", err)
	}

	fmt.Fprintf(w, "last block: %d (timestamp %s)\n", height, ts)
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Table", "Rows"})
	for _, c := range counts {
		t.AppendRow(table.Row{c.Table, c.Rows})
	}
	fmt.Fprintln(w, t.Render())
	return nil
}
