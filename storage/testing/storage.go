package testing

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-pg/pg/v10"
	"github.com/stretchr/testify/require"

	"github.com/near/lake-flows-into-sql/storage"
	"github.com/near/lake-flows-into-sql/testutil"
)

// MigratedDatabase drops schemaName from the test database, installs the latest schema into it and returns a
// connected Database. The test is skipped when no test database is configured.
func MigratedDatabase(ctx context.Context, tb testing.TB, schemaName string, debugLogs bool) *storage.Database {
	if testing.Short() || !testutil.DatabaseAvailable() {
		tb.Skip("short testing requested or LAKEFLOW_TEST_DB not set")
	}

	opt, err := pg.ParseURL(testutil.Database())
	require.NoError(tb, err)
	admin := pg.Connect(opt)
	_, err = admin.ExecContext(ctx, `DROP SCHEMA IF EXISTS ? CASCADE`, pg.Ident(schemaName))
	require.NoError(tb, admin.Close())
	require.NoError(tb, err)

	db, err := storage.NewDatabase(ctx, testutil.Database(), 10, tb.Name(), schemaName)
	require.NoError(tb, err)
	require.NoError(tb, db.MigrateSchema(ctx))
	require.NoError(tb, db.Connect(ctx))

	if debugLogs {
		db.AsORM().AddQueryHook(&LoggingQueryHook{})
	}
	tb.Cleanup(func() {
		_ = db.Close() // nolint: errcheck
	})
	return db
}

// LoggingQueryHook prints every statement sent to the database, and its error if any.
type LoggingQueryHook struct{}

func (l *LoggingQueryHook) BeforeQuery(ctx context.Context, event *pg.QueryEvent) (context.Context, error) {
	return ctx, nil
}

func (l *LoggingQueryHook) AfterQuery(ctx context.Context, event *pg.QueryEvent) error {
	q, err := event.FormattedQuery()
	if err != nil {
		return err
	}
	if event.Err != nil {
		fmt.Printf("%s executing a query:\n%s\n", event.Err, q)
		return nil
	}
	fmt.Println(string(q))
	return nil
}
