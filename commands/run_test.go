package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/near/lake-flows-into-sql/chain"
	"github.com/near/lake-flows-into-sql/config"
	"github.com/near/lake-flows-into-sql/retry"
	"github.com/near/lake-flows-into-sql/storage"
	"github.com/near/lake-flows-into-sql/testutil"
)

func runConfig(t *testing.T, args ...string) *config.Conf {
	t.Helper()
	var got *config.Conf
	app := &cli.App{
		Name:  "lakeflow",
		Flags: ConfigFlags,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Flags: RunCmd.Flags,
				Action: func(cctx *cli.Context) error {
					cfg, err := loadConfig(cctx)
					if err != nil {
						return err
					}
					applyRunFlags(cctx, cfg)
					got = cfg
					return nil
				},
			},
		},
	}
	require.NoError(t, app.Run(append([]string{"lakeflow"}, args...)))
	require.NotNil(t, got)
	return got
}

func TestRunFlagsOverrideConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")

	t.Run("defaults", func(t *testing.T) {
		cfg := runConfig(t, "--config", missing, "run")
		assert.Equal(t, config.DefaultConf(), cfg)
	})

	t.Run("overrides", func(t *testing.T) {
		cfg := runConfig(t,
			"--config", missing,
			"--db", "postgres://u:p@db:5432/near",
			"--db-schema", "lake",
			"run",
			"--start-height", "100",
			"--stop-height", "200",
			"--concurrency", "4",
			"--lake-dir", "/data/lake",
			"--follow=false",
			"--retry-base", "5ms",
			"--retry-max", "1s",
			"--retry-attempts", "3",
			"--max-rows-per-statement", "10",
		)
		assert.Equal(t, "", cfg.Storage.URLEnv)
		assert.Equal(t, "postgres://u:p@db:5432/near", cfg.Storage.DatabaseURL())
		assert.Equal(t, "lake", cfg.Storage.SchemaName)
		assert.Equal(t, uint64(100), cfg.Indexer.StartHeight)
		assert.Equal(t, uint64(200), cfg.Indexer.StopHeight)
		assert.Equal(t, 4, cfg.Indexer.Concurrency)
		assert.Equal(t, "/data/lake", cfg.Lake.Dir)
		assert.False(t, cfg.Lake.Follow)
		assert.Equal(t, retry.Config{Base: 5 * time.Millisecond, Max: time.Second, Attempts: 3}, retryConfig(cfg.Retry))
		assert.Equal(t, 10, cfg.Storage.MaxRowsPerStatement)
	})
}

func TestRunIndexerDryRun(t *testing.T) {
	dir := t.TempDir()
	h := chain.DefaultInitialHeight
	testutil.WriteLake(t, dir, testutil.NewMessage(h), testutil.NewEmptyMessage(h+1), testutil.NewMessage(h+2))

	cfg := config.DefaultConf()
	cfg.Lake.Dir = dir
	cfg.Lake.Follow = false
	cfg.Indexer.Concurrency = 2
	cfg.Retry.Base = config.Duration(time.Millisecond)
	cfg.Retry.Max = config.Duration(time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, runIndexer(ctx, cfg, true))
}

func TestRunIndexerNegativePrefetchSize(t *testing.T) {
	dir := t.TempDir()
	h := chain.DefaultInitialHeight
	testutil.WriteLake(t, dir, testutil.NewMessage(h), testutil.NewMessage(h+1))

	cfg := config.DefaultConf()
	cfg.Lake.Dir = dir
	cfg.Lake.Follow = false
	cfg.Lake.PrefetchSize = -3

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, runIndexer(ctx, cfg, true))
}

type orderedCloser struct {
	calls *[]string
}

func (c orderedCloser) Close() error {
	*c.calls = append(*c.calls, "close")
	return nil
}

func TestShutdownStoreUnlocksBeforeClose(t *testing.T) {
	var calls []string
	shutdownStore(orderedCloser{calls: &calls}, func() error {
		calls = append(calls, "unlock")
		return nil
	})
	assert.Equal(t, []string{"unlock", "close"}, calls)

	calls = nil
	shutdownStore(orderedCloser{calls: &calls}, nil)
	assert.Equal(t, []string{"close"}, calls)
}

func TestRunIndexerRejectsInvalidRetryConfig(t *testing.T) {
	cfg := config.DefaultConf()
	cfg.Retry.Attempts = 0
	err := runIndexer(context.Background(), cfg, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry config")
}

func TestPrintStatus(t *testing.T) {
	ctx := context.Background()
	store := storage.NewStore(storage.NewMemStorage(), retry.NewExecutor(retry.Config{Base: time.Millisecond, Max: time.Millisecond, Attempts: 1}), 100)

	var buf bytes.Buffer
	require.NoError(t, printStatus(ctx, &buf, store))
	assert.Equal(t, "no blocks stored\n", buf.String())

	indexer := chain.NewIndexer(store, "status")
	h := chain.DefaultInitialHeight
	require.NoError(t, indexer.Index(ctx, testutil.NewMessage(h)))
	require.NoError(t, indexer.Index(ctx, testutil.NewMessage(h+1)))

	buf.Reset()
	require.NoError(t, printStatus(ctx, &buf, store))
	out := buf.String()
	assert.Contains(t, out, "last block: 83030087")
	assert.Contains(t, out, "blocks")
	assert.Contains(t, out, "action_receipt_actions")
}

func TestSetupLoggingNamedLevels(t *testing.T) {
	require.NoError(t, setupLogging(LakeflowLogOpts{LogLevel: "info", LogLevelNamed: "lakeflow/chain:debug"}))
	assert.Error(t, setupLogging(LakeflowLogOpts{LogLevel: "info", LogLevelNamed: "lakeflow/chain"}))
	assert.Error(t, setupLogging(LakeflowLogOpts{LogLevel: "loud"}))
}
