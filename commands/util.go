package commands

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/config"
	"github.com/near/lake-flows-into-sql/retry"
	"github.com/near/lake-flows-into-sql/storage"
)

// ConfigFlags are accepted by every command and override the matching fields of the config file.
var ConfigFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Load configuration from `FILE`.",
		EnvVars: []string{"LAKEFLOW_CONFIG"},
		Value:   config.DefaultPath,
	},
	&cli.StringFlag{
		Name:    "db",
		Usage:   "Postgres connection `URL`. Takes precedence over the environment variable named in the config.",
		EnvVars: []string{"LAKEFLOW_DB"},
	},
	&cli.StringFlag{
		Name:    "db-schema",
		Usage:   "Postgres `SCHEMA` holding the tables.",
		EnvVars: []string{"LAKEFLOW_DB_SCHEMA"},
	},
	&cli.IntFlag{
		Name:    "db-pool-size",
		Usage:   "Maximum number of open connections.",
		EnvVars: []string{"LAKEFLOW_DB_POOL_SIZE"},
	},
}

func loadConfig(cctx *cli.Context) (*config.Conf, error) {
	cfg, err := config.FromFile(cctx.String("config"))
	if err != nil {
		return nil, xerrors.Errorf("load config %q: %w", cctx.String("config"), err)
	}
	if cctx.IsSet("db") {
		cfg.Storage.URLEnv = ""
		cfg.Storage.URL = cctx.String("db")
	}
	if cctx.IsSet("db-schema") {
		cfg.Storage.SchemaName = cctx.String("db-schema")
	}
	if cctx.IsSet("db-pool-size") {
		cfg.Storage.PoolSize = cctx.Int("db-pool-size")
	}
	return cfg, nil
}

func newDatabase(ctx context.Context, cfg config.StorageConf) (*storage.Database, error) {
	db, err := storage.NewDatabase(ctx, cfg.DatabaseURL(), cfg.PoolSize, cfg.ApplicationName, cfg.SchemaName)
	if err != nil {
		return nil, xerrors.Errorf("new database: %w", err)
	}
	return db, nil
}

func retryConfig(cfg config.RetryConf) retry.Config {
	return retry.Config{
		Base:     time.Duration(cfg.Base),
		Max:      time.Duration(cfg.Max),
		Attempts: cfg.Attempts,
	}
}
