package commands

import (
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/model"
)

var MigrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "Reports the current database schema version and latest available for migration. Use --to or --latest to perform a schema migration.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "to",
			Usage: "Migrate the schema to the `VERSION`, formatted as major.patch.",
		},
		&cli.BoolFlag{
			Name:  "latest",
			Value: false,
			Usage: "Migrate the schema to the latest version.",
		},
	},
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

		if cctx.IsSet("to") {
			target, err := model.ParseVersion(cctx.String("to"))
			if err != nil {
				return xerrors.Errorf("invalid schema version: %w", err)
			}
			if err := db.MigrateSchemaTo(ctx, target); err != nil {
				return xerrors.Errorf("migrate schema to: %w", err)
			}
		} else if cctx.Bool("latest") {
			if err := db.MigrateSchema(ctx); err != nil {
				return xerrors.Errorf("migrate schema: %w", err)
			}
		}

		dbVersion, latestVersion, err := db.GetSchemaVersions(ctx)
		if err != nil {
			return xerrors.Errorf("get schema versions: %w", err)
		}

		if dbVersion.IsZero() {
			log.Warnf("schema is not installed, latest is %s; use `lakeflow migrate --latest` to install it", latestVersion)
			return nil
		}
		log.Infof("current database schema is version %s, latest is %s", dbVersion, latestVersion)
		if dbVersion.Before(latestVersion) {
			log.Warnf("database schema is out of date; use `lakeflow migrate --latest` to upgrade it")
		}
		return nil
	},
}
