package storage

import (
	"context"
	"strconv"

	"github.com/go-pg/migrations/v8"
	"github.com/go-pg/pg/v10"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/model"
	"github.com/near/lake-flows-into-sql/schemas"
	v1 "github.com/near/lake-flows-into-sql/schemas/v1"
)

// GetSchemaVersions returns the schema version in the database and the latest schema version defined by the available
// migrations.
func (d *Database) GetSchemaVersions(ctx context.Context) (model.Version, model.Version, error) {
	latest := LatestSchemaVersion()

	// If we're already connected then use that connection
	if d.db != nil {
		dbVersion, _, err := getDatabaseSchemaVersion(ctx, d.db, d.schemaName)
		return dbVersion, latest, err
	}

	// Temporarily connect
	db, err := connect(ctx, d.opt)
	if err != nil {
		return model.Version{}, model.Version{}, xerrors.Errorf("connect: %w", err)
	}
	defer db.Close() // nolint: errcheck
	dbVersion, _, err := getDatabaseSchemaVersion(ctx, db, d.schemaName)
	return dbVersion, latest, err
}

// getDatabaseSchemaVersion returns the schema version in use by the database and whether the schema versioning
// tables have been initialized. If no schema version tables can be found then the database is assumed to be
// uninitialized and a zero version and false value will be returned.
func getDatabaseSchemaVersion(ctx context.Context, db *pg.DB, schemaName string) (model.Version, bool, error) {
	vvExists, err := tableExists(ctx, db, schemaName, "lakeflow_version")
	if err != nil {
		return model.Version{}, false, xerrors.Errorf("checking if lakeflow_version exists: %w", err)
	}
	migExists, err := tableExists(ctx, db, schemaName, "gopg_migrations")
	if err != nil {
		return model.Version{}, false, xerrors.Errorf("checking if gopg_migrations exists: %w", err)
	}
	if !migExists || !vvExists {
		// Uninitialized database
		return model.Version{}, false, nil
	}

	var major int
	_, err = db.QueryOneContext(ctx, pg.Scan(&major), `SELECT major FROM ? LIMIT 1`, pg.SafeQuery(schemaName+".lakeflow_version"))
	if err != nil && err != pg.ErrNoRows {
		return model.Version{}, false, err
	}
	if major == 0 {
		return model.Version{}, false, nil
	}

	coll, err := collectionForVersion(model.Version{Major: major}, schemas.Config{SchemaName: schemaName})
	if err != nil {
		return model.Version{}, false, err
	}
	migration, err := coll.Version(db)
	if err != nil {
		return model.Version{}, false, xerrors.Errorf("unable to determine schema version: %w", err)
	}

	return model.Version{Major: major, Patch: int(migration)}, true, nil
}

// initDatabaseSchema creates the version tables used to track the schema version installed in the database.
func initDatabaseSchema(ctx context.Context, db *pg.DB, schemaName string, major int) error {
	if schemaName != schemas.DefaultSchemaName {
		if _, err := db.ExecContext(ctx, `CREATE SCHEMA IF NOT EXISTS ?`, pg.Ident(schemaName)); err != nil {
			return xerrors.Errorf("ensure schema exists: %w", err)
		}
	}

	vvTableName := schemaName + ".lakeflow_version"
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ? (
			"major" int NOT NULL,
			PRIMARY KEY ("major")
		)
	`, pg.SafeQuery(vvTableName)); err != nil {
		return xerrors.Errorf("ensure lakeflow_version exists: %w", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO ? (major) VALUES (?) ON CONFLICT DO NOTHING`, pg.SafeQuery(vvTableName), major); err != nil {
		return xerrors.Errorf("record schema major version: %w", err)
	}

	migTableName := schemaName + ".gopg_migrations"
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ? (
			id serial,
			version bigint,
			created_at timestamptz
		)
	`, pg.SafeQuery(migTableName)); err != nil {
		return xerrors.Errorf("ensure gopg_migrations exists: %w", err)
	}
	return nil
}

func validateDatabaseSchemaVersion(ctx context.Context, db *pg.DB, schemaName string) (model.Version, error) {
	dbVersion, initialized, err := getDatabaseSchemaVersion(ctx, db, schemaName)
	if err != nil {
		return model.Version{}, xerrors.Errorf("get schema version: %w", err)
	}
	if !initialized {
		return model.Version{}, xerrors.Errorf("schema not installed in database, run the migrate command")
	}

	latestVersion := LatestSchemaVersion()
	switch {
	case latestVersion.Before(dbVersion):
		return model.Version{}, ErrSchemaTooNew
	case dbVersion.Before(latestVersion):
		return model.Version{}, ErrSchemaTooOld
	default:
		return dbVersion, nil
	}
}

// LatestSchemaVersion returns the most recent version of the model schema.
func LatestSchemaVersion() model.Version {
	return v1.Version()
}

// MigrateSchema migrates the database schema to the latest version based on the list of migrations available
func (d *Database) MigrateSchema(ctx context.Context) error {
	return d.MigrateSchemaTo(ctx, LatestSchemaVersion())
}

// MigrateSchemaTo migrates the database schema to a specific version. Only upgrades are supported.
func (d *Database) MigrateSchemaTo(ctx context.Context, target model.Version) error {
	db, err := connect(ctx, d.opt)
	if err != nil {
		return xerrors.Errorf("connect: %w", err)
	}
	defer db.Close() // nolint: errcheck

	dbVersion, initialized, err := getDatabaseSchemaVersion(ctx, db, d.schemaName)
	if err != nil {
		return xerrors.Errorf("get schema versions: %w", err)
	}
	log.Infof("current database schema is version %s", dbVersion)

	if initialized && target.Major != dbVersion.Major {
		return xerrors.Errorf("cannot migrate to a different major schema version. database version=%s, target version=%s", dbVersion, target)
	}
	if latest := LatestSchemaVersion(); latest.Before(target) {
		return xerrors.Errorf("no migrations found for version %s", target)
	}
	if initialized && target.Before(dbVersion) {
		return xerrors.Errorf("cannot downgrade database schema from version %s to %s", dbVersion, target)
	}
	if initialized && dbVersion == target {
		log.Infof("database schema is already at version %s", dbVersion)
		return nil
	}

	cfg := schemas.Config{SchemaName: d.schemaName}
	coll, err := collectionForVersion(target, cfg)
	if err != nil {
		return xerrors.Errorf("no schema definition corresponds to version %s: %w", target, err)
	}
	if err := checkMigrationSequence(coll, dbVersion.Patch, target.Patch); err != nil {
		return xerrors.Errorf("check migration sequence: %w", err)
	}

	// Acquire an exclusive lock on the schema so we know no other instances are running
	conn := db.Conn()
	defer conn.Close() // nolint: errcheck
	if err := SchemaLock.LockExclusive(ctx, conn); err != nil {
		return xerrors.Errorf("acquiring schema lock: %w", err)
	}
	// Remember to release the lock
	defer func() {
		if err := SchemaLock.UnlockExclusive(context.Background(), conn); err != nil {
			log.Errorf("failed to release exclusive lock: %v", err)
		}
	}()

	if err := initDatabaseSchema(ctx, db, d.schemaName, target.Major); err != nil {
		return xerrors.Errorf("initializing schema version tables: %w", err)
	}

	if !initialized {
		log.Infof("creating base schema for major version %d", target.Major)
		base, err := v1.GetBase(cfg)
		if err != nil {
			return xerrors.Errorf("no base schema defined for version %s: %w", target, err)
		}
		if _, err := db.ExecContext(ctx, base); err != nil {
			return xerrors.Errorf("creating base schema: %w", err)
		}
	}

	log.Infof("running schema migration from version %s to version %s", dbVersion, target)
	_, newDBPatch, err := coll.Run(db, "up", strconv.Itoa(target.Patch))
	if err != nil {
		return xerrors.Errorf("run migration: %w", err)
	}
	log.Infof("current database schema is now version %s", model.Version{Major: target.Major, Patch: int(newDBPatch)})
	return nil
}

func checkMigrationSequence(coll *migrations.Collection, from, to int) error {
	versions := map[int64]bool{}
	for _, m := range coll.Migrations() {
		if versions[m.Version] {
			return xerrors.Errorf("duplication migration for schema version %d", m.Version)
		}
		versions[m.Version] = true
	}

	if from > to {
		to, from = from, to
	}
	for i := from; i <= to; i++ {
		// Migration 0 is always a no-op since it's the base schema
		if i == 0 {
			continue
		}
		if !versions[int64(i)] {
			return xerrors.Errorf("missing migration for schema version %d", i)
		}
	}
	return nil
}

func collectionForVersion(version model.Version, cfg schemas.Config) (*migrations.Collection, error) {
	switch version.Major {
	case v1.MajorVersion:
		return v1.GetPatches(cfg)
	default:
		return nil, xerrors.Errorf("unsupported major version: %d", version.Major)
	}
}

func tableExists(ctx context.Context, db *pg.DB, schemaName string, tableName string) (bool, error) {
	var exists bool
	_, err := db.QueryOneContext(ctx, pg.Scan(&exists), `SELECT EXISTS (SELECT 1 FROM pg_tables WHERE schemaname = ? AND tablename = ?)`, schemaName, tableName)
	if err != nil {
		return false, err
	}
	return exists, nil
}
