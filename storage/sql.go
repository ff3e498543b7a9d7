package storage

import (
	"context"
	"errors"

	"github.com/go-pg/pg/v10"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"

	"github.com/near/lake-flows-into-sql/model"
)

var (
	ErrSchemaTooOld = errors.New("database schema is too old and requires migration")
	ErrSchemaTooNew = errors.New("database schema is too new for this version of lakeflow")
	ErrNotConnected = errors.New("database is not connected")
	ErrNameTooLong  = errors.New("name exceeds maximum length for postgres application names")
)

// MaxPostgresNameLength is the maximum length of a postgres application name.
const MaxPostgresNameLength = 64

var _ Backend = (*Database)(nil)

// execer is the subset of *pg.DB used to run statements.
type execer interface {
	ExecContext(c context.Context, query interface{}, params ...interface{}) (pg.Result, error)
	QueryOneContext(c context.Context, model, query interface{}, params ...interface{}) (pg.Result, error)
}

// NewDatabase parses the connection url. No connection is made until Connect is called.
func NewDatabase(ctx context.Context, url string, poolSize int, name string, schemaName string) (*Database, error) {
	if len(name) > MaxPostgresNameLength {
		return nil, ErrNameTooLong
	}
	if schemaName == "" {
		schemaName = "public"
	}

	opt, err := pg.ParseURL(url)
	if err != nil {
		return nil, xerrors.Errorf("parse database URL: %w", err)
	}
	if poolSize > 0 {
		opt.PoolSize = poolSize
	}
	if opt.ApplicationName == "" {
		opt.ApplicationName = name
	}
	if schemaName != "public" {
		opt.OnConnect = func(ctx context.Context, conn *pg.Conn) error {
			_, err := conn.ExecContext(ctx, "SET search_path TO ?", pg.Ident(schemaName))
			return err
		}
	}

	return &Database{
		opt:        opt,
		schemaName: schemaName,
	}, nil
}

// Database is a Backend over a postgres connection pool. Every statement takes one connection from the pool
// and no statement runs inside a transaction.
type Database struct {
	db         *pg.DB
	exec       execer
	opt        *pg.Options
	schemaName string
}

// Connect opens the pool and checks the installed schema is the one this version writes.
func (d *Database) Connect(ctx context.Context) error {
	if d.db != nil {
		return nil
	}

	db, err := connect(ctx, d.opt)
	if err != nil {
		return xerrors.Errorf("connect: %w", err)
	}

	dbVersion, err := validateDatabaseSchemaVersion(ctx, db, d.schemaName)
	if err != nil {
		_ = db.Close() // nolint: errcheck
		return err
	}
	log.Infow("connected to database", "schema", d.schemaName, "version", dbVersion.String(), "pool_size", d.opt.PoolSize)

	d.db = db
	d.exec = db
	return nil
}

func connect(ctx context.Context, opt *pg.Options) (*pg.DB, error) {
	db := pg.Connect(opt)
	// Check if connection credentials are valid and PostgreSQL is up and running.
	if err := db.Ping(ctx); err != nil {
		_ = db.Close() // nolint: errcheck
		return nil, xerrors.Errorf("ping database: %w", err)
	}
	return db, nil
}

func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	d.exec = nil
	return err
}

// AsORM returns the underlying connection pool.
func (d *Database) AsORM() *pg.DB {
	return d.db
}

func (d *Database) SchemaName() string {
	return d.schemaName
}

func (d *Database) Insert(ctx context.Context, t model.Table, rows []model.Row) error {
	if d.exec == nil {
		return ErrNotConnected
	}
	values, err := Placeholders(len(rows), t.FieldCount())
	if err != nil {
		return xerrors.Errorf("insert %s: %w", t.Name, err)
	}

	params := make([]interface{}, 0, len(rows)*t.FieldCount())
	for _, r := range rows {
		v := r.Values()
		if len(v) != t.FieldCount() {
			return xerrors.Errorf("%s row has %d values, want %d", t.Name, len(v), t.FieldCount())
		}
		params = append(params, v...)
	}

	if _, err := d.exec.ExecContext(ctx, t.InsertQuery(values), params...); err != nil {
		return xerrors.Errorf("insert %d rows into %s: %w", len(rows), t.Name, err)
	}
	return nil
}

func (d *Database) DeleteFrom(ctx context.Context, t model.Table, ts decimal.Decimal) (int, error) {
	if d.exec == nil {
		return 0, ErrNotConnected
	}
	res, err := d.exec.ExecContext(ctx, t.DeleteFromQuery(), ts)
	if err != nil {
		return 0, xerrors.Errorf("delete from %s: %w", t.Name, err)
	}
	if res == nil {
		return 0, nil
	}
	return res.RowsAffected(), nil
}

func (d *Database) Max(ctx context.Context, t model.Table, column string) (decimal.NullDecimal, error) {
	if d.exec == nil {
		return decimal.NullDecimal{}, ErrNotConnected
	}
	var v decimal.NullDecimal
	query := "SELECT max(" + pq.QuoteIdentifier(column) + ") FROM " + pq.QuoteIdentifier(t.Name)
	if _, err := d.exec.QueryOneContext(ctx, pg.Scan(&v), query); err != nil {
		return decimal.NullDecimal{}, xerrors.Errorf("select max %s from %s: %w", column, t.Name, err)
	}
	return v, nil
}

func (d *Database) CountAt(ctx context.Context, t model.Table, ts decimal.Decimal) (int64, error) {
	if d.exec == nil {
		return 0, ErrNotConnected
	}
	var n int64
	if _, err := d.exec.QueryOneContext(ctx, pg.Scan(&n), t.CountAtQuery(), ts); err != nil {
		return 0, xerrors.Errorf("count %s: %w", t.Name, err)
	}
	return n, nil
}

// LockIndexer takes the indexer lock on a dedicated connection so that no other indexer writes to the same
// database. The returned function releases the lock and the connection.
func (d *Database) LockIndexer(ctx context.Context) (func() error, error) {
	if d.db == nil {
		return nil, ErrNotConnected
	}
	conn := d.db.Conn()
	if err := IndexerLock.LockExclusive(ctx, conn); err != nil {
		_ = conn.Close() // nolint: errcheck
		return nil, xerrors.Errorf("acquiring indexer lock: %w", err)
	}
	return func() error {
		err := IndexerLock.UnlockExclusive(context.Background(), conn)
		if cerr := conn.Close(); err == nil {
			err = cerr
		}
		return err
	}, nil
}
