package storage

import (
	"context"

	"github.com/go-pg/pg/v10"
	"golang.org/x/xerrors"
)

var (
	// SchemaLock is held while the schema is being migrated.
	SchemaLock AdvisoryLock = 1

	// IndexerLock is held by a running indexer for as long as it writes to the database.
	IndexerLock AdvisoryLock = 2
)

// querier runs a statement returning a single row. Both *pg.DB and *pg.Conn satisfy it; session locks
// should be taken on a *pg.Conn so that lock and unlock use the same session.
type querier interface {
	QueryOneContext(c context.Context, model, query interface{}, params ...interface{}) (pg.Result, error)
}

// An AdvisoryLock is a lock that is managed by Postgres but is only enforced by the application. Advisory
// locks are automatically released at the end of a session.
type AdvisoryLock int64

// LockExclusive tries to acquire a session scoped exclusive advisory lock.
func (l AdvisoryLock) LockExclusive(ctx context.Context, db querier) error {
	var acquired bool
	_, err := db.QueryOneContext(ctx, pg.Scan(&acquired), `SELECT pg_try_advisory_lock(?);`, int64(l))
	if err != nil {
		return xerrors.Errorf("acquiring exclusive lock: %w", err)
	}
	if !acquired {
		return xerrors.Errorf("failed to acquire exclusive lock %d: held by another session", int64(l))
	}
	return nil
}

// UnlockExclusive releases an exclusive advisory lock.
func (l AdvisoryLock) UnlockExclusive(ctx context.Context, db querier) error {
	var released bool
	_, err := db.QueryOneContext(ctx, pg.Scan(&released), `SELECT pg_advisory_unlock(?);`, int64(l))
	if err != nil {
		return xerrors.Errorf("unlocking exclusive lock: %w", err)
	}
	if !released {
		return xerrors.Errorf("exclusive lock not released (maybe it was not held)")
	}
	return nil
}
