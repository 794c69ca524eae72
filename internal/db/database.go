package db

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/sqlscan"
)

// Querier is the read/write surface shared by the pool and an open transaction
type Querier interface {
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type DB interface {
	Querier
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
}

type Tx interface {
	Querier
	Commit() error
	Rollback() error
}

type Database struct {
	pool *sql.DB
}

func NewDatabase(pool *sql.DB) *Database {
	return &Database{pool: pool}
}

func (d *Database) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlscan.Get(ctx, d.pool, dest, query, args...)
}

func (d *Database) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlscan.Select(ctx, d.pool, dest, query, args...)
}

func (d *Database) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return d.pool.ExecContext(ctx, query, args...)
}

func (d *Database) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := d.pool.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Transaction{tx: tx}, nil
}

type Transaction struct {
	tx *sql.Tx
}

func (t *Transaction) Commit() error {
	return t.tx.Commit()
}

func (t *Transaction) Rollback() error {
	return t.tx.Rollback()
}

func (t *Transaction) Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlscan.Get(ctx, t.tx, dest, query, args...)
}

func (t *Transaction) Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return sqlscan.Select(ctx, t.tx, dest, query, args...)
}

func (t *Transaction) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}
