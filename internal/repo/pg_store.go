package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lockerhub/server/internal/db"
	"github.com/lockerhub/server/internal/model"
)

type pgStore struct {
	db           db.DB
	lockers      *lockerRepo
	items        *itemRepo
	transactions *transactionRepo
}

// NewPostgresStore creates a Store backed by PostgreSQL
func NewPostgresStore(database db.DB) Store {
	return &pgStore{
		db:           database,
		lockers:      &lockerRepo{q: database},
		items:        &itemRepo{q: database},
		transactions: &transactionRepo{q: database},
	}
}

// WithinTx runs fn in a READ COMMITTED transaction. Row locks taken with
// FOR UPDATE serialize intents on the same locker.
func (s *pgStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", mapError(err))
	}
	defer tx.Rollback()

	if err := fn(ctx, newPgTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}

func (s *pgStore) CreateLocker(ctx context.Context, locker *model.Locker) error {
	return s.lockers.Create(ctx, locker)
}

func (s *pgStore) GetLocker(ctx context.Context, id uuid.UUID) (model.Locker, error) {
	return s.lockers.GetByID(ctx, id)
}

func (s *pgStore) ListLockers(ctx context.Context, status *model.LockerStatus) ([]model.Locker, error) {
	return s.lockers.List(ctx, status)
}

func (s *pgStore) ItemHistory(ctx context.Context, senderEmail string) ([]model.ItemRecord, error) {
	items, err := s.items.ListBySender(ctx, senderEmail)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	txns, err := s.transactions.ListByItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	records := make([]model.ItemRecord, len(items))
	for i, it := range items {
		records[i] = model.ItemRecord{Item: it}
		if t, ok := txns[it.ID]; ok {
			t := t
			records[i].Transaction = &t
		}
	}
	return records, nil
}

type pgTx struct {
	lockers      *lockerRepo
	items        *itemRepo
	transactions *transactionRepo
}

func newPgTx(tx db.Tx) *pgTx {
	return &pgTx{
		lockers:      &lockerRepo{q: tx},
		items:        &itemRepo{q: tx},
		transactions: &transactionRepo{q: tx},
	}
}

func (t *pgTx) LockLocker(ctx context.Context, id uuid.UUID) (model.Locker, error) {
	return t.lockers.GetForUpdate(ctx, id)
}

func (t *pgTx) SetLockerStatus(ctx context.Context, id uuid.UUID, status model.LockerStatus, at time.Time) error {
	return t.lockers.UpdateStatus(ctx, id, status, at)
}

func (t *pgTx) ActiveItem(ctx context.Context, lockerID uuid.UUID) (model.Item, error) {
	return t.items.GetActiveForUpdate(ctx, lockerID)
}

func (t *pgTx) CreateItem(ctx context.Context, item *model.Item) error {
	return t.items.Create(ctx, item)
}

func (t *pgTx) UpdateItem(ctx context.Context, item *model.Item) error {
	return t.items.Update(ctx, item)
}

func (t *pgTx) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	return t.transactions.Create(ctx, txn)
}

func (t *pgTx) OpenTransaction(ctx context.Context, itemID uuid.UUID) (model.Transaction, error) {
	return t.transactions.GetOpenForUpdate(ctx, itemID)
}

func (t *pgTx) CloseTransaction(ctx context.Context, txn *model.Transaction) error {
	return t.transactions.Close(ctx, txn)
}
