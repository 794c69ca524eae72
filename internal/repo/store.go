package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lockerhub/server/internal/model"
)

// Store is the persistence boundary of the locker lifecycle.
// Every state-changing intent runs inside WithinTx; the callback's writes
// become visible together or not at all.
type Store interface {
	// WithinTx runs fn in a single transaction. A non-nil error from fn rolls back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	CreateLocker(ctx context.Context, locker *model.Locker) error
	GetLocker(ctx context.Context, id uuid.UUID) (model.Locker, error)
	// ListLockers returns lockers ordered by name; a nil status returns all of them
	ListLockers(ctx context.Context, status *model.LockerStatus) ([]model.Locker, error)
	// ItemHistory returns every item a sender deposited, newest first, with its transaction
	ItemHistory(ctx context.Context, senderEmail string) ([]model.ItemRecord, error)
}

// Tx is the set of row operations available inside WithinTx.
// Lock order is locker, then item, then transaction.
type Tx interface {
	// LockLocker reads the locker and holds its row lock until the transaction ends
	LockLocker(ctx context.Context, id uuid.UUID) (model.Locker, error)
	SetLockerStatus(ctx context.Context, id uuid.UUID, status model.LockerStatus, at time.Time) error

	// ActiveItem returns the STORED item in the locker, locked; ErrNotFound if the locker is empty
	ActiveItem(ctx context.Context, lockerID uuid.UUID) (model.Item, error)
	CreateItem(ctx context.Context, item *model.Item) error
	// UpdateItem persists status, OTP fields and collected_at
	UpdateItem(ctx context.Context, item *model.Item) error

	CreateTransaction(ctx context.Context, t *model.Transaction) error
	// OpenTransaction returns the item's still-accruing transaction, locked
	OpenTransaction(ctx context.Context, itemID uuid.UUID) (model.Transaction, error)
	// CloseTransaction persists status, ended_at and total_amount
	CloseTransaction(ctx context.Context, t *model.Transaction) error
}
