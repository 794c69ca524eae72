package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/lockerhub/server/internal/db"
	"github.com/lockerhub/server/internal/model"
)

const transactionColumns = `id, invoice_no, item_id, locker_id, rate_per_hour, status,
	started_at, ended_at, total_amount`

type transactionRepo struct {
	q db.Querier
}

// Create opens a billing record
func (r *transactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO transactions (id, invoice_no, item_id, locker_id, rate_per_hour, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.InvoiceNo, t.ItemID, t.LockerID, t.RatePerHour, t.Status, t.StartedAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", mapError(err))
	}
	return nil
}

// GetOpenForUpdate returns the item's transaction that has not been closed yet
func (r *transactionRepo) GetOpenForUpdate(ctx context.Context, itemID uuid.UUID) (model.Transaction, error) {
	var t model.Transaction
	err := r.q.Get(ctx, &t, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE item_id = $1 AND ended_at IS NULL
		FOR UPDATE
	`, itemID)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("open transaction for item %s: %w", itemID, mapError(err))
	}
	return t, nil
}

// Close writes the final amount. Only an open transaction can be closed.
func (r *transactionRepo) Close(ctx context.Context, t *model.Transaction) error {
	res, err := r.q.Exec(ctx, `
		UPDATE transactions
		SET status = $2, ended_at = $3, total_amount = $4
		WHERE id = $1 AND ended_at IS NULL
	`, t.ID, t.Status, t.EndedAt, t.TotalAmount)
	if err != nil {
		return fmt.Errorf("close transaction: %w", mapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("close transaction %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

// ListByItems returns the transactions of the given items keyed by item ID
func (r *transactionRepo) ListByItems(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]model.Transaction, error) {
	out := make(map[uuid.UUID]model.Transaction, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = id.String()
	}

	var txns []model.Transaction
	err := r.q.Select(ctx, &txns, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE item_id = ANY($1::uuid[])
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", mapError(err))
	}
	for _, t := range txns {
		out[t.ItemID] = t
	}
	return out, nil
}
