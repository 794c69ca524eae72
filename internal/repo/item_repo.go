package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lockerhub/server/internal/db"
	"github.com/lockerhub/server/internal/model"
)

const itemColumns = `id, locker_id, name, description, sender_email, sender_phone,
	receiver_phone, receiver_email, status, otp_hash, otp_expires_at, otp_attempts,
	created_at, collected_at`

type itemRepo struct {
	q db.Querier
}

// Create inserts a deposited item. A second STORED item for the same locker
// violates items_one_active_per_locker and comes back as ErrConflict.
func (r *itemRepo) Create(ctx context.Context, it *model.Item) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO items (id, locker_id, name, description, sender_email, sender_phone,
			receiver_phone, receiver_email, status, otp_hash, otp_expires_at, otp_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, it.ID, it.LockerID, it.Name, it.Description, it.SenderEmail, it.SenderPhone,
		it.ReceiverPhone, it.ReceiverEmail, it.Status, it.OTPHash, it.OTPExpiresAt, it.OTPAttempts, it.CreatedAt)
	if err != nil {
		return fmt.Errorf("create item: %w", mapError(err))
	}
	return nil
}

// GetActiveForUpdate returns the STORED item in a locker and locks it
func (r *itemRepo) GetActiveForUpdate(ctx context.Context, lockerID uuid.UUID) (model.Item, error) {
	var it model.Item
	err := r.q.Get(ctx, &it, `
		SELECT `+itemColumns+`
		FROM items
		WHERE locker_id = $1 AND status = $2
		FOR UPDATE
	`, lockerID, model.ItemStored)
	if err != nil {
		return model.Item{}, fmt.Errorf("active item for locker %s: %w", lockerID, mapError(err))
	}
	return it, nil
}

// Update persists the mutable columns of an item
func (r *itemRepo) Update(ctx context.Context, it *model.Item) error {
	res, err := r.q.Exec(ctx, `
		UPDATE items
		SET status = $2, otp_hash = $3, otp_expires_at = $4, otp_attempts = $5, collected_at = $6
		WHERE id = $1
	`, it.ID, it.Status, it.OTPHash, it.OTPExpiresAt, it.OTPAttempts, it.CollectedAt)
	if err != nil {
		return fmt.Errorf("update item: %w", mapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update item %s: %w", it.ID, ErrNotFound)
	}
	return nil
}

// ListBySender returns a sender's items, newest first
func (r *itemRepo) ListBySender(ctx context.Context, senderEmail string) ([]model.Item, error) {
	var items []model.Item
	err := r.q.Select(ctx, &items, `
		SELECT `+itemColumns+`
		FROM items
		WHERE sender_email = $1
		ORDER BY created_at DESC, id
	`, senderEmail)
	if err != nil {
		return nil, fmt.Errorf("list items by sender: %w", mapError(err))
	}
	return items, nil
}
