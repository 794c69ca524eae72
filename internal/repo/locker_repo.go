package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lockerhub/server/internal/db"
	"github.com/lockerhub/server/internal/model"
)

const lockerColumns = `id, locker_point_id, name, status, created_at, updated_at`

type lockerRepo struct {
	q db.Querier
}

// Create inserts a new locker row
func (r *lockerRepo) Create(ctx context.Context, l *model.Locker) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO lockers (id, locker_point_id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, l.ID, l.LockerPointID, l.Name, l.Status, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create locker: %w", mapError(err))
	}
	return nil
}

// GetByID retrieves a locker by ID
func (r *lockerRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Locker, error) {
	var l model.Locker
	err := r.q.Get(ctx, &l, `SELECT `+lockerColumns+` FROM lockers WHERE id = $1`, id)
	if err != nil {
		return model.Locker{}, fmt.Errorf("get locker %s: %w", id, mapError(err))
	}
	return l, nil
}

// GetForUpdate retrieves a locker and locks its row for the rest of the transaction
func (r *lockerRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (model.Locker, error) {
	var l model.Locker
	err := r.q.Get(ctx, &l, `SELECT `+lockerColumns+` FROM lockers WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return model.Locker{}, fmt.Errorf("lock locker %s: %w", id, mapError(err))
	}
	return l, nil
}

// UpdateStatus sets the locker status
func (r *lockerRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.LockerStatus, at time.Time) error {
	res, err := r.q.Exec(ctx, `
		UPDATE lockers SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, at)
	if err != nil {
		return fmt.Errorf("update locker status: %w", mapError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update locker status %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns lockers ordered by name, optionally filtered by status
func (r *lockerRepo) List(ctx context.Context, status *model.LockerStatus) ([]model.Locker, error) {
	var (
		lockers []model.Locker
		err     error
	)
	if status != nil {
		err = r.q.Select(ctx, &lockers, `SELECT `+lockerColumns+` FROM lockers WHERE status = $1 ORDER BY name, id`, *status)
	} else {
		err = r.q.Select(ctx, &lockers, `SELECT `+lockerColumns+` FROM lockers ORDER BY name, id`)
	}
	if err != nil {
		return nil, fmt.Errorf("list lockers: %w", mapError(err))
	}
	return lockers, nil
}
