package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/sqlscan"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when the requested row does not exist
	ErrNotFound = errors.New("object not found")
	// ErrConflict is returned when a write would break a uniqueness rule
	ErrConflict = errors.New("conflicting write")
	// ErrTimeout is returned when the store gave up waiting for a lock or a query
	ErrTimeout = errors.New("store operation timed out")
)

const (
	pqUniqueViolation  = "23505"
	pqQueryCanceled    = "57014"
	pqLockNotAvailable = "55P03"
	pqDeadlockDetected = "40P01"
)

// mapError translates driver errors into the store's sentinel errors.
// Errors it does not recognise, context.Canceled included, are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if sqlscan.NotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case pqQueryCanceled, pqLockNotAvailable, pqDeadlockDetected:
			return fmt.Errorf("%w: %s", ErrTimeout, pqErr.Message)
		}
	}
	return err
}
