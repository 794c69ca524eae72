package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lockerhub/server/internal/model"
)

// MemoryStore is a process-local Store backing the service and HTTP tests.
// Transactions are fully serialized: WithinTx works on a copy of the state and
// swaps it in only when the callback succeeds.
type MemoryStore struct {
	sem   chan struct{}
	state memState
}

type memState struct {
	lockers      map[uuid.UUID]model.Locker
	items        map[uuid.UUID]model.Item
	transactions map[uuid.UUID]model.Transaction
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sem: make(chan struct{}, 1),
		state: memState{
			lockers:      map[uuid.UUID]model.Locker{},
			items:        map[uuid.UUID]model.Item{},
			transactions: map[uuid.UUID]model.Transaction{},
		},
	}
}

func (s *MemoryStore) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
		return ctx.Err()
	}
}

func (s *MemoryStore) release() { <-s.sem }

func (st memState) clone() memState {
	c := memState{
		lockers:      make(map[uuid.UUID]model.Locker, len(st.lockers)),
		items:        make(map[uuid.UUID]model.Item, len(st.items)),
		transactions: make(map[uuid.UUID]model.Transaction, len(st.transactions)),
	}
	for k, v := range st.lockers {
		c.lockers[k] = v
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	for k, v := range st.transactions {
		c.transactions[k] = v
	}
	return c
}

// WithinTx runs fn against a private copy of the state and commits it atomically
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	work := s.state.clone()
	if err := fn(ctx, &memTx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w: %v", ErrTimeout, err)
	}
	s.state = work
	return nil
}

func (s *MemoryStore) CreateLocker(ctx context.Context, locker *model.Locker) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	if _, ok := s.state.lockers[locker.ID]; ok {
		return fmt.Errorf("create locker %s: %w", locker.ID, ErrConflict)
	}
	s.state.lockers[locker.ID] = *locker
	return nil
}

func (s *MemoryStore) GetLocker(ctx context.Context, id uuid.UUID) (model.Locker, error) {
	if err := s.acquire(ctx); err != nil {
		return model.Locker{}, err
	}
	defer s.release()

	l, ok := s.state.lockers[id]
	if !ok {
		return model.Locker{}, fmt.Errorf("get locker %s: %w", id, ErrNotFound)
	}
	return l, nil
}

func (s *MemoryStore) ListLockers(ctx context.Context, status *model.LockerStatus) ([]model.Locker, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	out := make([]model.Locker, 0, len(s.state.lockers))
	for _, l := range s.state.lockers {
		if status != nil && l.Status != *status {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *MemoryStore) ItemHistory(ctx context.Context, senderEmail string) ([]model.ItemRecord, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	var out []model.ItemRecord
	for _, it := range s.state.items {
		if it.SenderEmail != senderEmail {
			continue
		}
		rec := model.ItemRecord{Item: it}
		for _, t := range s.state.transactions {
			if t.ItemID == it.ID {
				t := t
				rec.Transaction = &t
				break
			}
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Item.CreatedAt.After(out[j].Item.CreatedAt)
	})
	return out, nil
}

// Item returns a stored item regardless of status
func (s *MemoryStore) Item(id uuid.UUID) (model.Item, bool) {
	s.sem <- struct{}{}
	defer s.release()
	it, ok := s.state.items[id]
	return it, ok
}

// TransactionForItem returns the transaction opened for an item
func (s *MemoryStore) TransactionForItem(itemID uuid.UUID) (model.Transaction, bool) {
	s.sem <- struct{}{}
	defer s.release()
	for _, t := range s.state.transactions {
		if t.ItemID == itemID {
			return t, true
		}
	}
	return model.Transaction{}, false
}

type memTx struct {
	st memState
}

func (t *memTx) LockLocker(ctx context.Context, id uuid.UUID) (model.Locker, error) {
	l, ok := t.st.lockers[id]
	if !ok {
		return model.Locker{}, fmt.Errorf("lock locker %s: %w", id, ErrNotFound)
	}
	return l, nil
}

func (t *memTx) SetLockerStatus(ctx context.Context, id uuid.UUID, status model.LockerStatus, at time.Time) error {
	l, ok := t.st.lockers[id]
	if !ok {
		return fmt.Errorf("update locker status %s: %w", id, ErrNotFound)
	}
	l.Status = status
	l.UpdatedAt = at
	t.st.lockers[id] = l
	return nil
}

func (t *memTx) ActiveItem(ctx context.Context, lockerID uuid.UUID) (model.Item, error) {
	for _, it := range t.st.items {
		if it.LockerID == lockerID && it.IsActive() {
			return it, nil
		}
	}
	return model.Item{}, fmt.Errorf("active item for locker %s: %w", lockerID, ErrNotFound)
}

func (t *memTx) CreateItem(ctx context.Context, item *model.Item) error {
	if _, ok := t.st.lockers[item.LockerID]; !ok {
		return fmt.Errorf("create item: locker %s: %w", item.LockerID, ErrNotFound)
	}
	if _, ok := t.st.items[item.ID]; ok {
		return fmt.Errorf("create item %s: %w", item.ID, ErrConflict)
	}
	if item.Status == model.ItemStored {
		if _, err := t.ActiveItem(ctx, item.LockerID); err == nil {
			return fmt.Errorf("create item: locker %s already holds an item: %w", item.LockerID, ErrConflict)
		}
	}
	t.st.items[item.ID] = *item
	return nil
}

func (t *memTx) UpdateItem(ctx context.Context, item *model.Item) error {
	cur, ok := t.st.items[item.ID]
	if !ok {
		return fmt.Errorf("update item %s: %w", item.ID, ErrNotFound)
	}
	cur.Status = item.Status
	cur.OTPHash = item.OTPHash
	cur.OTPExpiresAt = item.OTPExpiresAt
	cur.OTPAttempts = item.OTPAttempts
	cur.CollectedAt = item.CollectedAt
	t.st.items[item.ID] = cur
	return nil
}

func (t *memTx) CreateTransaction(ctx context.Context, txn *model.Transaction) error {
	if _, ok := t.st.items[txn.ItemID]; !ok {
		return fmt.Errorf("create transaction: item %s: %w", txn.ItemID, ErrNotFound)
	}
	for _, existing := range t.st.transactions {
		if existing.ItemID == txn.ItemID || existing.InvoiceNo == txn.InvoiceNo {
			return fmt.Errorf("create transaction for item %s: %w", txn.ItemID, ErrConflict)
		}
	}
	t.st.transactions[txn.ID] = *txn
	return nil
}

func (t *memTx) OpenTransaction(ctx context.Context, itemID uuid.UUID) (model.Transaction, error) {
	for _, txn := range t.st.transactions {
		if txn.ItemID == itemID && txn.IsOpen() {
			return txn, nil
		}
	}
	return model.Transaction{}, fmt.Errorf("open transaction for item %s: %w", itemID, ErrNotFound)
}

func (t *memTx) CloseTransaction(ctx context.Context, txn *model.Transaction) error {
	cur, ok := t.st.transactions[txn.ID]
	if !ok || !cur.IsOpen() {
		return fmt.Errorf("close transaction %s: %w", txn.ID, ErrNotFound)
	}
	cur.Status = txn.Status
	cur.EndedAt = txn.EndedAt
	cur.TotalAmount = txn.TotalAmount
	t.st.transactions[txn.ID] = cur
	return nil
}
