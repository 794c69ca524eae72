package lifecycle

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/billing"
	"github.com/lockerhub/server/internal/metrics"
	"github.com/lockerhub/server/internal/model"
	"github.com/lockerhub/server/internal/repo"
)

type ForceClearInput struct {
	LockerID   uuid.UUID
	Privileged bool
	// Actor identifies the administrator for the audit log
	Actor string
}

type ForceClearResult struct {
	Locker      model.Locker
	Item        model.Item
	Transaction model.Transaction
}

// ForceClear empties an OCCUPIED locker without an OTP. The item becomes
// FORCE_REMOVED with no collection time and its transaction is closed with the
// amount accrued up to now.
func (s *Service) ForceClear(ctx context.Context, in ForceClearInput) (ForceClearResult, error) {
	if !in.Privileged {
		metrics.OperationErrorsTotal.WithLabelValues("force_clear", ErrNotPrivileged.Code).Inc()
		return ForceClearResult{}, ErrNotPrivileged
	}
	if in.LockerID == uuid.Nil {
		return ForceClearResult{}, ErrInvalidInput.withMessage("locker_id is required")
	}

	var res ForceClearResult
	err := s.run(ctx, "force_clear", func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context, tx repo.Tx) error {
			locker, err := tx.LockLocker(ctx, in.LockerID)
			if err != nil {
				return notFound(err, ErrLockerNotFound)
			}
			if locker.Status != model.LockerOccupied {
				return ErrLockerNotOccupied.withMessage("locker %s is %s", locker.ID, locker.Status)
			}
			item, err := tx.ActiveItem(ctx, locker.ID)
			if err != nil {
				return notFound(err, ErrItemNotFound)
			}
			if !item.Status.CanTransitionTo(model.ItemForceRemoved) {
				return ErrItemNotFound.withMessage("item %s is %s", item.ID, item.Status)
			}
			txn, err := tx.OpenTransaction(ctx, item.ID)
			if err != nil {
				return notFound(err, ErrTransactionMissing)
			}

			now := s.now()
			total := billing.Calculate(item.CreatedAt, now, txn.RatePerHour)
			txn.Status = model.TransactionCompleted
			txn.EndedAt = &now
			txn.TotalAmount = &total
			if err := tx.CloseTransaction(ctx, &txn); err != nil {
				return err
			}

			item.Status = model.ItemForceRemoved
			item.CollectedAt = nil
			item.ClearOTP()
			if err := tx.UpdateItem(ctx, &item); err != nil {
				return err
			}

			if err := tx.SetLockerStatus(ctx, locker.ID, model.LockerAvailable, now); err != nil {
				return err
			}
			locker.Status = model.LockerAvailable
			locker.UpdatedAt = now

			res = ForceClearResult{Locker: locker, Item: item, Transaction: txn}
			return nil
		})
	})
	if err != nil {
		return ForceClearResult{}, err
	}

	metrics.ForceClearsTotal.Inc()
	s.log.Warn("locker force-cleared",
		zap.Stringer("locker_id", res.Locker.ID),
		zap.Stringer("item_id", res.Item.ID),
		zap.String("actor", in.Actor),
		zap.String("invoice_no", res.Transaction.InvoiceNo),
		zap.Stringer("total", *res.Transaction.TotalAmount),
	)
	return res, nil
}

type ProvisionLockerInput struct {
	Name          string
	LockerPointID *uuid.UUID
	Privileged    bool
}

// ProvisionLocker registers a new AVAILABLE locker
func (s *Service) ProvisionLocker(ctx context.Context, in ProvisionLockerInput) (model.Locker, error) {
	if !in.Privileged {
		return model.Locker{}, ErrNotPrivileged
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Locker{}, ErrInvalidInput.withMessage("name is required")
	}

	now := s.now()
	locker := model.Locker{
		ID:            uuid.New(),
		LockerPointID: in.LockerPointID,
		Name:          name,
		Status:        model.LockerAvailable,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.run(ctx, "provision_locker", func(ctx context.Context) error {
		return s.store.CreateLocker(ctx, &locker)
	})
	if err != nil {
		return model.Locker{}, err
	}
	s.log.Info("locker provisioned", zap.Stringer("locker_id", locker.ID), zap.String("name", locker.Name))
	return locker, nil
}

// SetMaintenance moves an AVAILABLE locker into MAINTENANCE or back.
// An OCCUPIED locker cannot enter maintenance while it holds an item.
func (s *Service) SetMaintenance(ctx context.Context, lockerID uuid.UUID, enabled, privileged bool) (model.Locker, error) {
	if !privileged {
		return model.Locker{}, ErrNotPrivileged
	}
	target := model.LockerAvailable
	if enabled {
		target = model.LockerMaintenance
	}

	var locker model.Locker
	err := s.run(ctx, "set_maintenance", func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context, tx repo.Tx) error {
			var err error
			locker, err = tx.LockLocker(ctx, lockerID)
			if err != nil {
				return notFound(err, ErrLockerNotFound)
			}
			if locker.Status == target {
				return nil
			}
			if locker.Status == model.LockerOccupied {
				return ErrLockerOccupied
			}
			if !locker.Status.CanTransitionTo(target) {
				return ErrLockerUnavailable.withMessage("locker %s cannot move from %s to %s", locker.ID, locker.Status, target)
			}
			now := s.now()
			if err := tx.SetLockerStatus(ctx, locker.ID, target, now); err != nil {
				return err
			}
			locker.Status = target
			locker.UpdatedAt = now
			return nil
		})
	})
	if err != nil {
		return model.Locker{}, err
	}
	s.log.Info("locker maintenance", zap.Stringer("locker_id", locker.ID), zap.Bool("enabled", enabled))
	return locker, nil
}

// GetLocker returns a single locker
func (s *Service) GetLocker(ctx context.Context, id uuid.UUID) (model.Locker, error) {
	var locker model.Locker
	err := s.run(ctx, "get_locker", func(ctx context.Context) error {
		var err error
		locker, err = s.store.GetLocker(ctx, id)
		return notFound(err, ErrLockerNotFound)
	})
	return locker, err
}

// ListLockers returns all lockers, or only AVAILABLE ones
func (s *Service) ListLockers(ctx context.Context, availableOnly bool) ([]model.Locker, error) {
	var filter *model.LockerStatus
	if availableOnly {
		st := model.LockerAvailable
		filter = &st
	}
	var lockers []model.Locker
	err := s.run(ctx, "list_lockers", func(ctx context.Context) error {
		var err error
		lockers, err = s.store.ListLockers(ctx, filter)
		return err
	})
	if lockers == nil {
		lockers = []model.Locker{}
	}
	return lockers, err
}

type ItemHistoryInput struct {
	SenderEmail string
	// Requester is the authenticated subject; it must be the sender unless Privileged
	Requester  string
	Privileged bool
}

// ItemHistory returns everything a sender has deposited with its billing record.
// Records include receiver contacts, so only the sender or an operator may read them.
func (s *Service) ItemHistory(ctx context.Context, in ItemHistoryInput) ([]model.ItemRecord, error) {
	senderEmail := strings.TrimSpace(in.SenderEmail)
	if senderEmail == "" {
		return nil, ErrInvalidInput.withMessage("sender_email is required")
	}
	if !in.Privileged && !strings.EqualFold(strings.TrimSpace(in.Requester), senderEmail) {
		return nil, ErrNotOwner
	}
	var records []model.ItemRecord
	err := s.run(ctx, "item_history", func(ctx context.Context) error {
		var err error
		records, err = s.store.ItemHistory(ctx, senderEmail)
		return err
	})
	if records == nil {
		records = []model.ItemRecord{}
	}
	return records, err
}
