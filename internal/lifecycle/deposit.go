package lifecycle

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/billing"
	"github.com/lockerhub/server/internal/logger"
	"github.com/lockerhub/server/internal/metrics"
	"github.com/lockerhub/server/internal/model"
	"github.com/lockerhub/server/internal/repo"
)

type DepositInput struct {
	LockerID      uuid.UUID
	Name          string
	Description   *string
	SenderEmail   string
	SenderPhone   *string
	ReceiverPhone *string
	ReceiverEmail *string
	// RatePerHour overrides the deployment rate for this stay; operators only
	RatePerHour *model.Money
	Privileged  bool
}

type DepositResult struct {
	Locker      model.Locker
	Item        model.Item
	Transaction model.Transaction
}

func (in *DepositInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.SenderEmail = strings.TrimSpace(in.SenderEmail)
	in.SenderPhone = trimOptional(in.SenderPhone)
	in.ReceiverPhone = trimOptional(in.ReceiverPhone)
	in.ReceiverEmail = trimOptional(in.ReceiverEmail)
	in.Description = trimOptional(in.Description)

	switch {
	case in.LockerID == uuid.Nil:
		return ErrInvalidInput.withMessage("locker_id is required")
	case in.Name == "":
		return ErrInvalidInput.withMessage("name is required")
	case in.SenderEmail == "":
		return ErrInvalidInput.withMessage("sender_email is required")
	case in.ReceiverPhone == nil && in.ReceiverEmail == nil:
		return ErrInvalidInput.withMessage("receiver_phone or receiver_email is required")
	case in.RatePerHour != nil && !billing.ValidRate(*in.RatePerHour):
		return ErrInvalidInput.withMessage("rate_per_hour must be between 0.01 and %s", billing.MaxRatePerHour)
	}
	if _, err := mail.ParseAddress(in.SenderEmail); err != nil {
		return ErrInvalidInput.withMessage("sender_email is not a valid address")
	}
	if in.ReceiverEmail != nil {
		if _, err := mail.ParseAddress(*in.ReceiverEmail); err != nil {
			return ErrInvalidInput.withMessage("receiver_email is not a valid address")
		}
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Deposit stores an item in an AVAILABLE locker. The item, its ONGOING
// transaction and the OCCUPIED locker status are written together.
func (s *Service) Deposit(ctx context.Context, in DepositInput) (DepositResult, error) {
	if err := in.normalize(); err != nil {
		return DepositResult{}, err
	}
	if in.RatePerHour != nil && !in.Privileged {
		return DepositResult{}, ErrNotPrivileged.withMessage("only an administrator can set rate_per_hour")
	}
	rate := s.rate
	if in.RatePerHour != nil {
		rate = *in.RatePerHour
	}

	var res DepositResult
	err := s.run(ctx, "deposit", func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context, tx repo.Tx) error {
			locker, err := tx.LockLocker(ctx, in.LockerID)
			if err != nil {
				return notFound(err, ErrLockerNotFound)
			}
			if !locker.Status.CanTransitionTo(model.LockerOccupied) {
				return ErrLockerUnavailable.withMessage("locker %s is %s", locker.ID, locker.Status)
			}

			now := s.now()
			item := model.Item{
				ID:            uuid.New(),
				LockerID:      locker.ID,
				Name:          in.Name,
				Description:   in.Description,
				SenderEmail:   in.SenderEmail,
				SenderPhone:   in.SenderPhone,
				ReceiverPhone: in.ReceiverPhone,
				ReceiverEmail: in.ReceiverEmail,
				Status:        model.ItemStored,
				CreatedAt:     now,
			}
			if err := tx.CreateItem(ctx, &item); err != nil {
				return err
			}

			txnID := uuid.New()
			txn := model.Transaction{
				ID:          txnID,
				InvoiceNo:   invoiceNumber(now, txnID),
				ItemID:      item.ID,
				LockerID:    locker.ID,
				RatePerHour: rate,
				Status:      model.TransactionOngoing,
				StartedAt:   now,
			}
			if err := tx.CreateTransaction(ctx, &txn); err != nil {
				return err
			}

			if err := tx.SetLockerStatus(ctx, locker.ID, model.LockerOccupied, now); err != nil {
				return err
			}
			locker.Status = model.LockerOccupied
			locker.UpdatedAt = now

			res = DepositResult{Locker: locker, Item: item, Transaction: txn}
			return nil
		})
	})
	if err != nil {
		return DepositResult{}, err
	}

	metrics.DepositsTotal.Inc()
	s.log.Info("item deposited",
		zap.Stringer("locker_id", res.Locker.ID),
		zap.Stringer("item_id", res.Item.ID),
		zap.String("invoice_no", res.Transaction.InvoiceNo),
		logger.Contact("receiver", res.Item.ReceiverContact()),
	)
	s.notifier.NotifyDeposit(afterCommit(ctx), res.Locker.ID, res.Item.SenderContact(), res.Item.ReceiverContact(), rate)
	return res, nil
}
