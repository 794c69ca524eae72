package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/billing"
	"github.com/lockerhub/server/internal/logger"
	"github.com/lockerhub/server/internal/metrics"
	"github.com/lockerhub/server/internal/model"
	"github.com/lockerhub/server/internal/otp"
	"github.com/lockerhub/server/internal/repo"
)

type RequestOtpInput struct {
	LockerID uuid.UUID
	// Contact must equal the registered receiver phone or email
	Contact string
}

type RequestOtpResult struct {
	ItemID    uuid.UUID
	ExpiresAt time.Time
}

// RequestOtp issues a fresh code for the locker's active item and sends it to
// the requesting contact. An outstanding code is replaced and the attempt
// counter starts over.
func (s *Service) RequestOtp(ctx context.Context, in RequestOtpInput) (RequestOtpResult, error) {
	contact := strings.TrimSpace(in.Contact)
	if in.LockerID == uuid.Nil {
		return RequestOtpResult{}, ErrInvalidInput.withMessage("locker_id is required")
	}
	if contact == "" {
		return RequestOtpResult{}, ErrInvalidInput.withMessage("contact is required")
	}

	var (
		res  RequestOtpResult
		code otp.Code
	)
	err := s.run(ctx, "request_otp", func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context, tx repo.Tx) error {
			if _, err := tx.LockLocker(ctx, in.LockerID); err != nil {
				return notFound(err, ErrLockerNotFound)
			}
			item, err := tx.ActiveItem(ctx, in.LockerID)
			if err != nil {
				return notFound(err, ErrItemNotFound)
			}
			if !item.MatchesReceiver(contact) {
				return ErrUnauthorizedReceiver
			}

			code, err = s.otp.Generate(s.now())
			if err != nil {
				return err
			}
			item.OTPHash = &code.Hash
			item.OTPExpiresAt = &code.ExpiresAt
			item.OTPAttempts = 0
			if err := tx.UpdateItem(ctx, &item); err != nil {
				return err
			}

			res = RequestOtpResult{ItemID: item.ID, ExpiresAt: code.ExpiresAt}
			return nil
		})
	})
	if err != nil {
		return RequestOtpResult{}, err
	}

	metrics.OtpIssuedTotal.Inc()
	s.log.Info("otp issued",
		zap.Stringer("locker_id", in.LockerID),
		zap.Stringer("item_id", res.ItemID),
		logger.Contact("contact", contact),
		zap.Time("expires_at", res.ExpiresAt),
	)
	s.notifier.SendOtp(afterCommit(ctx), in.LockerID, contact, code.Plain)
	return res, nil
}

type CollectInput struct {
	LockerID uuid.UUID
	Otp      string
}

type CollectResult struct {
	Locker      model.Locker
	Item        model.Item
	Transaction model.Transaction
}

// Collect releases the active item to a receiver presenting a valid OTP.
// Checks run in order: active item, attempt limit, code issued, expiry, code
// match, open transaction. A wrong code increments the attempt counter and that
// increment is committed; reaching otp.MaxAttempts invalidates the code.
// On success the transaction is billed and closed, the item becomes COLLECTED
// and the locker AVAILABLE.
func (s *Service) Collect(ctx context.Context, in CollectInput) (CollectResult, error) {
	candidate := strings.TrimSpace(in.Otp)
	if in.LockerID == uuid.Nil {
		return CollectResult{}, ErrInvalidInput.withMessage("locker_id is required")
	}
	if candidate == "" {
		return CollectResult{}, ErrInvalidInput.withMessage("otp is required")
	}

	var (
		res     CollectResult
		verdict error
	)
	err := s.run(ctx, "collect", func(ctx context.Context) error {
		return s.store.WithinTx(ctx, func(ctx context.Context, tx repo.Tx) error {
			locker, err := tx.LockLocker(ctx, in.LockerID)
			if err != nil {
				return notFound(err, ErrLockerNotFound)
			}
			item, err := tx.ActiveItem(ctx, in.LockerID)
			if err != nil {
				return notFound(err, ErrNoActiveItem)
			}
			if !item.Status.CanTransitionTo(model.ItemCollected) {
				return ErrNoActiveItem.withMessage("item %s is %s", item.ID, item.Status)
			}

			if item.OTPAttempts >= otp.MaxAttempts {
				return ErrOtpAttemptsExceeded
			}
			if item.OTPHash == nil || item.OTPExpiresAt == nil {
				return ErrOtpNotRequested
			}
			now := s.now()
			if otp.Expired(*item.OTPExpiresAt, now) {
				return ErrOtpExpired
			}
			if !otp.Verify(candidate, *item.OTPHash) {
				item.OTPAttempts++
				verdict = ErrInvalidOtp
				if item.OTPAttempts >= otp.MaxAttempts {
					item.OTPHash = nil
					item.OTPExpiresAt = nil
					verdict = ErrInvalidOtp.withMessage("invalid OTP; attempts exhausted, request a new code")
				}
				// the failed attempt must survive, so commit instead of returning the verdict
				return tx.UpdateItem(ctx, &item)
			}

			txn, err := tx.OpenTransaction(ctx, item.ID)
			if err != nil {
				return notFound(err, ErrTransactionMissing)
			}
			if !locker.Status.CanTransitionTo(model.LockerAvailable) {
				return ErrLockerNotOccupied.withMessage("locker %s is %s", locker.ID, locker.Status)
			}

			total := billing.Calculate(item.CreatedAt, now, txn.RatePerHour)
			txn.Status = model.TransactionCompleted
			txn.EndedAt = &now
			txn.TotalAmount = &total
			if err := tx.CloseTransaction(ctx, &txn); err != nil {
				return err
			}

			item.Status = model.ItemCollected
			item.CollectedAt = &now
			item.ClearOTP()
			if err := tx.UpdateItem(ctx, &item); err != nil {
				return err
			}

			if err := tx.SetLockerStatus(ctx, locker.ID, model.LockerAvailable, now); err != nil {
				return err
			}
			locker.Status = model.LockerAvailable
			locker.UpdatedAt = now

			res = CollectResult{Locker: locker, Item: item, Transaction: txn}
			return nil
		})
	})
	if err != nil {
		if isOtpRejection(err) {
			metrics.OtpFailuresTotal.WithLabelValues(CodeOf(err)).Inc()
		}
		return CollectResult{}, err
	}
	if verdict != nil {
		metrics.OtpFailuresTotal.WithLabelValues(CodeOf(verdict)).Inc()
		metrics.OperationErrorsTotal.WithLabelValues("collect", CodeOf(verdict)).Inc()
		s.log.Info("wrong otp", zap.Stringer("locker_id", in.LockerID))
		return CollectResult{}, verdict
	}

	total := *res.Transaction.TotalAmount
	metrics.CollectionsTotal.Inc()
	metrics.BilledCentsTotal.Add(float64(total.Cents()))
	s.log.Info("item collected",
		zap.Stringer("locker_id", res.Locker.ID),
		zap.Stringer("item_id", res.Item.ID),
		zap.String("invoice_no", res.Transaction.InvoiceNo),
		zap.Stringer("total", total),
	)
	s.notifier.NotifyCollected(afterCommit(ctx), res.Locker.ID, res.Item.SenderContact(), res.Item.ReceiverContact(), total)
	return res, nil
}

func isOtpRejection(err error) bool {
	switch KindOf(err) {
	case KindInvalidCredential, KindExpired:
		return true
	}
	return errors.Is(err, ErrOtpAttemptsExceeded)
}
