// Package lifecycle orchestrates the locker, item and transaction state machines.
// Each intent runs as one store transaction; notifications go out only after commit.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/billing"
	"github.com/lockerhub/server/internal/metrics"
	"github.com/lockerhub/server/internal/model"
	"github.com/lockerhub/server/internal/otp"
	"github.com/lockerhub/server/internal/repo"
)

// Notifier delivers messages to senders and receivers. Implementations must not
// block; delivery failures are theirs to handle.
type Notifier interface {
	SendOtp(ctx context.Context, lockerID uuid.UUID, contact, code string)
	NotifyDeposit(ctx context.Context, lockerID uuid.UUID, sender, receiver string, rate model.Money)
	NotifyCollected(ctx context.Context, lockerID uuid.UUID, sender, receiver string, amount model.Money)
}

const DefaultTimeout = 5 * time.Second

type Options struct {
	// RatePerHour applies when a deposit does not carry its own rate
	RatePerHour model.Money
	// Timeout bounds every intent including waits for row locks
	Timeout time.Duration
	Now     func() time.Time
}

type Service struct {
	store    repo.Store
	notifier Notifier
	otp      *otp.Generator
	log      *zap.Logger
	rate     model.Money
	timeout  time.Duration
	now      func() time.Time
}

func NewService(store repo.Store, notifier Notifier, gen *otp.Generator, log *zap.Logger, opts Options) *Service {
	if opts.RatePerHour <= 0 {
		opts.RatePerHour = billing.DefaultRatePerHour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:    store,
		notifier: notifier,
		otp:      gen,
		log:      log.Named("lifecycle"),
		rate:     opts.RatePerHour,
		timeout:  opts.Timeout,
		now:      opts.Now,
	}
}

// run executes one intent under the configured timeout and records its outcome
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}

	err = translate(err)
	metrics.OperationErrorsTotal.WithLabelValues(op, CodeOf(err)).Inc()
	switch KindOf(err) {
	case KindInvariantViolation, KindUnknown:
		s.log.Error("intent failed", zap.String("op", op), zap.Error(err))
	case KindTimeout:
		s.log.Warn("intent timed out", zap.String("op", op), zap.Error(err))
	case KindCanceled:
		s.log.Debug("intent canceled by caller", zap.String("op", op))
	default:
		s.log.Debug("intent rejected", zap.String("op", op), zap.String("code", CodeOf(err)))
	}
	return err
}

// translate maps store and context failures onto lifecycle errors.
// Lifecycle errors pass through untouched.
func translate(err error) error {
	var le *Error
	switch {
	case errors.As(err, &le):
		return err
	case errors.Is(err, repo.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout.with(err)
	case errors.Is(err, context.Canceled):
		return ErrCanceled.with(err)
	case errors.Is(err, repo.ErrConflict):
		return ErrLockerUnavailable.with(err)
	}
	return err
}

// notFound turns repo.ErrNotFound into the given lifecycle error
func notFound(err error, as *Error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return as.with(err)
	}
	return err
}

// afterCommit detaches notifications from the intent deadline
func afterCommit(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func invoiceNumber(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("INV-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12]))
}
