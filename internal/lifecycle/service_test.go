package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/lifecycle"
	mock_lifecycle "github.com/lockerhub/server/internal/lifecycle/mocks"
	"github.com/lockerhub/server/internal/model"
	"github.com/lockerhub/server/internal/otp"
	"github.com/lockerhub/server/internal/repo"
)

const (
	receiverPhone = "+1555"
	receiverEmail = "bob@example.com"
	senderEmail   = "alice@example.com"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	svc      *lifecycle.Service
	store    *repo.MemoryStore
	notifier *mock_lifecycle.MockNotifier
	clock    *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	store := repo.NewMemoryStore()
	notifier := mock_lifecycle.NewMockNotifier(ctrl)
	gen := otp.NewGenerator(otp.Params{Memory: 64, Time: 1, Threads: 1, KeyLen: 32}, otp.DefaultTTL)

	svc := lifecycle.NewService(store, notifier, gen, zap.NewNop(), lifecycle.Options{
		RatePerHour: model.Units(50),
		Timeout:     time.Second,
		Now:         clock.Now,
	})
	return &harness{svc: svc, store: store, notifier: notifier, clock: clock}
}

func (h *harness) locker(t *testing.T, name string) model.Locker {
	t.Helper()
	l, err := h.svc.ProvisionLocker(context.Background(), lifecycle.ProvisionLockerInput{Name: name, Privileged: true})
	require.NoError(t, err)
	return l
}

func depositInput(lockerID uuid.UUID) lifecycle.DepositInput {
	phone := receiverPhone
	email := receiverEmail
	return lifecycle.DepositInput{
		LockerID:      lockerID,
		Name:          "documents",
		SenderEmail:   senderEmail,
		ReceiverPhone: &phone,
		ReceiverEmail: &email,
	}
}

func (h *harness) deposit(t *testing.T, lockerID uuid.UUID) lifecycle.DepositResult {
	t.Helper()
	h.notifier.EXPECT().NotifyDeposit(gomock.Any(), lockerID, senderEmail, receiverPhone, model.Units(50))
	res, err := h.svc.Deposit(context.Background(), depositInput(lockerID))
	require.NoError(t, err)
	return res
}

func (h *harness) requestOtp(t *testing.T, lockerID uuid.UUID, contact string) string {
	t.Helper()
	var code string
	h.notifier.EXPECT().
		SendOtp(gomock.Any(), lockerID, contact, gomock.Any()).
		Do(func(_ context.Context, _ uuid.UUID, _ string, c string) { code = c })
	_, err := h.svc.RequestOtp(context.Background(), lifecycle.RequestOtpInput{LockerID: lockerID, Contact: contact})
	require.NoError(t, err)
	require.Len(t, code, 6)
	return code
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

// assertOccupancy checks that a locker is OCCUPIED exactly when it holds a STORED item
func (h *harness) assertOccupancy(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	lockers, err := h.store.ListLockers(ctx, nil)
	require.NoError(t, err)
	for _, l := range lockers {
		err := h.store.WithinTx(ctx, func(ctx context.Context, tx repo.Tx) error {
			_, err := tx.ActiveItem(ctx, l.ID)
			return err
		})
		if l.Status == model.LockerOccupied {
			assert.NoError(t, err, "occupied locker %s must hold an item", l.Name)
		} else {
			assert.ErrorIs(t, err, repo.ErrNotFound, "%s locker %s must be empty", l.Status, l.Name)
		}
	}
}

func TestDeposit_OccupiesLockerAndOpensTransaction(t *testing.T) {
	h := newHarness(t)
	l := h.locker(t, "L1")

	res := h.deposit(t, l.ID)

	assert.Equal(t, model.LockerOccupied, res.Locker.Status)
	assert.Equal(t, model.ItemStored, res.Item.Status)
	assert.Equal(t, l.ID, res.Item.LockerID)
	assert.Equal(t, model.TransactionOngoing, res.Transaction.Status)
	assert.Equal(t, res.Item.ID, res.Transaction.ItemID)
	assert.Equal(t, model.Units(50), res.Transaction.RatePerHour)
	assert.Equal(t, h.clock.Now(), res.Transaction.StartedAt)
	assert.Nil(t, res.Transaction.EndedAt)
	assert.Regexp(t, `^INV-20250601-[0-9A-F]{12}$`, res.Transaction.InvoiceNo)

	got, err := h.svc.GetLocker(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LockerOccupied, got.Status)
	h.assertOccupancy(t)
}

func TestDeposit_RateOverride(t *testing.T) {
	h := newHarness(t)
	l := h.locker(t, "L1")

	in := depositInput(l.ID)
	rate := model.Cents(1275)
	in.RatePerHour = &rate

	_, err := h.svc.Deposit(context.Background(), in)
	require.ErrorIs(t, err, lifecycle.ErrNotPrivileged, "a sender must not pick their own price")

	in.Privileged = true
	h.notifier.EXPECT().NotifyDeposit(gomock.Any(), l.ID, senderEmail, receiverPhone, rate)
	res, err := h.svc.Deposit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, rate, res.Transaction.RatePerHour)
}

func TestDeposit_RejectsUnavailableLocker(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.locker(t, "L1")
	first := h.deposit(t, l.ID)

	_, err := h.svc.Deposit(ctx, depositInput(l.ID))
	require.ErrorIs(t, err, lifecycle.ErrLockerUnavailable)
	assert.Equal(t, lifecycle.KindConflict, lifecycle.KindOf(err))

	history, err := h.svc.ItemHistory(ctx, lifecycle.ItemHistoryInput{SenderEmail: senderEmail, Requester: senderEmail})
	require.NoError(t, err)
	require.Len(t, history, 1, "failed deposit must not create an item")
	assert.Equal(t, first.Item.ID, history[0].Item.ID)

	m := h.locker(t, "M1")
	_, err = h.svc.SetMaintenance(ctx, m.ID, true, true)
	require.NoError(t, err)
	_, err = h.svc.Deposit(ctx, depositInput(m.ID))
	assert.ErrorIs(t, err, lifecycle.ErrLockerUnavailable)
	h.assertOccupancy(t)
}

func TestDeposit_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Deposit(ctx, depositInput(uuid.New()))
	assert.ErrorIs(t, err, lifecycle.ErrLockerNotFound)

	l := h.locker(t, "L1")
	cases := map[string]func(*lifecycle.DepositInput){
		"missing name":     func(in *lifecycle.DepositInput) { in.Name = "  " },
		"missing sender":   func(in *lifecycle.DepositInput) { in.SenderEmail = "" },
		"bad sender email": func(in *lifecycle.DepositInput) { in.SenderEmail = "not-an-email" },
		"no receiver": func(in *lifecycle.DepositInput) {
			in.ReceiverPhone = nil
			in.ReceiverEmail = nil
		},
		"zero rate": func(in *lifecycle.DepositInput) {
			r := model.Money(0)
			in.RatePerHour = &r
			in.Privileged = true
		},
		"rate above cap": func(in *lifecycle.DepositInput) {
			r := model.MaxMoney - 1
			in.RatePerHour = &r
			in.Privileged = true
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := depositInput(l.ID)
			mutate(&in)
			_, err := h.svc.Deposit(ctx, in)
			assert.Equal(t, lifecycle.KindInvalidInput, lifecycle.KindOf(err))
		})
	}
}

func TestDeposit_ConcurrentRaceHasOneWinner(t *testing.T) {
	h := newHarness(t)
	l := h.locker(t, "L1")
	h.notifier.EXPECT().NotifyDeposit(gomock.Any(), l.ID, gomock.Any(), gomock.Any(), gomock.Any()).Times(1)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Deposit(context.Background(), depositInput(l.ID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, lifecycle.ErrLockerUnavailable):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)

	history, err := h.svc.ItemHistory(context.Background(), lifecycle.ItemHistoryInput{SenderEmail: senderEmail, Privileged: true})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotNil(t, history[0].Transaction, "the single item must have its transaction")
	h.assertOccupancy(t)
}

func TestEndToEnd_DepositRequestOtpCollect(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.locker(t, "L1")
	dep := h.deposit(t, l.ID)

	h.clock.Advance(90 * time.Minute)
	code := h.requestOtp(t, l.ID, receiverPhone)

	stored, ok := h.store.Item(dep.Item.ID)
	require.True(t, ok)
	require.NotNil(t, stored.OTPHash)
	assert.NotContains(t, *stored.OTPHash, code)
	assert.Equal(t, h.clock.Now().Add(otp.DefaultTTL), *stored.OTPExpiresAt)

	h.clock.Advance(time.Minute)
	h.notifier.EXPECT().NotifyCollected(gomock.Any(), l.ID, senderEmail, receiverPhone, model.Units(100))

	res, err := h.svc.Collect(ctx, lifecycle.CollectInput{LockerID: l.ID, Otp: code})
	require.NoError(t, err)

	assert.Equal(t, model.ItemCollected, res.Item.Status)
	require.NotNil(t, res.Item.CollectedAt)
	assert.Equal(t, h.clock.Now(), *res.Item.CollectedAt)
	assert.Nil(t, res.Item.OTPHash)
	assert.Equal(t, model.LockerAvailable, res.Locker.Status)
	assert.Equal(t, model.TransactionCompleted, res.Transaction.Status)
	require.NotNil(t, res.Transaction.TotalAmount)
	assert.Equal(t, "100.00", res.Transaction.TotalAmount.String(), "91 minutes bills two hours")

	txn, ok := h.store.TransactionForItem(dep.Item.ID)
	require.True(t, ok)
	assert.False(t, txn.IsOpen())
	h.assertOccupancy(t)

	// the locker can be reused right away
	h.deposit(t, l.ID)
	h.assertOccupancy(t)
}

func TestCollect_ShortStayBillsMinimumHour(t *testing.T) {
	h := newHarness(t)
	l := h.locker(t, "L1")
	h.deposit(t, l.ID)
	code := h.requestOtp(t, l.ID, receiverEmail)

	h.clock.Advance(time.Second)
	h.notifier.EXPECT().NotifyCollected(gomock.Any(), l.ID, senderEmail, receiverPhone, model.Units(50))
	res, err := h.svc.Collect(context.Background(), lifecycle.CollectInput{LockerID: l.ID, Otp: code})
	require.NoError(t, err)
	assert.Equal(t, "50.00", res.Transaction.TotalAmount.String())
}

func TestRequestOtp_RejectsUnknownContact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.locker(t, "L1")
	dep := h.deposit(t, l.ID)

	for _, contact := range []string{"+1556", senderEmail, "BOB@example.com"} {
		_, err := h.svc.RequestOtp(ctx, lifecycle.RequestOtpInput{LockerID: l.ID, Contact: contact})
		require.ErrorIs(t, err, lifecycle.ErrUnauthorizedReceiver, contact)
		assert.Equal(t, lifecycle.KindUnauthorized, lifecycle.KindOf(err))
	}

	stored, ok := h.store.Item(dep.Item.ID)
	require.True(t, ok)
	assert.Nil(t, stored.OTPHash, "no OTP fields may change")
	assert.Nil(t, stored.OTPExpiresAt)
	assert.Zero(t, stored.OTPAttempts)
}

func TestRequestOtp_EmptyLocker(t *testing.T) {
	h := newHarness(t)
	l := h.locker(t, "L1")

	_, err := h.svc.RequestOtp(context.Background(), lifecycle.RequestOtpInput{LockerID: l.ID, Contact: receiverPhone})
	assert.ErrorIs(t, err, lifecycle.ErrItemNotFound)

	_, err = h.svc.RequestOtp(context.Background(), lifecycle.RequestOtpInput{LockerID: uuid.New(), Contact: receiverPhone})
	assert.ErrorIs(t, err, lifecycle.ErrLockerNotFound)
}

func TestRequestOtp_ReissueInvalidatesPreviousCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.locker(t, "L1")
	h.deposit(t, l.ID)

	first := h.requestOtp(t, l.ID, receiverPhone)
	second := h.requestOtp(t, l.ID, receiverPhone)
	if first == second {
		t.Skip("drew the same code twice")
	}

	_, err := h.svc.Collect(ctx, lifecycle.CollectInput{LockerID: l.ID, Otp: first})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidOtp)

	h.notifier.EXPECT().NotifyCollected(gomock.Any(), l.ID, gomock.Any(), gomock.Any(), gomock.Any())
	_, err = h.svc.Collect(ctx, lifecycle.CollectInput{LockerID: l.ID, Otp: second})
	assert.NoError(t, err)
}

func TestCollect_ExpiredCodeIsRejectedEvenIfCorrect(t *testing.T) {
	h := newHarness(t)
	l := h.locker(t, "L1")
	dep := h.deposit(t, l.ID)
	code := h.requestOtp(t, l.ID, receiverPhone)
	before, _ := h.store.Item(dep.Item.ID)

	h.clock.Advance(otp.DefaultTTL)
	_, err := h.svc.Collect(context.Background(), lifecycle.CollectInput{LockerID: l.ID, Otp: code})
	require.ErrorIs(t, err, lifecycle.ErrOtpExpired)
	assert.Equal(t, lifecycle.KindExpired, lifecycle.KindOf(err))

	after, _ := h.store.Item(dep.Item.ID)
	assert.Equal(t, before, after)
	locker, err := h.svc.GetLocker(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LockerOccupied, locker.Status)
	txn, _ := h.store.TransactionForItem(dep.Item.ID)
	assert.True(t, txn.IsOpen())
}

func TestCollect_WrongCodeOnlyCountsAttempt(t *testing.T) {
	h := newHarness(t)
	l := h.locker(t, "L1")
	dep := h.deposit(t, l.ID)
	code := h.requestOtp(t, l.ID, receiverPhone)
	before, _ := h.store.Item(dep.Item.ID)

	_, err := h.svc.Collect(context.Background(), lifecycle.CollectInput{LockerID: l.ID, Otp: wrongCode(code)})
	require.ErrorIs(t, err, lifecycle.ErrInvalidOtp)
	assert.Equal(t, lifecycle.KindInvalidCredential, lifecycle.KindOf(err))

	after, _ := h.store.Item(dep.Item.ID)
	assert.Equal(t, before.OTPAttempts+1, after.OTPAttempts)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, *before.OTPHash, *after.OTPHash)
	assert.Nil(t, after.CollectedAt)

	txn, _ := h.store.TransactionForItem(dep.Item.ID)
	assert.True(t, txn.IsOpen())
	h.assertOccupancy(t)
}

func TestCollect_LockoutAfterMaxAttempts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.locker(t, "L1")
	dep := h.deposit(t, l.ID)
	code := h.requestOtp(t, l.ID, receiverPhone)

	for i := 0; i < otp.MaxAttempts; i++ {
		_, err := h.svc.Collect(ctx, lifecycle.CollectInput{LockerID: l.ID, Otp: wrongCode(code)})
		require.ErrorIs(t, err, lifecycle.ErrInvalidOtp, "attempt %d", i+1)
	}

	stored, _ := h.store.Item(dep.Item.ID)
	assert.Equal(t, otp.MaxAttempts, stored.OTPAttempts)
	assert.Nil(t, stored.OTPHash, "exhausted code must be invalidated")

	_, err := h.svc.Collect(ctx, lifecycle.CollectInput{LockerID: l.ID, Otp: code})
	assert.ErrorIs(t, err, lifecycle.ErrOtpAttemptsExceeded)

	fresh := h.requestOtp(t, l.ID, receiverPhone)
	stored, _ = h.store.Item(dep.Item.ID)
	assert.Zero(t, stored.OTPAttempts)

	h.notifier.EXPECT().NotifyCollected(gomock.Any(), l.ID, gomock.Any(), gomock.Any(), gomock.Any())
	_, err = h.svc.Collect(ctx, lifecycle.CollectInput{LockerID: l.ID, Otp: fresh})
	assert.NoError(t, err)
}

func TestCollect_Preconditions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.locker(t, "L1")

	_, err := h.svc.Collect(ctx, lifecycle.CollectInput{LockerID: l.ID, Otp: "123456"})
	assert.ErrorIs(t, err, lifecycle.ErrNoActiveItem)

	h.deposit(t, l.ID)
	_, err = h.svc.Collect(ctx, lifecycle.CollectInput{LockerID: l.ID, Otp: "123456"})
	assert.ErrorIs(t, err, lifecycle.ErrOtpNotRequested)

	_, err = h.svc.Collect(ctx, lifecycle.CollectInput{LockerID: l.ID, Otp: " "})
	assert.Equal(t, lifecycle.KindInvalidInput, lifecycle.KindOf(err))
}

func TestCollect_ConcurrentCollectHasOneWinner(t *testing.T) {
	h := newHarness(t)
	l := h.locker(t, "L1")
	h.deposit(t, l.ID)
	code := h.requestOtp(t, l.ID, receiverPhone)
	h.notifier.EXPECT().NotifyCollected(gomock.Any(), l.ID, gomock.Any(), gomock.Any(), gomock.Any()).Times(1)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Collect(context.Background(), lifecycle.CollectInput{LockerID: l.ID, Otp: code})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, missing int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, lifecycle.ErrNoActiveItem):
			missing++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, missing)
	h.assertOccupancy(t)
}

func TestCollect_MissingTransactionIsInvariantViolation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.locker(t, "L1")

	// an item without a transaction can only be produced by writing around the service
	phone := receiverPhone
	item := model.Item{
		ID: uuid.New(), LockerID: l.ID, Name: "orphan", SenderEmail: senderEmail,
		ReceiverPhone: &phone, Status: model.ItemStored, CreatedAt: h.clock.Now(),
	}
	require.NoError(t, h.store.WithinTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		if err := tx.CreateItem(ctx, &item); err != nil {
			return err
		}
		return tx.SetLockerStatus(ctx, l.ID, model.LockerOccupied, h.clock.Now())
	}))

	code := h.requestOtp(t, l.ID, receiverPhone)
	_, err := h.svc.Collect(ctx, lifecycle.CollectInput{LockerID: l.ID, Otp: code})
	require.ErrorIs(t, err, lifecycle.ErrTransactionMissing)
	assert.Equal(t, lifecycle.KindInvariantViolation, lifecycle.KindOf(err))
	assert.False(t, lifecycle.IsRetryable(err))

	stored, _ := h.store.Item(item.ID)
	assert.Equal(t, model.ItemStored, stored.Status, "nothing may be partially applied")
	locker, _ := h.svc.GetLocker(ctx, l.ID)
	assert.Equal(t, model.LockerOccupied, locker.Status)
}

func TestForceClear(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.locker(t, "L1")

	_, err := h.svc.ForceClear(ctx, lifecycle.ForceClearInput{LockerID: l.ID, Privileged: true})
	require.ErrorIs(t, err, lifecycle.ErrLockerNotOccupied)
	got, _ := h.svc.GetLocker(ctx, l.ID)
	assert.Equal(t, model.LockerAvailable, got.Status)

	dep := h.deposit(t, l.ID)
	h.requestOtp(t, l.ID, receiverPhone)

	_, err = h.svc.ForceClear(ctx, lifecycle.ForceClearInput{LockerID: l.ID})
	require.ErrorIs(t, err, lifecycle.ErrNotPrivileged)
	assert.Equal(t, lifecycle.KindForbidden, lifecycle.KindOf(err))

	h.clock.Advance(3*time.Hour + time.Minute)
	res, err := h.svc.ForceClear(ctx, lifecycle.ForceClearInput{LockerID: l.ID, Privileged: true, Actor: "ops"})
	require.NoError(t, err)

	assert.Equal(t, model.ItemForceRemoved, res.Item.Status)
	assert.Nil(t, res.Item.CollectedAt, "force removal is not a collection")
	assert.Nil(t, res.Item.OTPHash)
	assert.Equal(t, model.LockerAvailable, res.Locker.Status)
	assert.Equal(t, model.TransactionCompleted, res.Transaction.Status)
	assert.Equal(t, model.Units(200), *res.Transaction.TotalAmount)

	stored, _ := h.store.Item(dep.Item.ID)
	assert.Equal(t, model.ItemForceRemoved, stored.Status)
	h.assertOccupancy(t)

	_, err = h.svc.ForceClear(ctx, lifecycle.ForceClearInput{LockerID: uuid.New(), Privileged: true})
	assert.ErrorIs(t, err, lifecycle.ErrLockerNotFound)
}

func TestSetMaintenance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.locker(t, "L1")

	_, err := h.svc.SetMaintenance(ctx, l.ID, true, false)
	assert.ErrorIs(t, err, lifecycle.ErrNotPrivileged)

	got, err := h.svc.SetMaintenance(ctx, l.ID, true, true)
	require.NoError(t, err)
	assert.Equal(t, model.LockerMaintenance, got.Status)

	available, err := h.svc.ListLockers(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, available)

	got, err = h.svc.SetMaintenance(ctx, l.ID, false, true)
	require.NoError(t, err)
	assert.Equal(t, model.LockerAvailable, got.Status)

	h.deposit(t, l.ID)
	_, err = h.svc.SetMaintenance(ctx, l.ID, true, true)
	assert.ErrorIs(t, err, lifecycle.ErrLockerOccupied)
	h.assertOccupancy(t)
}

func TestIntentTimesOutWhileStoreIsBusy(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := repo.NewMemoryStore()
	gen := otp.NewGenerator(otp.Params{Memory: 64, Time: 1, Threads: 1, KeyLen: 32}, 0)
	svc := lifecycle.NewService(store, mock_lifecycle.NewMockNotifier(ctrl), gen, zap.NewNop(), lifecycle.Options{
		Timeout: 20 * time.Millisecond,
	})
	l, err := svc.ProvisionLocker(context.Background(), lifecycle.ProvisionLockerInput{Name: "L1", Privileged: true})
	require.NoError(t, err)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = store.WithinTx(context.Background(), func(ctx context.Context, tx repo.Tx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	_, err = svc.Deposit(context.Background(), depositInput(l.ID))
	require.ErrorIs(t, err, lifecycle.ErrTimeout)
	assert.True(t, lifecycle.IsRetryable(err))
	assert.Equal(t, "timeout", lifecycle.CodeOf(err))

	canceled, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()
	_, err = svc.Deposit(canceled, depositInput(l.ID))
	require.ErrorIs(t, err, lifecycle.ErrCanceled)
	assert.False(t, lifecycle.IsRetryable(err))
	assert.Equal(t, lifecycle.KindCanceled, lifecycle.KindOf(err))
}

func TestProvisionLocker_RequiresPrivilege(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.ProvisionLocker(ctx, lifecycle.ProvisionLockerInput{Name: "B-07"})
	assert.ErrorIs(t, err, lifecycle.ErrNotPrivileged)

	_, err = h.svc.ProvisionLocker(ctx, lifecycle.ProvisionLockerInput{Name: "  ", Privileged: true})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidInput)

	lockers, err := h.svc.ListLockers(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, lockers)
}

func TestItemHistory_OnlySenderOrOperator(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.locker(t, "L1")
	h.deposit(t, l.ID)

	_, err := h.svc.ItemHistory(ctx, lifecycle.ItemHistoryInput{SenderEmail: senderEmail})
	assert.ErrorIs(t, err, lifecycle.ErrNotOwner)
	_, err = h.svc.ItemHistory(ctx, lifecycle.ItemHistoryInput{SenderEmail: senderEmail, Requester: "mallory@example.com"})
	assert.ErrorIs(t, err, lifecycle.ErrNotOwner)
	assert.Equal(t, lifecycle.KindForbidden, lifecycle.KindOf(err))

	own, err := h.svc.ItemHistory(ctx, lifecycle.ItemHistoryInput{SenderEmail: senderEmail, Requester: "Alice@Example.com"})
	require.NoError(t, err)
	assert.Len(t, own, 1)

	ops, err := h.svc.ItemHistory(ctx, lifecycle.ItemHistoryInput{SenderEmail: senderEmail, Requester: "ops", Privileged: true})
	require.NoError(t, err)
	assert.Len(t, ops, 1)
}

// terminalItemStore hands out the active item already in a terminal state,
// as a store with a broken status filter would.
type terminalItemStore struct {
	*repo.MemoryStore
}

type terminalItemTx struct {
	repo.Tx
}

func (s terminalItemStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repo.Tx) error) error {
	return s.MemoryStore.WithinTx(ctx, func(ctx context.Context, tx repo.Tx) error {
		return fn(ctx, terminalItemTx{tx})
	})
}

func (t terminalItemTx) ActiveItem(ctx context.Context, lockerID uuid.UUID) (model.Item, error) {
	it, err := t.Tx.ActiveItem(ctx, lockerID)
	if err != nil {
		return it, err
	}
	it.Status = model.ItemCollected
	return it, nil
}

func TestTerminalItemsAreNeverTransitionedAgain(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l := h.locker(t, "L1")
	dep := h.deposit(t, l.ID)
	code := h.requestOtp(t, l.ID, receiverPhone)

	svc := lifecycle.NewService(terminalItemStore{h.store}, h.notifier,
		otp.NewGenerator(otp.Params{Memory: 64, Time: 1, Threads: 1, KeyLen: 32}, otp.DefaultTTL),
		zap.NewNop(), lifecycle.Options{Now: h.clock.Now})

	_, err := svc.Collect(ctx, lifecycle.CollectInput{LockerID: l.ID, Otp: code})
	assert.ErrorIs(t, err, lifecycle.ErrNoActiveItem)

	_, err = svc.ForceClear(ctx, lifecycle.ForceClearInput{LockerID: l.ID, Privileged: true})
	assert.ErrorIs(t, err, lifecycle.ErrItemNotFound)

	item, ok := h.store.Item(dep.Item.ID)
	require.True(t, ok)
	assert.Equal(t, model.ItemStored, item.Status, "rejected transitions must leave the row alone")
	got, err := h.svc.GetLocker(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LockerOccupied, got.Status)
}
