package notify

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lockerhub/server/internal/logger"
	"github.com/lockerhub/server/internal/metrics"
	"github.com/lockerhub/server/internal/model"
)

type Config struct {
	Workers        int
	QueueSize      int
	MaxAttempts    int
	RetryBackoff   time.Duration
	DeliverTimeout time.Duration
}

var DefaultConfig = Config{
	Workers:        2,
	QueueSize:      256,
	MaxAttempts:    3,
	RetryBackoff:   200 * time.Millisecond,
	DeliverTimeout: 5 * time.Second,
}

// Dispatcher queues notifications in memory and delivers them from a fixed
// pool of workers. Enqueueing never blocks: a full queue drops the message.
// Delivery is retried up to MaxAttempts times and failures are only logged.
type Dispatcher struct {
	sink Sink
	log  *zap.Logger
	cfg  Config

	queue      chan Message
	shutdownCh chan struct{}
	closed     atomic.Bool
	once       sync.Once
	group      errgroup.Group
}

func NewDispatcher(sink Sink, cfg Config, log *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig.QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = DefaultConfig.DeliverTimeout
	}
	return &Dispatcher{
		sink:       sink,
		log:        log.Named("dispatcher"),
		cfg:        cfg,
		queue:      make(chan Message, cfg.QueueSize),
		shutdownCh: make(chan struct{}),
	}
}

// Start launches the workers
func (d *Dispatcher) Start() {
	d.log.Info("starting notification dispatcher", zap.Int("workers", d.cfg.Workers))
	for i := 0; i < d.cfg.Workers; i++ {
		id := i
		d.group.Go(func() error {
			d.runWorker(id)
			return nil
		})
	}
}

// Shutdown stops accepting messages, lets workers drain the queue and waits for them.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.shutdownCh)
	})

	done := make(chan error, 1)
	go func() { done <- d.group.Wait() }()

	select {
	case err := <-done:
		d.log.Info("notification dispatcher stopped")
		return err
	case <-ctx.Done():
		d.log.Warn("notification dispatcher shutdown interrupted", zap.Int("pending", len(d.queue)))
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

func (d *Dispatcher) SendOtp(_ context.Context, lockerID uuid.UUID, contact, code string) {
	d.enqueue(OtpMessage(contact, code, lockerID))
}

func (d *Dispatcher) NotifyDeposit(_ context.Context, lockerID uuid.UUID, sender, receiver string, rate model.Money) {
	for _, msg := range DepositMessages(sender, receiver, lockerID, rate) {
		d.enqueue(msg)
	}
}

func (d *Dispatcher) NotifyCollected(_ context.Context, lockerID uuid.UUID, sender, receiver string, amount model.Money) {
	for _, msg := range CollectedMessages(sender, receiver, lockerID, amount) {
		d.enqueue(msg)
	}
}

func (d *Dispatcher) enqueue(msg Message) {
	if d.closed.Load() {
		d.drop(msg, "shutting down")
		return
	}
	select {
	case d.queue <- msg:
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
	default:
		d.drop(msg, "queue full")
	}
}

func (d *Dispatcher) drop(msg Message, reason string) {
	metrics.NotificationsTotal.WithLabelValues(string(msg.Kind), "dropped").Inc()
	d.log.Warn("notification dropped",
		zap.String("reason", reason),
		zap.String("kind", string(msg.Kind)),
		logger.Contact("recipient", msg.Recipient),
	)
}

func (d *Dispatcher) runWorker(id int) {
	for {
		select {
		case msg := <-d.queue:
			d.deliver(id, msg)
		case <-d.shutdownCh:
			for {
				select {
				case msg := <-d.queue:
					d.deliver(id, msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(worker int, msg Message) {
	metrics.NotificationQueueDepth.Set(float64(len(d.queue)))

	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.DeliverTimeout)
		err := d.sink.Deliver(ctx, msg)
		cancel()
		if err == nil {
			metrics.NotificationsTotal.WithLabelValues(string(msg.Kind), "delivered").Inc()
			return
		}

		d.log.Warn("notification delivery failed",
			zap.Int("worker", worker),
			zap.Int("attempt", attempt),
			zap.String("kind", string(msg.Kind)),
			logger.Contact("recipient", msg.Recipient),
			zap.Error(err),
		)
		if attempt < d.cfg.MaxAttempts && d.cfg.RetryBackoff > 0 {
			time.Sleep(d.cfg.RetryBackoff * time.Duration(attempt))
		}
	}
	metrics.NotificationsTotal.WithLabelValues(string(msg.Kind), "failed").Inc()
	d.log.Error("notification abandoned",
		zap.String("kind", string(msg.Kind)),
		zap.Stringer("id", msg.ID),
		logger.Contact("recipient", msg.Recipient),
	)
}
