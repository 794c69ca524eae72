// Command notifier consumes rendered notifications from Kafka and hands them to the delivery sink.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/config"
	"github.com/lockerhub/server/internal/logger"
	"github.com/lockerhub/server/internal/metrics"
	"github.com/lockerhub/server/internal/notify"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("server/.env")

	cfg, err := config.LoadNotifier()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.DevMode)
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.KafkaGroupID,
		Topic:          cfg.KafkaTopic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        3 * time.Second,
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn("close kafka reader", zap.Error(err))
		}
	}()

	// The SMS/email gateway is out of scope; deliveries land in the log.
	sink := notify.NewLogSink(log, cfg.DevMode)
	log.Info("notifier consuming",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.String("topic", cfg.KafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
	)

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Info("notifier stopped")
				return
			}
			log.Error("read message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		msg, err := notify.Decode(m.Value)
		if err != nil {
			log.Warn("skip malformed notification", zap.Int64("offset", m.Offset), zap.Error(err))
			metrics.NotificationsTotal.WithLabelValues("unknown", "malformed").Inc()
			continue
		}
		if err := sink.Deliver(ctx, msg); err != nil {
			log.Error("deliver notification", zap.Stringer("id", msg.ID), zap.Error(err))
			metrics.NotificationsTotal.WithLabelValues(string(msg.Kind), "failed").Inc()
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(string(msg.Kind), "delivered").Inc()
	}
}
