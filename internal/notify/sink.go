package notify

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/lockerhub/server/internal/logger"
)

// Sink hands a rendered message to a delivery backend
type Sink interface {
	Deliver(ctx context.Context, msg Message) error
	Close() error
}

// LogSink writes notifications to the log instead of delivering them.
// Codes are redacted unless revealCodes is set (local development only).
type LogSink struct {
	log         *zap.Logger
	revealCodes bool
}

func NewLogSink(log *zap.Logger, revealCodes bool) *LogSink {
	return &LogSink{log: log.Named("notify"), revealCodes: revealCodes}
}

func (s *LogSink) Deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body := msg.Body
	if msg.Kind == KindOtp && !s.revealCodes {
		body = redactDigits(body)
	}
	s.log.Info("notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("channel", string(msg.Channel)),
		logger.Contact("recipient", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.String("body", body),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }

func redactDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return '*'
		}
		return r
	}, s)
}
