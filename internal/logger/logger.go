package logger

import (
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Dev mode gets a colored console encoder at debug
// level; otherwise JSON at info.
func New(devMode bool) *zap.Logger {
	var (
		encoder zapcore.Encoder
		level   = zapcore.InfoLevel
	)
	if devMode {
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
		level = zapcore.DebugLevel
	} else {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	logger := zap.New(core, zap.AddCaller())

	zap.ReplaceGlobals(logger)
	log.SetOutput(zap.NewStdLog(logger).Writer())

	return logger
}

// MaskContact hides most of a phone number or email for logs:
// "+15551234567" -> "+1*******567", "bob@example.com" -> "b**@example.com".
func MaskContact(contact string) string {
	if contact == "" {
		return ""
	}
	if at := strings.IndexByte(contact, '@'); at > 0 {
		local, domain := contact[:at], contact[at:]
		return local[:1] + strings.Repeat("*", len(local)-1) + domain
	}
	if len(contact) <= 5 {
		return strings.Repeat("*", len(contact))
	}
	return contact[:2] + strings.Repeat("*", len(contact)-5) + contact[len(contact)-3:]
}

// Contact is a zap field carrying a masked contact
func Contact(key, contact string) zap.Field {
	return zap.String(key, MaskContact(contact))
}
