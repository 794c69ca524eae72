package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lockerhub/server/internal/billing"
	"github.com/lockerhub/server/internal/model"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string
	DevMode     bool
	// TrustProxy takes client addresses from forwarding headers
	TrustProxy bool

	RatePerHour model.Money
	DBTimeout   time.Duration
	OTPTTL      time.Duration

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	NotifyWorkers     int
	NotifyQueueSize   int
	NotifyMaxAttempts int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              "8080",
		RatePerHour:       model.Units(50),
		DBTimeout:         5 * time.Second,
		OTPTTL:            5 * time.Minute,
		KafkaTopic:        "locker.notifications",
		KafkaGroupID:      "locker-notifier",
		NotifyWorkers:     2,
		NotifyQueueSize:   256,
		NotifyMaxAttempts: 3,
	}

	// Load DATABASE_URL (required)
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	// Load JWT_SECRET (required)
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg.DevMode = os.Getenv("DEV_MODE") == "true"
	cfg.TrustProxy = os.Getenv("TRUST_PROXY") == "true"

	if v := os.Getenv("RATE_PER_HOUR"); v != "" {
		rate, err := model.ParseMoney(v)
		if err != nil || !billing.ValidRate(rate) {
			return nil, fmt.Errorf("RATE_PER_HOUR must be between 0.01 and %s, got %q", billing.MaxRatePerHour, v)
		}
		cfg.RatePerHour = rate
	}

	var err error
	if cfg.DBTimeout, err = durationEnv("DB_TIMEOUT", cfg.DBTimeout); err != nil {
		return nil, err
	}
	if cfg.OTPTTL, err = durationEnv("OTP_TTL", cfg.OTPTTL); err != nil {
		return nil, err
	}

	cfg.loadKafka()

	if cfg.NotifyWorkers, err = intEnv("NOTIFY_WORKERS", cfg.NotifyWorkers); err != nil {
		return nil, err
	}
	if cfg.NotifyQueueSize, err = intEnv("NOTIFY_QUEUE_SIZE", cfg.NotifyQueueSize); err != nil {
		return nil, err
	}
	if cfg.NotifyMaxAttempts, err = intEnv("NOTIFY_MAX_ATTEMPTS", cfg.NotifyMaxAttempts); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadNotifier reads the subset of configuration used by the notification consumer.
// Brokers are required there.
func LoadNotifier() (*Config, error) {
	cfg := &Config{
		KafkaTopic:   "locker.notifications",
		KafkaGroupID: "locker-notifier",
	}
	cfg.DevMode = os.Getenv("DEV_MODE") == "true"
	cfg.loadKafka()
	if !cfg.KafkaEnabled() {
		return nil, fmt.Errorf("KAFKA_BROKERS environment variable is required")
	}
	return cfg, nil
}

// loadKafka reads the optional broker settings shared by the API and the notifier
func (c *Config) loadKafka() {
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.KafkaBrokers = append(c.KafkaBrokers, b)
			}
		}
	}
	if topic := os.Getenv("KAFKA_TOPIC"); topic != "" {
		c.KafkaTopic = topic
	}
	if group := os.Getenv("KAFKA_GROUP_ID"); group != "" {
		c.KafkaGroupID = group
	}
}

// KafkaEnabled reports whether notifications go to Kafka rather than the log
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}
