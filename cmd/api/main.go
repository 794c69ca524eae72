package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lockerhub/server/internal/auth"
	"github.com/lockerhub/server/internal/config"
	"github.com/lockerhub/server/internal/db"
	apihttp "github.com/lockerhub/server/internal/http"
	"github.com/lockerhub/server/internal/lifecycle"
	"github.com/lockerhub/server/internal/logger"
	"github.com/lockerhub/server/internal/notify"
	"github.com/lockerhub/server/internal/otp"
	"github.com/lockerhub/server/internal/repo"
)

func main() {
	mintSubject := flag.String("mint-token", "", "print an access token for the given subject and exit")
	mintRole := flag.String("role", string(auth.RoleAdmin), "role of the minted token: admin or user")
	flag.Parse()

	// Load .env from CWD or server/ so it works from repo root or server/ (env vars override)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("server/.env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.DevMode)
	defer func() { _ = log.Sync() }()

	if *mintSubject != "" {
		role := auth.Role(*mintRole)
		if role != auth.RoleAdmin && role != auth.RoleUser {
			log.Fatal("unknown role", zap.String("role", *mintRole))
		}
		token, err := auth.NewJWTService(cfg.JWTSecret).SignToken(*mintSubject, role, 12*time.Hour)
		if err != nil {
			log.Fatal("mint token", zap.Error(err))
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
	log.Info("server exited")
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultPool, log)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(pool, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	var sink notify.Sink
	if cfg.KafkaEnabled() {
		sink = notify.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("notifications published to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	} else {
		sink = notify.NewLogSink(log, cfg.DevMode)
		log.Info("notifications written to log")
	}

	dispatcher := notify.NewDispatcher(sink, notify.Config{
		Workers:        cfg.NotifyWorkers,
		QueueSize:      cfg.NotifyQueueSize,
		MaxAttempts:    cfg.NotifyMaxAttempts,
		RetryBackoff:   notify.DefaultConfig.RetryBackoff,
		DeliverTimeout: notify.DefaultConfig.DeliverTimeout,
	}, log)
	dispatcher.Start()

	svc := lifecycle.NewService(
		repo.NewPostgresStore(db.NewDatabase(pool)),
		dispatcher,
		otp.NewGenerator(otp.DefaultParams, cfg.OTPTTL),
		log,
		lifecycle.Options{RatePerHour: cfg.RatePerHour, Timeout: cfg.DBTimeout},
	)

	limiter := apihttp.NewOtpLimiter()
	defer limiter.Close()
	lockerLimiter := apihttp.NewLockerLimiter()
	defer lockerLimiter.Close()

	router := apihttp.NewRouter(apihttp.Deps{
		Service:       svc,
		JWT:           auth.NewJWTService(cfg.JWTSecret),
		DB:            pool,
		Logger:        log,
		OtpLimiter:    limiter,
		LockerLimiter: lockerLimiter,
		TrustProxy:    cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		httpErr := srv.Shutdown(shutdownCtx)
		notifyErr := dispatcher.Shutdown(shutdownCtx)
		return errors.Join(httpErr, notifyErr, sink.Close())
	})
	return g.Wait()
}
