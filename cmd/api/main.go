package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Dan9191/bank-ledger/internal/cache"
	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/Dan9191/bank-ledger/internal/handler"
	"github.com/Dan9191/bank-ledger/internal/integrations/cbr"
	"github.com/Dan9191/bank-ledger/internal/notify"
	"github.com/Dan9191/bank-ledger/internal/repository"
	"github.com/Dan9191/bank-ledger/internal/scheduler"
	"github.com/Dan9191/bank-ledger/internal/service"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if err := repository.Migrate(cfg.DBConn); err != nil {
		return err
	}

	// Initialize layers
	opts := []service.Option{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, service.WithDenylist(cache.NewTokenDenylist(rdb)))
	} else {
		logger.Warn("REDIS_ADDR not set, logout will not revoke tokens")
	}
	if cfg.NotificationsEnabled() {
		opts = append(opts, service.WithNotifier(notify.NewSender(cfg, logger)))
	}

	cbrClient := cbr.NewCBRClient(cfg, logger)
	opts = append(opts, service.WithKeyRateSource(cbrClient))

	repo := repository.NewRepository(db)
	svc := service.NewService(repo, logger, cfg, opts...)
	h := handler.NewHandler(svc, cbrClient, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h.NewRouter(svc, cfg.LoginRateLimit),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	var interest *scheduler.InterestScheduler
	if cfg.InterestSchedule != "" {
		interest, err = scheduler.NewInterestScheduler(cfg.InterestSchedule, svc, logger)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if interest != nil {
		interest.Start()
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if interest != nil {
			interest.Stop(shutdownCtx)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := svc.WaitNotifications(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Pending notifications abandoned")
		}
		return nil
	})

	return g.Wait()
}
