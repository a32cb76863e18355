package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/MedTracker/internal/api"
	"github.com/Kerhoff/MedTracker/internal/config"
	"github.com/Kerhoff/MedTracker/internal/handlers"
	"github.com/Kerhoff/MedTracker/internal/lock"
	"github.com/Kerhoff/MedTracker/internal/metrics"
	"github.com/Kerhoff/MedTracker/internal/repository/sqlrepo"
	"github.com/Kerhoff/MedTracker/internal/service"
	"github.com/Kerhoff/MedTracker/internal/telegram"
	"github.com/Kerhoff/MedTracker/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting MedTracker...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.Errorf("MedTracker stopped with error: %v", err)
		os.Exit(1)
	}

	l.Info("MedTracker stopped")
}

func run(ctx context.Context, cfg *config.Config, l *logrus.Logger) error {
	// Database
	db, err := config.NewDatabase(ctx, cfg.Database.Driver, cfg.Database.URL, l)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Per-account locking
	locker, closeLocker, err := newLocker(ctx, cfg.Lock, l)
	if err != nil {
		return err
	}
	defer closeLocker()

	m := metrics.New()

	opts := []service.Option{
		service.WithLocker(locker),
		service.WithMetrics(m),
	}
	if cfg.SeedDefaultMedications {
		opts = append(opts, service.WithDefaultMedications(cfg.DefaultMedications))
	}
	svc := service.New(sqlrepo.NewStore(db.DB, l), l, opts...)

	// HTTP API
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewServer(svc, m.Handler(), l).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	// Telegram bot
	if cfg.BotEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken, newRouter(svc, l), l)
		if err != nil {
			return fmt.Errorf("failed to create Telegram bot: %w", err)
		}
		g.Go(func() error {
			return bot.Start(gCtx)
		})
	} else {
		l.Info("TELEGRAM_TOKEN not set, Telegram bot disabled")
	}

	// Inactive account purge
	if cfg.Purge.Enabled {
		g.Go(func() error {
			svc.StartPurgeScheduler(gCtx, cfg.Purge.Interval, cfg.Purge.InactiveAfter)
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		l.Info("Received shutdown signal...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			l.Errorf("Failed to shut down HTTP server: %v", err)
		}
		return nil
	})

	l.Info("MedTracker started successfully")

	return g.Wait()
}

func newLocker(ctx context.Context, cfg config.LockConfig, l *logrus.Logger) (lock.Locker, func(), error) {
	if cfg.Backend != config.LockBackendRedis {
		return lock.NewLocal(), func() {}, nil
	}

	client, err := lock.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	l.Infof("Using redis account locks at %s", cfg.RedisAddr)

	closeFn := func() {
		if err := client.Close(); err != nil {
			l.Errorf("Failed to close redis client: %v", err)
		}
	}
	return lock.NewRedis(client, cfg.TTL, l), closeFn, nil
}

func newRouter(svc *service.Service, l *logrus.Logger) *telegram.Router {
	router := telegram.NewRouter(svc, l)

	router.RegisterCommand("start", handlers.NewStartHandler(l))
	router.RegisterCommand("help", handlers.NewHelpHandler())

	// Medication list
	router.RegisterCommand("add", handlers.NewAddHandler(svc, l))
	router.RegisterCommand("remove", handlers.NewRemoveHandler(svc, l))
	router.RegisterCommand("meds", handlers.NewListHandler(svc, l))

	// Adherence
	router.RegisterCommand("take", handlers.NewTakeHandler(svc, l))
	router.RegisterCommand("cancel", handlers.NewCancelHandler(svc, l))
	router.RegisterCommand("check", handlers.NewCheckHandler(svc, l))
	router.RegisterCommand("taken", handlers.NewTakenHandler(svc, l))

	router.RegisterCommand("timezone", handlers.NewTimezoneHandler(svc, l))

	return router
}
