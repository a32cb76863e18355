// Command purge deletes accounts that have been inactive longer than
// PURGE_INACTIVE_AFTER and exits. It is meant for cron-style deployments that
// run the service with PURGE_ENABLED=false.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kerhoff/MedTracker/internal/config"
	"github.com/Kerhoff/MedTracker/internal/lock"
	"github.com/Kerhoff/MedTracker/internal/repository/sqlrepo"
	"github.com/Kerhoff/MedTracker/internal/service"
	"github.com/Kerhoff/MedTracker/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.NewDatabase(ctx, cfg.Database.Driver, cfg.Database.URL, l)
	if err != nil {
		l.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		l.Fatalf("Failed to run migrations: %v", err)
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Lock.Backend == config.LockBackendRedis {
		client, err := lock.Dial(ctx, cfg.Lock.RedisAddr, cfg.Lock.RedisPassword, cfg.Lock.RedisDB)
		if err != nil {
			l.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		locker = lock.NewRedis(client, cfg.Lock.TTL, l)
	}

	svc := service.New(sqlrepo.NewStore(db.DB, l), l, service.WithLocker(locker))

	purged, err := svc.PurgeInactive(ctx, cfg.Purge.InactiveAfter)
	if err != nil {
		l.WithError(err).Errorf("Purge finished with errors after deleting %d accounts", purged)
		os.Exit(1)
	}
	l.Infof("Purged %d inactive accounts", purged)
}
