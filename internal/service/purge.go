package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MedTracker/internal/repository"
)

// PurgeInactive deletes every account idle for at least threshold together
// with its medications. Each account is re-checked under its lock, so one
// that became active since the listing is kept. Failures on single accounts
// are collected and the sweep goes on.
func (s *Service) PurgeInactive(ctx context.Context, threshold time.Duration) (purged int, err error) {
	started := time.Now()
	defer func() { s.observe(opPurge, "ok", started, err) }()

	accounts, err := s.store.Accounts().List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list accounts: %w", err)
	}

	now := s.now()
	var result *multierror.Error
	for _, a := range accounts {
		if ctx.Err() != nil {
			result = multierror.Append(result, ctx.Err())
			break
		}
		if a.InactiveFor(now) < threshold {
			continue
		}

		deleted, err := s.purgeAccount(ctx, a.ID, threshold, now)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("account %s: %w", a.ID, err))
			continue
		}
		if deleted {
			purged++
		}
	}

	s.metrics.Purged(purged)
	return purged, result.ErrorOrNil()
}

func (s *Service) purgeAccount(ctx context.Context, accountID string, threshold time.Duration, now time.Time) (bool, error) {
	deleted := false
	err := s.mutate(ctx, accountID, func(r repository.Repositories) error {
		exists, err := r.Accounts().Lock(ctx, accountID)
		if err != nil || !exists {
			return err
		}

		account, err := r.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		if account == nil || account.InactiveFor(now) < threshold {
			return nil
		}

		if _, err := r.Medications().DeleteByAccount(ctx, accountID); err != nil {
			return err
		}
		deleted, err = r.Accounts().Delete(ctx, accountID)
		return err
	})
	return deleted, err
}

// StartPurgeScheduler runs the inactivity sweep once and then every interval.
// It blocks until the context is cancelled, so it should be launched in a
// separate goroutine.
func (s *Service) StartPurgeScheduler(ctx context.Context, interval, threshold time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.WithFields(logrus.Fields{
		"interval":  interval,
		"threshold": threshold,
	}).Info("Purge scheduler started")

	s.runPurge(ctx, threshold)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Purge scheduler stopped")
			return
		case <-ticker.C:
			s.runPurge(ctx, threshold)
		}
	}
}

func (s *Service) runPurge(ctx context.Context, threshold time.Duration) {
	log := s.logger.WithField("run_id", uuid.NewString())

	purged, err := s.PurgeInactive(ctx, threshold)
	if err != nil {
		log.WithError(err).Errorf("Purge finished with errors after deleting %d accounts", purged)
		return
	}
	log.Infof("Purged %d inactive accounts", purged)
}
