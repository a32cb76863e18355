package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MedTracker/internal/lock"
	"github.com/Kerhoff/MedTracker/internal/metrics"
	"github.com/Kerhoff/MedTracker/internal/models"
	"github.com/Kerhoff/MedTracker/internal/repository"
	"github.com/Kerhoff/MedTracker/internal/timezone"
	"github.com/Kerhoff/MedTracker/pkg/logger"
)

// MaxBatch is the largest number of medications one take may record.
const MaxBatch = 3

var (
	// ErrInvalidBatch is returned when a take names no medication, an empty
	// name, or more than MaxBatch distinct medications.
	ErrInvalidBatch = errors.New("take needs between 1 and 3 medication names")
	// ErrInvalidName is returned when a medication name is empty.
	ErrInvalidName = errors.New("medication name is empty")
)

// Operation names used in logs and metrics.
const (
	opFirstContact = "first_contact"
	opTake         = "take"
	opCheck        = "check"
	opCancel       = "cancel"
	opAdd          = "add"
	opRemove       = "remove"
	opListTaken    = "list_taken"
	opList         = "list"
	opSetTimezone  = "set_timezone"
	opPurge        = "purge"
)

// Service is the adherence engine. Every mutating call runs under the
// account's lock inside a single transaction.
type Service struct {
	store    repository.Store
	logger   *logrus.Logger
	now      func() time.Time
	locker   lock.Locker
	metrics  *metrics.Metrics
	zones    *timezone.Resolver
	defaults []string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocker sets the per-account locker. The default is an in-process lock.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithResolver replaces the shared timezone resolver.
func WithResolver(r *timezone.Resolver) Option {
	return func(s *Service) { s.zones = r }
}

// WithDefaultMedications makes first contact create these medications for new accounts.
func WithDefaultMedications(names []string) Option {
	return func(s *Service) { s.defaults = names }
}

// New creates a new Service with all required dependencies.
func New(store repository.Store, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		locker: lock.NewLocal(),
		zones:  timezone.Shared(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver returns the timezone resolver the service uses.
func (s *Service) Resolver() *timezone.Resolver {
	return s.zones
}

// FirstContact creates the account if it does not exist, seeding the default
// medications, and reports whether it was created. For an existing account it
// records the activity instead.
func (s *Service) FirstContact(ctx context.Context, accountID string) (isNew bool, err error) {
	started := time.Now()
	defer func() { s.observe(opFirstContact, outcomeLabel(isNew, "new", "existing"), started, err) }()

	now := s.now()
	err = s.mutate(ctx, accountID, func(r repository.Repositories) error {
		created, err := r.Accounts().CreateIfAbsent(ctx, &models.Account{ID: accountID, CreatedAt: now})
		if err != nil {
			return err
		}
		if !created {
			return r.Accounts().Touch(ctx, accountID, now)
		}

		isNew = true
		for _, name := range s.defaults {
			if _, err := r.Medications().Create(ctx, &models.Medication{AccountID: accountID, Name: name, CreatedAt: now}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to record first contact for %s: %w", accountID, err)
	}

	if isNew {
		logger.WithAccount(s.logger, accountID).Info("Created new account")
	}
	return isNew, nil
}

// Take records now as the last take of every named medication. If any name is
// not tracked nothing is recorded and the result lists the missing names.
func (s *Service) Take(ctx context.Context, accountID string, names ...string) (res models.TakeResult, err error) {
	started := time.Now()
	defer func() { s.observe(opTake, string(res.Outcome), started, err) }()

	names, err = batch(names)
	if err != nil {
		return models.TakeResult{}, err
	}

	now := s.now()
	err = s.mutate(ctx, accountID, func(r repository.Repositories) error {
		if _, err := r.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}

		var missing []string
		for _, name := range names {
			m, err := r.Medications().Get(ctx, accountID, name)
			if err != nil {
				return err
			}
			if m == nil {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			res = models.TakeResult{Outcome: models.OutcomeNotTracked, Medications: names, Missing: missing}
			return nil
		}

		for _, name := range names {
			if err := r.Medications().SetLastTaken(ctx, accountID, name, &now); err != nil {
				return err
			}
		}
		res = models.TakeResult{Outcome: models.OutcomeTaken, Medications: names}
		return nil
	})
	if err != nil {
		return models.TakeResult{}, fmt.Errorf("failed to take %s for %s: %w", strings.Join(names, ", "), accountID, err)
	}

	logger.WithAccount(s.logger, accountID).WithFields(logrus.Fields{
		"medications": names,
		"outcome":     res.Outcome,
	}).Debug("Take processed")
	return res, nil
}

// IsTakenToday reports Taken when the medication's last take falls on today's
// date in the account's current timezone.
func (s *Service) IsTakenToday(ctx context.Context, accountID, name string) (out models.Outcome, err error) {
	started := time.Now()
	defer func() { s.observe(opCheck, string(out), started, err) }()

	name = medicationName(name)
	now := s.now()
	err = s.store.WithReadTx(ctx, func(r repository.Repositories) error {
		m, err := r.Medications().Get(ctx, accountID, name)
		if err != nil {
			return err
		}
		if m == nil {
			out = models.OutcomeNotTracked
			return nil
		}

		account, err := r.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		if m.TakenOn(now, s.location(account)) {
			out = models.OutcomeTaken
		} else {
			out = models.OutcomeNotTakenToday
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to check %s for %s: %w", name, accountID, err)
	}
	return out, nil
}

// Cancel forgets today's take of the medication.
func (s *Service) Cancel(ctx context.Context, accountID, name string) (out models.Outcome, err error) {
	started := time.Now()
	defer func() { s.observe(opCancel, string(out), started, err) }()

	name = medicationName(name)
	now := s.now()
	err = s.mutate(ctx, accountID, func(r repository.Repositories) error {
		if _, err := r.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}

		m, err := r.Medications().Get(ctx, accountID, name)
		if err != nil {
			return err
		}
		if m == nil {
			out = models.OutcomeNotTracked
			return nil
		}

		account, err := r.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		if !m.TakenOn(now, s.location(account)) {
			out = models.OutcomeNotTakenAnyway
			return nil
		}

		if err := r.Medications().SetLastTaken(ctx, accountID, name, nil); err != nil {
			return err
		}
		out = models.OutcomeCancelled
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to cancel %s for %s: %w", name, accountID, err)
	}

	s.logOutcome(accountID, name, out)
	return out, nil
}

// AddMedication starts tracking a medication that was never taken.
func (s *Service) AddMedication(ctx context.Context, accountID, name string) (out models.Outcome, err error) {
	started := time.Now()
	defer func() { s.observe(opAdd, string(out), started, err) }()

	name = medicationName(name)
	if name == "" {
		return "", ErrInvalidName
	}

	now := s.now()
	err = s.mutate(ctx, accountID, func(r repository.Repositories) error {
		if _, err := r.Accounts().CreateIfAbsent(ctx, &models.Account{ID: accountID, CreatedAt: now}); err != nil {
			return err
		}

		created, err := r.Medications().Create(ctx, &models.Medication{AccountID: accountID, Name: name, CreatedAt: now})
		if err != nil {
			return err
		}
		if created {
			out = models.OutcomeAdded
		} else {
			out = models.OutcomeAlreadyTracked
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to add %s for %s: %w", name, accountID, err)
	}

	s.logOutcome(accountID, name, out)
	return out, nil
}

// RemoveMedication stops tracking a medication.
func (s *Service) RemoveMedication(ctx context.Context, accountID, name string) (out models.Outcome, err error) {
	started := time.Now()
	defer func() { s.observe(opRemove, string(out), started, err) }()

	name = medicationName(name)
	err = s.mutate(ctx, accountID, func(r repository.Repositories) error {
		if _, err := r.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}

		deleted, err := r.Medications().Delete(ctx, accountID, name)
		if err != nil {
			return err
		}
		if deleted {
			out = models.OutcomeRemoved
		} else {
			out = models.OutcomeNotTracked
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to remove %s for %s: %w", name, accountID, err)
	}

	s.logOutcome(accountID, name, out)
	return out, nil
}

// ListTakenToday returns the names taken today, in enumeration order.
func (s *Service) ListTakenToday(ctx context.Context, accountID string) (names []string, err error) {
	started := time.Now()
	defer func() { s.observe(opListTaken, "ok", started, err) }()

	now := s.now()
	names = []string{}
	err = s.store.WithReadTx(ctx, func(r repository.Repositories) error {
		account, err := r.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		meds, err := r.Medications().ListByAccount(ctx, accountID)
		if err != nil {
			return err
		}

		loc := s.location(account)
		for _, m := range meds {
			if m.TakenOn(now, loc) {
				names = append(names, m.Name)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list taken medications for %s: %w", accountID, err)
	}
	return names, nil
}

// ListMedications returns every tracked name, in enumeration order.
func (s *Service) ListMedications(ctx context.Context, accountID string) (names []string, err error) {
	started := time.Now()
	defer func() { s.observe(opList, "ok", started, err) }()

	meds, err := s.store.Medications().ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications for %s: %w", accountID, err)
	}

	names = make([]string, 0, len(meds))
	for _, m := range meds {
		names = append(names, m.Name)
	}
	return names, nil
}

// SetTimezone resolves raw and makes it the account's timezone. Recorded takes
// are moved so that they keep the wall clock they showed in the old zone, in
// the same transaction as the zone change. It returns the canonical zone on
// success.
func (s *Service) SetTimezone(ctx context.Context, accountID, raw string) (out models.Outcome, zone string, err error) {
	started := time.Now()
	defer func() { s.observe(opSetTimezone, string(out), started, err) }()

	zone, ok := s.zones.Resolve(raw)
	if !ok {
		return models.OutcomeInvalidZone, "", nil
	}
	to, err := s.zones.Location(zone)
	if err != nil {
		return "", "", fmt.Errorf("failed to load zone %s: %w", zone, err)
	}

	now := s.now()
	moved := 0
	err = s.mutate(ctx, accountID, func(r repository.Repositories) error {
		if _, err := r.Accounts().CreateIfAbsent(ctx, &models.Account{ID: accountID, CreatedAt: now}); err != nil {
			return err
		}
		if _, err := r.Accounts().Lock(ctx, accountID); err != nil {
			return err
		}

		account, err := r.Accounts().Get(ctx, accountID)
		if err != nil {
			return err
		}
		from := s.location(account)

		if from.String() != to.String() {
			meds, err := r.Medications().ListByAccount(ctx, accountID)
			if err != nil {
				return err
			}
			for _, m := range meds {
				if m.LastTakenAt == nil {
					continue
				}
				at := models.Rezone(*m.LastTakenAt, from, to)
				if err := r.Medications().SetLastTaken(ctx, accountID, m.Name, &at); err != nil {
					return err
				}
				moved++
			}
		}

		return r.Accounts().SetTimezone(ctx, accountID, zone)
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to set timezone for %s: %w", accountID, err)
	}

	logger.WithAccount(s.logger, accountID).WithFields(logrus.Fields{
		"timezone": zone,
		"moved":    moved,
	}).Info("Timezone updated")
	return models.OutcomeUpdated, zone, nil
}

// mutate runs fn in a transaction while holding the account's lock.
func (s *Service) mutate(ctx context.Context, accountID string, fn func(repository.Repositories) error) error {
	unlock, err := s.locker.Lock(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to lock account: %w", err)
	}
	defer unlock()

	return s.store.WithTx(ctx, fn)
}

// location returns the account's zone, or the default when it has none or
// the stored name can no longer be loaded.
func (s *Service) location(account *models.Account) *time.Location {
	name := timezone.Default
	if account != nil && account.HasTimezone() {
		name = account.Timezone
	}

	loc, err := s.zones.Location(name)
	if err != nil {
		s.logger.WithError(err).WithField("timezone", name).Warn("Unknown stored timezone, using default")
		return time.UTC
	}
	return loc
}

func (s *Service) observe(op, outcome string, started time.Time, err error) {
	if err != nil {
		outcome = "error"
	}
	s.metrics.Observe(op, outcome, started)
}

func (s *Service) logOutcome(accountID, name string, out models.Outcome) {
	logger.WithAccount(s.logger, accountID).WithFields(logrus.Fields{
		"medication": name,
		"outcome":    out,
	}).Debug("Medication updated")
}

func outcomeLabel(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// batch trims the names, drops repeats and checks the batch size.
func batch(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = medicationName(name)
		if name == "" {
			return nil, ErrInvalidBatch
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}

	if len(out) == 0 || len(out) > MaxBatch {
		return nil, ErrInvalidBatch
	}
	return out, nil
}

// medicationName is the stored form of a medication name. Every operation
// looks names up through it.
func medicationName(name string) string {
	return strings.TrimSpace(name)
}
