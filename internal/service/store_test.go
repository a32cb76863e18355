package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Kerhoff/MedTracker/internal/models"
	"github.com/Kerhoff/MedTracker/internal/repository"
)

var errWriteFailed = errors.New("write failed")

// flakyStore wraps a store, failing the failOn-th SetLastTaken made inside a
// transaction and counting read transactions.
type flakyStore struct {
	repository.Store
	failOn  int
	writes  int
	readTxs int
}

func (s *flakyStore) WithTx(ctx context.Context, fn func(repository.Repositories) error) error {
	return s.Store.WithTx(ctx, func(r repository.Repositories) error {
		return fn(flakyRepos{Repositories: r, store: s})
	})
}

func (s *flakyStore) WithReadTx(ctx context.Context, fn func(repository.Repositories) error) error {
	s.readTxs++
	return s.Store.WithReadTx(ctx, fn)
}

type flakyRepos struct {
	repository.Repositories
	store *flakyStore
}

func (r flakyRepos) Medications() repository.MedicationRepository {
	return flakyMedications{MedicationRepository: r.Repositories.Medications(), store: r.store}
}

type flakyMedications struct {
	repository.MedicationRepository
	store *flakyStore
}

func (m flakyMedications) SetLastTaken(ctx context.Context, accountID, name string, at *time.Time) error {
	m.store.writes++
	if m.store.writes == m.store.failOn {
		return errWriteFailed
	}
	return m.MedicationRepository.SetLastTaken(ctx, accountID, name, at)
}

func TestSetTimezone_FailedMigrationChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "U1", "aspirin", "iron")
	f.setZone(t, "U1", "America/New_York")

	ny := mustLoad(t, "America/New_York")
	takenAt := time.Date(2024, time.June, 1, 23, 50, 0, 0, ny)
	f.clock.Set(takenAt)
	if res, err := f.svc.Take(ctx, "U1", "aspirin", "iron"); err != nil || !res.IsTaken() {
		t.Fatalf("take: %+v (err=%v)", res, err)
	}

	flaky := &flakyStore{Store: f.store, failOn: 2}
	svc := New(flaky, f.svc.logger, WithClock(f.clock.Now))

	if _, _, err := svc.SetTimezone(ctx, "U1", "utc"); !errors.Is(err, errWriteFailed) {
		t.Fatalf("want write failure, got %v", err)
	}
	if flaky.writes != 2 {
		t.Fatalf("want the second medication write to fail, got %d writes", flaky.writes)
	}

	for _, name := range []string{"aspirin", "iron"} {
		m, err := f.store.Medications().Get(ctx, "U1", name)
		if err != nil || m == nil || m.LastTakenAt == nil {
			t.Fatalf("%s: want recorded take, got %+v (err=%v)", name, m, err)
		}
		if !m.LastTakenAt.Equal(takenAt) {
			t.Fatalf("%s: want last take %s unchanged, got %s", name, takenAt.UTC(), m.LastTakenAt.UTC())
		}
	}

	a, err := f.store.Accounts().Get(ctx, "U1")
	if err != nil || a == nil || a.Timezone != "America/New_York" {
		t.Fatalf("want account kept in America/New_York, got %+v (err=%v)", a, err)
	}
	f.check(t, "U1", "aspirin", models.OutcomeTaken)
}

func TestReads_UseOneTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "U1", "aspirin")

	flaky := &flakyStore{Store: f.store}
	svc := New(flaky, f.svc.logger, WithClock(f.clock.Now))

	if out, err := svc.IsTakenToday(ctx, "U1", "aspirin"); err != nil || out != models.OutcomeNotTakenToday {
		t.Fatalf("check: out=%s err=%v", out, err)
	}
	if names, err := svc.ListTakenToday(ctx, "U1"); err != nil || len(names) != 0 {
		t.Fatalf("list taken: %v (err=%v)", names, err)
	}
	if flaky.readTxs != 2 {
		t.Fatalf("want each read in its own read transaction, got %d", flaky.readTxs)
	}
}

func TestOperations_TrimNames(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.add(t, "U1", " aspirin ")

	res, err := f.svc.Take(ctx, "U1", " aspirin ", "aspirin", "aspirin  ")
	if err != nil || !res.IsTaken() {
		t.Fatalf("take: %+v (err=%v)", res, err)
	}
	if !reflect.DeepEqual(res.Medications, []string{"aspirin"}) {
		t.Fatalf("want the recorded names [aspirin], got %v", res.Medications)
	}

	f.check(t, "U1", " aspirin ", models.OutcomeTaken)
	f.check(t, "U1", "aspirin", models.OutcomeTaken)

	if names, _ := f.svc.ListMedications(ctx, "U1"); !reflect.DeepEqual(names, []string{"aspirin"}) {
		t.Fatalf("want [aspirin], got %v", names)
	}
	if out, err := f.svc.AddMedication(ctx, "U1", "aspirin "); err != nil || out != models.OutcomeAlreadyTracked {
		t.Fatalf("add again: out=%s err=%v", out, err)
	}
	if out, err := f.svc.Cancel(ctx, "U1", "  aspirin"); err != nil || out != models.OutcomeCancelled {
		t.Fatalf("cancel: out=%s err=%v", out, err)
	}
	if out, err := f.svc.RemoveMedication(ctx, "U1", "aspirin\t"); err != nil || out != models.OutcomeRemoved {
		t.Fatalf("remove: out=%s err=%v", out, err)
	}
	f.check(t, "U1", "aspirin", models.OutcomeNotTracked)
}
