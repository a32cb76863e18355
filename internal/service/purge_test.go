package service

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sixMonths = 4380 * time.Hour

func TestPurgeInactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := f.clock.Now()

	// idle: created and never seen again.
	if _, err := f.svc.FirstContact(ctx, "idle"); err != nil {
		t.Fatalf("contact: %v", err)
	}
	f.add(t, "idle", "aspirin")

	// lapsed: active once, long ago.
	if _, err := f.svc.FirstContact(ctx, "lapsed"); err != nil {
		t.Fatalf("contact: %v", err)
	}
	f.clock.Advance(time.Hour)
	if _, err := f.svc.FirstContact(ctx, "lapsed"); err != nil {
		t.Fatalf("contact: %v", err)
	}

	// regular: created long ago, active recently.
	if _, err := f.svc.FirstContact(ctx, "regular"); err != nil {
		t.Fatalf("contact: %v", err)
	}
	f.add(t, "regular", "iron")
	f.clock.Set(start.Add(sixMonths))
	if _, err := f.svc.FirstContact(ctx, "regular"); err != nil {
		t.Fatalf("contact: %v", err)
	}

	// fresh: created just now, never active.
	if _, err := f.svc.FirstContact(ctx, "fresh"); err != nil {
		t.Fatalf("contact: %v", err)
	}

	f.clock.Set(start.Add(sixMonths + 2*time.Hour))
	purged, err := f.svc.PurgeInactive(ctx, sixMonths)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 2 {
		t.Fatalf("want 2 purged, got %d", purged)
	}

	accounts, _ := f.store.Accounts().List(ctx)
	var ids []string
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	if strings.Join(ids, ",") != "fresh,regular" {
		t.Fatalf("want fresh,regular left, got %v", ids)
	}

	if m, _ := f.store.Medications().Get(ctx, "idle", "aspirin"); m != nil {
		t.Fatal("purged account's medications must be gone")
	}
	if m, _ := f.store.Medications().Get(ctx, "regular", "iron"); m == nil {
		t.Fatal("active account's medications must stay")
	}

	rec := httptest.NewRecorder()
	f.metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "medtracker_purged_accounts_total 2") {
		t.Fatal("want purge counter at 2")
	}
}

func TestPurgeInactive_PurgedAccountStartsOver(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.FirstContact(ctx, "U1"); err != nil {
		t.Fatalf("contact: %v", err)
	}
	f.clock.Advance(sixMonths)
	if _, err := f.svc.PurgeInactive(ctx, sixMonths); err != nil {
		t.Fatalf("purge: %v", err)
	}

	isNew, err := f.svc.FirstContact(ctx, "U1")
	if err != nil || !isNew {
		t.Fatalf("want first contact again, got isNew=%v err=%v", isNew, err)
	}
}

func TestPurgeAccount_SkipsReactivated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	start := f.clock.Now()

	if _, err := f.svc.FirstContact(ctx, "U1"); err != nil {
		t.Fatalf("contact: %v", err)
	}

	// The sweep listed U1 as idle, then U1 came back before its turn.
	f.clock.Set(start.Add(sixMonths + time.Hour))
	if _, err := f.svc.FirstContact(ctx, "U1"); err != nil {
		t.Fatalf("contact: %v", err)
	}

	deleted, err := f.svc.purgeAccount(ctx, "U1", sixMonths, f.clock.Now())
	if err != nil || deleted {
		t.Fatalf("want kept, got deleted=%v err=%v", deleted, err)
	}

	deleted, err = f.svc.purgeAccount(ctx, "gone", sixMonths, f.clock.Now())
	if err != nil || deleted {
		t.Fatalf("missing account: deleted=%v err=%v", deleted, err)
	}
}

func TestPurgeInactive_CollectsErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("lock backend down")
	f := newFixture(t)

	for _, id := range []string{"A", "B"} {
		if _, err := f.svc.FirstContact(ctx, id); err != nil {
			t.Fatalf("contact: %v", err)
		}
	}
	f.clock.Advance(sixMonths)

	f.svc.locker = failingLocker{err: boom}
	purged, err := f.svc.PurgeInactive(ctx, sixMonths)
	if purged != 0 {
		t.Fatalf("want nothing purged, got %d", purged)
	}
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "account A") || !strings.Contains(err.Error(), "account B") {
		t.Fatalf("want both failures reported, got %v", err)
	}
}

func TestStartPurgeScheduler_RunsAndStops(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := f.svc.FirstContact(ctx, "U1"); err != nil {
		t.Fatalf("contact: %v", err)
	}
	f.clock.Advance(sixMonths)

	done := make(chan struct{})
	go func() {
		f.svc.StartPurgeScheduler(ctx, time.Hour, sixMonths)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		a, err := f.store.Accounts().Get(context.Background(), "U1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if a == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial sweep did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
