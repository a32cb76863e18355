package models

import (
	"testing"
	"time"
)

func TestAccount_InactiveFor(t *testing.T) {
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(48 * time.Hour)

	a := &Account{ID: "U1", CreatedAt: created}
	if got := a.InactiveFor(now); got != 48*time.Hour {
		t.Fatalf("never active: want 48h, got %s", got)
	}

	active := created.Add(47 * time.Hour)
	a.LastActiveAt = &active
	if got := a.InactiveFor(now); got != time.Hour {
		t.Fatalf("want 1h, got %s", got)
	}

	if got := a.InactiveFor(created); got != 0 {
		t.Fatalf("clock behind last activity: want 0, got %s", got)
	}
}

func TestAccount_HasTimezone(t *testing.T) {
	a := &Account{ID: "U1"}
	if a.HasTimezone() {
		t.Fatal("want no timezone")
	}
	a.Timezone = "Europe/Paris"
	if !a.HasTimezone() {
		t.Fatal("want timezone")
	}
}
