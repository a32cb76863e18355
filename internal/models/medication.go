package models

import "time"

// Medication is one named thing-to-take tracked for an account
type Medication struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	// LastTakenAt is nil when the medication has never been taken or the last take was cancelled.
	LastTakenAt *time.Time `json:"last_taken_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// TakenOn returns true if the last take falls on the same calendar date as now,
// both dates read in loc.
func (m *Medication) TakenOn(now time.Time, loc *time.Location) bool {
	if m.LastTakenAt == nil {
		return false
	}
	return SameDay(*m.LastTakenAt, now, loc)
}

// SameDay reports whether a and b fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// Rezone re-expresses the wall clock that t shows in from as the same wall
// clock in to. When that wall clock does not exist in to and the normalized
// result lands on another date, noon of the original date is used so the
// calendar date is always kept.
func Rezone(t time.Time, from, to *time.Location) time.Time {
	local := t.In(from)
	y, mo, d := local.Date()

	out := time.Date(y, mo, d, local.Hour(), local.Minute(), local.Second(), 0, to)
	if oy, om, od := out.Date(); oy != y || om != mo || od != d {
		out = time.Date(y, mo, d, 12, 0, 0, 0, to)
	}
	return out
}
