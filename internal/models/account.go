package models

import "time"

// Account is a user's medication-tracking profile
type Account struct {
	ID string `json:"account_id"`
	// Timezone is a canonical IANA zone name, empty until the user declares one.
	Timezone     string     `json:"timezone,omitempty"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HasTimezone returns true if the user has declared a timezone
func (a *Account) HasTimezone() bool {
	return a.Timezone != ""
}

// InactiveFor returns how long the account has been idle at now. An account
// that was never active counts from its creation.
func (a *Account) InactiveFor(now time.Time) time.Duration {
	since := a.CreatedAt
	if a.LastActiveAt != nil {
		since = *a.LastActiveAt
	}
	if d := now.Sub(since); d > 0 {
		return d
	}
	return 0
}
