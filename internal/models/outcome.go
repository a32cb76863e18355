package models

// Outcome is the result of an adherence operation. Every value is an expected
// steady-state condition, so outcomes are returned as values rather than errors.
type Outcome string

const (
	OutcomeTaken          Outcome = "taken"
	OutcomeNotTakenToday  Outcome = "not_taken_today"
	OutcomeNotTracked     Outcome = "not_tracked"
	OutcomeAlreadyTracked Outcome = "already_tracked"
	OutcomeAdded          Outcome = "added"
	OutcomeRemoved        Outcome = "removed"
	OutcomeCancelled      Outcome = "cancelled"
	OutcomeNotTakenAnyway Outcome = "not_taken_anyway"
	OutcomeUpdated        Outcome = "updated"
	OutcomeInvalidZone    Outcome = "invalid_zone"
)

// String implements fmt.Stringer
func (o Outcome) String() string {
	return string(o)
}

// TakeResult is the outcome of a batch take
type TakeResult struct {
	Outcome Outcome `json:"result"`
	// Medications are the names the take was asked for, trimmed and without repeats.
	Medications []string `json:"medications,omitempty"`
	// Missing lists the names that are not tracked, in request order.
	Missing []string `json:"missing,omitempty"`
}

// IsTaken returns true if every medication in the batch was recorded
func (r TakeResult) IsTaken() bool {
	return r.Outcome == OutcomeTaken
}
