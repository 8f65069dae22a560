// Package report aggregates command outcomes into a test report,
// serializes it as JUnit XML, and keeps finished runs for later
// inspection.
package report

import (
	"fmt"
	"time"
)

// Store persists and retrieves finished runs.
type Store interface {
	Save(run *Run) error
	Load(runID string) (*Run, error)
}

// Run is the stored form of a finalized Report.
type Run struct {
	ID       string    `json:"id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Total    int       `json:"total"`
	Failed   int       `json:"failed"`
	Entries  []Entry   `json:"entries"`
}

// Entry returns the entry at index, as numbered in the run's input.
func (r *Run) Entry(index int) (Entry, error) {
	if index < 0 || index >= len(r.Entries) {
		return Entry{}, fmt.Errorf("run %s has no command %d (have %d)", r.ID, index, len(r.Entries))
	}
	return r.Entries[index], nil
}

// Failures returns the failed entries in input order.
func (r *Run) Failures() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if !e.Outcome.Passed() {
			out = append(out, e)
		}
	}
	return out
}
