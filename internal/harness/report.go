package harness

import (
	"encoding/json"

	"github.com/roach88/odyn/internal/feed"
	"github.com/roach88/odyn/internal/runner"
)

// Report is the outcome of a scenario run.
type Report struct {
	Scenario string         `json:"scenario"`
	Steps    []StepReport   `json:"steps"`
	Journal  []JournalEntry `json:"journal"`
	Errors   []string       `json:"errors,omitempty"`
}

// StepReport is what one step observed.
type StepReport struct {
	Name       string              `json:"name"`
	Request    string              `json:"request"`
	State      string              `json:"state,omitempty"`
	Outcome    string              `json:"outcome,omitempty"`
	Status     int                 `json:"status,omitempty"`
	Suppressed bool                `json:"suppressed,omitempty"`
	TotalCount *int64              `json:"total_count,omitempty"`
	OK         *bool               `json:"ok,omitempty"`
	Error      string              `json:"error,omitempty"`
	Records    []*feed.PropertyMap `json:"records,omitempty"`
}

// JournalEntry is the deterministic part of a journal row.
type JournalEntry struct {
	Seq       int64  `json:"seq"`
	ID        string `json:"id"`
	Operation string `json:"operation"`
	Method    string `json:"method"`
	State     string `json:"state"`
	Outcome   string `json:"outcome,omitempty"`
	Status    int    `json:"status,omitempty"`
	Records   int    `json:"records,omitempty"`
}

// NewReport creates an empty report for the named scenario.
func NewReport(name string) *Report {
	return &Report{
		Scenario: name,
		Steps:    []StepReport{},
		Journal:  []JournalEntry{},
	}
}

// AddError records a failure.
func (r *Report) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Pass reports whether the scenario met every expectation.
func (r *Report) Pass() bool {
	return len(r.Errors) == 0
}

// Snapshot renders the report as indented JSON for golden comparison.
func (r *Report) Snapshot() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (s *StepReport) fromResult(state runner.State, outcome runner.Outcome, status int, suppressed bool) {
	s.State = state.String()
	s.Outcome = outcome.String()
	s.Status = status
	s.Suppressed = suppressed
}
