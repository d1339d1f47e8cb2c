package models

import (
	"fmt"
	"time"
)

// HaltReason explains why a run stopped issuing remote calls before the plan was exhausted
type HaltReason string

const (
	HaltNone          HaltReason = ""
	HaltQuota         HaltReason = "quota_exceeded"
	HaltQueryBudget   HaltReason = "query_budget_exhausted"
	HaltDeadline      HaltReason = "deadline"
	HaltStorageFailed HaltReason = "storage_failed"
)

// RunReport summarizes one ingestion run. It is built by the orchestrator and never persisted.
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	QueriesIssued      int `json:"queries_issued"`
	QueriesFailed      int `json:"queries_failed"`
	QueriesAborted     int `json:"queries_aborted"`
	CandidatesExamined int `json:"candidates_examined"`
	DuplicatesSkipped  int `json:"duplicates_skipped"`
	DetailsFetched     int `json:"details_fetched"`
	ExcludedShort      int `json:"excluded_short"`
	ExcludedRegion     int `json:"excluded_region"`
	Inserted           int `json:"newly_inserted"`
	Updated            int `json:"updated"`
	QuotaUnits         int `json:"quota_units"`

	Halted     bool       `json:"halted"`
	HaltReason HaltReason `json:"halt_reason,omitempty"`

	// InsertedIDs lists new records in insertion order
	InsertedIDs []string `json:"inserted_ids,omitempty"`
}

// Duration is the wall-clock time the run took
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// GetSummary implements the scheduler.Metrics interface
func (r RunReport) GetSummary() string {
	s := fmt.Sprintf("%d queries, examined %d videos, %d new, %d updated, excluded %d short and %d region, %d quota units",
		r.QueriesIssued, r.CandidatesExamined, r.Inserted, r.Updated, r.ExcludedShort, r.ExcludedRegion, r.QuotaUnits)
	if r.Halted {
		s += fmt.Sprintf(" (halted: %s, %d queries aborted)", r.HaltReason, r.QueriesAborted)
	}
	return s
}
