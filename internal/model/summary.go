package model

import (
	"sort"
	"time"
)

// RunSummary counts what a batch run produced and dropped.
// Nothing in a run is fatal, so this is the only record of degradation.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	DocumentsRead    int `json:"documents_read"`
	DocumentsSkipped int `json:"documents_skipped"`
	RecordsSegmented int `json:"records_segmented"`
	RecordsCapped    int `json:"records_capped,omitempty"` // Dropped by the per-document cap

	UnitsAttempted int `json:"units_attempted"`
	UnitsFailed    int `json:"units_failed"`
	Attempts       int `json:"attempts"` // Outbound requests across all units

	TriplesAccepted int            `json:"triples_accepted"`
	TriplesRejected int            `json:"triples_rejected"`
	RejectReasons   map[string]int `json:"reject_reasons,omitempty"`

	DialoguesGenerated int `json:"dialogues_generated"`
}

// AddReject records one rejected triple under its reason
func (s *RunSummary) AddReject(reason string) {
	if s.RejectReasons == nil {
		s.RejectReasons = make(map[string]int)
	}
	s.RejectReasons[reason]++
	s.TriplesRejected++
}

// SortedReasons returns reject reasons in a stable order for display
func (s *RunSummary) SortedReasons() []string {
	reasons := make([]string, 0, len(s.RejectReasons))
	for r := range s.RejectReasons {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	return reasons
}
