package sorter

import "time"

// Report summarises a GenerateOrder run: aggregate counts, timing, the
// emitted order, and any cycle that aborted the sort.
type Report struct {
	Summary ReportSummary `json:"summary"`
	// Order is the emitted load order, in the winning direction of every
	// edge phase. Empty when CyclicInteraction is non-nil.
	Order []string `json:"order"`
	// CyclicInteraction is set iff the sort failed with ErrCyclicInteraction;
	// Order is empty in that case.
	CyclicInteraction *CyclicInteractionInfo `json:"cyclicInteraction,omitempty"`
}

// ReportSummary holds aggregate counts and timing for one sort.
type ReportSummary struct {
	PluginCount     int       `json:"pluginCount"`
	MasterCount     int       `json:"masterCount"`
	DurationSeconds float64   `json:"durationSeconds"`
	Timestamp       time.Time `json:"timestamp"`
}

// CyclicInteractionInfo is the JSON-friendly projection of a
// *graph.CyclicInteraction, kept in this package so Report doesn't need to
// import pkg/sorter/graph's error type directly into its public shape.
type CyclicInteractionInfo struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Trail  []string `json:"trail"`
}
