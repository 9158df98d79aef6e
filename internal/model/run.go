package model

import "time"

// RunStatus represents the current state of an enrichment run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusAborted  RunStatus = "aborted"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one invocation of the enrich command over an input sheet.
type Run struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	Destination string      `json:"destination"`
	Total       int         `json:"total"`
	Status      RunStatus   `json:"status"`
	Summary     *RunSummary `json:"summary,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// RunSummary holds the final counters of a run.
type RunSummary struct {
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Emails    int    `json:"emails"`
	Error     string `json:"error,omitempty"`
}

// RecordResult is the ledger entry for one processed input record.
type RecordResult struct {
	ID         string      `json:"id"`
	RunID      string      `json:"run_id"`
	Index      int         `json:"index"`
	Record     InputRecord `json:"record"`
	Status     Status      `json:"status"`
	Cities     int         `json:"cities"`
	Emails     int         `json:"emails"`
	Error      string      `json:"error,omitempty"`
	ErrorType  string      `json:"error_type,omitempty"` // "transient" or "permanent"
	DurationMs int64       `json:"duration_ms"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CityCache is a cached ZIP resolution.
type CityCache struct {
	ZIP        string    `json:"zip"`
	Cities     []string  `json:"cities"`
	ResolvedAt time.Time `json:"resolved_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
