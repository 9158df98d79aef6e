// Package store persists the run ledger and the ZIP city cache.
package store

import (
	"context"
	"time"

	"github.com/sells-group/postal-enrich/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Source string          `json:"source,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for enrichment runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source, destination string, total int) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Per-record results
	RecordResult(ctx context.Context, res *model.RecordResult) error
	ListResults(ctx context.Context, runID string) ([]model.RecordResult, error)

	// ZIP city cache
	GetCachedCities(ctx context.Context, zip string) (*model.CityCache, error)
	SetCachedCities(ctx context.Context, zip string, cities []string, ttl time.Duration) error
	DeleteExpiredCities(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100
