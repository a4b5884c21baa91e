// Package store persists the provenance log of panel builds and exports.
package store

import (
	"context"
	"time"

	"github.com/troy3977-blip/mcr-ai-insights/internal/model"
)

// RunKind distinguishes build runs from export runs.
type RunKind string

const (
	RunKindBuild  RunKind = "build"
	RunKindExport RunKind = "export"
)

// Run records one pipeline invocation and its outcome.
type Run struct {
	ID        string
	Kind      RunKind
	StartYear int
	EndYear   int
	Rows      int
	Artifacts []string
	Audit     *model.AuditReport
	CreatedAt time.Time
}

// Store defines the run-log persistence interface.
type Store interface {
	RecordRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Migrate(ctx context.Context) error
	Close() error
}
