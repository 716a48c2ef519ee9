// Package runstore loads recorded agent runs from their storage backend.
// The agent runtime writes each run as a JSON document plus a list of trace
// events; this package reassembles them into RunRecords.
package runstore

import (
	"context"
	"errors"

	"github.com/loopless/loopcheck/internal/models"
)

// ErrNotFound is returned when a run id has no stored document.
var ErrNotFound = errors.New("run not found")

// Store is a read-only view over recorded runs.
type Store interface {
	// LoadRun fetches one run with its full event trace.
	LoadRun(ctx context.Context, runID string) (*models.RunRecord, error)

	// ListRecent returns up to limit runs. Ordering is backend-defined.
	ListRecent(ctx context.Context, limit int) ([]*models.RunRecord, error)
}
