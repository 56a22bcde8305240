package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReportJob is one row of the report-generation queue.
type ReportJob struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	ReportType string
	Params     map[string]any
}

// ReportStore is the persistence contract report-generation and
// report-cleanup depend on. The concrete schema (and the file format a
// rendered report takes) is an external collaborator contract this package
// does not own.
type ReportStore interface {
	PopPending(ctx context.Context, limit int) ([]ReportJob, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, filePath string, expiresAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	DeleteExpired(ctx context.Context) (int, error)
}

// ReportRenderer renders one report job to a file on durable storage and
// returns its path. Rendering itself — the actual document/format a report
// takes — is an external collaborator this package depends on through this
// interface rather than implementing.
type ReportRenderer interface {
	Render(ctx context.Context, job ReportJob) (filePath string, err error)
}
