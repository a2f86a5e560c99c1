package incident

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ListParams struct {
	Service  string
	Status   *Status
	Severity *Severity
	Limit    int
	Offset   int
}

type Summary struct {
	ByStatus   map[Status]int64
	BySeverity map[Severity]int64
	Total      int64
}

type Repository interface {
	Create(ctx context.Context, inc *Incident) (uuid.UUID, error)
	// Upsert inserts a new incident or, when the fingerprint already
	// exists, bumps its count and last-seen time. Returns the stored row.
	Upsert(ctx context.Context, inc *Incident) (*Incident, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Incident, error)
	List(ctx context.Context, params ListParams) ([]*Incident, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, at time.Time) error
	Summarize(ctx context.Context) (*Summary, error)
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
