package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faultdesk/incident-service-api/internal/domain/incident"
	"github.com/faultdesk/incident-service-api/internal/handler/dto"
	"github.com/faultdesk/incident-service-api/internal/ierr"
)

// IncidentCache is the read-through cache the service consults before
// hitting the repository.
type IncidentCache interface {
	Get(ctx context.Context, id uuid.UUID) (*incident.Incident, bool)
	Set(ctx context.Context, inc *incident.Incident)
	Invalidate(ctx context.Context, id uuid.UUID)
}

type IncidentService struct {
	repo   incident.Repository
	cache  IncidentCache
	logger *zap.Logger
}

func NewIncidentService(repo incident.Repository, cache IncidentCache, logger *zap.Logger) *IncidentService {
	return &IncidentService{
		repo:   repo,
		cache:  cache,
		logger: logger.Named("IncidentService"),
	}
}

// Report ingests an error event. Repeat reports of the same failure
// (same service, kind and message) collapse into one incident with an
// incremented count.
func (s *IncidentService) Report(ctx context.Context, req *dto.ReportIncidentRequest) (*incident.Incident, error) {
	s.logger.Debug("Ingesting incident report",
		zap.String("service", req.Service),
		zap.String("kind", req.Kind),
		zap.String("severity", req.Severity),
	)

	now := time.Now().UTC()
	inc := &incident.Incident{
		Fingerprint: incident.Fingerprint(req.Service, req.Kind, req.Message),
		Service:     req.Service,
		Kind:        req.Kind,
		Message:     req.Message,
		Severity:    incident.Severity(req.Severity),
		Status:      incident.StatusOpen,
		Metadata:    req.Metadata,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}

	if req.HTTPStatus != nil {
		inc.HTTPStatus = sql.NullInt32{Int32: int32(*req.HTTPStatus), Valid: true}
	}
	if req.RequestPath != nil {
		inc.RequestPath = sql.NullString{String: *req.RequestPath, Valid: true}
	}

	stored, err := s.repo.Upsert(ctx, inc)
	if err != nil {
		s.logger.Error("Failed to upsert incident via repository", zap.Error(err))
		return nil, fmt.Errorf("repository error during incident report: %w", err)
	}

	// The stored row may differ from what was cached before this report.
	s.cache.Invalidate(ctx, stored.ID)

	s.logger.Info("Incident reported",
		zap.String("id", stored.ID.String()),
		zap.String("fingerprint", stored.Fingerprint),
		zap.Int64("count", stored.Count),
	)
	return stored, nil
}

// CreateIncident registers an incident manually, bypassing dedup.
func (s *IncidentService) CreateIncident(ctx context.Context, req *dto.CreateIncidentRequest) (*incident.Incident, error) {
	s.logger.Info("Attempting to create incident manually",
		zap.String("service", req.Service),
		zap.String("kind", req.Kind),
	)

	now := time.Now().UTC()
	newIncident := &incident.Incident{
		Fingerprint: incident.Fingerprint(req.Service, req.Kind, req.Message),
		Service:     req.Service,
		Kind:        req.Kind,
		Message:     req.Message,
		Severity:    incident.Severity(req.Severity),
		Status:      incident.StatusOpen,
		Count:       1,
		Metadata:    req.Metadata,
		FirstSeenAt: now,
		LastSeenAt:  now,
	}

	insertedID, err := s.repo.Create(ctx, newIncident)
	if err != nil {
		s.logger.Error("Failed to create incident via repository", zap.Error(err))
		return nil, err
	}

	createdIncident, err := s.repo.FindByID(ctx, insertedID)
	if err != nil {
		s.logger.Error("Failed to find newly created incident by ID", zap.String("id", insertedID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve created incident (id: %s): %w", insertedID, err)
	}

	s.logger.Info("Incident created successfully", zap.String("id", createdIncident.ID.String()))
	return createdIncident, nil
}

func (s *IncidentService) GetIncidentByID(ctx context.Context, id uuid.UUID) (*incident.Incident, error) {
	if inc, ok := s.cache.Get(ctx, id); ok {
		s.logger.Debug("Incident served from cache", zap.String("id", id.String()))
		return inc, nil
	}

	inc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, inc)
	return inc, nil
}

func (s *IncidentService) ListIncidents(ctx context.Context, req *dto.ListIncidentsRequest) ([]*incident.Incident, int64, error) {
	params := incident.ListParams{
		Service: req.Service,
		Limit:   req.Limit,
		Offset:  req.Offset,
	}
	if req.Status != "" {
		status := incident.Status(req.Status)
		params.Status = &status
	}
	if req.Severity != "" {
		severity := incident.Severity(req.Severity)
		params.Severity = &severity
	}

	incidents, total, err := s.repo.List(ctx, params)
	if err != nil {
		s.logger.Error("Failed to list incidents via repository", zap.Error(err))
		return nil, 0, fmt.Errorf("repository error during incident list: %w", err)
	}

	return incidents, total, nil
}

// UpdateStatus applies a triage transition. Moving to a status the
// incident cannot reach from its current one fails with
// ierr.ErrInvalidTransition.
func (s *IncidentService) UpdateStatus(ctx context.Context, id uuid.UUID, status incident.Status) (*incident.Incident, error) {
	inc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inc.Status == status {
		return inc, nil
	}

	if !inc.CanTransition(status) {
		s.logger.Warn("Rejected incident status transition",
			zap.String("id", id.String()),
			zap.String("from", string(inc.Status)),
			zap.String("to", string(status)),
		)
		return nil, fmt.Errorf("%w: cannot move from '%s' to '%s'", ierr.ErrInvalidTransition, inc.Status, status)
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, status, now); err != nil {
		s.logger.Error("Failed to update incident status via repository", zap.String("id", id.String()), zap.Error(err))
		return nil, err
	}

	s.cache.Invalidate(ctx, id)

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve updated incident (id: %s): %w", id, err)
	}

	s.logger.Info("Incident status updated",
		zap.String("id", id.String()),
		zap.String("status", string(status)),
	)
	return updated, nil
}

func (s *IncidentService) Summarize(ctx context.Context) (*incident.Summary, error) {
	summary, err := s.repo.Summarize(ctx)
	if err != nil {
		s.logger.Error("Failed to summarize incidents via repository", zap.Error(err))
		return nil, fmt.Errorf("repository error during incident summary: %w", err)
	}
	return summary, nil
}

// PruneResolved deletes resolved incidents older than maxAge. Used by
// the periodic retention task.
func (s *IncidentService) PruneResolved(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	deleted, err := s.repo.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to prune resolved incidents", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, fmt.Errorf("repository error during incident prune: %w", err)
	}

	return deleted, nil
}
