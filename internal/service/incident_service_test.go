package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faultdesk/incident-service-api/internal/domain/incident"
	"github.com/faultdesk/incident-service-api/internal/handler/dto"
	"github.com/faultdesk/incident-service-api/internal/ierr"
)

type stubIncidentRepo struct {
	incidents map[uuid.UUID]*incident.Incident

	upserted      *incident.Incident
	statusUpdates int
	findCalls     int
}

func newStubIncidentRepo() *stubIncidentRepo {
	return &stubIncidentRepo{incidents: make(map[uuid.UUID]*incident.Incident)}
}

func (r *stubIncidentRepo) Create(_ context.Context, inc *incident.Incident) (uuid.UUID, error) {
	id := uuid.New()
	stored := *inc
	stored.ID = id
	r.incidents[id] = &stored
	return id, nil
}

func (r *stubIncidentRepo) Upsert(_ context.Context, inc *incident.Incident) (*incident.Incident, error) {
	r.upserted = inc
	for _, existing := range r.incidents {
		if existing.Fingerprint == inc.Fingerprint {
			existing.Count++
			existing.LastSeenAt = inc.LastSeenAt
			return existing, nil
		}
	}
	stored := *inc
	stored.ID = uuid.New()
	stored.Count = 1
	r.incidents[stored.ID] = &stored
	return &stored, nil
}

func (r *stubIncidentRepo) FindByID(_ context.Context, id uuid.UUID) (*incident.Incident, error) {
	r.findCalls++
	inc, ok := r.incidents[id]
	if !ok {
		return nil, ierr.ErrIncidentNotFound
	}
	cp := *inc
	return &cp, nil
}

func (r *stubIncidentRepo) List(_ context.Context, _ incident.ListParams) ([]*incident.Incident, int64, error) {
	out := make([]*incident.Incident, 0, len(r.incidents))
	for _, inc := range r.incidents {
		out = append(out, inc)
	}
	return out, int64(len(out)), nil
}

func (r *stubIncidentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status incident.Status, at time.Time) error {
	inc, ok := r.incidents[id]
	if !ok {
		return ierr.ErrIncidentNotFound
	}
	r.statusUpdates++
	inc.Status = status
	inc.UpdatedAt = at
	return nil
}

func (r *stubIncidentRepo) Summarize(_ context.Context) (*incident.Summary, error) {
	summary := &incident.Summary{
		ByStatus:   make(map[incident.Status]int64),
		BySeverity: make(map[incident.Severity]int64),
	}
	for _, inc := range r.incidents {
		summary.ByStatus[inc.Status]++
		summary.BySeverity[inc.Severity]++
		summary.Total++
	}
	return summary, nil
}

func (r *stubIncidentRepo) DeleteResolvedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for id, inc := range r.incidents {
		if inc.Status == incident.StatusResolved && inc.ResolvedAt.Valid && inc.ResolvedAt.Time.Before(cutoff) {
			delete(r.incidents, id)
			deleted++
		}
	}
	return deleted, nil
}

type stubCache struct {
	entries       map[uuid.UUID]*incident.Incident
	sets          int
	invalidations int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[uuid.UUID]*incident.Incident)}
}

func (c *stubCache) Get(_ context.Context, id uuid.UUID) (*incident.Incident, bool) {
	inc, ok := c.entries[id]
	return inc, ok
}

func (c *stubCache) Set(_ context.Context, inc *incident.Incident) {
	c.sets++
	c.entries[inc.ID] = inc
}

func (c *stubCache) Invalidate(_ context.Context, id uuid.UUID) {
	c.invalidations++
	delete(c.entries, id)
}

func newTestIncidentService() (*IncidentService, *stubIncidentRepo, *stubCache) {
	repo := newStubIncidentRepo()
	cache := newStubCache()
	return NewIncidentService(repo, cache, zap.NewNop()), repo, cache
}

func TestIncidentService_ReportDedups(t *testing.T) {
	svc, _, _ := newTestIncidentService()
	ctx := context.Background()

	req := &dto.ReportIncidentRequest{
		Service:  "billing",
		Kind:     "TimeoutError",
		Message:  "payment gateway timed out",
		Severity: "error",
	}

	first, err := svc.Report(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Count != 1 {
		t.Fatalf("expected count 1 on first report, got %d", first.Count)
	}

	second, err := svc.Report(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("repeat report must collapse into the same incident")
	}
	if second.Count != 2 {
		t.Fatalf("expected count 2 after repeat report, got %d", second.Count)
	}
}

func TestIncidentService_ReportComputesFingerprint(t *testing.T) {
	svc, repo, _ := newTestIncidentService()

	_, err := svc.Report(context.Background(), &dto.ReportIncidentRequest{
		Service:  "billing",
		Kind:     "TimeoutError",
		Message:  "payment gateway timed out",
		Severity: "error",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := incident.Fingerprint("billing", "TimeoutError", "payment gateway timed out")
	if repo.upserted.Fingerprint != want {
		t.Fatalf("unexpected fingerprint: %s", repo.upserted.Fingerprint)
	}
	if repo.upserted.Status != incident.StatusOpen {
		t.Fatalf("new reports must open incidents, got %s", repo.upserted.Status)
	}
}

func TestIncidentService_GetByIDUsesCache(t *testing.T) {
	svc, repo, cache := newTestIncidentService()
	ctx := context.Background()

	inc, err := svc.Report(ctx, &dto.ReportIncidentRequest{
		Service:  "billing",
		Kind:     "TimeoutError",
		Message:  "payment gateway timed out",
		Severity: "error",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo.findCalls = 0

	if _, err := svc.GetIncidentByID(ctx, inc.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.findCalls != 1 {
		t.Fatalf("expected one repository lookup on cache miss, got %d", repo.findCalls)
	}
	if cache.sets != 1 {
		t.Fatalf("expected incident cached after miss, got %d sets", cache.sets)
	}

	if _, err := svc.GetIncidentByID(ctx, inc.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.findCalls != 1 {
		t.Fatal("expected cache hit to skip the repository")
	}
}

func TestIncidentService_GetByIDNotFound(t *testing.T) {
	svc, _, _ := newTestIncidentService()

	_, err := svc.GetIncidentByID(context.Background(), uuid.New())
	if !errors.Is(err, ierr.ErrIncidentNotFound) {
		t.Fatalf("expected ErrIncidentNotFound, got %v", err)
	}
}

func TestIncidentService_UpdateStatusTransitions(t *testing.T) {
	svc, _, cache := newTestIncidentService()
	ctx := context.Background()

	inc, err := svc.Report(ctx, &dto.ReportIncidentRequest{
		Service:  "billing",
		Kind:     "TimeoutError",
		Message:  "payment gateway timed out",
		Severity: "error",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := svc.UpdateStatus(ctx, inc.ID, incident.StatusAcknowledged)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != incident.StatusAcknowledged {
		t.Fatalf("unexpected status: %s", updated.Status)
	}
	if cache.invalidations == 0 {
		t.Fatal("expected cache invalidated after status update")
	}

	if _, err := svc.UpdateStatus(ctx, inc.ID, incident.StatusResolved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Resolved is terminal; reopening is not a valid transition.
	_, err = svc.UpdateStatus(ctx, inc.ID, incident.StatusAcknowledged)
	if !errors.Is(err, ierr.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestIncidentService_UpdateStatusNoopWhenUnchanged(t *testing.T) {
	svc, repo, _ := newTestIncidentService()
	ctx := context.Background()

	inc, err := svc.Report(ctx, &dto.ReportIncidentRequest{
		Service:  "billing",
		Kind:     "TimeoutError",
		Message:  "payment gateway timed out",
		Severity: "error",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, inc.ID, incident.StatusOpen); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.statusUpdates != 0 {
		t.Fatal("expected no repository write for unchanged status")
	}
}
