package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/faultdesk/incident-service-api/internal/domain/incident"
)

type ReportIncidentRequest struct {
	Service     string          `json:"service" binding:"required,max=128"`
	Kind        string          `json:"kind" binding:"required,max=128"`
	Message     string          `json:"message" binding:"required"`
	Severity    string          `json:"severity" binding:"required,oneof=debug info warning error critical"`
	HTTPStatus  *int            `json:"http_status,omitempty" binding:"omitempty,gte=100,lte=599"`
	RequestPath *string         `json:"request_path,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

type CreateIncidentRequest struct {
	Service  string          `json:"service" binding:"required,max=128"`
	Kind     string          `json:"kind" binding:"required,max=128"`
	Message  string          `json:"message" binding:"required"`
	Severity string          `json:"severity" binding:"required,oneof=debug info warning error critical"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type ListIncidentsRequest struct {
	Service  string `form:"service"`
	Status   string `form:"status" binding:"omitempty,oneof=open acknowledged resolved"`
	Severity string `form:"severity" binding:"omitempty,oneof=debug info warning error critical"`
	Limit    int    `form:"limit,default=50" binding:"gte=1,lte=500"`
	Offset   int    `form:"offset,default=0" binding:"gte=0"`
}

type UpdateIncidentStatusRequest struct {
	Status *string `json:"status" binding:"required,oneof=open acknowledged resolved"`
}

type IncidentResponse struct {
	ID             uuid.UUID       `json:"id"`
	Fingerprint    string          `json:"fingerprint"`
	Service        string          `json:"service"`
	Kind           string          `json:"kind"`
	Message        string          `json:"message"`
	Severity       string          `json:"severity"`
	Status         string          `json:"status"`
	Count          int64           `json:"count"`
	HTTPStatus     *int32          `json:"http_status,omitempty"`
	RequestPath    *string         `json:"request_path,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	FirstSeenAt    time.Time       `json:"first_seen_at"`
	LastSeenAt     time.Time       `json:"last_seen_at"`
	AcknowledgedAt *time.Time      `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type PaginatedIncidentResponse struct {
	Incidents  []*IncidentResponse `json:"incidents"`
	TotalCount int64               `json:"total_count"`
	Limit      int                 `json:"limit"`
	Offset     int                 `json:"offset"`
}

type IncidentSummaryResponse struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	BySeverity map[string]int64 `json:"by_severity"`
}

func NewIncidentResponse(inc *incident.Incident) *IncidentResponse {
	resp := &IncidentResponse{
		ID:          inc.ID,
		Fingerprint: inc.Fingerprint,
		Service:     inc.Service,
		Kind:        inc.Kind,
		Message:     inc.Message,
		Severity:    string(inc.Severity),
		Status:      string(inc.Status),
		Count:       inc.Count,
		Metadata:    inc.Metadata,
		FirstSeenAt: inc.FirstSeenAt,
		LastSeenAt:  inc.LastSeenAt,
		CreatedAt:   inc.CreatedAt,
		UpdatedAt:   inc.UpdatedAt,
	}

	if inc.HTTPStatus.Valid {
		resp.HTTPStatus = &inc.HTTPStatus.Int32
	}
	if inc.RequestPath.Valid {
		resp.RequestPath = &inc.RequestPath.String
	}
	if inc.AcknowledgedAt.Valid {
		resp.AcknowledgedAt = &inc.AcknowledgedAt.Time
	}
	if inc.ResolvedAt.Valid {
		resp.ResolvedAt = &inc.ResolvedAt.Time
	}

	return resp
}
