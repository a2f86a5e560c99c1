package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/faultdesk/incident-service-api/internal/domain/incident"
	"github.com/faultdesk/incident-service-api/internal/ierr"
)

const incidentColumns = `
            id, fingerprint, service, kind, message, severity, status, count,
            http_status, request_path, metadata, first_seen_at, last_seen_at,
            acknowledged_at, resolved_at, created_at, updated_at`

type IncidentRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewIncidentRepository(db *pgxpool.Pool, logger *zap.Logger) *IncidentRepository {
	return &IncidentRepository{
		db:     db,
		logger: logger.Named("IncidentRepository"),
	}
}

var _ incident.Repository = (*IncidentRepository)(nil)

func (r *IncidentRepository) Create(ctx context.Context, inc *incident.Incident) (uuid.UUID, error) {
	query := `
        INSERT INTO incidents (
            fingerprint, service, kind, message, severity, status, count,
            http_status, request_path, metadata, first_seen_at, last_seen_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
        ) RETURNING id
    `
	var insertedID uuid.UUID

	err := r.db.QueryRow(ctx, query,
		inc.Fingerprint,
		inc.Service,
		inc.Kind,
		inc.Message,
		inc.Severity,
		inc.Status,
		inc.Count,
		inc.HTTPStatus,
		inc.RequestPath,
		inc.Metadata,
		inc.FirstSeenAt,
		inc.LastSeenAt,
	).Scan(&insertedID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create incident with duplicate fingerprint",
				zap.String("fingerprint", inc.Fingerprint),
				zap.String("constraint", pgErr.ConstraintName),
			)
			return uuid.Nil, fmt.Errorf("%w: incident with fingerprint '%s' already exists", ierr.ErrConflict, inc.Fingerprint)
		}

		r.logger.Error("Failed to create incident in database", zap.Error(err))
		return uuid.Nil, fmt.Errorf("database error on create incident: %w", err)
	}

	r.logger.Info("Incident created successfully", zap.String("id", insertedID.String()))
	return insertedID, nil
}

func (r *IncidentRepository) Upsert(ctx context.Context, inc *incident.Incident) (*incident.Incident, error) {
	query := `
        INSERT INTO incidents (
            fingerprint, service, kind, message, severity, status, count,
            http_status, request_path, metadata, first_seen_at, last_seen_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, 1, $7, $8, $9, $10, $10
        )
        ON CONFLICT (fingerprint) DO UPDATE SET
            count        = incidents.count + 1,
            last_seen_at = EXCLUDED.last_seen_at,
            severity     = EXCLUDED.severity,
            http_status  = COALESCE(EXCLUDED.http_status, incidents.http_status),
            request_path = COALESCE(EXCLUDED.request_path, incidents.request_path)
        RETURNING` + incidentColumns

	row := r.db.QueryRow(ctx, query,
		inc.Fingerprint,
		inc.Service,
		inc.Kind,
		inc.Message,
		inc.Severity,
		inc.Status,
		inc.HTTPStatus,
		inc.RequestPath,
		inc.Metadata,
		inc.LastSeenAt,
	)

	stored, err := r.scanIncident(row)
	if err != nil {
		r.logger.Error("Failed to upsert incident", zap.String("fingerprint", inc.Fingerprint), zap.Error(err))
		return nil, fmt.Errorf("database error on upsert incident: %w", err)
	}

	return stored, nil
}

func (r *IncidentRepository) FindByID(ctx context.Context, id uuid.UUID) (*incident.Incident, error) {
	query := `SELECT` + incidentColumns + `
        FROM incidents
        WHERE id = $1
    `

	row := r.db.QueryRow(ctx, query, id)
	inc, err := r.scanIncident(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ierr.ErrIncidentNotFound
		}
		return nil, err
	}
	return inc, nil
}

func (r *IncidentRepository) List(ctx context.Context, params incident.ListParams) ([]*incident.Incident, int64, error) {
	where := " WHERE 1=1"
	args := make([]interface{}, 0, 5)

	if params.Service != "" {
		args = append(args, params.Service)
		where += fmt.Sprintf(" AND service = $%d", len(args))
	}
	if params.Status != nil {
		args = append(args, *params.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if params.Severity != nil {
		args = append(args, *params.Severity)
		where += fmt.Sprintf(" AND severity = $%d", len(args))
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM incidents" + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count incidents", zap.Error(err))
		return nil, 0, fmt.Errorf("database error on count incidents: %w", err)
	}

	args = append(args, params.Limit)
	limitPos := len(args)
	args = append(args, params.Offset)
	offsetPos := len(args)

	query := "SELECT" + incidentColumns + " FROM incidents" + where +
		fmt.Sprintf(" ORDER BY last_seen_at DESC LIMIT $%d OFFSET $%d", limitPos, offsetPos)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query list of incidents", zap.Error(err))
		return nil, 0, fmt.Errorf("database error on list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*incident.Incident, 0)

	for rows.Next() {
		inc, err := r.scanIncident(rows)
		if err != nil {
			r.logger.Error("Failed to scan incident row during list", zap.Error(err))
			return nil, 0, fmt.Errorf("database scan error during list: %w", err)
		}
		incidents = append(incidents, inc)
	}

	if err = rows.Err(); err != nil {
		r.logger.Error("Error iterating incident rows", zap.Error(err))
		return nil, 0, fmt.Errorf("database iteration error on list incidents: %w", err)
	}

	return incidents, total, nil
}

func (r *IncidentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status incident.Status, at time.Time) error {
	query := `
        UPDATE incidents SET
            status          = $1,
            acknowledged_at = CASE WHEN $1 = 'acknowledged' THEN $2 ELSE acknowledged_at END,
            resolved_at     = CASE WHEN $1 = 'resolved' THEN $2 ELSE resolved_at END,
            updated_at      = $2
        WHERE id = $3
    `

	cmdTag, err := r.db.Exec(ctx, query, status, at, id)
	if err != nil {
		r.logger.Error("Failed to update incident status in database", zap.String("id", id.String()), zap.Error(err))
		return fmt.Errorf("database error on update incident status: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to update incident status, but no rows were affected", zap.String("id", id.String()))
		return ierr.ErrIncidentNotFound
	}

	r.logger.Info("Incident status updated successfully", zap.String("id", id.String()), zap.String("status", string(status)))
	return nil
}

func (r *IncidentRepository) Summarize(ctx context.Context) (*incident.Summary, error) {
	summary := &incident.Summary{
		ByStatus:   make(map[incident.Status]int64),
		BySeverity: make(map[incident.Severity]int64),
	}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM incidents GROUP BY status`)
	if err != nil {
		r.logger.Error("Failed to summarize incidents by status", zap.Error(err))
		return nil, fmt.Errorf("database error on summarize incidents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status incident.Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("database scan error on summarize incidents: %w", err)
		}
		summary.ByStatus[status] = count
		summary.Total += count
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error on summarize incidents: %w", err)
	}

	sevRows, err := r.db.Query(ctx, `SELECT severity, COUNT(*) FROM incidents GROUP BY severity`)
	if err != nil {
		r.logger.Error("Failed to summarize incidents by severity", zap.Error(err))
		return nil, fmt.Errorf("database error on summarize incidents: %w", err)
	}
	defer sevRows.Close()

	for sevRows.Next() {
		var severity incident.Severity
		var count int64
		if err := sevRows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("database scan error on summarize incidents: %w", err)
		}
		summary.BySeverity[severity] = count
	}
	if err = sevRows.Err(); err != nil {
		return nil, fmt.Errorf("database iteration error on summarize incidents: %w", err)
	}

	return summary, nil
}

func (r *IncidentRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM incidents WHERE status = 'resolved' AND resolved_at < $1`

	cmdTag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		r.logger.Error("Failed to delete resolved incidents", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0, fmt.Errorf("database error on delete resolved incidents: %w", err)
	}

	deleted := cmdTag.RowsAffected()
	if deleted > 0 {
		r.logger.Info("Deleted resolved incidents", zap.Int64("count", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}

func (r *IncidentRepository) scanIncident(row pgx.Row) (*incident.Incident, error) {
	var inc incident.Incident
	err := row.Scan(
		&inc.ID,
		&inc.Fingerprint,
		&inc.Service,
		&inc.Kind,
		&inc.Message,
		&inc.Severity,
		&inc.Status,
		&inc.Count,
		&inc.HTTPStatus,
		&inc.RequestPath,
		&inc.Metadata,
		&inc.FirstSeenAt,
		&inc.LastSeenAt,
		&inc.AcknowledgedAt,
		&inc.ResolvedAt,
		&inc.CreatedAt,
		&inc.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}

		r.logger.Error("Failed to scan incident row", zap.Error(err))
		return nil, fmt.Errorf("database scan error: %w", err)
	}

	return &inc, nil
}
