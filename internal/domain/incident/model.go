package incident

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

type Status string

const (
	StatusOpen         Status = "open"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

type Incident struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	Fingerprint    string          `db:"fingerprint" json:"fingerprint"`
	Service        string          `db:"service" json:"service"`
	Kind           string          `db:"kind" json:"kind"`
	Message        string          `db:"message" json:"message"`
	Severity       Severity        `db:"severity" json:"severity"`
	Status         Status          `db:"status" json:"status"`
	Count          int64           `db:"count" json:"count"`
	HTTPStatus     sql.NullInt32   `db:"http_status" json:"http_status,omitempty"`
	RequestPath    sql.NullString  `db:"request_path" json:"request_path,omitempty"`
	Metadata       json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	FirstSeenAt    time.Time       `db:"first_seen_at" json:"first_seen_at"`
	LastSeenAt     time.Time       `db:"last_seen_at" json:"last_seen_at"`
	AcknowledgedAt sql.NullTime    `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	ResolvedAt     sql.NullTime    `db:"resolved_at" json:"resolved_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Fingerprint dedups repeat reports of the same failure: two reports
// collapse into one incident when service, kind and message match.
func Fingerprint(service, kind, message string) string {
	sum := sha256.Sum256([]byte(service + "\x00" + kind + "\x00" + message))
	return fmt.Sprintf("%x", sum[:16])
}

// CanTransition reports whether an incident may move from its current
// status to the requested one. Resolved incidents are terminal.
func (i *Incident) CanTransition(to Status) bool {
	switch to {
	case StatusAcknowledged:
		return i.Status == StatusOpen
	case StatusResolved:
		return i.Status == StatusOpen || i.Status == StatusAcknowledged
	case StatusOpen:
		return i.Status == StatusAcknowledged
	default:
		return false
	}
}

func (i *Incident) SetMetadata(data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	i.Metadata = jsonData
	return nil
}

func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}
