package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cargoledger/backend/internal/domain/audit"
)

// AuditLogModel is the persistence model for an audit trail row.
type AuditLogModel struct {
	ID         uuid.UUID        `gorm:"type:uuid;primary_key"`
	UserID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	EntityType string           `gorm:"type:varchar(50);not null;index:idx_audit_entity,priority:1"`
	EntityID   uuid.UUID        `gorm:"type:uuid;not null;index:idx_audit_entity,priority:2"`
	ActionType audit.ActionType `gorm:"type:varchar(20);not null;index"`
	Details    string           `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt  time.Time        `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain audit Log.
func (m *AuditLogModel) ToDomain() *audit.Log {
	details := m.Details
	if details == "" {
		details = "{}"
	}
	return &audit.Log{
		ID:         m.ID,
		UserID:     m.UserID,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		ActionType: m.ActionType,
		Details:    json.RawMessage(details),
		CreatedAt:  m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain audit Log.
func (m *AuditLogModel) FromDomain(l *audit.Log) {
	m.ID = l.ID
	m.UserID = l.UserID
	m.EntityType = l.EntityType
	m.EntityID = l.EntityID
	m.ActionType = l.ActionType
	if len(l.Details) > 0 {
		m.Details = string(l.Details)
	} else {
		m.Details = "{}"
	}
	m.CreatedAt = l.CreatedAt
}

// AuditLogModelFromDomain creates a new persistence model from domain.
func AuditLogModelFromDomain(l *audit.Log) *AuditLogModel {
	m := &AuditLogModel{}
	m.FromDomain(l)
	return m
}
