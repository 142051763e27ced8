package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/cargoledger/backend/internal/domain/shared"
)

// ActionType classifies what happened to an entity
type ActionType string

const (
	ActionCreate       ActionType = "CREATE"
	ActionUpdate       ActionType = "UPDATE"
	ActionDelete       ActionType = "DELETE"
	ActionStatusChange ActionType = "STATUS_CHANGE"
	ActionPayment      ActionType = "PAYMENT"
)

// IsValid checks if the action type is a known value
func (a ActionType) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionStatusChange, ActionPayment:
		return true
	}
	return false
}

// Log is one append-only audit row. Writing it must never fail the
// business operation it describes.
type Log struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	ActionType ActionType
	Details    json.RawMessage
	CreatedAt  time.Time
}

// NewLog builds an audit row; details marshals to JSON and a marshal
// failure degrades to an empty object rather than erroring
func NewLog(userID uuid.UUID, entityType string, entityID uuid.UUID, action ActionType, details any) (*Log, error) {
	if entityType == "" {
		return nil, shared.NewDomainError("VALIDATION", "entity type is required")
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError("VALIDATION", "unknown action type")
	}
	raw := json.RawMessage("{}")
	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			raw = data
		}
	}
	return &Log{
		ID:         uuid.New(),
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		ActionType: action,
		Details:    raw,
		CreatedAt:  time.Now(),
	}, nil
}

// LogRepository defines persistence for the audit trail
type LogRepository interface {
	Create(ctx context.Context, log *Log) error
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]Log, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Log, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
