package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ProjectEventType string

const (
	ProjectEventCreated       ProjectEventType = "created"
	ProjectEventAssigned      ProjectEventType = "assigned"
	ProjectEventStatusChanged ProjectEventType = "status_changed"
	ProjectEventSettled       ProjectEventType = "settled"
)

type ProjectEvent struct {
	ID         uuid.UUID
	ProjectID  uuid.UUID
	EventType  ProjectEventType
	FromStatus *ProjectStatus
	ToStatus   ProjectStatus
	Actor      string
	Payload    json.RawMessage
	CreatedAt  time.Time
}
