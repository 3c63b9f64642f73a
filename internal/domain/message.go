package domain

import (
	"time"

	"github.com/google/uuid"
)

const MaxMessageLength = 4000

type Message struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	SenderUserID uuid.UUID
	Body         string
	CreatedAt    time.Time
}
