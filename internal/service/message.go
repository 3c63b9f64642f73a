package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
)

type projectParticipant interface {
	Participant(ctx context.Context, caller Caller, id uuid.UUID) (*domain.Project, domain.ProjectParty, error)
}

type MessageService struct {
	messages messageRepository
	projects projectParticipant
}

func NewMessageService(messages messageRepository, projects projectParticipant) *MessageService {
	return &MessageService{messages: messages, projects: projects}
}

// Post adds a message to a project thread. Only the client and the assigned
// freelancer may write; admins can read but not post.
func (s *MessageService) Post(ctx context.Context, caller Caller, projectID uuid.UUID, body string) (*domain.Message, error) {
	if strings.TrimSpace(body) == "" || utf8.RuneCountInString(body) > domain.MaxMessageLength {
		return nil, fmt.Errorf("Post: body length: %w", domain.ErrInvalidRequest)
	}

	_, party, err := s.projects.Participant(ctx, caller, projectID)
	if err != nil {
		return nil, fmt.Errorf("Post: %w", err)
	}
	if party == domain.PartyNone {
		return nil, fmt.Errorf("Post: %w", domain.ErrForbidden)
	}

	m := &domain.Message{
		ID:           uuid.New(),
		ProjectID:    projectID,
		SenderUserID: caller.UserID,
		Body:         body,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("Post: %w", err)
	}
	return m, nil
}

func (s *MessageService) List(ctx context.Context, caller Caller, projectID uuid.UUID, limit, offset int) ([]domain.Message, error) {
	if _, _, err := s.projects.Participant(ctx, caller, projectID); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	limit, offset = clampPage(limit, offset)
	msgs, err := s.messages.ListByProject(ctx, projectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	return msgs, nil
}
