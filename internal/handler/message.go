package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/josh-kwaku/lingualance-api/internal/domain"
	"github.com/josh-kwaku/lingualance-api/internal/service"
)

type messageService interface {
	Post(ctx context.Context, caller service.Caller, projectID uuid.UUID, body string) (*domain.Message, error)
	List(ctx context.Context, caller service.Caller, projectID uuid.UUID, limit, offset int) ([]domain.Message, error)
}

type MessageHandler struct {
	messages messageService
}

func NewMessageHandler(messages messageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type postMessageRequest struct {
	Body string `json:"body"`
}

type messageDTO struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"project_id"`
	SenderUserID uuid.UUID `json:"sender_user_id"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

func toMessageDTO(m *domain.Message) messageDTO {
	return messageDTO{
		ID:           m.ID,
		ProjectID:    m.ProjectID,
		SenderUserID: m.SenderUserID,
		Body:         m.Body,
		CreatedAt:    m.CreatedAt,
	}
}

func (h *MessageHandler) Post(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	projectID, appErr := pathID(r, ErrProjectNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}
	if n := utf8.RuneCountInString(req.Body); n == 0 || n > domain.MaxMessageLength {
		RespondValidationError(w, []FieldError{{Field: "body", Message: "must be 1 to 4000 characters"}})
		return
	}

	m, err := h.messages.Post(r.Context(), caller, projectID, req.Body)
	if err != nil {
		RespondDomainError(w, err)
		return
	}
	RespondSuccess(w, http.StatusCreated, toMessageDTO(m))
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, appErr := callerFromRequest(r)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	projectID, appErr := pathID(r, ErrProjectNotFound)
	if appErr != nil {
		RespondAppError(w, appErr, nil)
		return
	}
	limit, offset := pagination(r)

	msgs, err := h.messages.List(r.Context(), caller, projectID, limit, offset)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	items := make([]messageDTO, 0, len(msgs))
	for i := range msgs {
		items = append(items, toMessageDTO(&msgs[i]))
	}
	RespondSuccess(w, http.StatusOK, items)
}
