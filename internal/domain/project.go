package domain

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectStatusPending    ProjectStatus = "pending"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusPaid       ProjectStatus = "paid"
	ProjectStatusRejected   ProjectStatus = "rejected"
)

func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPending, ProjectStatusInProgress, ProjectStatusCompleted,
		ProjectStatusPaid, ProjectStatusRejected:
		return true
	}
	return false
}

func (s ProjectStatus) IsTerminal() bool {
	return s == ProjectStatusPaid || s == ProjectStatusRejected
}

// IsSettleable reports whether a settlement may move the project to paid.
func (s ProjectStatus) IsSettleable() bool {
	return s == ProjectStatusInProgress || s == ProjectStatusCompleted
}

type ServiceType string

const (
	ServiceTranslation ServiceType = "translation"
	ServiceVoiceOver   ServiceType = "voice_over"
	ServiceDubbing     ServiceType = "dubbing"
)

func (t ServiceType) IsValid() bool {
	return t == ServiceTranslation || t == ServiceVoiceOver || t == ServiceDubbing
}

type Project struct {
	ID           uuid.UUID
	ClientID     uuid.UUID
	FreelancerID *uuid.UUID
	Title        string
	Description  string
	ServiceType  ServiceType
	Budget       Money
	Status       ProjectStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PaidAt       *time.Time
}

// ProjectParty is the role a user plays on a given project.
type ProjectParty string

const (
	PartyNone       ProjectParty = ""
	PartyClient     ProjectParty = "client"
	PartyFreelancer ProjectParty = "freelancer"
)

type transitionKey struct {
	from, to ProjectStatus
}

var allowedTransitions = map[transitionKey][]ProjectParty{
	{ProjectStatusPending, ProjectStatusInProgress}:   {PartyFreelancer},
	{ProjectStatusPending, ProjectStatusRejected}:     {PartyFreelancer, PartyClient},
	{ProjectStatusInProgress, ProjectStatusCompleted}: {PartyFreelancer},
	{ProjectStatusInProgress, ProjectStatusRejected}:  {PartyClient},
	{ProjectStatusCompleted, ProjectStatusInProgress}: {PartyClient},
}

// CanTransition reports whether party may move a project from one status to another.
// The paid status is reachable only through settlement and is never allowed here.
func CanTransition(from, to ProjectStatus, party ProjectParty) bool {
	parties, ok := allowedTransitions[transitionKey{from, to}]
	if !ok {
		return false
	}
	for _, p := range parties {
		if p == party {
			return true
		}
	}
	return false
}
