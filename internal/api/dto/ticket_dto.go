package dto

import (
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// CreateTicketRequest payload. Status defaults to new when omitted.
type CreateTicketRequest struct {
	Topic              string               `json:"topic"`
	Owner              string               `json:"owner"`
	ProblemDescription string               `json:"problem_description"`
	Status             *domain.TicketStatus `json:"status"`
	Outcome            *string              `json:"outcome"`
}

// UpdateTicketRequest payload. Absent keys are left unchanged; outcome may
// be sent as null to clear it.
type UpdateTicketRequest struct {
	Topic              *string               `json:"topic"`
	Owner              *string               `json:"owner"`
	ProblemDescription *string               `json:"problem_description"`
	Status             *domain.TicketStatus  `json:"status"`
	Outcome            domain.OptionalString `json:"outcome"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID                 string              `json:"id"`
	Topic              string              `json:"topic"`
	Status             domain.TicketStatus `json:"status"`
	Owner              string              `json:"owner"`
	ProblemDescription string              `json:"problem_description"`
	Outcome            *string             `json:"outcome"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// DeleteTicketResponse confirms a hard delete.
type DeleteTicketResponse struct {
	Message   string `json:"message"`
	DeletedID string `json:"deletedId"`
}
