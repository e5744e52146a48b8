package events

import (
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated EventType = "ticket_created"
	EventTicketUpdated EventType = "ticket_updated"
	EventTicketDeleted EventType = "ticket_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Topic  string              `json:"topic"`
	Owner  string              `json:"owner"`
	Status domain.TicketStatus `json:"status"`
}

// TicketUpdatedPayload payload. OldStatus is set when the update carried a status.
type TicketUpdatedPayload struct {
	Fields    []string             `json:"fields"`
	OldStatus *domain.TicketStatus `json:"old_status,omitempty"`
	NewStatus domain.TicketStatus  `json:"new_status"`
}

// StatusChanged reports whether the update moved the ticket to another status.
func (p TicketUpdatedPayload) StatusChanged() bool {
	return p.OldStatus != nil && *p.OldStatus != p.NewStatus
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	DeletedID string `json:"deleted_id"`
}
