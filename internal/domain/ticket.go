package domain

import (
	"encoding/json"
	"time"
)

// TicketStatus enumerates workflow stages for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusOnHold     TicketStatus = "on_hold"
	TicketStatusResolved   TicketStatus = "resolved"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusInProgress,
	TicketStatusOnHold,
	TicketStatusResolved,
}

var statusLabels = map[TicketStatus]string{
	TicketStatusNew:        "New",
	TicketStatusInProgress: "In Progress",
	TicketStatusOnHold:     "On Hold",
	TicketStatusResolved:   "Resolved",
}

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable status name.
func (s TicketStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Ticket is a single support request.
type Ticket struct {
	ID                 string       `json:"id"`
	Topic              string       `json:"topic"`
	Status             TicketStatus `json:"status"`
	Owner              string       `json:"owner"`
	ProblemDescription string       `json:"problem_description"`
	Outcome            *string      `json:"outcome"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// WasUpdated reports whether the ticket changed after creation.
func (t *Ticket) WasUpdated() bool {
	return !t.UpdatedAt.Equal(t.CreatedAt)
}

// OptionalString is a JSON field that tells apart an absent key, an
// explicit null and a value.
type OptionalString struct {
	Set   bool
	Value *string
}

// SomeString returns a present OptionalString holding v.
func SomeString(v string) OptionalString {
	return OptionalString{Set: true, Value: &v}
}

// NullString returns a present OptionalString holding null.
func NullString() OptionalString {
	return OptionalString{Set: true}
}

// UnmarshalJSON only runs for keys present in the payload.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
