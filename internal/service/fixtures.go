package service

import (
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

const day = 24 * time.Hour

// FixtureTickets returns the preview data served when no ticket store is
// configured. Timestamps are relative to now.
func FixtureTickets(now time.Time) []domain.Ticket {
	outcome := "Optimized database queries and enabled caching. Load times are now under 2 seconds."
	return []domain.Ticket{
		{
			ID:                 "mock-1",
			Topic:              "Cannot login to system",
			Status:             domain.TicketStatusNew,
			Owner:              "Jane Doe",
			ProblemDescription: "User reports being unable to login despite correct credentials. Password reset was attempted but issue persists.",
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		{
			ID:                 "mock-2",
			Topic:              "Email notifications delayed",
			Status:             domain.TicketStatusInProgress,
			Owner:              "John Smith",
			ProblemDescription: "Email notifications are delayed by 30+ minutes for some users.",
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		{
			ID:                 "mock-3",
			Topic:              "Slow dashboard loading",
			Status:             domain.TicketStatusResolved,
			Owner:              "Support Bot",
			ProblemDescription: "Dashboard page was taking over 10 seconds to load for several customers.",
			Outcome:            &outcome,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		{
			ID:                 "mock-4",
			Topic:              "Password reset not working",
			Status:             domain.TicketStatusNew,
			Owner:              "Alice Johnson",
			ProblemDescription: "Users are unable to reset their passwords. The reset email is not being sent.",
			CreatedAt:          now.Add(-day),
			UpdatedAt:          now.Add(-day),
		},
		{
			ID:                 "mock-5",
			Topic:              "Payment processing error",
			Status:             domain.TicketStatusOnHold,
			Owner:              "Bob Williams",
			ProblemDescription: "Some customers reported payment processing errors during checkout. Waiting for payment gateway provider response.",
			CreatedAt:          now.Add(-2 * day),
			UpdatedAt:          now.Add(-day),
		},
	}
}

// FixtureTicket looks up a preview ticket by id.
func FixtureTicket(now time.Time, id string) (*domain.Ticket, bool) {
	for _, ticket := range FixtureTickets(now) {
		if ticket.ID == id {
			return &ticket, true
		}
	}
	return nil, false
}
