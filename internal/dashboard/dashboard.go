// Package dashboard derives the per-status counts and the filtered view
// shown on the ticket list page.
package dashboard

import (
	"strings"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// Filter selects the tickets shown on the dashboard. It is either FilterAll
// or a ticket status.
type Filter string

const FilterAll Filter = "all"

// ParseFilter reads a filter from a query value. Unknown values fall back
// to FilterAll.
func ParseFilter(raw string) Filter {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == string(FilterAll) {
		return FilterAll
	}
	if status := domain.TicketStatus(raw); status.Valid() {
		return Filter(status)
	}
	return FilterAll
}

// Matches reports whether a ticket with the given status passes the filter.
func (f Filter) Matches(status domain.TicketStatus) bool {
	return f == FilterAll || domain.TicketStatus(f) == status
}

// Summary is the dashboard view of a ticket list.
type Summary struct {
	Counts   map[domain.TicketStatus]int
	Total    int
	Selected Filter
	Tickets  []domain.Ticket
}

// Count returns the number of tickets the filter would select.
func (s Summary) Count(f Filter) int {
	if f == FilterAll {
		return s.Total
	}
	return s.Counts[domain.TicketStatus(f)]
}

// Aggregate counts tickets per status and selects the ones matching filter,
// keeping their order.
func Aggregate(tickets []domain.Ticket, filter Filter) Summary {
	counts := make(map[domain.TicketStatus]int, len(domain.TicketStatuses))
	for _, status := range domain.TicketStatuses {
		counts[status] = 0
	}
	for _, t := range tickets {
		counts[t.Status]++
	}

	summary := Summary{Counts: counts, Total: len(tickets), Selected: filter}
	if filter == FilterAll {
		summary.Tickets = tickets
		return summary
	}
	selected := make([]domain.Ticket, 0, counts[domain.TicketStatus(filter)])
	for _, t := range tickets {
		if filter.Matches(t.Status) {
			selected = append(selected, t)
		}
	}
	summary.Tickets = selected
	return summary
}
