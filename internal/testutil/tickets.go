// Package testutil holds in-memory stand-ins shared by package tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
)

// MemoryTickets is a repository.TicketRepository backed by a map. Each
// write advances its clock by one millisecond so updated_at strictly
// increases.
type MemoryTickets struct {
	mu      sync.Mutex
	rows    map[string]domain.Ticket
	clock   time.Time
	Calls   map[string]int
	Err     error // returned by every call when set
	Blocked bool  // deletes succeed but remove nothing
}

var _ repository.TicketRepository = (*MemoryTickets)(nil)

// NewMemoryTickets returns an empty repository whose clock starts at start.
func NewMemoryTickets(start time.Time) *MemoryTickets {
	return &MemoryTickets{
		rows:  make(map[string]domain.Ticket),
		clock: start,
		Calls: make(map[string]int),
	}
}

func (m *MemoryTickets) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *MemoryTickets) enter(op string) error {
	m.Calls[op]++
	return m.Err
}

// Len returns the number of stored tickets.
func (m *MemoryTickets) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *MemoryTickets) List(ctx context.Context) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("List"); err != nil {
		return nil, err
	}
	out := make([]domain.Ticket, 0, len(m.rows))
	for _, t := range m.rows {
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetByID"); err != nil {
		return nil, err
	}
	t, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (m *MemoryTickets) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Exists"); err != nil {
		return false, err
	}
	_, ok := m.rows[id]
	return ok, nil
}

func (m *MemoryTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Create"); err != nil {
		return err
	}
	now := m.tick()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	m.rows[ticket.ID] = *ticket
	return nil
}

func (m *MemoryTickets) Update(ctx context.Context, id string, changes repository.TicketChanges) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Update"); err != nil {
		return nil, err
	}
	t, ok := m.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if changes.Topic != nil {
		t.Topic = *changes.Topic
	}
	if changes.Status != nil {
		t.Status = *changes.Status
	}
	if changes.Owner != nil {
		t.Owner = *changes.Owner
	}
	if changes.ProblemDescription != nil {
		t.ProblemDescription = *changes.ProblemDescription
	}
	if changes.Outcome.Set {
		t.Outcome = changes.Outcome.Value
	}
	t.UpdatedAt = m.tick()
	m.rows[id] = t
	return &t, nil
}

func (m *MemoryTickets) Delete(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("Delete"); err != nil {
		return 0, err
	}
	if _, ok := m.rows[id]; !ok || m.Blocked {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}
