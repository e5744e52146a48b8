package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/cache"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

// ListSource tells where a ticket list came from.
type ListSource string

const (
	SourceStore    ListSource = "store"
	SourceFixtures ListSource = "fixtures"
)

// ListResult is the outcome of List. Source is SourceFixtures when the
// ticket store is not configured.
type ListResult struct {
	Tickets []domain.Ticket
	Source  ListSource
}

// Preview reports whether the tickets are fixture data.
func (r ListResult) Preview() bool {
	return r.Source == SourceFixtures
}

// CreateInput describes a new ticket. Status defaults to new.
type CreateInput struct {
	Topic              string
	Owner              string
	ProblemDescription string
	Status             *domain.TicketStatus
	Outcome            *string
}

// UpdateInput describes a partial update. Nil fields are left untouched.
type UpdateInput struct {
	Topic              *string
	Owner              *string
	ProblemDescription *string
	Status             *domain.TicketStatus
	Outcome            domain.OptionalString
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	cache      cache.TicketListCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service. A nil
// TicketRepo means the store is unconfigured: reads serve fixtures and
// writes fail with SERVICE_UNAVAILABLE.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Cache      cache.TicketListCache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.cache == nil {
		s.cache = cache.Noop()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Configured reports whether a ticket store backs the service.
func (s *TicketService) Configured() bool {
	return s.tickets != nil
}

// List returns all tickets, newest first.
func (s *TicketService) List(ctx context.Context) (ListResult, error) {
	if !s.Configured() {
		return ListResult{Tickets: FixtureTickets(s.now()), Source: SourceFixtures}, nil
	}

	if cached, ok, err := s.cache.Get(ctx); err != nil {
		s.logger.Warn("read list cache", zap.Error(err))
	} else if ok {
		return ListResult{Tickets: cached, Source: SourceStore}, nil
	}

	generation, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.logger.Warn("read list cache generation", zap.Error(genErr))
	}

	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return ListResult{}, s.storeError("list tickets", "", err)
	}
	if genErr == nil {
		s.storeList(ctx, generation, tickets)
	}
	return ListResult{Tickets: tickets, Source: SourceStore}, nil
}

// Get returns a single ticket.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	if !s.Configured() {
		if ticket, ok := FixtureTicket(s.now(), id); ok {
			return ticket, nil
		}
		return nil, notFound(id)
	}
	id, ok := canonicalID(id)
	if !ok {
		return nil, notFound(id)
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get ticket", id, err)
	}
	return ticket, nil
}

// Create validates input and persists a new ticket.
func (s *TicketService) Create(ctx context.Context, input CreateInput) (*domain.Ticket, error) {
	if !s.Configured() {
		return nil, unconfigured()
	}

	ticket := &domain.Ticket{
		Topic:              strings.TrimSpace(input.Topic),
		Owner:              strings.TrimSpace(input.Owner),
		ProblemDescription: strings.TrimSpace(input.ProblemDescription),
		Status:             domain.TicketStatusNew,
		Outcome:            normalizeOptional(input.Outcome),
	}
	if input.Status != nil && *input.Status != "" {
		ticket.Status = *input.Status
	}

	missing := []string{}
	if ticket.Topic == "" {
		missing = append(missing, "topic")
	}
	if ticket.Owner == "" {
		missing = append(missing, "owner")
	}
	if ticket.ProblemDescription == "" {
		missing = append(missing, "problem_description")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError(
			"missing required fields: "+strings.Join(missing, ", "),
			map[string]any{"fields": missing},
		)
	}
	if !ticket.Status.Valid() {
		return nil, invalidStatus(ticket.Status)
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, s.storeError("create ticket", "", err)
	}

	s.invalidateList(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Topic:  ticket.Topic,
			Owner:  ticket.Owner,
			Status: ticket.Status,
		},
	})
	return ticket, nil
}

// Update applies the present fields of input and refreshes updated_at.
func (s *TicketService) Update(ctx context.Context, id string, input UpdateInput) (*domain.Ticket, error) {
	if !s.Configured() {
		return nil, unconfigured()
	}
	id, ok := canonicalID(id)
	if !ok {
		return nil, notFound(id)
	}

	changes, fields, err := buildChanges(input)
	if err != nil {
		return nil, err
	}

	var oldStatus *domain.TicketStatus
	if changes.Status != nil {
		current, err := s.tickets.GetByID(ctx, id)
		if err != nil {
			return nil, s.storeError("get ticket", id, err)
		}
		oldStatus = &current.Status
	}

	ticket, err := s.tickets.Update(ctx, id, changes)
	if err != nil {
		return nil, s.storeError("update ticket", id, err)
	}

	s.invalidateList(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Payload: events.TicketUpdatedPayload{
			Fields:    fields,
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// Delete removes a ticket. A delete the store accepts without removing
// the row is reported as FORBIDDEN.
func (s *TicketService) Delete(ctx context.Context, id string) error {
	if !s.Configured() {
		return unconfigured()
	}
	id, ok := canonicalID(id)
	if !ok {
		return notFound(id)
	}

	exists, err := s.tickets.Exists(ctx, id)
	if err != nil {
		return s.storeError("check ticket", id, err)
	}
	if !exists {
		return notFound(id)
	}

	affected, err := s.tickets.Delete(ctx, id)
	if err != nil {
		return s.storeError("delete ticket", id, err)
	}
	if affected == 0 {
		s.logger.Warn("delete affected no rows", zap.String("ticket_id", id))
		return apperrors.NewForbidden(
			"ticket could not be deleted; the datastore rejected the delete",
			map[string]any{"id": id, "hint": "check row-level security policies for DELETE"},
		)
	}

	s.invalidateList(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
		Payload:  events.TicketDeletedPayload{DeletedID: id},
	})
	return nil
}

func buildChanges(input UpdateInput) (repository.TicketChanges, []string, error) {
	changes := repository.TicketChanges{}
	fields := []string{}
	blank := []string{}

	required := func(name string, value *string) *string {
		if value == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			blank = append(blank, name)
		}
		fields = append(fields, name)
		return &trimmed
	}
	changes.Topic = required("topic", input.Topic)
	changes.Owner = required("owner", input.Owner)
	changes.ProblemDescription = required("problem_description", input.ProblemDescription)

	if len(blank) > 0 {
		return changes, nil, apperrors.NewValidationError(
			"required fields cannot be empty: "+strings.Join(blank, ", "),
			map[string]any{"fields": blank},
		)
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return changes, nil, invalidStatus(*input.Status)
		}
		changes.Status = input.Status
		fields = append(fields, "status")
	}
	if input.Outcome.Set {
		changes.Outcome = domain.OptionalString{Set: true, Value: normalizeOptional(input.Outcome.Value)}
		fields = append(fields, "outcome")
	}
	return changes, fields, nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// canonicalID reduces any UUID spelling uuid.Parse accepts (braces,
// urn:uuid: prefix, upper case) to the hyphenated lower-case form the
// store is queried with. Invalid ids come back unchanged with ok false.
func canonicalID(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return id, false
	}
	return parsed.String(), true
}

func notFound(id string) error {
	return apperrors.NewNotFound("ticket", map[string]any{"id": id})
}

func unconfigured() error {
	return apperrors.NewServiceUnavailable(
		"ticket store is not configured; set POSTGRES_DSN",
		map[string]any{"mode": string(SourceFixtures)},
	)
}

func invalidStatus(status domain.TicketStatus) error {
	allowed := make([]string, 0, len(domain.TicketStatuses))
	for _, st := range domain.TicketStatuses {
		allowed = append(allowed, string(st))
	}
	return apperrors.NewValidationError(
		fmt.Sprintf("invalid status %q", status),
		map[string]any{"allowed": allowed},
	)
}

// storeError maps a datastore fault onto the error taxonomy. Raw store
// errors never leave the service.
func (s *TicketService) storeError(op, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) && id != "" {
		return notFound(id)
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	s.logger.Error("ticket store failure", zap.String("op", op), zap.String("ticket_id", id), zap.Error(err))
	return apperrors.NewInternalError(fmt.Errorf("%s: %w", op, err))
}

func (s *TicketService) storeList(ctx context.Context, generation int64, tickets []domain.Ticket) {
	err := s.cache.Set(ctx, generation, tickets)
	switch {
	case errors.Is(err, cache.ErrStaleGeneration):
		s.logger.Debug("list changed while loading; not cached", zap.Int64("generation", generation))
	case err != nil:
		s.logger.Warn("write list cache", zap.Error(err))
	}
}

func (s *TicketService) invalidateList(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate list cache", zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
