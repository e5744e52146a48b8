package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/cache"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/testutil"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

var epoch = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type recordingCache struct {
	tickets     []domain.Ticket
	hit         bool
	generation  int64
	invalidated int
}

func (c *recordingCache) Get(context.Context) ([]domain.Ticket, bool, error) {
	return c.tickets, c.hit, nil
}

func (c *recordingCache) Generation(context.Context) (int64, error) {
	return c.generation, nil
}

func (c *recordingCache) Set(_ context.Context, generation int64, tickets []domain.Ticket) error {
	if generation != c.generation {
		return cache.ErrStaleGeneration
	}
	c.tickets, c.hit = tickets, true
	return nil
}

func (c *recordingCache) Invalidate(context.Context) error {
	c.tickets, c.hit = nil, false
	c.generation++
	c.invalidated++
	return nil
}

// interleavedTickets runs afterList once, right after a List snapshot is
// taken and before the service sees it.
type interleavedTickets struct {
	*testutil.MemoryTickets
	afterList func()
}

func (r *interleavedTickets) List(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := r.MemoryTickets.List(ctx)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return tickets, err
}

type fixture struct {
	svc    *TicketService
	repo   *testutil.MemoryTickets
	cache  *recordingCache
	events []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{repo: testutil.NewMemoryTickets(epoch), cache: &recordingCache{}}
	dispatcher := events.NewInMemoryDispatcher()
	record := func(_ context.Context, e events.Event) error {
		f.events = append(f.events, e)
		return nil
	}
	dispatcher.Subscribe(events.EventTicketCreated, record)
	dispatcher.Subscribe(events.EventTicketUpdated, record)
	dispatcher.Subscribe(events.EventTicketDeleted, record)

	f.svc = NewTicketService(TicketDependencies{
		TicketRepo: f.repo,
		Cache:      f.cache,
		Dispatcher: dispatcher,
		Now:        func() time.Time { return epoch },
	})
	return f
}

func ptr[T any](v T) *T { return &v }

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, code), "want %s, got %v", code, err)
}

func TestCreateDefaults(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.svc.Create(context.Background(), CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C"})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Nil(t, ticket.Outcome)
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)
	_, err = uuid.Parse(ticket.ID)
	assert.NoError(t, err)
	require.Len(t, f.events, 1)
	assert.Equal(t, events.EventTicketCreated, f.events[0].Type)
}

func TestCreateKeepsProvidedStatusAndOutcome(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.svc.Create(context.Background(), CreateInput{
		Topic: " A ", Owner: "B", ProblemDescription: "C",
		Status:  ptr(domain.TicketStatusOnHold),
		Outcome: ptr("waiting on vendor"),
	})
	require.NoError(t, err)
	assert.Equal(t, "A", ticket.Topic)
	assert.Equal(t, domain.TicketStatusOnHold, ticket.Status)
	assert.Equal(t, "waiting on vendor", *ticket.Outcome)
}

func TestCreateBlankOutcomeBecomesNull(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.svc.Create(context.Background(), CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C", Outcome: ptr("   ")})
	require.NoError(t, err)
	assert.Nil(t, ticket.Outcome)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{Topic: "", Owner: "B", ProblemDescription: "C"})
	assertCode(t, err, apperrors.CodeValidation)
	assert.Equal(t, []string{"topic"}, apperrors.ToDomainError(err).Details["fields"])
	assert.Zero(t, f.repo.Len())

	_, err = f.svc.Create(context.Background(), CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C", Status: ptr(domain.TicketStatus("closed"))})
	assertCode(t, err, apperrors.CodeValidation)
	assert.Zero(t, f.repo.Len())
	assert.Zero(t, f.repo.Calls["Create"])
}

func TestUnknownIDsAreNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		_, err := f.svc.Get(ctx, id)
		assertCode(t, err, apperrors.CodeNotFound)

		_, err = f.svc.Update(ctx, id, UpdateInput{Topic: ptr("x")})
		assertCode(t, err, apperrors.CodeNotFound)

		_, err = f.svc.Update(ctx, id, UpdateInput{Status: ptr(domain.TicketStatusResolved)})
		assertCode(t, err, apperrors.CodeNotFound)

		err = f.svc.Delete(ctx, id)
		assertCode(t, err, apperrors.CodeNotFound)
	}
	assert.Zero(t, f.repo.Calls["Delete"])
}

func TestAlternateUUIDSpellingsResolveToCanonicalID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C"})
	require.NoError(t, err)

	upper := strings.ToUpper(created.ID)
	for _, id := range []string{"urn:uuid:" + created.ID, upper, "{" + upper + "}"} {
		got, err := f.svc.Get(ctx, id)
		require.NoError(t, err, id)
		assert.Equal(t, created.ID, got.ID)
	}

	updated, err := f.svc.Update(ctx, "urn:uuid:"+created.ID, UpdateInput{Topic: ptr("A2")})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	require.NoError(t, f.svc.Delete(ctx, "urn:uuid:"+upper))
	last := f.events[len(f.events)-1].Payload.(events.TicketDeletedPayload)
	assert.Equal(t, created.ID, last.DeletedID)
}

func TestUpdateStatusLeavesOtherFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C", Outcome: ptr("x")})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, created.ID, UpdateInput{Status: ptr(domain.TicketStatusInProgress)})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	expected := *created
	expected.Status = updated.Status
	expected.UpdatedAt = updated.UpdatedAt
	assert.Equal(t, expected, *updated)

	last := f.events[len(f.events)-1].Payload.(events.TicketUpdatedPayload)
	assert.True(t, last.StatusChanged())
	assert.Equal(t, []string{"status"}, last.Fields)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C"})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, created.ID, UpdateInput{Owner: ptr("  ")})
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.svc.Update(ctx, created.ID, UpdateInput{Status: ptr(domain.TicketStatus("done"))})
	assertCode(t, err, apperrors.CodeValidation)
	assert.Zero(t, f.repo.Calls["Update"])
}

func TestUpdateOutcomeCanBeCleared(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C", Outcome: ptr("x")})
	require.NoError(t, err)

	kept, err := f.svc.Update(ctx, created.ID, UpdateInput{Topic: ptr("A2")})
	require.NoError(t, err)
	assert.Equal(t, "x", *kept.Outcome)

	cleared, err := f.svc.Update(ctx, created.ID, UpdateInput{Outcome: domain.SomeString("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.Outcome)
}

func TestLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, created.Status)
	assert.Nil(t, created.Outcome)

	resolved, err := f.svc.Update(ctx, created.ID, UpdateInput{
		Status:  ptr(domain.TicketStatusResolved),
		Outcome: domain.SomeString("fixed"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	assert.Equal(t, "fixed", *resolved.Outcome)
	assert.True(t, resolved.UpdatedAt.After(resolved.CreatedAt))

	require.NoError(t, f.svc.Delete(ctx, created.ID))

	_, err = f.svc.Get(ctx, created.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestDeleteBlockedIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C"})
	require.NoError(t, err)
	invalidations := f.cache.invalidated

	f.repo.Blocked = true
	err = f.svc.Delete(ctx, created.ID)
	assertCode(t, err, apperrors.CodeForbidden)
	assert.Equal(t, 1, f.repo.Len())
	assert.Equal(t, invalidations, f.cache.invalidated)
}

func TestListUsesAndInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, CreateInput{Topic: "first", Owner: "B", ProblemDescription: "C"})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, CreateInput{Topic: "second", Owner: "B", ProblemDescription: "C"})
	require.NoError(t, err)

	result, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceStore, result.Source)
	require.Len(t, result.Tickets, 2)
	assert.Equal(t, second.ID, result.Tickets[0].ID)
	assert.Equal(t, first.ID, result.Tickets[1].ID)

	_, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.repo.Calls["List"], "second read served from cache")

	require.NoError(t, f.svc.Delete(ctx, first.ID))
	result, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.Calls["List"])
	assert.Len(t, result.Tickets, 1)
}

func TestListLoadRacingDeleteIsNotCached(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &interleavedTickets{MemoryTickets: testutil.NewMemoryTickets(epoch)}
	svc := NewTicketService(TicketDependencies{
		TicketRepo: repo,
		Cache:      cache.NewTicketListCache(client, time.Minute),
		Now:        func() time.Time { return epoch },
	})

	created, err := svc.Create(ctx, CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C"})
	require.NoError(t, err)

	repo.afterList = func() { require.NoError(t, svc.Delete(ctx, created.ID)) }
	result, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, result.Tickets, 1, "snapshot taken before the delete")
	assert.False(t, srv.Exists(cache.ListKey))

	result, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Tickets)
	assert.Equal(t, 0, repo.Len())
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	f := newFixture(t)
	f.repo.Err = errors.New("dial tcp: connection refused")

	_, err := f.svc.List(context.Background())
	assertCode(t, err, apperrors.CodeInternal)
	assert.Equal(t, "internal server error", apperrors.ToDomainError(err).Message)

	_, err = f.svc.Create(context.Background(), CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C"})
	assertCode(t, err, apperrors.CodeInternal)
}

func TestUnconfiguredServesFixtures(t *testing.T) {
	svc := NewTicketService(TicketDependencies{Now: func() time.Time { return epoch }})
	ctx := context.Background()
	assert.False(t, svc.Configured())

	result, err := svc.List(ctx)
	require.NoError(t, err)
	assert.True(t, result.Preview())
	assert.Len(t, result.Tickets, 5)
	assert.Equal(t, FixtureTickets(epoch), result.Tickets)

	ticket, err := svc.Get(ctx, "mock-3")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	assert.NotNil(t, ticket.Outcome)

	_, err = svc.Get(ctx, "mock-9")
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = svc.Create(ctx, CreateInput{Topic: "A", Owner: "B", ProblemDescription: "C"})
	assertCode(t, err, apperrors.CodeServiceUnavailable)
	_, err = svc.Update(ctx, "mock-1", UpdateInput{})
	assertCode(t, err, apperrors.CodeServiceUnavailable)
	assertCode(t, svc.Delete(ctx, "mock-1"), apperrors.CodeServiceUnavailable)
}

func TestFixturesAreOrderedNewestFirst(t *testing.T) {
	tickets := FixtureTickets(epoch)
	for i := 1; i < len(tickets); i++ {
		assert.False(t, tickets[i].CreatedAt.After(tickets[i-1].CreatedAt))
		assert.False(t, tickets[i].UpdatedAt.Before(tickets[i].CreatedAt))
	}
}
