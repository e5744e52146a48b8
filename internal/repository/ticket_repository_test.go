package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

var columns = []string{"id", "topic", "status", "owner", "problem_description", "outcome", "created_at", "updated_at"}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, TicketRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock, NewTicketRepository(mock)
}

func strPtr(s string) *string { return &s }

func TestListOrdersByCreatedAt(t *testing.T) {
	mock, repo := newMock(t)
	newer := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets ORDER BY created_at DESC")).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("b", "Printer jam", domain.TicketStatusNew, "Ana", "Tray 2", (*string)(nil), newer, newer).
			AddRow("a", "VPN down", domain.TicketStatusResolved, "Ben", "No tunnel", strPtr("Restarted"), older, newer))

	tickets, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "b", tickets[0].ID)
	assert.Nil(t, tickets[0].Outcome)
	assert.Equal(t, "Restarted", *tickets[1].Outcome)
}

func TestListEmptyReturnsEmptySlice(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery("FROM tickets").WillReturnRows(pgxmock.NewRows(columns))

	tickets, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tickets)
	assert.Empty(t, tickets)
}

func TestGetByIDMissing(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets WHERE id=$1")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestExists(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("t-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), "t-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateScansGeneratedFields(t *testing.T) {
	mock, repo := newMock(t)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO tickets").
		WithArgs("A", domain.TicketStatusNew, "B", "C", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("new-id", now, now))

	ticket := &domain.Ticket{Topic: "A", Status: domain.TicketStatusNew, Owner: "B", ProblemDescription: "C"}
	require.NoError(t, repo.Create(context.Background(), ticket))
	assert.Equal(t, "new-id", ticket.ID)
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)
}

func TestUpdateOnlyTouchesPresentFields(t *testing.T) {
	mock, repo := newMock(t)
	now := time.Now().UTC()
	status := domain.TicketStatusResolved

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets SET status=$1, outcome=$2, updated_at=NOW() WHERE id=$3 RETURNING")).
		WithArgs(status, pgxmock.AnyArg(), "t-1").
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow("t-1", "A", status, "B", "C", strPtr("fixed"), now.Add(-time.Minute), now))

	ticket, err := repo.Update(context.Background(), "t-1", TicketChanges{
		Status:  &status,
		Outcome: domain.SomeString("fixed"),
	})
	require.NoError(t, err)
	assert.Equal(t, status, ticket.Status)
	assert.True(t, ticket.UpdatedAt.After(ticket.CreatedAt))
}

func TestUpdateWithoutChangesStillBumpsTimestamp(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE tickets SET updated_at=NOW() WHERE id=$1")).
		WithArgs("t-1").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.Update(context.Background(), "t-1", TicketChanges{})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestDeleteReportsAffectedRows(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tickets WHERE id=$1")).
		WithArgs("t-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	affected, err := repo.Delete(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestDeletePropagatesErrors(t *testing.T) {
	mock, repo := newMock(t)
	boom := errors.New("connection reset")
	mock.ExpectExec("DELETE FROM tickets").WithArgs("t-1").WillReturnError(boom)

	_, err := repo.Delete(context.Background(), "t-1")
	assert.ErrorIs(t, err, boom)
}
