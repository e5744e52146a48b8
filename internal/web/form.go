package web

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/service"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

// FormMode selects whether a submitted form creates or edits a ticket.
type FormMode string

const (
	ModeCreate FormMode = "create"
	ModeEdit   FormMode = "edit"
)

// formErrorKey holds errors that belong to no single field.
const formErrorKey = "form"

// ErrInvalidForm is returned by Submit when the draft fails validation.
var ErrInvalidForm = errors.New("ticket form has errors")

var fieldLabels = map[string]string{
	"topic":               "Topic",
	"owner":               "Owner",
	"problem_description": "Problem description",
	"status":              "Status",
}

// TicketWriter is the subset of the ticket service a form submits to.
type TicketWriter interface {
	Create(ctx context.Context, input service.CreateInput) (*domain.Ticket, error)
	Update(ctx context.Context, id string, input service.UpdateInput) (*domain.Ticket, error)
}

// Form is a ticket draft being created or edited.
type Form struct {
	Mode               FormMode
	TicketID           string
	Topic              string
	Owner              string
	ProblemDescription string
	Status             domain.TicketStatus
	Outcome            string
	Errors             map[string]string
}

// NewCreateForm returns an empty draft for a new ticket.
func NewCreateForm() *Form {
	return &Form{Mode: ModeCreate, Status: domain.TicketStatusNew, Errors: map[string]string{}}
}

// NewEditForm returns a draft seeded from an existing ticket.
func NewEditForm(ticket *domain.Ticket) *Form {
	f := &Form{
		Mode:               ModeEdit,
		TicketID:           ticket.ID,
		Topic:              ticket.Topic,
		Owner:              ticket.Owner,
		ProblemDescription: ticket.ProblemDescription,
		Status:             ticket.Status,
		Errors:             map[string]string{},
	}
	if ticket.Outcome != nil {
		f.Outcome = *ticket.Outcome
	}
	return f
}

// Bind copies submitted values into the draft. Status and outcome are only
// read in edit mode.
func (f *Form) Bind(value func(key string, defaultValue ...string) string) {
	f.Topic = value("topic")
	f.Owner = value("owner")
	f.ProblemDescription = value("problem_description")
	if f.Mode == ModeEdit {
		f.Status = domain.TicketStatus(value("status", string(f.Status)))
		f.Outcome = value("outcome")
	}
}

// Editing reports whether the form edits an existing ticket.
func (f *Form) Editing() bool {
	return f.Mode == ModeEdit
}

// Action is the URL the form posts to.
func (f *Form) Action() string {
	if f.Editing() {
		return "/tickets/" + f.TicketID
	}
	return "/tickets"
}

// CancelHref is where the cancel link leads.
func (f *Form) CancelHref() string {
	if f.Editing() {
		return "/tickets/" + f.TicketID
	}
	return "/"
}

// Validate trims the draft and records an error per empty required field.
func (f *Form) Validate() bool {
	f.Errors = map[string]string{}
	f.Topic = strings.TrimSpace(f.Topic)
	f.Owner = strings.TrimSpace(f.Owner)
	f.ProblemDescription = strings.TrimSpace(f.ProblemDescription)
	f.Outcome = strings.TrimSpace(f.Outcome)

	for key, val := range map[string]string{
		"topic":               f.Topic,
		"owner":               f.Owner,
		"problem_description": f.ProblemDescription,
	} {
		if val == "" {
			f.Errors[key] = fieldLabels[key] + " is required"
		}
	}
	if f.Editing() && !f.Status.Valid() {
		f.Errors["status"] = "Choose a valid status"
	}
	return len(f.Errors) == 0
}

// CreateInput builds the service input for a new ticket.
func (f *Form) CreateInput() service.CreateInput {
	return service.CreateInput{
		Topic:              f.Topic,
		Owner:              f.Owner,
		ProblemDescription: f.ProblemDescription,
	}
}

// UpdateInput builds the service input for an edit. Every field is sent;
// a blank outcome clears it.
func (f *Form) UpdateInput() service.UpdateInput {
	status := f.Status
	outcome := domain.NullString()
	if f.Outcome != "" {
		outcome = domain.SomeString(f.Outcome)
	}
	return service.UpdateInput{
		Topic:              &f.Topic,
		Owner:              &f.Owner,
		ProblemDescription: &f.ProblemDescription,
		Status:             &status,
		Outcome:            outcome,
	}
}

// Submit validates the draft and hands it to the service. Failures are
// recorded on the draft so it can be shown again unchanged.
func (f *Form) Submit(ctx context.Context, tickets TicketWriter) (*domain.Ticket, error) {
	if !f.Validate() {
		return nil, ErrInvalidForm
	}

	var (
		ticket *domain.Ticket
		err    error
	)
	switch f.Mode {
	case ModeEdit:
		ticket, err = tickets.Update(ctx, f.TicketID, f.UpdateInput())
	default:
		ticket, err = tickets.Create(ctx, f.CreateInput())
	}
	if err != nil {
		f.recordServiceError(err)
		return nil, err
	}
	return ticket, nil
}

func (f *Form) recordServiceError(err error) {
	domainErr := apperrors.ToDomainError(err)
	if fields, ok := domainErr.Details["fields"].([]string); ok && domainErr.Code == apperrors.CodeValidation {
		for _, field := range fields {
			if label, known := fieldLabels[field]; known {
				f.Errors[field] = label + " is required"
			}
		}
	}
	f.Errors[formErrorKey] = domainErr.Message
}
