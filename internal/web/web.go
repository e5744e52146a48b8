// Package web renders the server-side ticket UI: the dashboard, the
// detail page with its delete confirmation, and the create/edit form.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/dashboard"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/service"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

//go:embed templates
var templateFiles embed.FS

const layout = "layouts/main"

var badgeClasses = map[domain.TicketStatus]string{
	domain.TicketStatusNew:        "badge-blue",
	domain.TicketStatusInProgress: "badge-yellow",
	domain.TicketStatusOnHold:     "badge-orange",
	domain.TicketStatusResolved:   "badge-green",
}

// NewEngine returns the fiber view engine over the embedded templates.
func NewEngine() *html.Engine {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("markdown", renderMarkdown)
	engine.AddFunc("badgeClass", BadgeClass)
	engine.AddFunc("formatTime", formatTime)
	return engine
}

// BadgeClass returns the CSS class coloring a status badge.
func BadgeClass(status domain.TicketStatus) string {
	if class, ok := badgeClasses[status]; ok {
		return class
	}
	return "badge-gray"
}

func formatTime(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}

// TicketService is what the UI needs from the ticket service.
type TicketService interface {
	TicketWriter
	Configured() bool
	List(ctx context.Context) (service.ListResult, error)
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves the web UI routes.
type Handler struct {
	tickets TicketService
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler constructs the UI handler.
func NewHandler(tickets TicketService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{tickets: tickets, logger: logger, now: time.Now}
}

// Register mounts the UI routes.
func (h *Handler) Register(router fiber.Router) {
	router.Get("/", h.Dashboard)
	router.Get("/tickets/new", h.NewTicket)
	router.Post("/tickets", h.CreateTicket)
	router.Get("/tickets/:id", h.ShowTicket)
	router.Get("/tickets/:id/edit", h.EditTicket)
	router.Post("/tickets/:id", h.UpdateTicket)
	router.Post("/tickets/:id/delete", h.DeleteTicket)
}

type statusCard struct {
	Status domain.TicketStatus
	Label  string
	Count  int
}

type filterLink struct {
	Label  string
	Href   string
	Count  int
	Active bool
}

// Dashboard GET /.
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	if c.Query("refresh") != "" {
		c.Set(fiber.HeaderCacheControl, "no-store")
	}

	filter := dashboard.ParseFilter(c.Query("status"))
	data := fiber.Map{"Title": "Tickets", "Preview": !h.tickets.Configured()}

	result, err := h.tickets.List(c.UserContext())
	if err != nil {
		domainErr := h.logFailure("list tickets", err)
		data["Error"] = domainErr.Message
		c.Status(domainErr.HTTPStatus)
	}

	summary := dashboard.Aggregate(result.Tickets, filter)
	cards := make([]statusCard, 0, len(domain.TicketStatuses))
	filters := []filterLink{{Label: "All", Href: "/", Count: summary.Count(dashboard.FilterAll), Active: filter == dashboard.FilterAll}}
	for _, status := range domain.TicketStatuses {
		option := dashboard.Filter(status)
		cards = append(cards, statusCard{Status: status, Label: status.Label(), Count: summary.Count(option)})
		filters = append(filters, filterLink{
			Label:  status.Label(),
			Href:   "/?status=" + string(status),
			Count:  summary.Count(option),
			Active: filter == option,
		})
	}
	data["Summary"] = summary
	data["Cards"] = cards
	data["Filters"] = filters
	return c.Render("dashboard", data, layout)
}

// ShowTicket GET /tickets/:id. ?delete=confirm opens the delete prompt.
func (h *Handler) ShowTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.renderError(c, "get ticket", err)
	}
	flow := DeleteFlow{State: DeleteIdle}
	if c.Query("delete") == "confirm" {
		flow, _ = flow.Next(DeleteRequested, "")
	}
	return h.renderDetail(c, ticket, flow)
}

// DeleteTicket POST /tickets/:id/delete. The prompt has been confirmed;
// success redirects to a fresh dashboard, failure shows the detail page
// again with the reason.
func (h *Handler) DeleteTicket(c *fiber.Ctx) error {
	id := c.Params("id")
	flow, err := DeleteFlow{State: DeleteConfirming}.Next(DeleteConfirmed, "")
	if err != nil {
		return err
	}

	if err := h.tickets.Delete(c.UserContext(), id); err != nil {
		domainErr := h.logFailure("delete ticket", err)
		if domainErr.Code == apperrors.CodeNotFound {
			return h.renderError(c, "delete ticket", err)
		}
		flow, _ = flow.Next(DeleteFailed, domainErr.Message)
		ticket, getErr := h.tickets.Get(c.UserContext(), id)
		if getErr != nil {
			return h.renderError(c, "get ticket", getErr)
		}
		c.Status(domainErr.HTTPStatus)
		return h.renderDetail(c, ticket, flow)
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Redirect("/?refresh="+strconv.FormatInt(h.now().UnixMilli(), 10), fiber.StatusSeeOther)
}

// NewTicket GET /tickets/new.
func (h *Handler) NewTicket(c *fiber.Ctx) error {
	return h.renderForm(c, NewCreateForm())
}

// CreateTicket POST /tickets.
func (h *Handler) CreateTicket(c *fiber.Ctx) error {
	form := NewCreateForm()
	form.Bind(c.FormValue)
	return h.submit(c, form)
}

// EditTicket GET /tickets/:id/edit.
func (h *Handler) EditTicket(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.renderError(c, "get ticket", err)
	}
	return h.renderForm(c, NewEditForm(ticket))
}

// UpdateTicket POST /tickets/:id.
func (h *Handler) UpdateTicket(c *fiber.Ctx) error {
	form := &Form{Mode: ModeEdit, TicketID: c.Params("id")}
	form.Bind(c.FormValue)
	return h.submit(c, form)
}

func (h *Handler) submit(c *fiber.Ctx, form *Form) error {
	ticket, err := form.Submit(c.UserContext(), h.tickets)
	switch {
	case errors.Is(err, ErrInvalidForm):
		c.Status(fiber.StatusBadRequest)
		return h.renderForm(c, form)
	case apperrors.Is(err, apperrors.CodeNotFound):
		return h.renderError(c, "update ticket", err)
	case err != nil:
		c.Status(h.logFailure("submit ticket form", err).HTTPStatus)
		return h.renderForm(c, form)
	}
	return c.Redirect("/tickets/"+ticket.ID, fiber.StatusSeeOther)
}

func (h *Handler) renderForm(c *fiber.Ctx, form *Form) error {
	title := "New Ticket"
	if form.Editing() {
		title = "Edit Ticket"
	}
	return c.Render("form", fiber.Map{
		"Title":    title,
		"Preview":  !h.tickets.Configured(),
		"Form":     form,
		"Statuses": domain.TicketStatuses,
	}, layout)
}

func (h *Handler) renderDetail(c *fiber.Ctx, ticket *domain.Ticket, flow DeleteFlow) error {
	outcome := ""
	if ticket.Outcome != nil {
		outcome = *ticket.Outcome
	}
	return c.Render("detail", fiber.Map{
		"Title":   ticket.Topic,
		"Preview": !h.tickets.Configured(),
		"Ticket":  ticket,
		"Outcome": outcome,
		"Delete":  flow,
	}, layout)
}

func (h *Handler) renderError(c *fiber.Ctx, op string, err error) error {
	domainErr := h.logFailure(op, err)
	heading := "Something went wrong"
	message := domainErr.Message
	if domainErr.Code == apperrors.CodeNotFound {
		heading = "Ticket not found"
		message = "The ticket you are looking for does not exist or has been deleted."
	}
	return c.Status(domainErr.HTTPStatus).Render("error", fiber.Map{
		"Title":   heading,
		"Preview": !h.tickets.Configured(),
		"Heading": heading,
		"Message": message,
	}, layout)
}

func (h *Handler) logFailure(op string, err error) *apperrors.DomainError {
	domainErr := apperrors.ToDomainError(err)
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError && domainErr.Code != apperrors.CodeServiceUnavailable {
		h.logger.Error("web request failed", zap.String("op", op), zap.Error(err))
	}
	return domainErr
}
