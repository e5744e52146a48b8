package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-tracker/internal/api/dto"
	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/service"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util/errorutil"
)

// TicketsHandler serves the JSON ticket API.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// RequireStore rejects API calls while the ticket store is unconfigured.
// Fixture data is only shown in the web preview.
func (h *TicketsHandler) RequireStore(c *fiber.Ctx) error {
	if !h.service.Configured() {
		return apperrors.NewServiceUnavailable(
			"ticket store is not configured; set POSTGRES_DSN",
			map[string]any{"mode": "preview"},
		)
	}
	return c.Next()
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	result, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(result.Tickets))
	for i := range result.Tickets {
		items = append(items, ticketResponse(&result.Tickets[i]))
	}
	return c.JSON(items)
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(ticket))
}

// CreateTicket POST /api/tickets. Without an owner in the body, the
// ticket is filed under the token's owner.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Owner) == "" {
		if principal, ok := auth.PrincipalFromContext(c); ok {
			req.Owner = principal.Owner
		}
	}
	ticket, err := h.service.Create(c.UserContext(), service.CreateInput{
		Topic:              req.Topic,
		Owner:              req.Owner,
		ProblemDescription: req.ProblemDescription,
		Status:             req.Status,
		Outcome:            req.Outcome,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(ticketResponse(ticket))
}

// UpdateTicket PUT /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Update(c.UserContext(), c.Params("id"), service.UpdateInput{
		Topic:              req.Topic,
		Owner:              req.Owner,
		ProblemDescription: req.ProblemDescription,
		Status:             req.Status,
		Outcome:            req.Outcome,
	})
	if err != nil {
		return err
	}
	return c.JSON(ticketResponse(ticket))
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.DeleteTicketResponse{Message: "Ticket deleted", DeletedID: id})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                 ticket.ID,
		Topic:              ticket.Topic,
		Status:             ticket.Status,
		Owner:              ticket.Owner,
		ProblemDescription: ticket.ProblemDescription,
		Outcome:            ticket.Outcome,
		CreatedAt:          ticket.CreatedAt,
		UpdatedAt:          ticket.UpdatedAt,
	}
}
