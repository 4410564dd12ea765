package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-insight/internal/api/dto"
	"github.com/spec-kit/incident-insight/internal/auth"
	"github.com/spec-kit/incident-insight/internal/engine"
	"github.com/spec-kit/incident-insight/internal/service"
	"github.com/spec-kit/incident-insight/pkg/util"
)

// TicketsHandler serves ticket listing, detail, timeline and score
// endpoints.
type TicketsHandler struct {
	workflow  *service.WorkflowService
	reporting *service.ReportingService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(workflow *service.WorkflowService, reporting *service.ReportingService) *TicketsHandler {
	return &TicketsHandler{workflow: workflow, reporting: reporting}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	if user == nil {
		return util.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Category:    req.Category,
		Priority:    req.Priority,
		Agency:      req.Agency,
	}
	ticket, err := h.workflow.CreateTicket(c.Context(), user, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	if user == nil {
		return util.NewUnauthorized("authentication required")
	}
	query, err := parseReportQuery(c)
	if err != nil {
		return err
	}
	query.Caller = user
	tickets, err := h.reporting.ListTickets(c.Context(), query)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	score, err := h.reporting.Score(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	timeline, err := h.reporting.Timeline(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"score":    dto.NewScoreResponse(score),
		"timeline": dto.NewTimelineEntries(timeline),
	}})
}

// GetTimeline GET /tickets/:id/timeline.
func (h *TicketsHandler) GetTimeline(c *fiber.Ctx) error {
	timeline, err := h.reporting.Timeline(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTimelineEntries(timeline)})
}

// GetScore GET /tickets/:id/score.
func (h *TicketsHandler) GetScore(c *fiber.Ctx) error {
	score, err := h.reporting.Score(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewScoreResponse(score)})
}

// parseReportQuery maps query string parameters to the reporting filters.
func parseReportQuery(c *fiber.Ctx) (service.ReportQuery, error) {
	var query service.ReportQuery

	query.Status = queryPtr(c, "status")
	query.Priority = queryPtr(c, "priority")
	query.Agency = queryPtr(c, "agency")
	query.Category = queryPtr(c, "category")
	query.Type = queryPtr(c, "type")
	query.ActorName = queryPtr(c, "actor")
	query.CreatorSearch = queryPtr(c, "creator")

	switch strings.ToLower(c.Query("delegation")) {
	case "":
	case "delegated":
		mode := engine.DelegationDelegated
		query.Delegation = &mode
	case "not_delegated":
		mode := engine.DelegationNotDelegated
		query.Delegation = &mode
	default:
		return query, util.NewValidationError("delegation must be delegated or not_delegated", nil)
	}

	if raw := c.Query("created_from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return query, util.NewValidationError("created_from must be YYYY-MM-DD", nil)
		}
		query.CreatedFrom = &t
	}
	if raw := c.Query("created_to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return query, util.NewValidationError("created_to must be YYYY-MM-DD", nil)
		}
		query.CreatedTo = &t
	}
	if raw := c.Query("stale_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			return query, util.NewValidationError("stale_days must be a non-negative integer", nil)
		}
		query.StaleOlderThanDays = &days
	}
	return query, nil
}

func queryPtr(c *fiber.Ctx, name string) *string {
	value := strings.TrimSpace(c.Query(name))
	if value == "" {
		return nil
	}
	return &value
}
