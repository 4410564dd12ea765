package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-insight/internal/api/dto"
	"github.com/spec-kit/incident-insight/internal/auth"
	"github.com/spec-kit/incident-insight/internal/service"
	"github.com/spec-kit/incident-insight/pkg/util"
)

// WorkflowHandler serves the ticket lifecycle mutation endpoints.
type WorkflowHandler struct {
	workflow *service.WorkflowService
}

// NewWorkflowHandler constructs handler.
func NewWorkflowHandler(workflow *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow}
}

// Assign POST /tickets/:id/assign.
func (h *WorkflowHandler) Assign(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.TechnicianID == "" {
		return util.NewValidationError("technician_id required", nil)
	}
	ticket, err := h.workflow.Assign(c.Context(), user, c.Params("id"), req.TechnicianID, req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Delegate POST /tickets/:id/delegate.
func (h *WorkflowHandler) Delegate(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	var req dto.DelegateRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.DeputyID == "" {
		return util.NewValidationError("deputy_id required", nil)
	}
	ticket, err := h.workflow.Delegate(c.Context(), user, c.Params("id"), req.DeputyID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// TakeInCharge POST /tickets/:id/take.
func (h *WorkflowHandler) TakeInCharge(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	ticket, err := h.workflow.TakeInCharge(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Resolve POST /tickets/:id/resolve.
func (h *WorkflowHandler) Resolve(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.workflow.Resolve(c.Context(), user, c.Params("id"), req.Summary)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Validate POST /tickets/:id/validate.
func (h *WorkflowHandler) Validate(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	ticket, err := h.workflow.Validate(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Reject POST /tickets/:id/reject.
func (h *WorkflowHandler) Reject(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	var req dto.RejectRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.workflow.Reject(c.Context(), user, c.Params("id"), req.Motive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Reopen POST /tickets/:id/reopen.
func (h *WorkflowHandler) Reopen(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	ticket, err := h.workflow.Reopen(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Escalate POST /tickets/:id/escalate.
func (h *WorkflowHandler) Escalate(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	ticket, err := h.workflow.Escalate(c.Context(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}

// Comment POST /tickets/:id/comments.
func (h *WorkflowHandler) Comment(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if err := h.workflow.AddComment(c.Context(), user, c.Params("id"), req.Body); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusCreated)
}

// SubmitFeedback POST /tickets/:id/feedback.
func (h *WorkflowHandler) SubmitFeedback(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.workflow.SubmitFeedback(c.Context(), user, c.Params("id"), req.Score)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetail(ticket)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *WorkflowHandler) UpdateStatus(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	var req dto.StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return util.NewValidationError("status required", nil)
	}
	ticket, err := h.workflow.UpdateStatus(c.Context(), user, c.Params("id"), req.Status, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketSummary(ticket)})
}
