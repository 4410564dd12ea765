package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-insight/internal/domain"
	"github.com/spec-kit/incident-insight/internal/events"
	"github.com/spec-kit/incident-insight/internal/repository"
	"github.com/spec-kit/incident-insight/pkg/util"
)

// WorkflowService coordinates ticket lifecycle mutations. Every mutation
// records a history entry whose reason text the timeline classifier can
// parse back into a typed event.
type WorkflowService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// WorkflowDependencies bundles collaborators for the workflow service.
type WorkflowDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Type        domain.TicketType
	Category    string
	Priority    domain.TicketPriority
	Agency      string
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusPendingTriage: {domain.TicketStatusAssigned},
	domain.TicketStatusAssigned:      {domain.TicketStatusInProgress, domain.TicketStatusPendingTriage},
	domain.TicketStatusInProgress:    {domain.TicketStatusResolved},
	domain.TicketStatusResolved:      {domain.TicketStatusClosed, domain.TicketStatusRejected},
	domain.TicketStatusRejected:      {domain.TicketStatusAssigned, domain.TicketStatusReprocessed},
	domain.TicketStatusReprocessed:   {domain.TicketStatusClosed},
	domain.TicketStatusClosed:        {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CreateTicket opens a ticket in pending triage for the given creator.
func (s *WorkflowService) CreateTicket(ctx context.Context, creator *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if creator == nil {
		return nil, util.NewUnauthorized("creator required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, util.NewValidationError("title is required", nil)
	}
	if input.Type != domain.TicketTypeMaterial && input.Type != domain.TicketTypeApplication {
		return nil, util.NewValidationError("unknown ticket type", map[string]any{"type": input.Type})
	}

	now := s.now()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		Number:      generateTicketNumber(now),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Type:        input.Type,
		Category:    strings.TrimSpace(input.Category),
		Priority:    input.Priority,
		Status:      domain.TicketStatusPendingTriage,
		CreatorID:   creator.ID,
		Creator:     creator,
		Agency:      firstNonEmpty(input.Agency, creator.Agency),
		CreatedAt:   now,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityUndefined
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.recordTransition(ctx, ticket, nil, domain.TicketStatusPendingTriage, creator.ID, nil, now); err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, creator.ID, events.TicketCreatedPayload{
		Priority: ticket.Priority,
		Type:     ticket.Type,
		Title:    ticket.Title,
	}))
	return ticket, nil
}

// Assign dispatches a ticket to a technician. Managers only.
func (s *WorkflowService) Assign(ctx context.Context, actor *domain.User, ticketID, technicianID string, priority domain.TicketPriority) (*domain.Ticket, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	tech, err := s.users.GetByID(ctx, technicianID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if tech.Role != domain.RoleTechnician {
		return nil, util.NewValidationError("assignee is not a technician", map[string]any{"user_id": technicianID})
	}

	reassigning := ticket.Status != domain.TicketStatusPendingTriage
	if reassigning {
		if ticket.Status != domain.TicketStatusAssigned && ticket.Status != domain.TicketStatusInProgress && ticket.Status != domain.TicketStatusRejected {
			return nil, util.NewConflict("ticket cannot be assigned in current status", map[string]any{"status": ticket.Status})
		}
	}

	now := s.now()
	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusAssigned
	ticket.TechnicianID = &tech.ID
	ticket.Technician = tech
	if priority != "" {
		ticket.Priority = priority
	}
	if ticket.AssignedAt == nil {
		ticket.AssignedAt = &now
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	reason := fmt.Sprintf("Assigned to %s", tech.FullName)
	if reassigning {
		reason = fmt.Sprintf("Reassigned to %s", tech.FullName)
	}
	if err := s.recordTransition(ctx, ticket, &oldStatus, ticket.Status, actor.ID, &reason, now); err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventTicketAssigned, ticket.ID, actor.ID, events.TicketAssignedPayload{
		TechnicianID: tech.ID,
		Reassigned:   reassigning,
	}))
	return ticket, nil
}

// Delegate hands triage duty over to a deputy. DSI and Admin only.
func (s *WorkflowService) Delegate(ctx context.Context, actor *domain.User, ticketID, deputyID string) (*domain.Ticket, error) {
	if actor == nil || (actor.Role != domain.RoleDSI && actor.Role != domain.RoleAdmin) {
		return nil, util.NewForbidden("only the DSI may delegate")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	deputy, err := s.users.GetByID(ctx, deputyID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if deputy.Role != domain.RoleDeputyDSI {
		return nil, util.NewValidationError("delegate target must be a deputy", map[string]any{"user_id": deputyID})
	}

	now := s.now()
	oldStatus := ticket.Status
	ticket.Status = domain.TicketStatusPendingTriage
	ticket.DeputyID = &deputy.ID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	reason := fmt.Sprintf("Delegation to Deputy-DSI %s", deputy.FullName)
	if err := s.recordTransition(ctx, ticket, &oldStatus, ticket.Status, actor.ID, &reason, now); err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventTicketDelegated, ticket.ID, actor.ID, events.TicketDelegatedPayload{
		DeputyID: deputy.ID,
	}))
	return ticket, nil
}

// TakeInCharge moves an assigned ticket into progress. The assigned
// technician only.
func (s *WorkflowService) TakeInCharge(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, util.NewUnauthorized("actor required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if ticket.TechnicianID == nil || *ticket.TechnicianID != actor.ID {
		return nil, util.NewForbidden("only the assigned technician may take the ticket in charge")
	}
	return s.transition(ctx, ticket, actor, domain.TicketStatusInProgress, nil)
}

// Resolve closes out the technical work with a summary.
func (s *WorkflowService) Resolve(ctx context.Context, actor *domain.User, ticketID, summary string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, util.NewUnauthorized("actor required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if ticket.TechnicianID == nil || (*ticket.TechnicianID != actor.ID && !actor.Role.IsManager()) {
		return nil, util.NewForbidden("only the assigned technician may resolve")
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, util.NewValidationError("resolution summary is required", nil)
	}
	reason := fmt.Sprintf("Resolution summary: %s", summary)
	updated, err := s.transition(ctx, ticket, actor, domain.TicketStatusResolved, &reason)
	if err != nil {
		return nil, err
	}
	now := s.now()
	updated.ResolvedAt = &now
	if err := s.tickets.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Validate records the creator accepting the resolution and closes the
// ticket.
func (s *WorkflowService) Validate(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.ticketForCreator(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	reason := "User validation: Validated"
	updated, err := s.transition(ctx, ticket, actor, domain.TicketStatusClosed, &reason)
	if err != nil {
		return nil, err
	}
	now := s.now()
	updated.ClosedAt = &now
	if err := s.tickets.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Reject records the creator refusing the resolution with a motive.
func (s *WorkflowService) Reject(ctx context.Context, actor *domain.User, ticketID, motive string) (*domain.Ticket, error) {
	ticket, err := s.ticketForCreator(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	motive = strings.TrimSpace(motive)
	if motive == "" {
		return nil, util.NewValidationError("rejection motive is required", nil)
	}
	reason := fmt.Sprintf("User validation: Rejected. Reason: %s", motive)
	return s.transition(ctx, ticket, actor, domain.TicketStatusRejected, &reason)
}

// Reopen sends a rejected ticket back to its technician.
func (s *WorkflowService) Reopen(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if ticket.Status != domain.TicketStatusRejected {
		return nil, util.NewConflict("only rejected tickets can be reopened", map[string]any{"status": ticket.Status})
	}
	name := ticket.TechnicianName()
	if strings.TrimSpace(name) == "" {
		if ticket.TechnicianID != nil {
			name = *ticket.TechnicianID
		} else {
			name = "technician"
		}
	}
	reason := fmt.Sprintf("Reassigned to %s", name)
	updated, err := s.transition(ctx, ticket, actor, domain.TicketStatusAssigned, &reason)
	if err != nil {
		return nil, err
	}
	updated.ResolvedAt = nil
	if err := s.tickets.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Escalate bumps priority one level and leaves a relaunch trace in the
// history so the timeline shows the follow-up.
func (s *WorkflowService) Escalate(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, util.NewUnauthorized("actor required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if actor.ID != ticket.CreatorID && !actor.Role.IsManager() {
		return nil, util.NewForbidden("only the creator or a manager may escalate")
	}
	if ticket.IsTerminal() || ticket.Status == domain.TicketStatusClosed {
		return nil, util.NewConflict("cannot escalate a finished ticket", map[string]any{"status": ticket.Status})
	}

	ticket.Priority = escalatePriority(ticket.Priority)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	now := s.now()
	status := ticket.Status
	reason := fmt.Sprintf("Relaunched by %s", actorName(actor))
	if err := s.recordTransition(ctx, ticket, &status, status, actor.ID, &reason, now); err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventTicketStatusChanged, ticket.ID, actor.ID, events.TicketStatusChangedPayload{
		OldStatus: status,
		NewStatus: status,
		Reason:    reason,
	}))
	return ticket, nil
}

// AddComment leaves a free-form note in the history without changing
// status.
func (s *WorkflowService) AddComment(ctx context.Context, actor *domain.User, ticketID, body string) error {
	if actor == nil {
		return util.NewUnauthorized("actor required")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return util.NewValidationError("comment body is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return util.MapError(err)
	}
	now := s.now()
	status := ticket.Status
	reason := fmt.Sprintf("Comment: %s", body)
	return s.recordTransition(ctx, ticket, &status, status, actor.ID, &reason, now)
}

// SubmitFeedback stores the creator's satisfaction score.
func (s *WorkflowService) SubmitFeedback(ctx context.Context, actor *domain.User, ticketID string, score int) (*domain.Ticket, error) {
	ticket, err := s.ticketForCreator(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if score < 1 || score > 5 {
		return nil, util.NewValidationError("score must be between 1 and 5", map[string]any{"score": score})
	}
	if !ticket.IsTerminal() && ticket.Status != domain.TicketStatusClosed {
		return nil, util.NewConflict("feedback requires a resolved ticket", map[string]any{"status": ticket.Status})
	}
	ticket.FeedbackScore = &score
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.NewEvent(events.EventFeedbackSubmitted, ticket.ID, actor.ID, events.FeedbackSubmittedPayload{
		Score: score,
	}))
	return ticket, nil
}

// UpdateStatus performs a raw status change, manager only, guarded by
// the transition table.
func (s *WorkflowService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID string, newStatus domain.TicketStatus, reason string) (*domain.Ticket, error) {
	if err := requireManager(actor); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	var reasonPtr *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reasonPtr = &trimmed
	}
	updated, err := s.transition(ctx, ticket, actor, newStatus, reasonPtr)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch newStatus {
	case domain.TicketStatusResolved:
		updated.ResolvedAt = &now
	case domain.TicketStatusClosed:
		updated.ClosedAt = &now
	default:
		return updated, nil
	}
	if err := s.tickets.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *WorkflowService) transition(ctx context.Context, ticket *domain.Ticket, actor *domain.User, next domain.TicketStatus, reason *string) (*domain.Ticket, error) {
	if !isValidTransition(ticket.Status, next) {
		return nil, util.NewConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   next,
		})
	}
	now := s.now()
	oldStatus := ticket.Status
	ticket.Status = next
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	if err := s.recordTransition(ctx, ticket, &oldStatus, next, actor.ID, reason, now); err != nil {
		return nil, err
	}
	payload := events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: next}
	if reason != nil {
		payload.Reason = *reason
	}
	s.publish(ctx, events.NewEvent(events.EventTicketStatusChanged, ticket.ID, actor.ID, payload))
	return ticket, nil
}

func (s *WorkflowService) recordTransition(ctx context.Context, ticket *domain.Ticket, oldStatus *domain.TicketStatus, newStatus domain.TicketStatus, userID string, reason *string, at time.Time) error {
	if s.history == nil {
		return nil
	}
	var old *string
	if oldStatus != nil {
		v := string(*oldStatus)
		old = &v
	}
	entry := &domain.HistoryEntry{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		OldStatus: old,
		NewStatus: string(newStatus),
		UserID:    userID,
		Reason:    reason,
		ChangedAt: at,
	}
	return s.history.Create(ctx, entry)
}

func (s *WorkflowService) ticketForCreator(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, util.NewUnauthorized("actor required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	if ticket.CreatorID != actor.ID {
		return nil, util.NewForbidden("only the ticket creator may do this")
	}
	return ticket, nil
}

func (s *WorkflowService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}

func requireManager(actor *domain.User) error {
	if actor == nil {
		return util.NewUnauthorized("actor required")
	}
	if !actor.Role.IsManager() {
		return util.NewForbidden("manager role required")
	}
	return nil
}

func escalatePriority(p domain.TicketPriority) domain.TicketPriority {
	switch p {
	case domain.TicketPriorityUndefined:
		return domain.TicketPriorityMedium
	case domain.TicketPriorityLow:
		return domain.TicketPriorityMedium
	case domain.TicketPriorityMedium:
		return domain.TicketPriorityHigh
	default:
		return domain.TicketPriorityCritical
	}
}

func actorName(actor *domain.User) string {
	if actor == nil || strings.TrimSpace(actor.FullName) == "" {
		return "user"
	}
	return actor.FullName
}

func generateTicketNumber(now time.Time) string {
	return fmt.Sprintf("INC-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
