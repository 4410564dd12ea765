package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-insight/internal/domain"
	"github.com/spec-kit/incident-insight/internal/events"
)

func newWorkflowFixture(t *testing.T, tickets ...*domain.Ticket) (*WorkflowService, *fakeTicketRepo, *fakeHistoryRepo) {
	t.Helper()
	ticketRepo := newFakeTicketRepo(tickets...)
	historyRepo := newFakeHistoryRepo()
	userRepo := newFakeUserRepo(svcManager, svcDeputy, svcTech, svcCreator)
	svc := NewWorkflowService(WorkflowDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		UserRepo:    userRepo,
		Dispatcher:  events.NewInMemoryDispatcher(),
	})
	svc.now = func() time.Time { return svcEpoch }
	return svc, ticketRepo, historyRepo
}

func TestCreateTicketStartsInPendingTriage(t *testing.T) {
	svc, repo, history := newWorkflowFixture(t)

	ticket, err := svc.CreateTicket(context.Background(), svcCreator, TicketCreateInput{
		Title: "screen flickers",
		Type:  domain.TicketTypeMaterial,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusPendingTriage, ticket.Status)
	assert.Equal(t, domain.TicketPriorityUndefined, ticket.Priority)
	assert.Equal(t, "Lyon", ticket.Agency)
	assert.True(t, strings.HasPrefix(ticket.Number, "INC-20250407-"))

	stored, err := repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Number, stored.Number)

	entry := history.lastEntry(ticket.ID)
	require.NotNil(t, entry)
	assert.Nil(t, entry.OldStatus)
	assert.Equal(t, string(domain.TicketStatusPendingTriage), entry.NewStatus)
}

func TestCreateTicketRejectsEmptyTitle(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t)

	_, err := svc.CreateTicket(context.Background(), svcCreator, TicketCreateInput{
		Title: "   ",
		Type:  domain.TicketTypeMaterial,
	})
	assert.Error(t, err)
}

func TestAssignWritesParseableReason(t *testing.T) {
	svc, repo, history := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusPendingTriage))

	ticket, err := svc.Assign(context.Background(), svcManager, "tk-1", svcTech.ID, domain.TicketPriorityCritical)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusAssigned, ticket.Status)
	assert.Equal(t, domain.TicketPriorityCritical, ticket.Priority)
	require.NotNil(t, ticket.TechnicianID)
	assert.Equal(t, svcTech.ID, *ticket.TechnicianID)

	stored, err := repo.GetByID(context.Background(), "tk-1")
	require.NoError(t, err)
	assert.NotNil(t, stored.AssignedAt)

	entry := history.lastEntry("tk-1")
	require.NotNil(t, entry)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "Assigned to Marc Dupont", *entry.Reason)
}

func TestAssignFromWorkingStatusIsReassignment(t *testing.T) {
	ticket := svcTicket("tk-1", domain.TicketStatusAssigned)
	ticket.TechnicianID = &svcTech.ID
	svc, _, history := newWorkflowFixture(t, ticket)

	_, err := svc.Assign(context.Background(), svcManager, "tk-1", svcTech.ID, "")
	require.NoError(t, err)

	entry := history.lastEntry("tk-1")
	require.NotNil(t, entry)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "Reassigned to Marc Dupont", *entry.Reason)
}

func TestAssignRequiresManager(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusPendingTriage))

	_, err := svc.Assign(context.Background(), svcCreator, "tk-1", svcTech.ID, "")
	assert.Error(t, err)
}

func TestAssignRejectsNonTechnician(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusPendingTriage))

	_, err := svc.Assign(context.Background(), svcManager, "tk-1", svcCreator.ID, "")
	assert.Error(t, err)
}

func TestDelegateSetsDeputyAndReason(t *testing.T) {
	svc, repo, history := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusPendingTriage))

	ticket, err := svc.Delegate(context.Background(), svcManager, "tk-1", svcDeputy.ID)
	require.NoError(t, err)

	require.NotNil(t, ticket.DeputyID)
	assert.Equal(t, svcDeputy.ID, *ticket.DeputyID)
	assert.Equal(t, domain.TicketStatusPendingTriage, ticket.Status)

	stored, err := repo.GetByID(context.Background(), "tk-1")
	require.NoError(t, err)
	assert.NotNil(t, stored.DeputyID)

	entry := history.lastEntry("tk-1")
	require.NotNil(t, entry)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "Delegation to Deputy-DSI Nadia Benali", *entry.Reason)
}

func TestDelegateForbiddenForDeputy(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusPendingTriage))

	_, err := svc.Delegate(context.Background(), svcDeputy, "tk-1", svcDeputy.ID)
	assert.Error(t, err)
}

func TestTakeInChargeOnlyByAssignedTechnician(t *testing.T) {
	ticket := svcTicket("tk-1", domain.TicketStatusAssigned)
	ticket.TechnicianID = &svcTech.ID
	svc, _, _ := newWorkflowFixture(t, ticket)

	_, err := svc.TakeInCharge(context.Background(), svcManager, "tk-1")
	assert.Error(t, err)

	updated, err := svc.TakeInCharge(context.Background(), svcTech, "tk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
}

func TestResolveRecordsSummaryAndTimestamp(t *testing.T) {
	ticket := svcTicket("tk-1", domain.TicketStatusInProgress)
	ticket.TechnicianID = &svcTech.ID
	svc, repo, history := newWorkflowFixture(t, ticket)

	updated, err := svc.Resolve(context.Background(), svcTech, "tk-1", "replaced the power supply")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, svcEpoch, *updated.ResolvedAt)

	stored, err := repo.GetByID(context.Background(), "tk-1")
	require.NoError(t, err)
	assert.NotNil(t, stored.ResolvedAt)

	entry := history.lastEntry("tk-1")
	require.NotNil(t, entry)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "Resolution summary: replaced the power supply", *entry.Reason)
}

func TestResolveRequiresSummary(t *testing.T) {
	ticket := svcTicket("tk-1", domain.TicketStatusInProgress)
	ticket.TechnicianID = &svcTech.ID
	svc, _, _ := newWorkflowFixture(t, ticket)

	_, err := svc.Resolve(context.Background(), svcTech, "tk-1", "  ")
	assert.Error(t, err)
}

func TestValidateClosesTicket(t *testing.T) {
	svc, _, history := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusResolved))

	updated, err := svc.Validate(context.Background(), svcCreator, "tk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	require.NotNil(t, updated.ClosedAt)

	entry := history.lastEntry("tk-1")
	require.NotNil(t, entry)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "User validation: Validated", *entry.Reason)
}

func TestRejectEmbedsMotive(t *testing.T) {
	svc, _, history := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusResolved))

	updated, err := svc.Reject(context.Background(), svcCreator, "tk-1", "still broken")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusRejected, updated.Status)

	entry := history.lastEntry("tk-1")
	require.NotNil(t, entry)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "User validation: Rejected. Reason: still broken", *entry.Reason)
}

func TestRejectOnlyByCreator(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusResolved))

	_, err := svc.Reject(context.Background(), svcTech, "tk-1", "nope")
	assert.Error(t, err)
}

func TestReopenReturnsTicketToTechnician(t *testing.T) {
	ticket := svcTicket("tk-1", domain.TicketStatusRejected)
	ticket.TechnicianID = &svcTech.ID
	ticket.Technician = svcTech
	resolvedAt := svcEpoch
	ticket.ResolvedAt = &resolvedAt
	svc, _, history := newWorkflowFixture(t, ticket)

	updated, err := svc.Reopen(context.Background(), svcManager, "tk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, updated.Status)
	assert.Nil(t, updated.ResolvedAt)

	entry := history.lastEntry("tk-1")
	require.NotNil(t, entry)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "Reassigned to Marc Dupont", *entry.Reason)
}

func TestReopenFallsBackToTechnicianID(t *testing.T) {
	ticket := svcTicket("tk-1", domain.TicketStatusRejected)
	ticket.TechnicianID = &svcTech.ID
	svc, _, history := newWorkflowFixture(t, ticket)

	_, err := svc.Reopen(context.Background(), svcManager, "tk-1")
	require.NoError(t, err)

	entry := history.lastEntry("tk-1")
	require.NotNil(t, entry)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "Reassigned to tech-1", *entry.Reason)
}

func TestReopenRequiresRejectedStatus(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusInProgress))

	_, err := svc.Reopen(context.Background(), svcManager, "tk-1")
	assert.Error(t, err)
}

func TestEscalateBumpsPriorityAndLeavesTrace(t *testing.T) {
	svc, repo, history := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusAssigned))

	updated, err := svc.Escalate(context.Background(), svcCreator, "tk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityCritical, updated.Priority)
	assert.Equal(t, domain.TicketStatusAssigned, updated.Status)

	stored, err := repo.GetByID(context.Background(), "tk-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityCritical, stored.Priority)

	entry := history.lastEntry("tk-1")
	require.NotNil(t, entry)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "Relaunched by Alice Martin", *entry.Reason)
	require.NotNil(t, entry.OldStatus)
	assert.Equal(t, entry.NewStatus, *entry.OldStatus)
}

func TestEscalateRejectedOnFinishedTicket(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusClosed))

	_, err := svc.Escalate(context.Background(), svcCreator, "tk-1")
	assert.Error(t, err)
}

func TestAddCommentKeepsStatus(t *testing.T) {
	svc, _, history := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusInProgress))

	err := svc.AddComment(context.Background(), svcTech, "tk-1", "waiting for spare part")
	require.NoError(t, err)

	entry := history.lastEntry("tk-1")
	require.NotNil(t, entry)
	assert.Equal(t, string(domain.TicketStatusInProgress), entry.NewStatus)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "Comment: waiting for spare part", *entry.Reason)
}

func TestSubmitFeedbackValidatesScoreAndStatus(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t,
		svcTicket("tk-open", domain.TicketStatusInProgress),
		svcTicket("tk-done", domain.TicketStatusClosed))

	_, err := svc.SubmitFeedback(context.Background(), svcCreator, "tk-done", 6)
	assert.Error(t, err)

	_, err = svc.SubmitFeedback(context.Background(), svcCreator, "tk-open", 4)
	assert.Error(t, err)

	updated, err := svc.SubmitFeedback(context.Background(), svcCreator, "tk-done", 4)
	require.NoError(t, err)
	require.NotNil(t, updated.FeedbackScore)
	assert.Equal(t, 4, *updated.FeedbackScore)
}

func TestUpdateStatusHonorsTransitionTable(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t, svcTicket("tk-1", domain.TicketStatusPendingTriage))

	_, err := svc.UpdateStatus(context.Background(), svcManager, "tk-1", domain.TicketStatusResolved, "")
	assert.Error(t, err)

	updated, err := svc.UpdateStatus(context.Background(), svcManager, "tk-1", domain.TicketStatusAssigned, "triage done")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusAssigned, updated.Status)
}
