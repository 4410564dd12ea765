package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/incident-insight/internal/domain"
)

func fleet() []domain.Ticket {
	deputyID := "deputy-1"
	techID := "tech-1"
	return []domain.Ticket{
		{
			ID: "t1", Status: domain.TicketStatusAssigned, Priority: domain.TicketPriorityHigh,
			Type: domain.TicketTypeMaterial, Category: "Hardware", Agency: "North",
			CreatorID: "user-1", Creator: &domain.User{FullName: "Alice Martin", Agency: "North"},
			TechnicianID: &techID, Technician: &domain.User{FullName: "Marc Dupont"},
			CreatedAt: testEpoch,
		},
		{
			ID: "t2", Status: domain.TicketStatusInProgress, Priority: domain.TicketPriorityLow,
			Type: domain.TicketTypeApplication, Category: "Email", Agency: "South",
			CreatorID: "user-2", Creator: &domain.User{FullName: "Bruno Keita", Agency: "South"},
			CreatedAt: testEpoch.AddDate(0, 0, -30),
		},
		{
			ID: "t3", Status: domain.TicketStatusResolved, Priority: domain.TicketPriorityUndefined,
			Type: domain.TicketTypeMaterial, Category: "Hardware", Agency: "North",
			CreatorID: "user-1", Creator: &domain.User{FullName: "Alice Martin", Agency: "North"},
			DeputyID:  &deputyID,
			CreatedAt: testEpoch.AddDate(0, 0, -10),
			ResolvedAt: timePtr(testEpoch.AddDate(0, 0, -8)),
		},
		{
			ID: "t4", Status: domain.TicketStatusPendingTriage, Priority: "",
			Type: domain.TicketTypeApplication, Category: "Network", Agency: "East",
			CreatorID: "user-3", Creator: &domain.User{FullName: "Chloé Girard", Agency: "East"},
			DeputyID:  &deputyID,
			CreatedAt: testEpoch.AddDate(0, 0, -60),
		},
	}
}

func ids(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}

func TestFilterByExactStatus(t *testing.T) {
	got := FilterTickets(fleet(), FilterSpec{Status: strPtr("resolved")})
	assert.Equal(t, []string{"t3"}, ids(got))
}

func TestFilterInProcessingMetaStatus(t *testing.T) {
	got := FilterTickets(fleet(), FilterSpec{Status: strPtr(StatusFilterInProcessing)})
	assert.Equal(t, []string{"t1", "t2"}, ids(got))
}

func TestFilterUndefinedPriorityMatchesEmptyAndExplicit(t *testing.T) {
	got := FilterTickets(fleet(), FilterSpec{Priority: strPtr(PriorityFilterUndefined)})
	assert.Equal(t, []string{"t3", "t4"}, ids(got))
}

func TestFilterDelegationByPresenceForNonManagers(t *testing.T) {
	spec := FilterSpec{Delegation: &DelegationFilter{
		Mode:       DelegationDelegated,
		CallerRole: domain.RoleSecretary,
	}}
	got := FilterTickets(fleet(), spec)
	assert.Equal(t, []string{"t3", "t4"}, ids(got))

	spec.Delegation.Mode = DelegationNotDelegated
	got = FilterTickets(fleet(), spec)
	assert.Equal(t, []string{"t1", "t2"}, ids(got))
}

func TestFilterDelegationByAttributionForManagers(t *testing.T) {
	histories := map[string][]domain.HistoryEntry{
		"t3": {transition("assigned", "pending_triage", testEpoch, "dsi-1", strPtr("Delegation to deputy"))},
		"t4": {transition("assigned", "pending_triage", testEpoch, "other-dsi", nil)},
	}
	spec := FilterSpec{Delegation: &DelegationFilter{
		Mode:       DelegationDelegated,
		CallerID:   "dsi-1",
		CallerRole: domain.RoleDSI,
		Histories:  histories,
	}}

	got := FilterTickets(fleet(), spec)

	assert.Equal(t, []string{"t3"}, ids(got), "only tickets this manager delegated")
}

func TestFilterByDateRangeDayTruncated(t *testing.T) {
	// bound set to late evening of the creation day still matches
	from := testEpoch.AddDate(0, 0, -10).Add(14 * time.Hour)
	got := FilterTickets(fleet(), FilterSpec{CreatedFrom: &from})
	assert.Equal(t, []string{"t1", "t3"}, ids(got))

	to := testEpoch.AddDate(0, 0, -30)
	got = FilterTickets(fleet(), FilterSpec{CreatedTo: &to})
	assert.Equal(t, []string{"t2", "t4"}, ids(got))
}

func TestFilterByAgencyFallsBackToCreator(t *testing.T) {
	tickets := fleet()
	tickets[0].Agency = "" // only the creator carries the agency
	got := FilterTickets(tickets, FilterSpec{Agency: strPtr("North")})
	assert.Equal(t, []string{"t1", "t3"}, ids(got))
}

func TestFilterByCategoryAndType(t *testing.T) {
	got := FilterTickets(fleet(), FilterSpec{
		Category: strPtr("hardware"),
		Type:     strPtr("material"),
	})
	assert.Equal(t, []string{"t1", "t3"}, ids(got))
}

func TestFilterStaleExcludesResolved(t *testing.T) {
	spec := FilterSpec{StaleOlderThanDays: intPtr(20), Now: testEpoch}
	got := FilterTickets(fleet(), spec)
	// t3 is older than 20 days but resolved; t2 and t4 are stale
	assert.Equal(t, []string{"t2", "t4"}, ids(got))
}

func TestFilterByActorName(t *testing.T) {
	got := FilterTickets(fleet(), FilterSpec{ActorName: strPtr("marc dupont")})
	assert.Equal(t, []string{"t1"}, ids(got))

	got = FilterTickets(fleet(), FilterSpec{ActorName: strPtr("Alice Martin")})
	assert.Equal(t, []string{"t1", "t3"}, ids(got))
}

func TestFilterCreatorSearchIsSubstringAndAccentInsensitive(t *testing.T) {
	got := FilterTickets(fleet(), FilterSpec{CreatorSearch: strPtr("chloe")})
	assert.Equal(t, []string{"t4"}, ids(got))
}

func TestFilterPredicatesCommute(t *testing.T) {
	tickets := fleet()
	specs := []FilterSpec{
		{Status: strPtr(StatusFilterInProcessing)},
		{Agency: strPtr("North")},
		{Type: strPtr("material")},
		{Priority: strPtr("high")},
		{CreatorSearch: strPtr("a")},
	}
	for i := range specs {
		for j := range specs {
			if i == j {
				continue
			}
			ij := FilterTickets(FilterTickets(tickets, specs[i]), specs[j])
			ji := FilterTickets(FilterTickets(tickets, specs[j]), specs[i])
			assert.Equal(t, ids(ij), ids(ji), "specs %d and %d must commute", i, j)
		}
	}
}

func TestFilterEmptySpecKeepsEverything(t *testing.T) {
	got := FilterTickets(fleet(), FilterSpec{})
	assert.Len(t, got, 4)
}
