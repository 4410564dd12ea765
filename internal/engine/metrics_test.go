package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-insight/internal/domain"
)

func resolvedTicket(id string, resolvedAfter time.Duration) (domain.Ticket, []domain.HistoryEntry) {
	ticket := *testTicket()
	ticket.ID = id
	ticket.Status = domain.TicketStatusResolved
	history := []domain.HistoryEntry{
		transition("pending_triage", "assigned", testEpoch.Add(time.Hour), "dsi-1", nil),
		transition("assigned", "resolved", testEpoch.Add(resolvedAfter), "tech-1", nil),
	}
	for i := range history {
		history[i].TicketID = id
	}
	return ticket, history
}

func TestFleetMetricsEmptySetYieldsNulls(t *testing.T) {
	metrics := ComputeFleetMetrics(nil, nil)

	assert.Nil(t, metrics.AvgResolution)
	assert.Nil(t, metrics.AvgResolutionLabel)
	assert.Nil(t, metrics.AvgSatisfaction)
	assert.Nil(t, metrics.ReopeningRate)
	assert.Zero(t, metrics.TotalCount)
}

func TestFleetMetricsOnlyOpenTicketsYieldsNulls(t *testing.T) {
	open := *testTicket()
	open.Status = domain.TicketStatusInProgress

	metrics := ComputeFleetMetrics([]domain.Ticket{open}, map[string][]domain.HistoryEntry{})

	assert.Nil(t, metrics.AvgSatisfaction, "never 0, always null without resolved tickets")
	assert.Nil(t, metrics.AvgResolution)
	assert.Equal(t, 1, metrics.OpenCount)
	assert.Equal(t, 0, metrics.ResolvedCount)
}

func TestFleetMetricsAverageResolution(t *testing.T) {
	t1, h1 := resolvedTicket("a", 10*time.Hour)
	t2, h2 := resolvedTicket("b", 30*time.Hour)
	histories := map[string][]domain.HistoryEntry{"a": h1, "b": h2}

	metrics := ComputeFleetMetrics([]domain.Ticket{t1, t2}, histories)

	require.NotNil(t, metrics.AvgResolution)
	assert.Equal(t, 20*time.Hour, *metrics.AvgResolution)
	require.NotNil(t, metrics.AvgResolutionLabel)
	assert.Equal(t, "20h", *metrics.AvgResolutionLabel)
}

func TestFleetMetricsExcludesUnresolvableDurations(t *testing.T) {
	t1, h1 := resolvedTicket("a", 10*time.Hour)
	// resolved status but no resolution timestamp anywhere: excluded from
	// the mean entirely, not coerced to zero
	t2 := *testTicket()
	t2.ID = "b"
	t2.Status = domain.TicketStatusResolved
	histories := map[string][]domain.HistoryEntry{"a": h1, "b": {}}

	metrics := ComputeFleetMetrics([]domain.Ticket{t1, t2}, histories)

	require.NotNil(t, metrics.AvgResolution)
	assert.Equal(t, 10*time.Hour, *metrics.AvgResolution)
}

func TestFleetMetricsMissingHistoryFallsBackToFields(t *testing.T) {
	ticket := *testTicket()
	ticket.ID = "a"
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = timePtr(testEpoch.Add(6 * time.Hour))

	// history fetch failed: no map entry at all
	metrics := ComputeFleetMetrics([]domain.Ticket{ticket}, map[string][]domain.HistoryEntry{})

	require.NotNil(t, metrics.AvgResolution)
	assert.Equal(t, 6*time.Hour, *metrics.AvgResolution)
	assert.Nil(t, metrics.AvgSatisfaction, "satisfaction needs history")
	assert.Nil(t, metrics.ReopeningRate, "reopening rate needs history")
}

func TestFleetMetricsReopeningRate(t *testing.T) {
	t1, h1 := resolvedTicket("a", 10*time.Hour)
	t2, h2 := resolvedTicket("b", 12*time.Hour)
	h2 = append(h2,
		transition("resolved", "rejected", testEpoch.Add(13*time.Hour), "user-1",
			strPtr("User validation: Rejected. Reason: incomplete")),
		transition("rejected", "assigned", testEpoch.Add(14*time.Hour), "dsi-1", nil),
		transition("assigned", "resolved", testEpoch.Add(15*time.Hour), "tech-1", nil),
	)
	histories := map[string][]domain.HistoryEntry{"a": h1, "b": h2}

	metrics := ComputeFleetMetrics([]domain.Ticket{t1, t2}, histories)

	require.NotNil(t, metrics.ReopeningRate)
	assert.InDelta(t, 50.0, *metrics.ReopeningRate, 0.001)
}

func TestFleetMetricsAverageSatisfactionOneDecimal(t *testing.T) {
	t1, h1 := resolvedTicket("a", 10*time.Hour) // critical-path high ticket -> 100
	t2, h2 := resolvedTicket("b", 26*time.Hour) // 92
	t3, h3 := resolvedTicket("c", 26*time.Hour) // 92
	histories := map[string][]domain.HistoryEntry{"a": h1, "b": h2, "c": h3}

	metrics := ComputeFleetMetrics([]domain.Ticket{t1, t2, t3}, histories)

	require.NotNil(t, metrics.AvgSatisfaction)
	assert.InDelta(t, 94.7, *metrics.AvgSatisfaction, 0.001)
}

func TestFleetMetricsPartialFailureKeepsRemainingTickets(t *testing.T) {
	t1, h1 := resolvedTicket("a", 10*time.Hour)
	t2, _ := resolvedTicket("b", 26*time.Hour)
	// b's history fetch failed and b carries no timestamps
	t2.ResolvedAt = nil
	t2.ClosedAt = nil
	histories := map[string][]domain.HistoryEntry{"a": h1}

	metrics := ComputeFleetMetrics([]domain.Ticket{t1, t2}, histories)

	require.NotNil(t, metrics.AvgSatisfaction)
	assert.InDelta(t, 100, *metrics.AvgSatisfaction, 0.001)
	require.NotNil(t, metrics.ReopeningRate)
	assert.InDelta(t, 0, *metrics.ReopeningRate, 0.001)
	assert.Equal(t, 2, metrics.ResolvedCount)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45m", FormatDuration(45*time.Minute))
	assert.Equal(t, "3h", FormatDuration(3*time.Hour))
	assert.Equal(t, "26h 30m", FormatDuration(26*time.Hour+30*time.Minute))
	assert.Equal(t, "0m", FormatDuration(0))
}
