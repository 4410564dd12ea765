package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/spec-kit/incident-insight/internal/domain"
)

// ComputeFleetMetrics folds a ticket set into aggregate statistics.
//
// The histories map carries one entry per ticket whose audit trail was
// fetched; tickets absent from the map (a failed fetch) are excluded from
// every aggregate that needs history but still count in the status totals,
// and average resolution falls back to the ticket's own timestamp fields.
// Tickets without any resolvable duration are excluded from both the sum
// and the count, never coerced to zero. Nil outputs mean "insufficient
// data", which is a valid answer.
func ComputeFleetMetrics(tickets []domain.Ticket, histories map[string][]domain.HistoryEntry) domain.FleetMetrics {
	metrics := domain.FleetMetrics{TotalCount: len(tickets)}

	var (
		durationSum      time.Duration
		durationCount    int
		satisfactionSum  float64
		satisfactionN    int
		reopenedCount    int
		reopenEligible   int
	)

	for i := range tickets {
		ticket := &tickets[i]
		if !ticket.IsTerminal() {
			metrics.OpenCount++
			continue
		}
		metrics.ResolvedCount++

		history, fetched := histories[ticket.ID]

		var duration time.Duration
		var ok bool
		if fetched {
			duration, ok = resolutionDuration(ticket, history)
		} else {
			duration, ok = fieldResolutionDuration(ticket)
		}
		if ok {
			durationSum += duration
			durationCount++
		}

		if !fetched {
			continue
		}
		score := ScoreSatisfaction(ticket, history)
		satisfactionSum += float64(score.Score)
		satisfactionN++

		reopenEligible++
		if countReopens(history) > 0 {
			reopenedCount++
		}
	}

	if durationCount > 0 {
		avg := durationSum / time.Duration(durationCount)
		label := FormatDuration(avg)
		metrics.AvgResolution = &avg
		metrics.AvgResolutionLabel = &label
	}
	if satisfactionN > 0 {
		avg := roundOneDecimal(satisfactionSum / float64(satisfactionN))
		metrics.AvgSatisfaction = &avg
	}
	if reopenEligible > 0 {
		rate := roundOneDecimal(float64(reopenedCount) / float64(reopenEligible) * 100)
		metrics.ReopeningRate = &rate
	}
	return metrics
}

// fieldResolutionDuration derives a duration from the ticket's own
// timestamps only, for tickets whose history is unavailable.
func fieldResolutionDuration(ticket *domain.Ticket) (time.Duration, bool) {
	var resolvedAt time.Time
	if ticket.ResolvedAt != nil {
		resolvedAt = *ticket.ResolvedAt
	} else if ticket.ClosedAt != nil {
		resolvedAt = *ticket.ClosedAt
	}
	if resolvedAt.IsZero() || ticket.CreatedAt.IsZero() {
		return 0, false
	}
	duration := resolvedAt.Sub(ticket.CreatedAt)
	if duration < 0 {
		return 0, false
	}
	return duration, true
}

// FormatDuration renders a duration as "Xh Ym", dropping the zero part.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", minutes)
	case minutes == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
