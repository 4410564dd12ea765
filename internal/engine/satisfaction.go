package engine

import (
	"math"
	"time"

	"github.com/spec-kit/incident-insight/internal/domain"
)

// Implicit scoring weights. They must sum to 1.
const (
	weightSpeed    = 0.40
	weightReopen   = 0.30
	weightChurn    = 0.20
	weightResponse = 0.10
)

// responseScoreUnknown is used when no assignment transition exists at all.
const responseScoreUnknown = 60

// ScoreSatisfaction computes the 0-100 satisfaction score for a ticket from
// explicit user feedback when present, otherwise from how the ticket was
// handled. Explicit feedback always wins over the implicit computation.
func ScoreSatisfaction(ticket *domain.Ticket, history []domain.HistoryEntry) domain.TicketScore {
	score := domain.TicketScore{
		TicketID:            ticket.ID,
		CountsForTechnician: ticket.TechnicianID != nil,
	}

	if ticket.FeedbackScore != nil && *ticket.FeedbackScore > 0 {
		score.Source = domain.ScoreSourceExplicit
		score.Score = clampScore(int(math.Round(float64(*ticket.FeedbackScore) / 5 * 100)))
		return score
	}

	speed := 0.0
	if duration, ok := resolutionDuration(ticket, history); ok {
		speed = speedScore(ticket.Priority, duration)
	}
	// speed stays 0 when no valid resolution timestamp exists; the weight
	// still applies

	weighted := weightSpeed*speed +
		weightReopen*reopenScore(countReopens(history)) +
		weightChurn*churnScore(countAssignments(history)) +
		weightResponse*responseScore(ticket, history)

	score.Source = domain.ScoreSourceImplicit
	score.Score = clampScore(int(math.Round(weighted)))
	return score
}

// resolutionDuration finds the time from creation to resolution: the first
// history transition into resolved/closed is preferred, then the ticket's
// resolved_at and closed_at fields. Negative durations mean corrupt data
// and yield no duration at all.
func resolutionDuration(ticket *domain.Ticket, history []domain.HistoryEntry) (time.Duration, bool) {
	var resolvedAt time.Time
	for i := range history {
		entry := &history[i]
		folded := fold(entry.NewStatus)
		if !isResolvedStatus(folded) && !isClosedStatus(folded) {
			continue
		}
		if entry.ChangedAt.IsZero() {
			continue
		}
		if resolvedAt.IsZero() || entry.ChangedAt.Before(resolvedAt) {
			resolvedAt = entry.ChangedAt
		}
	}
	if resolvedAt.IsZero() {
		if ticket.ResolvedAt != nil {
			resolvedAt = *ticket.ResolvedAt
		} else if ticket.ClosedAt != nil {
			resolvedAt = *ticket.ClosedAt
		}
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

// speedScore grades resolution time against priority-dependent thresholds.
func speedScore(priority domain.TicketPriority, duration time.Duration) float64 {
	day := 24 * time.Hour
	switch priority {
	case domain.TicketPriorityHigh, domain.TicketPriorityCritical:
		return gradeUnder(duration, 24*time.Hour, 48*time.Hour, 72*time.Hour)
	case domain.TicketPriorityMedium:
		return gradeUnder(duration, 3*day, 5*day, 7*day)
	default: // low or undefined
		return gradeUnder(duration, 7*day, 14*day, 21*day)
	}
}

func gradeUnder(d, full, good, fair time.Duration) float64 {
	switch {
	case d < full:
		return 100
	case d < good:
		return 80
	case d < fair:
		return 60
	default:
		return 40
	}
}

// countReopens counts transitions away from a resolved/closed state back to
// another status.
func countReopens(history []domain.HistoryEntry) int {
	count := 0
	for i := range history {
		entry := &history[i]
		if entry.OldStatus == nil {
			continue
		}
		oldFolded := fold(*entry.OldStatus)
		if !isResolvedStatus(oldFolded) && !isClosedStatus(oldFolded) {
			continue
		}
		newFolded := fold(entry.NewStatus)
		if !isResolvedStatus(newFolded) && !isClosedStatus(newFolded) {
			count++
		}
	}
	return count
}

func reopenScore(reopens int) float64 {
	switch {
	case reopens == 0:
		return 100
	case reopens == 1:
		return 70
	default:
		return 40
	}
}

// countAssignments counts transitions into assigned/in-progress, a proxy for
// reassignment churn.
func countAssignments(history []domain.HistoryEntry) int {
	count := 0
	for i := range history {
		if isWorkingStatus(fold(history[i].NewStatus)) {
			count++
		}
	}
	return count
}

func churnScore(assignments int) float64 {
	switch {
	case assignments <= 1:
		return 100
	case assignments == 2:
		return 50
	default:
		return 20
	}
}

// responseScore grades the delay between creation and the first transition
// into assigned/in-progress. Without any such transition the criterion is
// unknowable and scores a flat 60.
func responseScore(ticket *domain.Ticket, history []domain.HistoryEntry) float64 {
	var first time.Time
	for i := range history {
		entry := &history[i]
		if !isWorkingStatus(fold(entry.NewStatus)) || entry.ChangedAt.IsZero() {
			continue
		}
		if first.IsZero() || entry.ChangedAt.Before(first) {
			first = entry.ChangedAt
		}
	}
	if first.IsZero() || ticket.CreatedAt.IsZero() {
		return responseScoreUnknown
	}
	latency := first.Sub(ticket.CreatedAt)
	if latency < 0 {
		return responseScoreUnknown
	}
	switch {
	case latency < 2*time.Hour:
		return 100
	case latency < 4*time.Hour:
		return 80
	case latency < 8*time.Hour:
		return 60
	default:
		return 40
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
