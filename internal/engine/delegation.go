package engine

import (
	"github.com/spec-kit/incident-insight/internal/domain"
)

// IsDelegatedByManager decides whether the manager with managerID is the one
// who delegated the ticket to its deputy, from the ticket's audit history.
//
// This is a heuristic over incomplete data, not a ground-truth relation. The
// primary rule matches an entry by the manager that either carries a
// delegation keyword or transitions the ticket *into* pending triage. When
// the primary rule finds nothing, a looser secondary scan accepts any entry
// by the manager landing on pending triage, even a restatement; histories
// with missing reason text would otherwise slip through. Both rules are
// kept deliberately.
func IsDelegatedByManager(ticket *domain.Ticket, history []domain.HistoryEntry, managerID string) bool {
	if ticket == nil || ticket.DeputyID == nil || managerID == "" {
		return false
	}

	for i := range history {
		entry := &history[i]
		if entry.UserID != managerID {
			continue
		}
		if containsAny(fold(entry.ReasonText()), delegationKeywords) {
			return true
		}
		if isPendingTriage(fold(entry.NewStatus)) && !wasPendingTriage(entry) {
			return true
		}
	}

	// secondary heuristic: any landing on pending triage by this manager
	for i := range history {
		entry := &history[i]
		if entry.UserID == managerID && isPendingTriage(fold(entry.NewStatus)) {
			return true
		}
	}
	return false
}

func wasPendingTriage(entry *domain.HistoryEntry) bool {
	return entry.OldStatus != nil && isPendingTriage(fold(*entry.OldStatus))
}
