package domain

import "time"

// HistoryEntry is an immutable audit trail row for a ticket. Statuses are
// carried as raw strings: the log predates the current status enum and still
// contains legacy codes, so interpretation is left to the activity engine.
type HistoryEntry struct {
	ID        string
	TicketID  string
	OldStatus *string
	NewStatus string
	UserID    string
	User      *User
	Reason    *string
	ChangedAt time.Time
}

// ActorName returns the acting user display name from the snapshot, if any.
func (h *HistoryEntry) ActorName() string {
	if h.User != nil {
		return h.User.FullName
	}
	return ""
}

// ReasonText returns the free-text reason or an empty string.
func (h *HistoryEntry) ReasonText() string {
	if h.Reason != nil {
		return *h.Reason
	}
	return ""
}
