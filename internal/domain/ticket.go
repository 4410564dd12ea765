package domain

import "time"

// TicketStatus enumerates lifecycle states for incident tickets.
type TicketStatus string

const (
	TicketStatusPendingTriage TicketStatus = "pending_triage"
	TicketStatusAssigned      TicketStatus = "assigned"
	TicketStatusInProgress    TicketStatus = "in_progress"
	TicketStatusResolved      TicketStatus = "resolved"
	TicketStatusRejected      TicketStatus = "rejected"
	TicketStatusReprocessed   TicketStatus = "reprocessed"
	TicketStatusClosed        TicketStatus = "closed"
)

// TicketPriority enumerates urgency. Priority stays undefined until a
// manager sets it at assignment time.
type TicketPriority string

const (
	TicketPriorityUndefined TicketPriority = "undefined"
	TicketPriorityLow       TicketPriority = "low"
	TicketPriorityMedium    TicketPriority = "medium"
	TicketPriorityHigh      TicketPriority = "high"
	TicketPriorityCritical  TicketPriority = "critical"
)

// TicketType distinguishes hardware from software incidents.
type TicketType string

const (
	TicketTypeMaterial    TicketType = "material"
	TicketTypeApplication TicketType = "application"
)

// Ticket is the aggregate for incident reports.
type Ticket struct {
	ID            string
	Number        string
	Title         string
	Description   string
	Type          TicketType
	Category      string
	Priority      TicketPriority
	Status        TicketStatus
	CreatorID     string
	Creator       *User
	TechnicianID  *string
	Technician    *User
	DeputyID      *string
	Agency        string
	FeedbackScore *int
	CreatedAt     time.Time
	AssignedAt    *time.Time
	ResolvedAt    *time.Time
	ClosedAt      *time.Time
}

// IsTerminal reports whether the ticket reached a resolved or closed state.
func (t *Ticket) IsTerminal() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}

// CreatorName returns the creator display name when the snapshot is loaded.
func (t *Ticket) CreatorName() string {
	if t.Creator != nil {
		return t.Creator.FullName
	}
	return ""
}

// TechnicianName returns the assignee display name when the snapshot is loaded.
func (t *Ticket) TechnicianName() string {
	if t.Technician != nil {
		return t.Technician.FullName
	}
	return ""
}
