package domain

import "time"

// EventKind classifies a timeline entry for display.
type EventKind string

const (
	EventCreation      EventKind = "creation"
	EventComment       EventKind = "comment"
	EventDelegation    EventKind = "delegation"
	EventAssignment    EventKind = "assignment"
	EventReassignment  EventKind = "reassignment"
	EventTakenInCharge EventKind = "taken_in_charge"
	EventReopened      EventKind = "reopened"
	EventResolved      EventKind = "resolved"
	EventRelaunched    EventKind = "relaunched"
	EventGeneric       EventKind = "generic"
)

// TimelineEntry is one rendered row of a ticket activity timeline.
type TimelineEntry struct {
	Timestamp time.Time
	Kind      EventKind
	Title     string
	Icon      string
	Color     string
	ActorName *string
	Reason    *string
}

// ScoreSource tells whether a satisfaction score came from explicit user
// feedback or was derived from the ticket's handling.
type ScoreSource string

const (
	ScoreSourceExplicit ScoreSource = "explicit"
	ScoreSourceImplicit ScoreSource = "implicit"
)

// TicketScore is the computed satisfaction score for one resolved ticket.
type TicketScore struct {
	TicketID            string
	Score               int
	Source              ScoreSource
	CountsForTechnician bool
}

// FleetMetrics aggregates a ticket set. Nil fields mean "insufficient data",
// which is a valid answer and distinct from zero.
type FleetMetrics struct {
	AvgResolution      *time.Duration
	AvgResolutionLabel *string
	AvgSatisfaction    *float64
	ReopeningRate      *float64
	ResolvedCount      int
	OpenCount          int
	TotalCount         int
}
