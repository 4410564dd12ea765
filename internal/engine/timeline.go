package engine

import (
	"sort"
	"time"

	"github.com/spec-kit/incident-insight/internal/domain"
)

// TimelineBuilder reconstructs a display timeline from a ticket and its raw
// audit history. It is pure: inputs are never mutated and no I/O happens.
type TimelineBuilder struct {
	clock func() time.Time
}

// NewTimelineBuilder returns a builder using the wall clock.
func NewTimelineBuilder() *TimelineBuilder {
	return &TimelineBuilder{clock: time.Now}
}

// NewTimelineBuilderAt returns a builder with a fixed clock, used by tests
// and by callers that want reproducible output for one rendering pass.
func NewTimelineBuilderAt(clock func() time.Time) *TimelineBuilder {
	return &TimelineBuilder{clock: clock}
}

// Build merges a synthetic creation event with the filtered history, sorts
// ascending by timestamp and classifies every entry. The result always has
// at least the creation entry.
func (b *TimelineBuilder) Build(ticket *domain.Ticket, history []domain.HistoryEntry, directory Directory) []domain.TimelineEntry {
	now := b.clock()

	createdAt := ticket.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	synthetic := domain.HistoryEntry{
		TicketID:  ticket.ID,
		NewStatus: statusCreation,
		UserID:    ticket.CreatorID,
		User:      ticket.Creator,
		ChangedAt: createdAt,
	}

	merged := make([]domain.HistoryEntry, 0, len(history)+1)
	merged = append(merged, synthetic)
	for _, entry := range history {
		// a nil old status is a raw creation marker; the synthetic entry
		// supersedes it
		if entry.OldStatus == nil {
			continue
		}
		if isCreatorSelfEdit(&entry, ticket) {
			continue
		}
		if entry.ChangedAt.IsZero() {
			// unparseable timestamps degrade to "now" so the timeline
			// stays renderable
			entry.ChangedAt = now
		}
		merged = append(merged, entry)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ChangedAt.Before(merged[j].ChangedAt)
	})

	timeline := make([]domain.TimelineEntry, 0, len(merged))
	for _, entry := range merged {
		timeline = append(timeline, Classify(entry, ticket, directory))
	}
	return timeline
}

// BuildTimeline builds a timeline with the wall clock.
func BuildTimeline(ticket *domain.Ticket, history []domain.HistoryEntry, directory Directory) []domain.TimelineEntry {
	return NewTimelineBuilder().Build(ticket, history, directory)
}

// isCreatorSelfEdit detects a requester editing their own ticket. Both
// conditions are required: the reason carries an own-edit marker and the
// acting user's display name matches the creator's. This reduces timeline
// noise, it is not an access control.
func isCreatorSelfEdit(entry *domain.HistoryEntry, ticket *domain.Ticket) bool {
	if !containsAny(fold(entry.ReasonText()), ownEditMarkers) {
		return false
	}
	return equalFoldName(entry.ActorName(), ticket.CreatorName())
}
