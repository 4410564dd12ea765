package engine

import (
	"fmt"
	"strings"

	"github.com/spec-kit/incident-insight/internal/domain"
)

// Directory resolves user ids to their directory records for display-name
// lookups. Callers populate it from the user store.
type Directory map[string]domain.User

// Name returns the display name for id, or "" when unknown.
func (d Directory) Name(id string) string {
	if user, ok := d[id]; ok {
		return user.FullName
	}
	return ""
}

type entryContext struct {
	entry     *domain.HistoryEntry
	ticket    *domain.Ticket
	directory Directory
	kind      domain.EventKind
	// folded views of the raw fields
	oldStatus string
	newStatus string
	reason    string
}

// Classify maps one raw history entry to a rendered timeline entry. The rule
// chains are ordered and the first match wins; unmatched entries fall back
// to the literal status transition so nothing ever disappears from view.
func Classify(entry domain.HistoryEntry, ticket *domain.Ticket, directory Directory) domain.TimelineEntry {
	ctx := &entryContext{
		entry:     &entry,
		ticket:    ticket,
		directory: directory,
		newStatus: fold(entry.NewStatus),
		reason:    fold(entry.ReasonText()),
	}
	if entry.OldStatus != nil {
		ctx.oldStatus = fold(*entry.OldStatus)
	}

	ctx.kind = classifyKind(ctx)
	title := buildTitle(ctx)
	icon, color := styleFor(ctx.kind)

	result := domain.TimelineEntry{
		Timestamp: entry.ChangedAt,
		Kind:      ctx.kind,
		Title:     title,
		Icon:      icon,
		Color:     color,
		Reason:    displayReason(ctx),
	}
	if name := actorDisplayName(ctx); name != "" {
		result.ActorName = &name
	}
	return result
}

// classifyKind applies the ordered category rules.
func classifyKind(ctx *entryContext) domain.EventKind {
	switch {
	case hasAnyPrefix(ctx.reason, commentPrefixes):
		return domain.EventComment
	case ctx.entry.OldStatus == nil || ctx.newStatus == statusCreation:
		return domain.EventCreation
	case isPendingTriage(ctx.oldStatus) && isPendingTriage(ctx.newStatus) && containsAny(ctx.reason, delegationKeywords):
		return domain.EventDelegation
	case containsAny(ctx.reason, relaunchMarkers):
		return domain.EventRelaunched
	case isAssignedStatus(ctx.newStatus) || strings.Contains(ctx.newStatus, "assign"):
		return domain.EventAssignment
	case strings.Contains(ctx.oldStatus, "deleg") || strings.Contains(ctx.newStatus, "deleg"):
		return domain.EventDelegation
	case (isResolvedStatus(ctx.oldStatus) || isRetiredStatus(ctx.oldStatus)) &&
		isRejectedStatus(ctx.newStatus) && containsAny(ctx.reason, userRejectionMarkers):
		return domain.EventRelaunched
	case isTerminalSuccess(ctx.newStatus):
		return domain.EventResolved
	case strings.Contains(ctx.newStatus, "relaunch") || strings.Contains(ctx.newStatus, "relance"):
		return domain.EventRelaunched
	default:
		return domain.EventGeneric
	}
}

// titleRule pairs a predicate with a formatter; rules are evaluated in
// order and exactly one fires per entry. A rule may refine the entry kind
// (e.g. an assignment on an already-assigned ticket is a reassignment).
type titleRule struct {
	match func(*entryContext) bool
	kind  domain.EventKind
	title func(*entryContext) string
}

var titleRules = []titleRule{
	{
		match: func(ctx *entryContext) bool { return ctx.kind == domain.EventComment },
		title: func(*entryContext) string { return "Comment added" },
	},
	{
		match: func(ctx *entryContext) bool { return ctx.kind == domain.EventCreation },
		title: func(*entryContext) string { return "Ticket created" },
	},
	{
		match: func(ctx *entryContext) bool { return ctx.kind == domain.EventDelegation },
		title: func(ctx *entryContext) string {
			if ctx.ticket != nil && ctx.ticket.DeputyID != nil {
				if name := ctx.directory.Name(*ctx.ticket.DeputyID); name != "" {
					return "Delegated to " + name
				}
			}
			return "Delegated to Deputy"
		},
	},
	{
		// explicit follow-up nudge, status untouched
		match: func(ctx *entryContext) bool {
			return ctx.kind == domain.EventRelaunched && containsAny(ctx.reason, relaunchMarkers)
		},
		title: func(ctx *entryContext) string {
			if name := nameFromReason(ctx.entry.ReasonText(), relaunchMarkers); name != "" {
				return "Relaunched by " + name
			}
			return "Ticket relaunched"
		},
	},
	{
		// requester bounced the resolution back
		match: func(ctx *entryContext) bool {
			return ctx.kind == domain.EventRelaunched && containsAny(ctx.reason, userRejectionMarkers)
		},
		title: func(ctx *entryContext) string {
			if name := creatorName(ctx); name != "" {
				return "Relaunched by " + name
			}
			return "Ticket relaunched"
		},
	},
	{
		match: func(ctx *entryContext) bool {
			return ctx.kind == domain.EventAssignment && isWorkingStatus(ctx.oldStatus)
		},
		kind: domain.EventReassignment,
		title: func(ctx *entryContext) string {
			return "Reassigned to " + technicianName(ctx)
		},
	},
	{
		match: func(ctx *entryContext) bool { return ctx.kind == domain.EventAssignment },
		title: func(ctx *entryContext) string {
			return "Assigned to " + technicianName(ctx)
		},
	},
	{
		match: func(ctx *entryContext) bool {
			return isInProgressStatus(ctx.newStatus) && isAssignedStatus(ctx.oldStatus)
		},
		kind:  domain.EventTakenInCharge,
		title: func(*entryContext) string { return "Ticket taken in charge" },
	},
	{
		match: func(ctx *entryContext) bool {
			return isTerminalSuccess(ctx.oldStatus) && !isTerminalSuccess(ctx.newStatus)
		},
		kind:  domain.EventReopened,
		title: func(*entryContext) string { return "Reopening of ticket" },
	},
	{
		match: func(ctx *entryContext) bool {
			return isValidatedStatus(ctx.newStatus) ||
				(isClosedStatus(ctx.newStatus) && containsAny(ctx.reason, userValidationMarkers))
		},
		title: func(ctx *entryContext) string {
			if name := creatorName(ctx); name != "" {
				return "Validated by " + name
			}
			return "Ticket validated"
		},
	},
	{
		match: func(ctx *entryContext) bool { return isResolvedStatus(ctx.newStatus) },
		title: func(ctx *entryContext) string {
			if name := technicianName(ctx); name != "technician" {
				return "Resolved by " + name
			}
			return "Ticket resolved"
		},
	},
	{
		match: func(ctx *entryContext) bool { return isClosedStatus(ctx.newStatus) },
		title: func(*entryContext) string { return "Ticket closed" },
	},
	{
		match: func(ctx *entryContext) bool { return isRetiredStatus(ctx.newStatus) },
		title: func(*entryContext) string { return "Retired" },
	},
	{
		match: func(ctx *entryContext) bool { return ctx.kind == domain.EventRelaunched },
		title: func(*entryContext) string { return "Ticket relaunched" },
	},
}

func buildTitle(ctx *entryContext) string {
	for _, rule := range titleRules {
		if !rule.match(ctx) {
			continue
		}
		if rule.kind != "" {
			ctx.kind = rule.kind
		}
		return rule.title(ctx)
	}
	// literal transition string, kept for auditability
	old := ""
	if ctx.entry.OldStatus != nil {
		old = *ctx.entry.OldStatus
	}
	return fmt.Sprintf("%s → %s", old, ctx.entry.NewStatus)
}

// technicianName pulls an explicit name out of the reason text when present,
// then falls back to the ticket's current assignee.
func technicianName(ctx *entryContext) string {
	if name := nameFromReason(ctx.entry.ReasonText(), assignNameMarkers); name != "" {
		return name
	}
	if ctx.ticket != nil {
		if name := ctx.ticket.TechnicianName(); name != "" {
			return name
		}
		if ctx.ticket.TechnicianID != nil {
			if name := ctx.directory.Name(*ctx.ticket.TechnicianID); name != "" {
				return name
			}
		}
	}
	return "technician"
}

func creatorName(ctx *entryContext) string {
	if ctx.entry.User != nil && ctx.entry.User.FullName != "" {
		return ctx.entry.User.FullName
	}
	if ctx.ticket != nil {
		if name := ctx.ticket.CreatorName(); name != "" {
			return name
		}
		return ctx.directory.Name(ctx.ticket.CreatorID)
	}
	return ""
}

func actorDisplayName(ctx *entryContext) string {
	if name := ctx.entry.ActorName(); name != "" {
		return name
	}
	return ctx.directory.Name(ctx.entry.UserID)
}

// nameFromReason extracts the trailing display name after an assignment
// marker, e.g. "Reassigned to Jane Doe" -> "Jane Doe".
func nameFromReason(reason string, markers []string) string {
	for _, marker := range markers {
		if _, end := foldSpan(reason, marker); end >= 0 {
			name := strings.TrimSpace(reason[end:])
			name = strings.Trim(name, ".,;")
			if name != "" {
				return name
			}
		}
	}
	return ""
}

// displayReason post-processes the raw reason for rendering. Internal
// dispatch annotations are suppressed entirely (the title already conveys
// the action); rejection motives are reduced to their "Reason: X" tail; a
// duplicated resolution-summary prefix is collapsed to a single one.
func displayReason(ctx *entryContext) *string {
	raw := strings.TrimSpace(ctx.entry.ReasonText())
	if raw == "" {
		return nil
	}
	if containsAny(ctx.reason, internalDispatchMarkers) {
		return nil
	}
	if ctx.kind == domain.EventComment {
		for _, prefix := range commentPrefixes {
			if _, end := foldSpan(raw, prefix); end >= 0 {
				if text := strings.TrimSpace(raw[end:]); text != "" {
					return &text
				}
				return nil
			}
		}
	}
	for _, marker := range reasonMarkers {
		if start, _ := foldSpan(raw, marker); start > 0 {
			tail := strings.TrimSpace(raw[start:])
			return &tail
		}
	}
	for _, prefix := range resolutionSummaryPrefixes {
		if start, end := foldSpan(raw, prefix); start == 0 {
			rest := strings.TrimSpace(raw[end:])
			if restStart, _ := foldSpan(rest, prefix); restStart == 0 {
				return &rest
			}
			break
		}
	}
	return &raw
}

// styleFor maps an event kind to its icon and color tag.
func styleFor(kind domain.EventKind) (string, string) {
	switch kind {
	case domain.EventCreation:
		return "plus-circle", "blue"
	case domain.EventComment:
		return "message-square", "slate"
	case domain.EventDelegation:
		return "share", "purple"
	case domain.EventAssignment, domain.EventReassignment:
		return "user-check", "blue"
	case domain.EventTakenInCharge:
		return "play-circle", "cyan"
	case domain.EventReopened, domain.EventRelaunched:
		return "rotate-ccw", "orange"
	case domain.EventResolved:
		return "check-circle", "green"
	default:
		return "clock", "gray"
	}
}
