package engine

import (
	"time"

	"github.com/spec-kit/incident-insight/internal/domain"
)

// Meta values accepted by the status and priority filters in addition to
// the exact enum codes.
const (
	StatusFilterInProcessing = "in_processing"
	PriorityFilterUndefined  = "undefined"
)

// DelegationMode selects delegated or non-delegated tickets.
type DelegationMode string

const (
	DelegationDelegated    DelegationMode = "delegated"
	DelegationNotDelegated DelegationMode = "not_delegated"
)

// DelegationFilter narrows by delegation. For a delegating manager (DSI or
// Admin) membership comes from the delegated-by-me attribution heuristic;
// for every other role it is simply the presence of a deputy reference on
// the ticket. The two semantics are intentionally different and preserved.
type DelegationFilter struct {
	Mode       DelegationMode
	CallerID   string
	CallerRole domain.RoleName
	Histories  map[string][]domain.HistoryEntry
}

func (f *DelegationFilter) matches(ticket *domain.Ticket) bool {
	var delegated bool
	if f.CallerRole == domain.RoleDSI || f.CallerRole == domain.RoleAdmin {
		delegated = IsDelegatedByManager(ticket, f.Histories[ticket.ID], f.CallerID)
	} else {
		delegated = ticket.DeputyID != nil
	}
	if f.Mode == DelegationNotDelegated {
		return !delegated
	}
	return delegated
}

// FilterSpec composes independent, commuting predicates over a ticket
// collection; set fields are ANDed together.
type FilterSpec struct {
	Status             *string
	Priority           *string
	Delegation         *DelegationFilter
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
	Agency             *string
	Category           *string
	Type               *string
	StaleOlderThanDays *int
	ActorName          *string
	CreatorSearch      *string
	// Now anchors the stale-age computation; zero means the wall clock.
	Now time.Time
}

// FilterTickets returns the tickets satisfying every set predicate.
func FilterTickets(tickets []domain.Ticket, spec FilterSpec) []domain.Ticket {
	predicates := spec.predicates()
	result := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		keep := true
		for _, predicate := range predicates {
			if !predicate(&tickets[i]) {
				keep = false
				break
			}
		}
		if keep {
			result = append(result, tickets[i])
		}
	}
	return result
}

type ticketPredicate func(*domain.Ticket) bool

func (spec FilterSpec) predicates() []ticketPredicate {
	var predicates []ticketPredicate

	if spec.Status != nil {
		wanted := fold(*spec.Status)
		predicates = append(predicates, func(t *domain.Ticket) bool {
			if wanted == StatusFilterInProcessing {
				return t.Status == domain.TicketStatusAssigned || t.Status == domain.TicketStatusInProgress
			}
			return fold(string(t.Status)) == wanted
		})
	}
	if spec.Priority != nil {
		wanted := fold(*spec.Priority)
		predicates = append(predicates, func(t *domain.Ticket) bool {
			if wanted == PriorityFilterUndefined {
				return t.Priority == "" || t.Priority == domain.TicketPriorityUndefined
			}
			return fold(string(t.Priority)) == wanted
		})
	}
	if spec.Delegation != nil {
		predicates = append(predicates, spec.Delegation.matches)
	}
	if spec.CreatedFrom != nil {
		from := dayOf(*spec.CreatedFrom)
		predicates = append(predicates, func(t *domain.Ticket) bool {
			return !dayOf(t.CreatedAt).Before(from)
		})
	}
	if spec.CreatedTo != nil {
		to := dayOf(*spec.CreatedTo)
		predicates = append(predicates, func(t *domain.Ticket) bool {
			return !dayOf(t.CreatedAt).After(to)
		})
	}
	if spec.Agency != nil {
		wanted := fold(*spec.Agency)
		predicates = append(predicates, func(t *domain.Ticket) bool {
			if fold(t.Agency) == wanted {
				return true
			}
			return t.Creator != nil && fold(t.Creator.Agency) == wanted
		})
	}
	if spec.Category != nil {
		wanted := fold(*spec.Category)
		predicates = append(predicates, func(t *domain.Ticket) bool {
			return fold(t.Category) == wanted
		})
	}
	if spec.Type != nil {
		wanted := fold(*spec.Type)
		predicates = append(predicates, func(t *domain.Ticket) bool {
			return fold(string(t.Type)) == wanted
		})
	}
	if spec.StaleOlderThanDays != nil {
		days := *spec.StaleOlderThanDays
		now := spec.Now
		if now.IsZero() {
			now = time.Now()
		}
		predicates = append(predicates, func(t *domain.Ticket) bool {
			// anything already resolved is not stale, whatever its age
			if t.ResolvedAt != nil || t.ClosedAt != nil {
				return false
			}
			return now.Sub(t.CreatedAt) > time.Duration(days)*24*time.Hour
		})
	}
	if spec.ActorName != nil {
		wanted := *spec.ActorName
		predicates = append(predicates, func(t *domain.Ticket) bool {
			return equalFoldName(t.TechnicianName(), wanted) || equalFoldName(t.CreatorName(), wanted)
		})
	}
	if spec.CreatorSearch != nil {
		needle := fold(*spec.CreatorSearch)
		predicates = append(predicates, func(t *domain.Ticket) bool {
			return needle != "" && containsFold(t.CreatorName(), needle)
		})
	}
	return predicates
}

func dayOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
