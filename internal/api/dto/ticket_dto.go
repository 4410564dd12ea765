package dto

import (
	"time"

	"github.com/spec-kit/incident-insight/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Type        domain.TicketType     `json:"type"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
	Agency      string                `json:"agency"`
}

// AssignRequest payload.
type AssignRequest struct {
	TechnicianID string                `json:"technician_id"`
	Priority     domain.TicketPriority `json:"priority"`
}

// DelegateRequest payload.
type DelegateRequest struct {
	DeputyID string `json:"deputy_id"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	Summary string `json:"summary"`
}

// RejectRequest payload.
type RejectRequest struct {
	Motive string `json:"motive"`
}

// CommentRequest payload.
type CommentRequest struct {
	Body string `json:"body"`
}

// FeedbackRequest payload.
type FeedbackRequest struct {
	Score int `json:"score"`
}

// StatusRequest payload for raw status updates.
type StatusRequest struct {
	Status domain.TicketStatus `json:"status"`
	Reason string              `json:"reason"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             string                `json:"id"`
	Number         string                `json:"number"`
	Title          string                `json:"title"`
	Type           domain.TicketType     `json:"type"`
	Category       string                `json:"category,omitempty"`
	Priority       domain.TicketPriority `json:"priority"`
	Status         domain.TicketStatus   `json:"status"`
	CreatorName    string                `json:"creator_name"`
	TechnicianName string                `json:"technician_name,omitempty"`
	Agency         string                `json:"agency,omitempty"`
	Delegated      bool                  `json:"delegated"`
	CreatedAt      time.Time             `json:"created_at"`
	ResolvedAt     *time.Time            `json:"resolved_at"`
	ClosedAt       *time.Time            `json:"closed_at"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	summary := TicketSummary{
		ID:          ticket.ID,
		Number:      ticket.Number,
		Title:       ticket.Title,
		Type:        ticket.Type,
		Category:    ticket.Category,
		Priority:    ticket.Priority,
		Status:      ticket.Status,
		CreatorName: ticket.CreatorName(),
		Agency:      ticket.Agency,
		Delegated:   ticket.DeputyID != nil,
		CreatedAt:   ticket.CreatedAt,
		ResolvedAt:  ticket.ResolvedAt,
		ClosedAt:    ticket.ClosedAt,
	}
	if ticket.TechnicianID != nil {
		summary.TechnicianName = ticket.TechnicianName()
	}
	return summary
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description   string `json:"description"`
	FeedbackScore *int   `json:"feedback_score"`
}

// NewTicketDetail maps a domain ticket with its description.
func NewTicketDetail(ticket *domain.Ticket) TicketDetailResponse {
	return TicketDetailResponse{
		TicketSummary: NewTicketSummary(ticket),
		Description:   ticket.Description,
		FeedbackScore: ticket.FeedbackScore,
	}
}

// TimelineEntryResponse is one rendered timeline row.
type TimelineEntryResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Icon      string    `json:"icon"`
	Color     string    `json:"color"`
	ActorName *string   `json:"actor_name"`
	Reason    *string   `json:"reason"`
}

// NewTimelineEntries maps engine output.
func NewTimelineEntries(entries []domain.TimelineEntry) []TimelineEntryResponse {
	result := make([]TimelineEntryResponse, 0, len(entries))
	for _, entry := range entries {
		result = append(result, TimelineEntryResponse{
			Timestamp: entry.Timestamp,
			Kind:      string(entry.Kind),
			Title:     entry.Title,
			Icon:      entry.Icon,
			Color:     entry.Color,
			ActorName: entry.ActorName,
			Reason:    entry.Reason,
		})
	}
	return result
}

// ScoreResponse is the satisfaction score for one ticket.
type ScoreResponse struct {
	TicketID            string `json:"ticket_id"`
	Score               int    `json:"score"`
	Source              string `json:"source"`
	CountsForTechnician bool   `json:"counts_for_technician"`
}

// NewScoreResponse maps engine output.
func NewScoreResponse(score domain.TicketScore) ScoreResponse {
	return ScoreResponse{
		TicketID:            score.TicketID,
		Score:               score.Score,
		Source:              string(score.Source),
		CountsForTechnician: score.CountsForTechnician,
	}
}
