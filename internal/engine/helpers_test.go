package engine

import (
	"time"

	"github.com/spec-kit/incident-insight/internal/domain"
)

var testEpoch = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func timePtr(t time.Time) *time.Time { return &t }

func testTicket() *domain.Ticket {
	techID := "tech-1"
	return &domain.Ticket{
		ID:           "tk-1",
		Number:       "INC-20250101-0000A101",
		Title:        "Printer down",
		Type:         domain.TicketTypeMaterial,
		Category:     "Hardware",
		Priority:     domain.TicketPriorityHigh,
		Status:       domain.TicketStatusAssigned,
		CreatorID:    "user-1",
		Creator:      &domain.User{ID: "user-1", FullName: "Alice Martin", Agency: "North"},
		TechnicianID: &techID,
		Technician:   &domain.User{ID: "tech-1", FullName: "Marc Dupont"},
		Agency:       "North",
		CreatedAt:    testEpoch,
	}
}

func testDirectory() Directory {
	return Directory{
		"user-1":   {ID: "user-1", FullName: "Alice Martin", Role: domain.RoleUser},
		"tech-1":   {ID: "tech-1", FullName: "Marc Dupont", Role: domain.RoleTechnician},
		"deputy-1": {ID: "deputy-1", FullName: "Nadia Benali", Role: domain.RoleDeputyDSI},
		"dsi-1":    {ID: "dsi-1", FullName: "Henri Laurent", Role: domain.RoleDSI},
	}
}

func transition(old, new string, at time.Time, userID string, reason *string) domain.HistoryEntry {
	var oldPtr *string
	if old != "" {
		oldPtr = &old
	}
	return domain.HistoryEntry{
		TicketID:  "tk-1",
		OldStatus: oldPtr,
		NewStatus: new,
		UserID:    userID,
		Reason:    reason,
		ChangedAt: at,
	}
}
