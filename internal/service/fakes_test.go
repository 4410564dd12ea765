package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-insight/internal/domain"
	"github.com/spec-kit/incident-insight/internal/repository"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
	for _, ticket := range tickets {
		repo.tickets[ticket.ID] = ticket
	}
	return repo
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByNumber(_ context.Context, number string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.Number == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		result = append(result, *ticket)
	}
	return result, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries map[string][]domain.HistoryEntry
	// failFor makes ListByTicket fail for specific ticket ids.
	failFor map[string]bool
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{
		entries: make(map[string][]domain.HistoryEntry),
		failFor: make(map[string]bool),
	}
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *domain.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.TicketID] = append(r.entries[entry.TicketID], *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[ticketID] {
		return nil, errors.New("history unavailable")
	}
	return append([]domain.HistoryEntry{}, r.entries[ticketID]...), nil
}

func (r *fakeHistoryRepo) lastEntry(ticketID string) *domain.HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.entries[ticketID]
	if len(entries) == 0 {
		return nil
	}
	entry := entries[len(entries)-1]
	return &entry
}

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*domain.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListActive(_ context.Context) ([]domain.User, error) {
	result := make([]domain.User, 0, len(r.users))
	for _, user := range r.users {
		if user.Active {
			result = append(result, *user)
		}
	}
	return result, nil
}

var (
	svcEpoch = time.Date(2025, time.April, 7, 10, 0, 0, 0, time.UTC)

	svcManager = &domain.User{
		ID:       "dsi-1",
		FullName: "Henri Laurent",
		Email:    "henri@agency.example",
		Role:     domain.RoleDSI,
		Active:   true,
	}
	svcDeputy = &domain.User{
		ID:       "deputy-1",
		FullName: "Nadia Benali",
		Email:    "nadia@agency.example",
		Role:     domain.RoleDeputyDSI,
		Active:   true,
	}
	svcTech = &domain.User{
		ID:       "tech-1",
		FullName: "Marc Dupont",
		Email:    "marc@agency.example",
		Role:     domain.RoleTechnician,
		Active:   true,
	}
	svcCreator = &domain.User{
		ID:       "user-1",
		FullName: "Alice Martin",
		Email:    "alice@agency.example",
		Role:     domain.RoleUser,
		Agency:   "Lyon",
		Active:   true,
	}
)

func svcTicket(id string, status domain.TicketStatus) *domain.Ticket {
	return &domain.Ticket{
		ID:        id,
		Number:    "INC-20250407-" + id,
		Title:     "printer offline",
		Type:      domain.TicketTypeMaterial,
		Priority:  domain.TicketPriorityHigh,
		Status:    status,
		CreatorID: svcCreator.ID,
		Creator:   svcCreator,
		Agency:    "Lyon",
		CreatedAt: svcEpoch,
	}
}
