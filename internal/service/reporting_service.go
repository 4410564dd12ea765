package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/incident-insight/internal/config"
	"github.com/spec-kit/incident-insight/internal/domain"
	"github.com/spec-kit/incident-insight/internal/engine"
	"github.com/spec-kit/incident-insight/internal/repository"
	"github.com/spec-kit/incident-insight/pkg/util"
)

const metricsCachePrefix = "reports:metrics:"

// ReportingService serves timelines, scores and fleet metrics. It owns
// the history fan-out and the Redis metrics cache; all scoring and
// classification is deferred to the engine package.
type ReportingService struct {
	tickets repository.TicketRepository
	history repository.TicketHistoryRepository
	users   repository.UserRepository
	cache   *redis.Client
	cfg     config.ReportingConfig
	logger  *zap.Logger
	now     func() time.Time
}

// ReportingDependencies bundles collaborators for the reporting service.
type ReportingDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	UserRepo    repository.UserRepository
	Cache       *redis.Client
	Config      config.ReportingConfig
	Logger      *zap.Logger
}

// ReportQuery carries the caller identity plus the behavioural filters
// applied in memory after the coarse SQL listing.
type ReportQuery struct {
	Caller             *domain.User
	Status             *string
	Priority           *string
	Delegation         *engine.DelegationMode
	CreatedFrom        *time.Time
	CreatedTo          *time.Time
	Agency             *string
	Category           *string
	Type               *string
	StaleOlderThanDays *int
	ActorName          *string
	CreatorSearch      *string
}

// NewReportingService constructs the service.
func NewReportingService(deps ReportingDependencies) *ReportingService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg.HistoryConcurrency <= 0 {
		cfg.HistoryConcurrency = 8
	}
	return &ReportingService{
		tickets: deps.TicketRepo,
		history: deps.HistoryRepo,
		users:   deps.UserRepo,
		cache:   deps.Cache,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Timeline reconstructs the rendered activity timeline for one ticket.
func (s *ReportingService) Timeline(ctx context.Context, ticketID string) ([]domain.TimelineEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	history, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, util.MapError(err)
	}
	directory, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}
	return engine.BuildTimeline(ticket, history, directory), nil
}

// Score computes the satisfaction score for one ticket.
func (s *ReportingService) Score(ctx context.Context, ticketID string) (domain.TicketScore, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return domain.TicketScore{}, util.MapError(err)
	}
	history, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return domain.TicketScore{}, util.MapError(err)
	}
	return engine.ScoreSatisfaction(ticket, history), nil
}

// ListTickets returns the filtered ticket set for the query, delegation
// semantics included.
func (s *ReportingService) ListTickets(ctx context.Context, query ReportQuery) ([]domain.Ticket, error) {
	tickets, _, err := s.filteredTickets(ctx, query)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// FleetMetrics computes aggregate metrics over the query's ticket set,
// consulting the Redis cache first. Averages are merged monotonically
// against the last computed snapshot so a transient history fetch
// failure never regresses a known value back to null.
func (s *ReportingService) FleetMetrics(ctx context.Context, query ReportQuery) (domain.FleetMetrics, error) {
	key := s.cacheKey(query)
	if cached, ok := s.readCache(ctx, key); ok {
		return cached, nil
	}

	tickets, histories, err := s.filteredTickets(ctx, query)
	if err != nil {
		return domain.FleetMetrics{}, err
	}

	metrics := engine.ComputeFleetMetrics(tickets, histories)
	metrics = s.mergeWithLast(ctx, key, metrics)
	s.writeCache(ctx, key, metrics)
	return metrics, nil
}

// InvalidateCache drops every cached metrics snapshot. Called by the
// report worker whenever a ticket mutates.
func (s *ReportingService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	iter := s.cache.Scan(ctx, 0, metricsCachePrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		key := iter.Val()
		// last-known snapshots survive invalidation so merges keep
		// their floor.
		if strings.HasSuffix(key, ":last") {
			continue
		}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.cache.Del(ctx, keys...).Err()
}

// WarmCache precomputes the unfiltered fleet metrics snapshot.
func (s *ReportingService) WarmCache(ctx context.Context) error {
	_, err := s.FleetMetrics(ctx, ReportQuery{})
	return err
}

func (s *ReportingService) filteredTickets(ctx context.Context, query ReportQuery) ([]domain.Ticket, map[string][]domain.HistoryEntry, error) {
	repoFilter := repository.TicketFilter{
		Agency:      query.Agency,
		Category:    query.Category,
		CreatedFrom: query.CreatedFrom,
		CreatedTo:   query.CreatedTo,
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, nil, util.MapError(err)
	}

	histories := s.fetchHistories(ctx, tickets)

	spec := engine.FilterSpec{
		Status:             query.Status,
		Priority:           query.Priority,
		CreatedFrom:        query.CreatedFrom,
		CreatedTo:          query.CreatedTo,
		Agency:             query.Agency,
		Category:           query.Category,
		Type:               query.Type,
		StaleOlderThanDays: query.StaleOlderThanDays,
		ActorName:          query.ActorName,
		CreatorSearch:      query.CreatorSearch,
		Now:                s.now(),
	}
	if query.Delegation != nil && query.Caller != nil {
		spec.Delegation = &engine.DelegationFilter{
			Mode:       *query.Delegation,
			CallerID:   query.Caller.ID,
			CallerRole: query.Caller.Role,
			Histories:  histories,
		}
	}

	filtered := engine.FilterTickets(tickets, spec)
	return filtered, histories, nil
}

// fetchHistories loads per-ticket histories with a bounded fan-out. A
// failed fetch drops the ticket from the map; downstream aggregation
// treats the absence as "history unavailable".
func (s *ReportingService) fetchHistories(ctx context.Context, tickets []domain.Ticket) map[string][]domain.HistoryEntry {
	histories := make(map[string][]domain.HistoryEntry, len(tickets))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.HistoryConcurrency)
	for i := range tickets {
		ticket := tickets[i]
		g.Go(func() error {
			entries, err := s.history.ListByTicket(gctx, ticket.ID)
			if err != nil {
				s.logger.Warn("history fetch failed",
					zap.String("ticket_id", ticket.ID),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			histories[ticket.ID] = entries
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return histories
}

func (s *ReportingService) directory(ctx context.Context) (engine.Directory, error) {
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	directory := make(engine.Directory, len(users))
	for _, user := range users {
		directory[user.ID] = user
	}
	return directory, nil
}

// cachedMetrics is the Redis wire form of FleetMetrics.
type cachedMetrics struct {
	AvgResolutionNanos *int64   `json:"avg_resolution_nanos,omitempty"`
	AvgResolutionLabel *string  `json:"avg_resolution_label,omitempty"`
	AvgSatisfaction    *float64 `json:"avg_satisfaction,omitempty"`
	ReopeningRate      *float64 `json:"reopening_rate,omitempty"`
	ResolvedCount      int      `json:"resolved_count"`
	OpenCount          int      `json:"open_count"`
	TotalCount         int      `json:"total_count"`
}

func toCached(m domain.FleetMetrics) cachedMetrics {
	cached := cachedMetrics{
		AvgResolutionLabel: m.AvgResolutionLabel,
		AvgSatisfaction:    m.AvgSatisfaction,
		ReopeningRate:      m.ReopeningRate,
		ResolvedCount:      m.ResolvedCount,
		OpenCount:          m.OpenCount,
		TotalCount:         m.TotalCount,
	}
	if m.AvgResolution != nil {
		nanos := int64(*m.AvgResolution)
		cached.AvgResolutionNanos = &nanos
	}
	return cached
}

func fromCached(c cachedMetrics) domain.FleetMetrics {
	metrics := domain.FleetMetrics{
		AvgResolutionLabel: c.AvgResolutionLabel,
		AvgSatisfaction:    c.AvgSatisfaction,
		ReopeningRate:      c.ReopeningRate,
		ResolvedCount:      c.ResolvedCount,
		OpenCount:          c.OpenCount,
		TotalCount:         c.TotalCount,
	}
	if c.AvgResolutionNanos != nil {
		d := time.Duration(*c.AvgResolutionNanos)
		metrics.AvgResolution = &d
	}
	return metrics
}

func (s *ReportingService) cacheKey(query ReportQuery) string {
	parts := []string{
		strPtr(query.Status),
		strPtr(query.Priority),
		strPtr(query.Agency),
		strPtr(query.Category),
		strPtr(query.Type),
		strPtr(query.ActorName),
		strPtr(query.CreatorSearch),
	}
	if query.Delegation != nil && query.Caller != nil {
		parts = append(parts, string(*query.Delegation), query.Caller.ID, string(query.Caller.Role))
	}
	if query.CreatedFrom != nil {
		parts = append(parts, query.CreatedFrom.Format(time.RFC3339))
	}
	if query.CreatedTo != nil {
		parts = append(parts, query.CreatedTo.Format(time.RFC3339))
	}
	if query.StaleOlderThanDays != nil {
		parts = append(parts, fmt.Sprintf("stale:%d", *query.StaleOlderThanDays))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return metricsCachePrefix + hex.EncodeToString(sum[:16])
}

func (s *ReportingService) readCache(ctx context.Context, key string) (domain.FleetMetrics, bool) {
	if s.cache == nil {
		return domain.FleetMetrics{}, false
	}
	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("metrics cache read failed", zap.Error(err))
		}
		return domain.FleetMetrics{}, false
	}
	var cached cachedMetrics
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return domain.FleetMetrics{}, false
	}
	return fromCached(cached), true
}

func (s *ReportingService) writeCache(ctx context.Context, key string, metrics domain.FleetMetrics) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(toCached(metrics))
	if err != nil {
		return
	}
	ttl := s.cfg.CacheTTL()
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.cache.Set(ctx, key, raw, ttl).Err(); err != nil {
		s.logger.Warn("metrics cache write failed", zap.Error(err))
	}
	// The last-known snapshot has no TTL; it only feeds monotonic merges.
	if err := s.cache.Set(ctx, key+":last", raw, 0).Err(); err != nil {
		s.logger.Warn("metrics snapshot write failed", zap.Error(err))
	}
}

// mergeWithLast keeps previously known averages when the new computation
// could not produce them, typically because every resolved ticket's
// history fetch failed this round.
func (s *ReportingService) mergeWithLast(ctx context.Context, key string, metrics domain.FleetMetrics) domain.FleetMetrics {
	if s.cache == nil {
		return metrics
	}
	raw, err := s.cache.Get(ctx, key+":last").Result()
	if err != nil {
		return metrics
	}
	var cached cachedMetrics
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return metrics
	}
	last := fromCached(cached)
	if metrics.AvgResolution == nil && last.AvgResolution != nil {
		metrics.AvgResolution = last.AvgResolution
		metrics.AvgResolutionLabel = last.AvgResolutionLabel
	}
	if metrics.AvgSatisfaction == nil && last.AvgSatisfaction != nil {
		metrics.AvgSatisfaction = last.AvgSatisfaction
	}
	if metrics.ReopeningRate == nil && last.ReopeningRate != nil {
		metrics.ReopeningRate = last.ReopeningRate
	}
	return metrics
}

func strPtr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
