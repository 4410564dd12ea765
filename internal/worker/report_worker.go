package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-insight/internal/events"
	"github.com/spec-kit/incident-insight/internal/service"
)

// ReportWorker keeps the metrics cache coherent: ticket mutations drop
// cached snapshots and a cron schedule precomputes the common query.
type ReportWorker struct {
	reporting *service.ReportingService
	logger    *zap.Logger
	cron      *cron.Cron
}

// NewReportWorker constructs the worker.
func NewReportWorker(reporting *service.ReportingService, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWorker{reporting: reporting, logger: logger}
}

// Start subscribes to mutation events and, when a schedule is given,
// launches the cache warmer.
func (w *ReportWorker) Start(dispatcher events.Dispatcher, warmSchedule string) error {
	if dispatcher != nil {
		handler := w.invalidate
		dispatcher.Subscribe(events.EventTicketCreated, handler)
		dispatcher.Subscribe(events.EventTicketStatusChanged, handler)
		dispatcher.Subscribe(events.EventTicketAssigned, handler)
		dispatcher.Subscribe(events.EventTicketDelegated, handler)
		dispatcher.Subscribe(events.EventFeedbackSubmitted, handler)
	}

	if warmSchedule == "" {
		return nil
	}
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(warmSchedule, w.warm); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("metrics cache warmer started", zap.String("schedule", warmSchedule))
	return nil
}

// Stop halts the cron scheduler and waits for a running job to finish.
func (w *ReportWorker) Stop() {
	if w.cron == nil {
		return
	}
	ctx := w.cron.Stop()
	<-ctx.Done()
}

func (w *ReportWorker) invalidate(ctx context.Context, event events.Event) error {
	if err := w.reporting.InvalidateCache(ctx); err != nil {
		w.logger.Warn("metrics cache invalidation failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}

func (w *ReportWorker) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.reporting.WarmCache(ctx); err != nil {
		w.logger.Warn("metrics cache warm failed", zap.Error(err))
	}
}
