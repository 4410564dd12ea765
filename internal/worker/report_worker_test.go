package worker

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-insight/internal/events"
	"github.com/spec-kit/incident-insight/internal/service"
)

func newWorkerFixture() (*ReportWorker, redismock.ClientMock) {
	client, mock := redismock.NewClientMock()
	reporting := service.NewReportingService(service.ReportingDependencies{
		Cache: client,
	})
	return NewReportWorker(reporting, nil), mock
}

func TestMutationEventsInvalidateCache(t *testing.T) {
	worker, mock := newWorkerFixture()
	dispatcher := events.NewInMemoryDispatcher()
	require.NoError(t, worker.Start(dispatcher, ""))

	mock.ExpectScan(0, "reports:metrics:*", 0).SetVal([]string{"reports:metrics:abc"}, 0)
	mock.ExpectDel("reports:metrics:abc").SetVal(1)

	err := dispatcher.Publish(context.Background(), events.NewEvent(
		events.EventTicketStatusChanged, "tk-1", "user-1", nil))
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	worker, _ := newWorkerFixture()

	err := worker.Start(events.NewInMemoryDispatcher(), "not a cron spec")
	assert.Error(t, err)
}
