package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountersAccumulate(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/tickets", "GET", 200, 12*time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, 9*time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 401, 3*time.Millisecond)
	m.RecordError("/auth/login", "POST", "UNAUTHORIZED")

	requests, errs := m.Snapshot()
	require.Len(t, requests, 2)
	assert.Equal(t, int64(2), requests["/tickets|GET|200"])
	assert.Equal(t, int64(1), requests["/auth/login|POST|401"])
	assert.Equal(t, int64(1), errs["/auth/login|POST|UNAUTHORIZED"])
}

func TestMetricsSnapshotIsACopy(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, time.Millisecond)

	requests, _ := m.Snapshot()
	requests["/tickets|GET|200"] = 99

	fresh, _ := m.Snapshot()
	assert.Equal(t, int64(1), fresh["/tickets|GET|200"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/tickets", "GET", 200, time.Millisecond)
	m.RecordError("/tickets", "GET", "INTERNAL")

	requests, errs := m.Snapshot()
	assert.Nil(t, requests)
	assert.Nil(t, errs)
}
