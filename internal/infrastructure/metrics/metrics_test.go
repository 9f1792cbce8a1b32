package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraafip "github.com/jhoicas/afip-bridge/internal/infrastructure/afip"
	"github.com/jhoicas/afip-bridge/internal/infrastructure/metrics"
)

var _ infraafip.Observer = (*metrics.Metrics)(nil)

func TestMetrics_ObserveCall(t *testing.T) {
	m := metrics.New("afip")
	m.ObserveCall("wsfe", "FECAESolicitar", infraafip.OutcomeOK, 300*time.Millisecond)
	m.ObserveCall("wsfe", "FECAESolicitar", infraafip.OutcomeOK, 200*time.Millisecond)
	m.ObserveCall("wsaa", "loginCms", infraafip.OutcomeFault, time.Second)
	m.TicketCache("hit_memory")

	n, err := testutil.GatherAndCount(m.Registry(), "afip_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `afip_requests_total{operation="FECAESolicitar",outcome="ok",service="wsfe"} 2`)
	assert.Contains(t, string(body), `afip_ticket_cache_total{result="hit_memory"} 1`)
	assert.Contains(t, string(body), "afip_request_duration_seconds_bucket")
}
