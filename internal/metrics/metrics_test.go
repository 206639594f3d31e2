package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/faultline/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordReport_IncrementsOutcome(t *testing.T) {
	before := testutil.ToFloat64(metrics.ReportsTotal.WithLabelValues(metrics.OutcomeCreated))
	metrics.RecordReport(metrics.OutcomeCreated)
	metrics.RecordReport(metrics.OutcomeCreated)

	assert.Equal(t, before+2, testutil.ToFloat64(metrics.ReportsTotal.WithLabelValues(metrics.OutcomeCreated)))
}

func TestRecordEvictions(t *testing.T) {
	before := testutil.ToFloat64(metrics.DedupEvictions)
	metrics.RecordEvictions(3)
	assert.Equal(t, before+3, testutil.ToFloat64(metrics.DedupEvictions))
}

func TestRegister_Twice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))
	assert.Error(t, metrics.Register(reg))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	metrics.RecordReport(metrics.OutcomeCommented)
	metrics.ObserveTracker("create_issue", time.Now())

	srv := httptest.NewServer(metrics.Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "faultline_reports_total")
	assert.Contains(t, string(body), `outcome="commented"`)
	assert.Contains(t, string(body), "faultline_tracker_request_duration_seconds")
}
