package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/refdata-normalizer/internal/processor"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserveRun_Success(t *testing.T) {
	m := New()

	report := processor.Report{
		Events:         4,
		PartialEvents:  2,
		OtherEvents:    1,
		Unmatched:      []string{"NOPE US Equity"},
		SecurityErrors: []processor.SecurityFault{{Security: "BAD US Equity"}},
		FieldErrors:    []processor.FieldFault{{Security: "IBM US Equity", FieldID: "OPT_EXPIRE_DT"}},
	}
	m.ObserveRun(nil, 3*time.Second, report, 12)

	out := scrape(t, m)
	assert.Contains(t, out, `refdata_normalizer_runs_total{outcome="success"} 1`)
	assert.Contains(t, out, "refdata_normalizer_prices_written_total 12")
	assert.Contains(t, out, `refdata_normalizer_faults_total{kind="unmatched"} 1`)
	assert.Contains(t, out, `refdata_normalizer_faults_total{kind="security_error"} 1`)
	assert.Contains(t, out, `refdata_normalizer_faults_total{kind="field_error"} 1`)
	assert.Contains(t, out, `refdata_normalizer_faults_total{kind="duplicate"} 0`)
	assert.Contains(t, out, `refdata_normalizer_events_total{kind="partial"} 2`)
	assert.Contains(t, out, `refdata_normalizer_events_total{kind="final"} 1`)
	assert.Contains(t, out, "refdata_normalizer_run_duration_seconds_count 1")
	assert.NotContains(t, out, "refdata_normalizer_last_success_timestamp_seconds 0\n")
}

func TestObserveRun_Failure(t *testing.T) {
	m := New()

	m.ObserveRun(errors.New("connect failure"), time.Second, processor.Report{}, 0)

	out := scrape(t, m)
	assert.Contains(t, out, `refdata_normalizer_runs_total{outcome="failure"} 1`)
	assert.Contains(t, out, "refdata_normalizer_last_success_timestamp_seconds 0")
	assert.NotContains(t, out, `kind="final"`)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRun(nil, time.Second, processor.Report{}, 1)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
