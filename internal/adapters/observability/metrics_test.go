package observability

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := InitRegistry()

	// record one sample per collector family so they all render
	ObserveHTTP("/v1/hotels", "GET", 200, 12*time.Millisecond)
	ObserveStore("upsert_city", "ok", time.Millisecond)
	ObserveStoreError("update_hotels", errors.New("boom"))
	ObserveCache("redis", "hit")
	ObserveImport("hotel", "ok", 1)

	mh := MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{
		"pricing_http_requests_total",
		"pricing_store_ops_total",
		"pricing_store_op_duration_seconds",
		"pricing_store_errors_total",
		"pricing_cache_events_total",
		"pricing_import_rows_total",
	} {
		assert.Contains(t, out, name)
	}
}

func TestLabelErr(t *testing.T) {
	assert.Equal(t, "none", LabelErr(nil))
	assert.Equal(t, "*errors.errorString", LabelErr(errors.New("x")))
	// wrapping layers do not leak into the label
	assert.Equal(t, "*errors.errorString", LabelErr(fmt.Errorf("get_city: %w", sql.ErrConnDone)))
	assert.Equal(t, "canceled", LabelErr(fmt.Errorf("list_cities: %w", context.Canceled)))
	assert.Equal(t, "timeout", LabelErr(fmt.Errorf("tx: %w", context.DeadlineExceeded)))
}

func TestObserveStoreError_LabelsReason(t *testing.T) {
	reg := InitRegistry()
	ObserveStoreError("rename_city", fmt.Errorf("rename_city: %w", context.DeadlineExceeded))

	rr := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), `pricing_store_errors_total{op="rename_city",reason="timeout"} 1`)
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("test", &buf)
	l.Info().Msg("quiet")
	assert.Empty(t, buf.String())
	l.Warn().Msg("loud")
	assert.Contains(t, buf.String(), `"message":"loud"`)

	buf.Reset()
	l = newLogger("prod", &buf)
	l.Info().Str("k", "v").Msg("json")
	assert.Contains(t, buf.String(), `"k":"v"`)
}
