package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"springsnow/internal/metrics"
	"springsnow/internal/model"
)

func sampleMetrics(n int) []model.DailyMetric {
	out := make([]model.DailyMetric, n)
	for i := range out {
		out[i] = model.DailyMetric{
			RecordDate:  "2025-06-01",
			ProductID:   int64(i + 1),
			SalesVolume: model.Float(1.5),
		}
	}
	return out
}

func TestPushDailyMetrics_Batches(t *testing.T) {
	t.Parallel()

	var sizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ImportBatchPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req struct {
			Data []map[string]any `json:"data"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sizes = append(sizes, len(req.Data))
		_ = json.NewEncoder(w).Encode(BatchResponse{Success: true, Inserted: len(req.Data), Total: len(req.Data)})
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL + "/", BatchSize: 100, Metrics: metrics.New()})
	require.NoError(t, err)

	res, err := c.PushDailyMetrics(context.Background(), sampleMetrics(250))
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 50}, sizes)
	assert.Equal(t, PushResult{Batches: 3, Sent: 250, Inserted: 250}, res)
}

func TestPushDailyMetrics_StopsOnFailure(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Import failed"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(BatchResponse{Success: true, Inserted: 10, Total: 10})
	}))
	t.Cleanup(srv.Close)

	m := metrics.New()
	c, err := NewClient(Options{BaseURL: srv.URL, BatchSize: 10, Metrics: m})
	require.NoError(t, err)

	res, err := c.PushDailyMetrics(context.Background(), sampleMetrics(40))
	require.ErrorIs(t, err, ErrBatchRejected)
	assert.Contains(t, err.Error(), "batch 2/4")
	assert.Contains(t, err.Error(), "Import failed")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, PushResult{Batches: 1, Sent: 10, Inserted: 10}, res)
}

func TestRowsFromMetrics_KeepsNulls(t *testing.T) {
	t.Parallel()

	rows := RowsFromMetrics(sampleMetrics(1))
	data, err := json.Marshal(rows[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"record_date":"2025-06-01","product_id":1,"production_volume":null,"sales_volume":1.5,"inventory_level":null,"average_price":null,"sales_amount":null}`, string(data))
}

func TestNewClient_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Options{BaseURL: "  "})
	assert.Error(t, err)
}
