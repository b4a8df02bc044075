package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"springsnow/internal/config"
	"springsnow/internal/metrics"
	"springsnow/internal/model"
	"springsnow/internal/parser"
	"springsnow/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	store  *store.Store
	cfg    *config.AppConfig
	ids    map[string]int64
}

func metric(date string, productID int64, production, sales, inventory, price, amount float64) model.DailyMetric {
	return model.DailyMetric{
		RecordDate:            date,
		ProductID:             productID,
		ProductionVolume:      model.Float(production),
		SalesVolume:           model.Float(sales),
		InventoryLevel:        model.Float(inventory),
		AveragePrice:          model.Float(price),
		SalesAmount:           model.Float(amount),
		InventoryTurnoverDays: model.Float(0),
	}
}

// newTestEnv 两个正常产品、一个鲜品、一个副产品
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "springsnow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	products := []model.Product{
		{ID: 1, Name: "鸡大胸", Category: model.String("分割品")},
		{ID: 2, Name: "鸡翅"},
		{ID: 3, Name: "鲜鸡腿", Category: model.String("分割品")},
		{ID: 4, Name: "鸡架", Category: model.String("副产品")},
	}
	_, err = st.SaveMetrics(products, []model.DailyMetric{
		metric("2025-06-01", 1, 10, 8, 30, 10000, 80000),
		metric("2025-06-01", 2, 5, 6, 10, 12000, 72000),
		metric("2025-06-01", 3, 100, 100, 100, 9000, 900000),
		metric("2025-06-01", 4, 50, 50, 50, 1000, 50000),
		metric("2025-06-02", 1, 10, 12, 28, 11000, 132000),
	}, store.SaveOptions{Clear: true})
	require.NoError(t, err)

	list, err := st.ListProducts()
	require.NoError(t, err)
	ids := make(map[string]int64, len(list))
	for _, p := range list {
		ids[p.Name] = p.ID
	}

	cfg := config.DefaultConfig()
	cfg.Sources.ExcelDir = t.TempDir()

	router := gin.New()
	NewHandler(st, cfg, metrics.New()).RegisterRoutes(router.Group("/api"))
	return &testEnv{router: router, store: st, cfg: cfg, ids: ids}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func recordOf(values map[string]string) parser.Record {
	return parser.Record{Row: 2, Values: values}
}

func (e *testEnv) do(method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(path string) *httptest.ResponseRecorder {
	return e.do(http.MethodGet, path, nil, "")
}

func (e *testEnv) postJSON(path string, v any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(v)
	return e.do(http.MethodPost, path, b, "application/json")
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.postJSON("/api/register", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", decode[gin.H](t, w)["message"])

	w = env.postJSON("/api/register", gin.H{"username": "alice", "password": "pw", "inviteCode": "WRONG"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid invite code", decode[gin.H](t, w)["message"])

	w = env.postJSON("/api/register", gin.H{"username": "alice", "password": "pw", "inviteCode": env.cfg.Business.InviteCode})
	require.Equal(t, http.StatusOK, w.Code)
	reg := decode[struct {
		Success bool     `json:"success"`
		Token   string   `json:"token"`
		User    UserInfo `json:"user"`
	}](t, w)
	assert.True(t, reg.Success)
	assert.Len(t, reg.Token, 36)
	assert.Equal(t, UserInfo{Username: "alice", Avatar: "A"}, reg.User)

	w = env.postJSON("/api/register", gin.H{"username": "alice", "password": "pw", "inviteCode": env.cfg.Business.InviteCode})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.postJSON("/api/login", gin.H{"username": "alice", "password": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid username or password", decode[gin.H](t, w)["message"])

	w = env.postJSON("/api/login", gin.H{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[gin.H](t, w)["success"])
}

func TestSummary(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.get("/api/summary?start_date=2025-06-01")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing start_date or end_date query parameters", decode[gin.H](t, w)["error"])

	w = env.get("/api/summary?start_date=2025-06-01&end_date=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, SummaryResponse{
		TotalProducts:          2,
		Days:                   2,
		TotalSales:             26,
		TotalProduction:        25,
		SalesToProductionRatio: 26.0 / 25 * 100,
	}, decode[SummaryResponse](t, w))
}

func TestInventoryEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	assert.Equal(t, http.StatusBadRequest, env.get("/api/inventory/top").Code)
	assert.Equal(t, http.StatusBadRequest, env.get("/api/inventory/top?date=2025-06-01&limit=abc").Code)

	w := env.get("/api/inventory/top?date=2025-06-01")
	require.Equal(t, http.StatusOK, w.Code)
	top := decode[[]store.InventoryItem](t, w)
	require.Len(t, top, 2)
	assert.Equal(t, "鸡大胸", top[0].ProductName)
	assert.Equal(t, 75.0, top[0].Percentage)
	assert.Equal(t, 2, top[1].Rank)

	w = env.get("/api/inventory/summary?date=2025-06-01")
	require.Equal(t, http.StatusOK, w.Code)
	sum := decode[store.InventorySummaryResult](t, w)
	assert.Equal(t, 40.0, sum.TotalInventory)
	assert.Equal(t, 2, sum.ProductCount)

	w = env.get("/api/inventory/trends?start_date=2025-06-01&end_date=2025-06-02")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing product_id query parameter", decode[gin.H](t, w)["error"])

	w = env.get("/api/inventory/trends?start_date=2025-06-01&end_date=2025-06-02&product_id=" + itoa(env.ids["鸡大胸"]))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]gin.H](t, w), 2)
}

func TestRatioEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.get("/api/trends/ratio?start_date=2025-06-01&end_date=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)
	daily := decode[[]gin.H](t, w)
	require.Len(t, daily, 2)
	assert.Equal(t, "2025-06-01", daily[0]["record_date"])
	assert.InDelta(t, 14.0/15*100, daily[0]["ratio"], 1e-9)

	w = env.get("/api/production/ratio-stats?start_date=2025-06-01&end_date=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[gin.H](t, w)
	assert.Equal(t, 2.0, stats["total_days"])
	assert.InDelta(t, 104.0, stats["avg_ratio"], 1e-9)
	assert.InDelta(t, 120.0, stats["max_ratio"], 1e-9)
}

func TestImportBatch(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.postJSON("/api/admin/import-batch", gin.H{"data": gin.H{"record_date": "2025-06-03"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Data must be an array", decode[gin.H](t, w)["error"])

	id := env.ids["鸡翅"]
	w = env.postJSON("/api/admin/import-batch", gin.H{"data": []gin.H{
		{"record_date": "2025-06-03", "product_id": id, "sales_volume": 3},
		{"record_date": "2025-06-01", "product_id": id, "sales_volume": 1}, // 主键冲突
	}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gin.H{"success": true, "inserted": 1.0, "total": 2.0}, decode[gin.H](t, w))

	n, err := env.store.CountDailyMetrics()
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

// uploadBody 生成日指标上传表单
func uploadBody(t *testing.T, rows [][]any) ([]byte, string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	header := []any{"product_id", "record_date", "production_volume", "sales_volume", "inventory_level", "average_price", "sales_amount"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &header))
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "upload.xlsx")
	require.NoError(t, err)
	_, err = f.WriteTo(part)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestUploadMetrics(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	id := env.ids["鸡翅"]

	w := env.do(http.MethodPost, "/api/upload", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", decode[gin.H](t, w)["error"])

	body, ct := uploadBody(t, [][]any{
		{id, "2025-06-05", 1, 2, 3, 4, 8},
		{"abc", "2025-06-06", 1, 2, 3, 4, 8},
	})
	w = env.do(http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusBadRequest, w.Code)
	rejected := decode[gin.H](t, w)
	assert.Equal(t, "Too many validation errors in uploaded data", rejected["error"])
	assert.Equal(t, 1.0, rejected["totalErrors"])
	assert.Equal(t, 2.0, rejected["totalRows"])
	assert.Equal(t, []any{"Row 2: Invalid or missing product_id"}, rejected["details"])

	rows := make([][]any, 0, 11)
	for day := 10; day < 20; day++ {
		rows = append(rows, []any{id, "2025-06-" + itoa(int64(day)), 1, 2, 3, 4, 8})
	}
	rows = append(rows, []any{id, "2025-06-20", 1, -2, 3, 4, 8})
	body, ct = uploadBody(t, rows)
	w = env.do(http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ok := decode[gin.H](t, w)
	assert.Equal(t, "Upload successful", ok["message"])
	assert.Equal(t, 10.0, ok["processedRows"])
	assert.Equal(t, 1.0, ok["skippedRows"])
	assert.Equal(t, []any{"Row 11: Invalid sales_volume: must be a non-negative number"}, ok["errors"])
}

func TestParseUploadRow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		values map[string]string
		want   []string
	}{
		{"ok", map[string]string{"product_id": "1", "record_date": "2025/6/1", "sales_volume": "2"}, nil},
		{"missing date", map[string]string{"product_id": "1"}, []string{"Missing record_date"}},
		{"bad date", map[string]string{"product_id": "1", "record_date": "yesterday"}, []string{"Invalid record_date format"}},
		{"bad number", map[string]string{"product_id": "1", "record_date": "2025-06-01", "average_price": "n/a"},
			[]string{"Invalid average_price: must be a non-negative number"}},
		{"negative", map[string]string{"product_id": "1", "record_date": "2025-06-01", "inventory_level": "-1"},
			[]string{"Invalid inventory_level: must be a non-negative number"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, errs := parseUploadRow(recordOf(tc.values))
			assert.Equal(t, tc.want, errs)
			if tc.want == nil {
				assert.Equal(t, "2025-06-01", m.RecordDate)
				assert.Equal(t, int64(1), m.ProductID)
				assert.Nil(t, m.ProductionVolume)
			}
		})
	}
}

// sseEvents 解析 SSE 响应体中的 data 行
func sseEvents(t *testing.T, body string) []gin.H {
	t.Helper()
	var out []gin.H
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev gin.H
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		out = append(out, ev)
	}
	return out
}

func TestExportStreamAndDownload(t *testing.T) {
	t.Parallel()

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		method := method
		t.Run(method, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)

			w := env.do(method, "/api/export/stream", nil, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

			events := sseEvents(t, w.Body.String())
			require.NotEmpty(t, events)
			assert.Equal(t, "start", events[0]["type"])
			last := events[len(events)-1]
			require.Equal(t, "done", last["type"], last["message"])
			url := last["data"].(map[string]any)["downloadUrl"].(string)
			assert.True(t, strings.HasPrefix(url, "/api/export/download/"))

			w = env.get(url)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
			f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
			require.NoError(t, err)
			defer f.Close()
			assert.Contains(t, f.GetSheetList(), "日指标")

			assert.Equal(t, http.StatusNotFound, env.get(url).Code)
		})
	}
}

func TestExportSQLAndCSV(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	w := env.get("/api/export/sql")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INSERT INTO")
	assert.Contains(t, w.Body.String(), "鸡大胸")

	w = env.get("/api/export/csv")
	require.Equal(t, http.StatusOK, w.Code)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "\ufeffrecord_date,product_id,product_name"))
}

func TestStatusAndQuality(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	logID, err := env.store.CreateImportLog("run-1", "metrics", "in")
	require.NoError(t, err)
	require.NoError(t, env.store.InsertImportSource(logID, &parser.LoadReport{
		Source: model.SourceSales, File: "销售发票执行查询.xlsx", TotalRows: 10, KeptRows: 8,
	}))
	require.NoError(t, env.store.SetLastRun("run-1", "2025-06-03T00:00:00Z"))

	w := env.get("/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[StatusResponse](t, w)
	assert.True(t, st.Initialized)
	assert.Equal(t, 5, st.TotalMetrics)
	assert.Equal(t, 4, st.TotalProducts)
	assert.Equal(t, "2025-06-01", st.StartDate)
	assert.Equal(t, "2025-06-02", st.EndDate)
	assert.Len(t, st.Dates, 2)
	assert.Equal(t, "run-1", st.LastRunID)
	require.Len(t, st.RecentImports, 1)
	require.Len(t, st.LastSources, 1)
	assert.Equal(t, 8, st.LastSources[0].KeptRows)

	// 源目录为空
	w = env.get("/api/quality")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadStore_Expires(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	s := newDownloadStore()
	expired := s.put(path, -time.Second)
	_, ok := s.take(expired)
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	token := s.put("other.xlsx", time.Minute)
	item, ok := s.take(token)
	assert.True(t, ok)
	assert.Equal(t, "other.xlsx", item.filePath)
	_, ok = s.take(token)
	assert.False(t, ok)
}
