package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"springsnow/internal/exporter"
)

// downloadTTL 导出文件下载链接有效期
const downloadTTL = 10 * time.Minute

type exportDownload struct {
	filePath  string
	expiresAt time.Time
}

// downloadStore 一次性下载链接
type downloadStore struct {
	mu    sync.Mutex
	items map[string]exportDownload
}

func newDownloadStore() *downloadStore {
	return &downloadStore{items: make(map[string]exportDownload)}
}

func (s *downloadStore) put(filePath string, ttl time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.purgeExpiredLocked(now)

	token := uuid.NewString()
	s.items[token] = exportDownload{filePath: filePath, expiresAt: now.Add(ttl)}
	return token
}

// take 取出并删除 token
func (s *downloadStore) take(token string) (exportDownload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())

	v, ok := s.items[token]
	if ok {
		delete(s.items, token)
	}
	return v, ok
}

func (s *downloadStore) purgeExpiredLocked(now time.Time) {
	for k, v := range s.items {
		if now.After(v.expiresAt) {
			_ = os.Remove(v.filePath)
			delete(s.items, k)
		}
	}
}

type exportEvent struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// ExportStream 导出 Excel（SSE 进度 + 完成后提供下载地址）
// GET|POST /api/export/stream，GET 供 EventSource 使用
func (h *Handler) ExportStream(c *gin.Context) {
	send, ok := sseWriter(c)
	if !ok {
		return
	}
	fail := func(msg string, err error) {
		send(exportEvent{Type: "error", Message: msg + ": " + err.Error(), Data: map[string]any{}, Timestamp: time.Now()})
	}

	send(exportEvent{Type: "start", Message: "开始导出", Data: map[string]any{}, Timestamp: time.Now()})

	file, err := exporter.NewExporter(h.store).Export(exporter.ExportOptions{
		Progress: func(p exporter.ProgressEvent) {
			send(exportEvent{Type: "progress", Message: p.Stage, Data: map[string]any{"percent": p.Percent}, Timestamp: time.Now()})
		},
	})
	if err != nil {
		fail("导出失败", err)
		return
	}
	defer file.Close()

	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("springsnow_export_%d_%d.xlsx", time.Now().UnixNano(), os.Getpid()))
	if err := file.SaveAs(tempPath); err != nil {
		_ = os.Remove(tempPath)
		fail("写入导出文件失败", err)
		return
	}

	token := h.downloads.put(tempPath, downloadTTL)
	send(exportEvent{
		Type:    "done",
		Message: "导出完成",
		Data: map[string]any{
			"percent":     100,
			"downloadUrl": "/api/export/download/" + token,
		},
		Timestamp: time.Now(),
	})
}

// DownloadExport 下载导出的 Excel 文件（一次性）
// GET /api/export/download/:token
func (h *Handler) DownloadExport(c *gin.Context) {
	item, ok := h.downloads.take(c.Param("token"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "下载链接已失效"})
		return
	}
	defer os.Remove(item.filePath)

	if _, err := os.Stat(item.filePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "导出文件不存在"})
		return
	}

	c.FileAttachment(item.filePath, fmt.Sprintf("springsnow_%s.xlsx", time.Now().Format("20060102")))
}

// ExportSQL 以附件形式下载 D1 导入 SQL
// GET /api/export/sql
func (h *Handler) ExportSQL(c *gin.Context) {
	ds, err := exporter.LoadDataset(h.store)
	if err != nil {
		h.fail(c, err)
		return
	}
	// 尚未导入时 run_id 为空
	runID, _, _ := h.store.GetLastRun()

	c.Header("Content-Type", "application/sql; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(h.cfg.Export.SQLFile)+`"`)
	stats, err := exporter.NewSQLWriter(c.Writer, exporter.SQLOptions{
		BatchSize:     h.cfg.Export.BatchSize,
		SchemaPrefix:  h.cfg.Export.SchemaPrefix,
		IncludeSchema: h.cfg.Export.IncludeSchema,
		RunID:         runID,
	}).Write(ds)
	if err != nil {
		// 响应头已发送，只能记录
		log.Error().Err(err).Msg("SQL 导出失败")
		return
	}
	log.Info().Int("products", stats.Products).Int("metrics", stats.Metrics).Int("batches", stats.Batches).Msg("SQL 导出完成")
}

// ExportCSV 以附件形式下载日指标 CSV
// GET /api/export/csv
func (h *Handler) ExportCSV(c *gin.Context) {
	metrics, err := h.store.ListDailyMetrics()
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="daily_metrics.csv"`)
	if err := exporter.WriteCSV(c.Writer, metrics); err != nil {
		log.Error().Err(err).Msg("CSV 导出失败")
	}
}
