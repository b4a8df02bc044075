package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"springsnow/internal/config"
	"springsnow/internal/importer"
	"springsnow/internal/metrics"
	"springsnow/internal/store"
)

// errBadRequest 请求参数错误，响应 400
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Handler API 处理器
type Handler struct {
	store       *store.Store
	cfg         *config.AppConfig
	metrics     *metrics.Metrics
	coordinator *importer.Coordinator
	downloads   *downloadStore
}

// NewHandler 创建 API 处理器；m 为 nil 时使用 metrics.Default
func NewHandler(st *store.Store, cfg *config.AppConfig, m *metrics.Metrics) *Handler {
	if m == nil {
		m = metrics.Default
	}
	return &Handler{
		store:       st,
		cfg:         cfg,
		metrics:     m,
		coordinator: importer.NewCoordinator(st, cfg, m),
		downloads:   newDownloadStore(),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 用户
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)

	// 汇总查询
	router.GET("/products", h.ListProducts)
	router.GET("/summary", h.Summary)
	router.GET("/inventory/top", h.InventoryTop)
	router.GET("/inventory/summary", h.InventorySummary)
	router.GET("/inventory/distribution", h.InventoryDistribution)
	router.GET("/inventory/trends", h.InventoryTrends)
	router.GET("/trends/ratio", h.RatioTrends)
	router.GET("/production/ratio-stats", h.RatioStats)
	router.GET("/trends/sales-price", h.SalesPriceTrends)
	router.GET("/price-changes", h.PriceChanges)
	router.GET("/price-trends", h.PriceTrends)

	// 上传
	router.POST("/upload/price-adjustments", h.UploadPriceAdjustments)
	router.POST("/upload", h.UploadMetrics)
	router.POST("/admin/import-batch", h.ImportBatch)

	// 导入、导出与状态
	router.POST("/import", h.Import)
	router.GET("/status", h.Status)
	router.GET("/quality", h.Quality)
	router.GET("/export/stream", h.ExportStream)
	router.POST("/export/stream", h.ExportStream)
	router.GET("/export/download/:token", h.DownloadExport)
	router.GET("/export/sql", h.ExportSQL)
	router.GET("/export/csv", h.ExportCSV)
}

// fail 参数错误返回 400，其余视为数据库错误返回 500
func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(err, errBadRequest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.TrimPrefix(err.Error(), errBadRequest.Error()+": ")})
		return
	}
	log.Error().Err(err).Str("path", c.FullPath()).Msg("数据库查询失败")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Database query failed", "details": err.Error()})
}

// dateRange 读取必填的 start_date 与 end_date
func dateRange(c *gin.Context) (start, end string, err error) {
	start, end = c.Query("start_date"), c.Query("end_date")
	if start == "" || end == "" {
		return "", "", badRequest("Missing start_date or end_date query parameters")
	}
	return start, end, nil
}

// requiredDate 读取必填的 date
func requiredDate(c *gin.Context) (string, error) {
	date := c.Query("date")
	if date == "" {
		return "", badRequest("Missing date query parameter")
	}
	return date, nil
}

// queryInt 读取整数参数，缺省时取 def
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, badRequest("Invalid %s query parameter", key)
	}
	return v, nil
}

// queryFloat 读取浮点参数，缺省时取 def
func queryFloat(c *gin.Context, key string, def float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, badRequest("Invalid %s query parameter", key)
	}
	return v, nil
}

// daySpan 含首尾的天数
func daySpan(start, end string) (int, error) {
	s, err := time.ParseInLocation("2006-01-02", start, time.Local)
	if err != nil {
		return 0, badRequest("Invalid start_date format")
	}
	e, err := time.ParseInLocation("2006-01-02", end, time.Local)
	if err != nil {
		return 0, badRequest("Invalid end_date format")
	}
	return int(e.Sub(s).Hours()/24+0.5) + 1, nil
}
