package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"springsnow/internal/quality"
	"springsnow/internal/store"
)

// recentImportLogs 状态接口返回的导入日志条数
const recentImportLogs = 10

// StatusResponse 系统状态响应
type StatusResponse struct {
	Initialized   bool              `json:"initialized"`   // 是否已有日指标
	LastRunID     string            `json:"lastRunId"`     // 最近一次导入
	LastImportAt  string            `json:"lastImportAt"`  // 最近导入时间
	LastPriceRun  string            `json:"lastPriceRunId"`
	StartDate     string            `json:"startDate"`     // 最早数据日期
	EndDate       string            `json:"endDate"`       // 最晚数据日期
	TotalProducts int               `json:"totalProducts"` // 产品数
	TotalMetrics  int               `json:"totalMetrics"`  // 日指标条数
	Dates         []store.DateStat  `json:"dates"`
	RecentImports []store.ImportLog `json:"recentImports"`
	// 最近一次导入各源文件的读取情况
	LastSources []store.ImportSource `json:"lastSources"`
}

// Status 获取系统状态
// GET /api/status
func (h *Handler) Status(c *gin.Context) {
	var resp StatusResponse
	// 尚未导入时为 store.ErrNoRun，保持空值
	resp.LastRunID, resp.LastImportAt, _ = h.store.GetLastRun()
	resp.LastPriceRun, _ = h.store.GetLastPriceRun()

	var err error
	if resp.TotalMetrics, err = h.store.CountDailyMetrics(); err != nil {
		h.fail(c, err)
		return
	}
	products, err := h.store.ListProducts()
	if err != nil {
		h.fail(c, err)
		return
	}
	resp.TotalProducts = len(products)

	if resp.StartDate, resp.EndDate, err = h.store.DateRange(); err != nil {
		h.fail(c, err)
		return
	}
	if resp.Dates, err = h.store.ListAvailableDates(); err != nil {
		h.fail(c, err)
		return
	}
	if resp.RecentImports, err = h.store.ListImportLogs(recentImportLogs); err != nil {
		h.fail(c, err)
		return
	}
	if len(resp.RecentImports) > 0 {
		if resp.LastSources, err = h.store.ListImportSources(resp.RecentImports[0].ID); err != nil {
			h.fail(c, err)
			return
		}
	}

	resp.Initialized = resp.TotalMetrics > 0
	c.JSON(http.StatusOK, resp)
}

// Quality 对配置的源文件执行数据质量检查
// GET /api/quality
func (h *Handler) Quality(c *gin.Context) {
	opts := quality.OptionsFromConfig(h.cfg.Quality)
	opts.Metrics = h.metrics
	rep, err := quality.NewMonitor(opts).Run(c.Request.Context(), quality.SourcesFromConfig(h.cfg))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}
