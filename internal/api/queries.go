package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"springsnow/internal/calculator"
	"springsnow/internal/report"
)

// ListProducts 全部产品，按名称排序
// GET /api/products
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.store.ListProducts()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// SummaryResponse 汇总卡片
type SummaryResponse struct {
	TotalProducts          int     `json:"total_products"`
	Days                   int     `json:"days"`
	TotalSales             float64 `json:"total_sales"`
	TotalProduction        float64 `json:"total_production"`
	SalesToProductionRatio float64 `json:"sales_to_production_ratio"`
}

// Summary 区间汇总
// GET /api/summary?start_date=&end_date=
func (h *Handler) Summary(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	days, err := daySpan(start, end)
	if err != nil {
		h.fail(c, err)
		return
	}

	sum, err := h.store.Summary(start, end)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, SummaryResponse{
		TotalProducts:          sum.TotalProducts,
		Days:                   days,
		TotalSales:             sum.TotalSales,
		TotalProduction:        sum.TotalProduction,
		SalesToProductionRatio: calculator.Ratio(sum.TotalSales, sum.TotalProduction, h.cfg.Business.RatioClip),
	})
}

// InventoryTop 某日库存前 N 名
// GET /api/inventory/top?date=&limit=15
func (h *Handler) InventoryTop(c *gin.Context) {
	date, err := requiredDate(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	limit, err := queryInt(c, "limit", report.TopInventoryLimit)
	if err != nil {
		h.fail(c, err)
		return
	}
	items, err := h.store.InventoryTop(date, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// InventorySummary 某日库存汇总
// GET /api/inventory/summary?date=
func (h *Handler) InventorySummary(c *gin.Context) {
	date, err := requiredDate(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	sum, err := h.store.InventorySummary(date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// InventoryDistribution 某日库存分布（饼图）
// GET /api/inventory/distribution?date=&limit=15
func (h *Handler) InventoryDistribution(c *gin.Context) {
	date, err := requiredDate(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	limit, err := queryInt(c, "limit", report.TopInventoryLimit)
	if err != nil {
		h.fail(c, err)
		return
	}
	items, err := h.store.InventoryDistribution(date, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// InventoryTrends 单产品库存与周转天数走势
// GET /api/inventory/trends?start_date=&end_date=&product_id=
func (h *Handler) InventoryTrends(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	raw := c.Query("product_id")
	if raw == "" {
		h.fail(c, badRequest("Missing product_id query parameter"))
		return
	}
	productID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.fail(c, badRequest("Invalid product_id query parameter"))
		return
	}

	points, err := h.store.InventoryTrends(start, end, productID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (h *Handler) dailyRatios(c *gin.Context) ([]calculator.DailyRatio, bool) {
	start, end, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	sales, production, err := h.store.DailyTotals(start, end)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return calculator.DailyRatios(sales, production, h.cfg.Business.RatioClip), true
}

// RatioTrends 每日产销率
// GET /api/trends/ratio?start_date=&end_date=
func (h *Handler) RatioTrends(c *gin.Context) {
	daily, ok := h.dailyRatios(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, daily)
}

// RatioStats 区间产销率统计
// GET /api/production/ratio-stats?start_date=&end_date=
func (h *Handler) RatioStats(c *gin.Context) {
	daily, ok := h.dailyRatios(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, calculator.Stats(daily, h.cfg.Business.RatioClip))
}

// SalesPriceTrends 每日销量、金额与均价
// GET /api/trends/sales-price?start_date=&end_date=
func (h *Handler) SalesPriceTrends(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	points, err := h.store.SalesPriceTrends(start, end)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

// PriceChanges 显著调价记录
// GET /api/price-changes?start_date=&end_date=&min_price_diff=200
func (h *Handler) PriceChanges(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	minDiff, err := queryFloat(c, "min_price_diff", h.cfg.Business.MinPriceDiff)
	if err != nil {
		h.fail(c, err)
		return
	}
	changes, err := h.store.PriceChanges(start, end, minDiff)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, changes)
}

// PriceTrends 调价走势，可按产品名过滤
// GET /api/price-trends?start_date=&end_date=&product_name=
func (h *Handler) PriceTrends(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	trends, err := h.store.PriceTrends(start, end, c.Query("product_name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, trends)
}
