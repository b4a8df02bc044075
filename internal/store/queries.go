package store

import (
	"fmt"

	"springsnow/internal/calculator"
	"springsnow/internal/filter"
)

// productFilter API 汇总统一使用的宽松口径
var productFilter = filter.ProductClause("p", false)

// SummaryTotals 区间汇总
type SummaryTotals struct {
	TotalProducts   int     `json:"total_products"`
	TotalSales      float64 `json:"total_sales"`
	TotalProduction float64 `json:"total_production"`
}

// Summary 区间内产品数、总销量、总产量
func (s *Store) Summary(start, end string) (SummaryTotals, error) {
	var out SummaryTotals
	err := s.db.QueryRow(`
		SELECT
			COUNT(DISTINCT p.product_id),
			COALESCE(SUM(CASE WHEN dm.sales_volume > 0 THEN dm.sales_volume ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN dm.production_volume > 0 THEN dm.production_volume ELSE 0 END), 0)
		FROM DailyMetrics dm
		JOIN Products p ON dm.product_id = p.product_id
		WHERE dm.record_date BETWEEN ? AND ?
			AND `+productFilter,
		start, end,
	).Scan(&out.TotalProducts, &out.TotalSales, &out.TotalProduction)
	if err != nil {
		return out, fmt.Errorf("failed to query summary: %w", err)
	}
	return out, nil
}

// DailyTotals 区间内每日总销量与总产量（过滤后）
func (s *Store) DailyTotals(start, end string) (sales, production map[string]float64, err error) {
	rows, err := s.db.Query(`
		SELECT
			dm.record_date,
			COALESCE(SUM(CASE WHEN dm.sales_volume > 0 THEN dm.sales_volume ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN dm.production_volume > 0 THEN dm.production_volume ELSE 0 END), 0)
		FROM DailyMetrics dm
		JOIN Products p ON dm.product_id = p.product_id
		WHERE dm.record_date BETWEEN ? AND ?
			AND `+productFilter+`
		GROUP BY dm.record_date
		ORDER BY dm.record_date
	`, start, end)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query daily totals: %w", err)
	}
	defer rows.Close()

	sales = map[string]float64{}
	production = map[string]float64{}
	for rows.Next() {
		var date string
		var sv, pv float64
		if err := rows.Scan(&date, &sv, &pv); err != nil {
			return nil, nil, fmt.Errorf("failed to scan daily totals: %w", err)
		}
		if sv > 0 {
			sales[date] = sv
		}
		if pv > 0 {
			production[date] = pv
		}
	}
	return sales, production, rows.Err()
}

// InventoryItem 库存排行/分布项
type InventoryItem struct {
	ProductName    string  `json:"product_name"`
	InventoryLevel float64 `json:"inventory_level"`
	Percentage     float64 `json:"percentage"`
	Rank           int     `json:"rank,omitempty"`
}

// totalInventory 某日正库存合计
func (s *Store) totalInventory(date string) (float64, int, error) {
	var total float64
	var count int
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(dm.inventory_level), 0), COUNT(DISTINCT p.product_id)
		FROM DailyMetrics dm
		JOIN Products p ON dm.product_id = p.product_id
		WHERE dm.record_date = ?
			AND dm.inventory_level IS NOT NULL
			AND dm.inventory_level > 0
			AND `+productFilter,
		date,
	).Scan(&total, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query total inventory: %w", err)
	}
	return total, count, nil
}

// InventoryTop 某日库存前 limit 名，占比保留两位小数
func (s *Store) InventoryTop(date string, limit int) ([]InventoryItem, error) {
	total, _, err := s.totalInventory(date)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT
			p.product_name,
			dm.inventory_level,
			CASE WHEN ? > 0 THEN ROUND(dm.inventory_level * 100.0 / ?, 2) ELSE 0 END
		FROM DailyMetrics dm
		JOIN Products p ON dm.product_id = p.product_id
		WHERE dm.record_date = ?
			AND dm.inventory_level IS NOT NULL
			AND dm.inventory_level > 0
			AND `+productFilter+`
		ORDER BY dm.inventory_level DESC
		LIMIT ?
	`, total, total, date, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory top: %w", err)
	}
	defer rows.Close()

	out := make([]InventoryItem, 0, limit)
	for rows.Next() {
		var it InventoryItem
		if err := rows.Scan(&it.ProductName, &it.InventoryLevel, &it.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan inventory top: %w", err)
		}
		it.Rank = len(out) + 1
		out = append(out, it)
	}
	return out, rows.Err()
}

// InventoryDistribution 与 InventoryTop 相同，但不带排名
func (s *Store) InventoryDistribution(date string, limit int) ([]InventoryItem, error) {
	items, err := s.InventoryTop(date, limit)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Rank = 0
	}
	return items, nil
}

// InventorySummaryResult 某日库存概况
type InventorySummaryResult struct {
	TotalInventory  float64 `json:"total_inventory"`
	Top15Total      float64 `json:"top15_total"`
	Top15Percentage float64 `json:"top15_percentage"`
	ProductCount    int     `json:"product_count"`
}

// InventorySummary 某日总库存、前 15 名合计及占比
func (s *Store) InventorySummary(date string) (InventorySummaryResult, error) {
	var out InventorySummaryResult
	total, count, err := s.totalInventory(date)
	if err != nil {
		return out, err
	}
	out.TotalInventory = total
	out.ProductCount = count

	top, err := s.InventoryTop(date, 15)
	if err != nil {
		return out, err
	}
	for _, it := range top {
		out.Top15Total += it.InventoryLevel
	}
	if total > 0 {
		out.Top15Percentage = calculator.Round2(out.Top15Total / total * 100)
	}
	return out, nil
}

// InventoryTrendPoint 单产品库存走势
type InventoryTrendPoint struct {
	RecordDate            string   `json:"record_date"`
	InventoryLevel        *float64 `json:"inventory_level"`
	InventoryTurnoverDays *float64 `json:"inventory_turnover_days"`
}

// InventoryTrends 单产品区间内库存与周转天数
func (s *Store) InventoryTrends(start, end string, productID int64) ([]InventoryTrendPoint, error) {
	rows, err := s.db.Query(`
		SELECT record_date, inventory_level, inventory_turnover_days
		FROM DailyMetrics
		WHERE record_date BETWEEN ? AND ?
			AND product_id = ?
		ORDER BY record_date ASC
	`, start, end, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory trends: %w", err)
	}
	defer rows.Close()

	out := make([]InventoryTrendPoint, 0)
	for rows.Next() {
		var p InventoryTrendPoint
		if err := rows.Scan(&p.RecordDate, &p.InventoryLevel, &p.InventoryTurnoverDays); err != nil {
			return nil, fmt.Errorf("failed to scan inventory trend: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SalesPricePoint 每日销售汇总
type SalesPricePoint struct {
	RecordDate  string  `json:"record_date"`
	TotalSales  float64 `json:"total_sales"`
	TotalAmount float64 `json:"total_amount"`
	AvgPrice    float64 `json:"avg_price"`
}

// SalesPriceTrends 每日总销量、总金额与均价（金额/销量）
func (s *Store) SalesPriceTrends(start, end string) ([]SalesPricePoint, error) {
	rows, err := s.db.Query(`
		SELECT
			dm.record_date,
			SUM(dm.sales_volume),
			COALESCE(SUM(dm.sales_amount), 0),
			CASE WHEN SUM(dm.sales_volume) > 0 THEN COALESCE(SUM(dm.sales_amount), 0) / SUM(dm.sales_volume) ELSE 0 END
		FROM DailyMetrics dm
		JOIN Products p ON dm.product_id = p.product_id
		WHERE dm.record_date BETWEEN ? AND ?
			AND dm.sales_volume IS NOT NULL
			AND dm.sales_volume > 0
			AND `+productFilter+`
		GROUP BY dm.record_date
		ORDER BY dm.record_date ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales price trends: %w", err)
	}
	defer rows.Close()

	out := make([]SalesPricePoint, 0)
	for rows.Next() {
		var p SalesPricePoint
		if err := rows.Scan(&p.RecordDate, &p.TotalSales, &p.TotalAmount, &p.AvgPrice); err != nil {
			return nil, fmt.Errorf("failed to scan sales price trend: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
