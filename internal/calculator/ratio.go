package calculator

import (
	"sort"
)

// Ratio 产销率 = 销量 / 产量 * 100，产量 <= 0 时为 0，超过 clip 时截断
func Ratio(sales, production, clip float64) float64 {
	if production <= 0 {
		return 0
	}
	r := sales / production * 100
	if clip > 0 && r > clip {
		return clip
	}
	return r
}

// DailyRatio 单日产销率
type DailyRatio struct {
	Date       string  `json:"record_date"`
	Sales      float64 `json:"total_sales"`
	Production float64 `json:"total_production"`
	Ratio      float64 `json:"ratio"`
}

// DailyRatios 按日期（两边并集、升序）计算产销率
func DailyRatios(sales, production map[string]float64, clip float64) []DailyRatio {
	out := make([]DailyRatio, 0, len(production))
	for _, date := range unionKeys(sales, production) {
		out = append(out, DailyRatio{
			Date:       date,
			Sales:      sales[date],
			Production: production[date],
			Ratio:      Ratio(sales[date], production[date], clip),
		})
	}
	return out
}

// RatioStats 区间产销率统计
type RatioStats struct {
	AvgRatio        float64 `json:"avg_ratio"`
	MinRatio        float64 `json:"min_ratio"`
	MaxRatio        float64 `json:"max_ratio"`
	TotalDays       int     `json:"total_days"`
	TotalSales      float64 `json:"total_sales"`
	TotalProduction float64 `json:"total_production"`
}

// Stats 平均值为总销量/总产量；天数与最小、最大值只统计有产量的日期
func Stats(daily []DailyRatio, clip float64) RatioStats {
	var stats RatioStats
	first := true
	for _, d := range daily {
		stats.TotalSales += d.Sales
		stats.TotalProduction += d.Production
		if d.Production <= 0 {
			continue
		}
		stats.TotalDays++
		if first || d.Ratio < stats.MinRatio {
			stats.MinRatio = d.Ratio
		}
		if first || d.Ratio > stats.MaxRatio {
			stats.MaxRatio = d.Ratio
		}
		first = false
	}
	stats.AvgRatio = Ratio(stats.TotalSales, stats.TotalProduction, clip)
	return stats
}

// ProductRatio 单产品某日的产销情况
type ProductRatio struct {
	Name       string  `json:"name"`
	Sales      float64 `json:"sales"`
	Production float64 `json:"production"`
	Ratio      float64 `json:"ratio"`
}

// RatioClass 产品明细着色：>100 高，<90 低
func RatioClass(ratio float64) string {
	switch {
	case ratio > 100:
		return "high-value"
	case ratio < 90:
		return "low-value"
	default:
		return ""
	}
}

// ProductRatioDetail 每日各产品产销率，按产销率降序
// 参数均为 日期 -> 产品 -> 吨
func ProductRatioDetail(salesByDay, prodByDay map[string]map[string]float64, clip float64) map[string][]ProductRatio {
	out := make(map[string][]ProductRatio)
	for _, date := range unionKeys(salesByDay, prodByDay) {
		sales, prod := salesByDay[date], prodByDay[date]
		rows := make([]ProductRatio, 0, len(prod))
		for _, name := range unionKeys(sales, prod) {
			rows = append(rows, ProductRatio{
				Name:       name,
				Sales:      sales[name],
				Production: prod[name],
				Ratio:      Ratio(sales[name], prod[name], clip),
			})
		}
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Ratio > rows[j].Ratio })
		out[date] = rows
	}
	return out
}

// unionKeys 两个 map 的键并集（升序）
func unionKeys[V any](a, b map[string]V) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
