package calculator

import (
	"math"
	"sort"
	"time"

	"springsnow/internal/model"
)

// SignificantChanges 筛选 |价差| >= threshold 的调价记录，按日期降序、|价差| 降序
func SignificantChanges(adjs []model.PriceAdjustment, threshold float64) []model.PriceAdjustment {
	out := make([]model.PriceAdjustment, 0)
	for _, a := range adjs {
		if math.Abs(a.PriceDifference) >= threshold {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AdjustmentDate != out[j].AdjustmentDate {
			return out[i].AdjustmentDate > out[j].AdjustmentDate
		}
		return math.Abs(out[i].PriceDifference) > math.Abs(out[j].PriceDifference)
	})
	return out
}

// MissingDates 首尾日期之间缺失的自然日
func MissingDates(dates []time.Time) []time.Time {
	if len(dates) < 2 {
		return nil
	}
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	present := make(map[string]bool, len(sorted))
	for _, d := range sorted {
		present[d.Format("2006-01-02")] = true
	}

	var missing []time.Time
	last := sorted[len(sorted)-1]
	for d := sorted[0]; d.Before(last); d = d.AddDate(0, 0, 1) {
		if !present[d.Format("2006-01-02")] {
			missing = append(missing, d)
		}
	}
	return missing
}

// PriceSummary 调价概况
type PriceSummary struct {
	Records     int     `json:"records"`
	Products    int     `json:"products"`
	Increases   int     `json:"increases"`
	Decreases   int     `json:"decreases"`
	MaxIncrease float64 `json:"maxIncrease"`
	MaxDecrease float64 `json:"maxDecrease"`
}

// SummarizePrices 统计涨跌次数与最大涨跌幅
func SummarizePrices(adjs []model.PriceAdjustment) PriceSummary {
	s := PriceSummary{Records: len(adjs)}
	names := map[string]struct{}{}
	for _, a := range adjs {
		names[a.ProductName] = struct{}{}
		switch {
		case a.PriceDifference > 0:
			s.Increases++
			s.MaxIncrease = math.Max(s.MaxIncrease, a.PriceDifference)
		case a.PriceDifference < 0:
			s.Decreases++
			s.MaxDecrease = math.Min(s.MaxDecrease, a.PriceDifference)
		}
	}
	s.Products = len(names)
	return s
}

// NegativeComparisons 春雪价格低于小明中间价的品种
func NegativeComparisons(rows []model.PriceComparison) []model.PriceComparison {
	out := make([]model.PriceComparison, 0)
	for _, r := range rows {
		if r.MidDiff < 0 {
			out = append(out, r)
		}
	}
	return out
}
