package model

// PriceAdjustment 调价记录（仅加工二厂口径）
type PriceAdjustment struct {
	ID              int64    `json:"adjustment_id,omitempty"`
	AdjustmentDate  string   `json:"adjustment_date"`
	ProductID       int64    `json:"product_id,omitempty"`
	ProductName     string   `json:"product_name"`
	Specification   string   `json:"specification"`
	AdjustmentCount int      `json:"adjustment_count"`
	PreviousPrice   *float64 `json:"previous_price"`
	CurrentPrice    float64  `json:"current_price"`
	PriceDifference float64  `json:"price_difference"`
	Category        string   `json:"category"`
}

// SheetDate 调价表 sheet 名中解析出的日期
type SheetDate struct {
	Month int `json:"month"`
	Day   int `json:"day"`
	Count int `json:"count"` // 当日第几次调价，默认 1
}

// Less 按 (月, 日, 次数) 排序
func (d SheetDate) Less(o SheetDate) bool {
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	if d.Day != o.Day {
		return d.Day < o.Day
	}
	return d.Count < o.Count
}
