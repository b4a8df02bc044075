package model

// Product 产品主数据
type Product struct {
	ID       int64   `json:"product_id"`
	Name     string  `json:"product_name"`
	SKU      *string `json:"sku"`
	Category *string `json:"category"`
}

// DailyMetric 产品日指标（体积单位：吨；价格单位：元/吨，含税）
type DailyMetric struct {
	RecordDate            string   `json:"record_date" csv:"record_date"`
	ProductID             int64    `json:"product_id" csv:"product_id"`
	ProductName           string   `json:"-" csv:"product_name"`
	ProductionVolume      *float64 `json:"production_volume" csv:"production_volume"`
	SalesVolume           *float64 `json:"sales_volume" csv:"sales_volume"`
	InventoryLevel        *float64 `json:"inventory_level" csv:"inventory_level"`
	AveragePrice          *float64 `json:"average_price" csv:"average_price"`
	SalesAmount           *float64 `json:"sales_amount" csv:"sales_amount"`
	InventoryTurnoverDays *float64 `json:"inventory_turnover_days" csv:"inventory_turnover_days"`
}

// IsZero 所有指标均为空或 0
func (m *DailyMetric) IsZero() bool {
	for _, v := range []*float64{m.ProductionVolume, m.SalesVolume, m.InventoryLevel, m.AveragePrice, m.SalesAmount} {
		if v != nil && *v != 0 {
			return false
		}
	}
	return true
}

// Float 返回指向 v 的指针
func Float(v float64) *float64 {
	return &v
}

// Value 解引用，nil 视为 0
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// String 返回指向 s 的指针，空串返回 nil
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
