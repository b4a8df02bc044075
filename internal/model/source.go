package model

import "time"

// SourceKind 源数据类型
type SourceKind string

const (
	SourceInventory  SourceKind = "inventory"  // 收发存汇总表
	SourceProduction SourceKind = "production" // 产成品入库列表
	SourceSales      SourceKind = "sales"      // 销售发票执行查询
	SourcePrice      SourceKind = "price"      // 调价表
)

// InventoryItem 收发存汇总表中的一行（数量单位：公斤）
type InventoryItem struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Customer   string  `json:"customer"`
	Department string  `json:"department"`
	Production float64 `json:"production"` // 入库
	Sales      float64 `json:"sales"`      // 出库
	Closing    float64 `json:"closing"`    // 结存
}

// ProductionRecord 产成品入库记录
type ProductionRecord struct {
	Date       time.Time `json:"date"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	QuantityKg float64   `json:"quantityKg"`
}

// Tons 入库量（吨）
func (r ProductionRecord) Tons() float64 {
	return r.QuantityKg / 1000
}

// SalesRecord 销售发票记录
type SalesRecord struct {
	Date          time.Time `json:"date"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Customer      string    `json:"customer"`
	Department    string    `json:"department"`
	QuantityKg    float64   `json:"quantityKg"`
	TaxFreeAmount float64   `json:"taxFreeAmount"`
	UnitPrice     float64   `json:"unitPrice"` // 元/吨，含税
}

// Tons 销量（吨）
func (r SalesRecord) Tons() float64 {
	return r.QuantityKg / 1000
}

// PriceComparison 春雪与小明农牧价格对比
type PriceComparison struct {
	Name          string  `json:"name"`
	Specification string  `json:"specification"`
	OwnPrice      float64 `json:"ownPrice"`
	PeerMidPrice  float64 `json:"peerMidPrice"`
	MidDiff       float64 `json:"midDiff"`
}

// IndustryPoint 行业价格序列中的一个点
type IndustryPoint struct {
	Date   time.Time `json:"date"`
	Price  float64   `json:"price"`
	Change float64   `json:"change"`
}

// IndustrySeries 单个品种的行业价格序列
type IndustrySeries struct {
	Product string          `json:"product"`
	Points  []IndustryPoint `json:"points"`
}

// Latest 最新价格点
func (s *IndustrySeries) Latest() (IndustryPoint, bool) {
	if len(s.Points) == 0 {
		return IndustryPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}
