package report

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"springsnow/internal/calculator"
	"springsnow/internal/filter"
	"springsnow/internal/model"
	"springsnow/internal/parser"
)

// TopInventoryLimit 库存 TOP 图表条数
const TopInventoryLimit = 15

// Input 报告所需的源数据
type Input struct {
	Inventory   []model.InventoryItem
	Production  []model.ProductionRecord
	Sales       []model.SalesRecord
	Prices      []model.PriceAdjustment
	PriceDates  []time.Time
	Comparisons []model.PriceComparison
	Industry    []*model.IndustrySeries
}

// Options 报告口径
type Options struct {
	Title        string
	TaxRate      float64
	RatioClip    float64
	MinPriceDiff float64
	Thresholds   calculator.Thresholds
	GeneratedAt  time.Time
}

func (o *Options) normalize() {
	if o.Title == "" {
		o.Title = "春雪食品生品产销分析报告"
	}
	if o.TaxRate <= 0 {
		o.TaxRate = calculator.DefaultTaxRate
	}
	if o.RatioClip <= 0 {
		o.RatioClip = calculator.DefaultRatioClip
	}
	if o.MinPriceDiff <= 0 {
		o.MinPriceDiff = calculator.DefaultMinPriceDiff
	}
	if o.Thresholds == (calculator.Thresholds{}) {
		o.Thresholds = calculator.DefaultThresholds()
	}
	if o.GeneratedAt.IsZero() {
		o.GeneratedAt = time.Now()
	}
}

// Summary 首页摘要
type Summary struct {
	ProductCount        int
	AvgRatio            float64
	TotalSales          float64 // 吨
	TotalProduction     float64 // 吨
	TotalInventory      float64 // 吨
	SignificantChanges  int
	NegativeComparisons int
	MissingPriceDates   []string
	Prices              calculator.PriceSummary
}

// InventoryRow 库存明细（吨）
type InventoryRow struct {
	Name       string
	Category   string
	Closing    float64
	Production float64
	Sales      float64
}

// InventoryTotals 库存合计（吨）
type InventoryTotals struct {
	Closing    float64
	Production float64
	Sales      float64
}

// ProductRatioRow 产品明细行
type ProductRatioRow struct {
	calculator.ProductRatio
	Class string
}

// RatioRow 单日产销率及其产品明细
type RatioRow struct {
	calculator.DailyRatio
	Class    string
	Products []ProductRatioRow
}

// ProductSales 单日单产品销售
type ProductSales struct {
	Name          string
	VolumeKg      float64
	TaxFreeAmount float64
	UnitPrice     float64 // 元/吨，含税
}

// DailySales 单日销售
type DailySales struct {
	Date          string
	Volume        float64 // 吨
	TaxFreeAmount float64
	Amount        float64 // 含税
	AvgPrice      float64 // 元/吨，含税
	Products      []ProductSales
}

// IndustryView 行业价格序列
type IndustryView struct {
	Product string
	Latest  model.IndustryPoint
	Points  []model.IndustryPoint
	Chart   string
}

// Data 渲染全部页面所需的数据
type Data struct {
	Options     Options
	Summary     Summary
	Inventory   []InventoryRow
	InvTotals   InventoryTotals
	TopInv      []calculator.InventoryRank
	Ratios      []RatioRow
	RatioStats  calculator.RatioStats
	Sales       []DailySales
	Comparisons []model.PriceComparison
	Negative    []model.PriceComparison
	Significant []model.PriceAdjustment
	Industry    []IndustryView
}

// Build 汇总源数据
func Build(in Input, opts Options) *Data {
	opts.normalize()
	d := &Data{Options: opts}

	d.buildInventory(in.Inventory)
	d.buildRatios(in.Production, in.Sales)
	d.buildSales(in.Sales)

	d.Comparisons = in.Comparisons
	d.Negative = calculator.NegativeComparisons(in.Comparisons)
	// 与数据库调价查询同一口径
	prices := lo.Filter(in.Prices, func(a model.PriceAdjustment, _ int) bool {
		return filter.KeepProductName(a.ProductName) && filter.KeepCategory(a.Category, false)
	})
	d.Significant = calculator.SignificantChanges(prices, opts.MinPriceDiff)
	for _, s := range in.Industry {
		if s == nil {
			continue
		}
		latest, _ := s.Latest()
		d.Industry = append(d.Industry, IndustryView{Product: s.Product, Latest: latest, Points: s.Points})
	}

	d.Summary = Summary{
		ProductCount:        len(d.Inventory),
		AvgRatio:            d.RatioStats.AvgRatio,
		TotalSales:          d.RatioStats.TotalSales,
		TotalProduction:     d.RatioStats.TotalProduction,
		TotalInventory:      d.InvTotals.Closing,
		SignificantChanges:  len(d.Significant),
		NegativeComparisons: len(d.Negative),
		Prices:              calculator.SummarizePrices(prices),
	}
	for _, t := range calculator.MissingDates(in.PriceDates) {
		d.Summary.MissingPriceDates = append(d.Summary.MissingPriceDates, parser.FormatDate(t))
	}
	return d
}

func (d *Data) buildInventory(items []model.InventoryItem) {
	byName := map[string]*InventoryRow{}
	var order []string
	for _, it := range items {
		row, ok := byName[it.Name]
		if !ok {
			row = &InventoryRow{Name: it.Name, Category: it.Category}
			byName[it.Name] = row
			order = append(order, it.Name)
		}
		row.Closing += it.Closing / 1000
		row.Production += it.Production / 1000
		row.Sales += it.Sales / 1000
	}

	levels := make(map[string]float64, len(order))
	for _, name := range order {
		row := *byName[name]
		d.Inventory = append(d.Inventory, row)
		d.InvTotals.Closing += row.Closing
		d.InvTotals.Production += row.Production
		d.InvTotals.Sales += row.Sales
		levels[name] = row.Closing
	}
	sort.SliceStable(d.Inventory, func(i, j int) bool { return d.Inventory[i].Closing > d.Inventory[j].Closing })
	d.TopInv, _ = calculator.TopInventory(levels, TopInventoryLimit)
}

func (d *Data) buildRatios(production []model.ProductionRecord, sales []model.SalesRecord) {
	clip := d.Options.RatioClip
	prodByDay, salesByDay := calculator.ByDayProduct(production, sales)
	prodTotals, salesTotals := sumByDay(prodByDay), sumByDay(salesByDay)

	daily := calculator.DailyRatios(salesTotals, prodTotals, clip)
	d.RatioStats = calculator.Stats(daily, clip)
	detail := calculator.ProductRatioDetail(salesByDay, prodByDay, clip)

	for _, r := range daily {
		row := RatioRow{DailyRatio: r, Class: d.Options.Thresholds.Class(r.Ratio)}
		for _, p := range detail[r.Date] {
			row.Products = append(row.Products, ProductRatioRow{ProductRatio: p, Class: calculator.RatioClass(p.Ratio)})
		}
		d.Ratios = append(d.Ratios, row)
	}
}

func (d *Data) buildSales(sales []model.SalesRecord) {
	type agg struct {
		kg, taxFree float64
	}
	days := map[string]map[string]*agg{}
	for _, r := range sales {
		date := parser.FormatDate(r.Date)
		if days[date] == nil {
			days[date] = map[string]*agg{}
		}
		a := days[date][r.Name]
		if a == nil {
			a = &agg{}
			days[date][r.Name] = a
		}
		a.kg += r.QuantityKg
		a.taxFree += r.TaxFreeAmount
	}

	dates := make([]string, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	rate := d.Options.TaxRate
	for _, date := range dates {
		ds := DailySales{Date: date}
		var kg float64
		for name, a := range days[date] {
			kg += a.kg
			ds.TaxFreeAmount += a.taxFree
			ds.Products = append(ds.Products, ProductSales{
				Name:          name,
				VolumeKg:      a.kg,
				TaxFreeAmount: a.taxFree,
				UnitPrice:     calculator.SalesPricePerTon(a.taxFree, a.kg, rate),
			})
		}
		sort.Slice(ds.Products, func(i, j int) bool {
			if ds.Products[i].VolumeKg != ds.Products[j].VolumeKg {
				return ds.Products[i].VolumeKg > ds.Products[j].VolumeKg
			}
			return ds.Products[i].Name < ds.Products[j].Name
		})
		ds.Volume = kg / 1000
		ds.Amount = calculator.SalesAmount(ds.TaxFreeAmount, rate)
		ds.AvgPrice = calculator.SalesPricePerTon(ds.TaxFreeAmount, kg, rate)
		d.Sales = append(d.Sales, ds)
	}
}

func sumByDay(byDay map[string]map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(byDay))
	for date, products := range byDay {
		for _, v := range products {
			out[date] += v
		}
	}
	return out
}
