package calculator

import (
	"sort"

	"springsnow/internal/model"
)

// MetricsInput 三张源表（已过滤）
type MetricsInput struct {
	Inventory  []model.InventoryItem
	Production []model.ProductionRecord
	Sales      []model.SalesRecord
}

// MetricsOptions 日指标合并选项
type MetricsOptions struct {
	TaxRate         float64
	TurnoverCapDays float64
	DropZeroRows    bool
}

// MetricsResult 合并结果
type MetricsResult struct {
	Products        []model.Product
	Metrics         []model.DailyMetric
	Dates           []string
	DroppedZeroRows int
}

// dayAgg 单个 (日期, 产品) 的聚合值
type dayAgg struct {
	production float64
	sales      float64
	amount     float64
	// 有单价的销售行，用于加权均价
	volumes []float64
	prices  []float64
}

// productRegistry 按首次出现顺序分配产品 ID
type productRegistry struct {
	ids      map[string]int64
	products []model.Product
}

func (r *productRegistry) add(name, category string) {
	if name == "" {
		return
	}
	if id, ok := r.ids[name]; ok {
		p := &r.products[id-1]
		if p.Category == nil {
			p.Category = model.String(category)
		}
		return
	}
	id := int64(len(r.products) + 1)
	r.ids[name] = id
	r.products = append(r.products, model.Product{ID: id, Name: name, Category: model.String(category)})
}

// BuildDailyMetrics 合并入库、销售与库存为产品日指标
// 产品 ID 按 库存 -> 入库 -> 销售 的首次出现顺序分配；日期为入库与销售日期并集
func BuildDailyMetrics(in MetricsInput, opts MetricsOptions) *MetricsResult {
	if opts.TaxRate <= 0 {
		opts.TaxRate = DefaultTaxRate
	}
	if opts.TurnoverCapDays <= 0 {
		opts.TurnoverCapDays = DefaultTurnoverCapDays
	}

	reg := &productRegistry{ids: map[string]int64{}}
	opening := map[string]float64{}
	for _, it := range in.Inventory {
		reg.add(it.Name, it.Category)
		opening[it.Name] += it.Closing / 1000
	}
	for _, r := range in.Production {
		reg.add(r.Name, r.Category)
	}
	for _, r := range in.Sales {
		reg.add(r.Name, r.Category)
	}

	aggs := map[string]map[string]*dayAgg{}
	get := func(date, name string) *dayAgg {
		byName, ok := aggs[date]
		if !ok {
			byName = map[string]*dayAgg{}
			aggs[date] = byName
		}
		a, ok := byName[name]
		if !ok {
			a = &dayAgg{}
			byName[name] = a
		}
		return a
	}

	for _, r := range in.Production {
		if r.Name == "" {
			continue
		}
		date := r.Date.Format("2006-01-02")
		get(date, r.Name).production += r.Tons()
	}
	salesTotals := map[string]float64{}
	for _, r := range in.Sales {
		if r.Name == "" {
			continue
		}
		date := r.Date.Format("2006-01-02")
		a := get(date, r.Name)
		tons := r.Tons()
		a.sales += tons
		a.amount += SalesAmount(r.TaxFreeAmount, opts.TaxRate)
		if r.UnitPrice > 0 && tons > 0 {
			a.volumes = append(a.volumes, tons)
			a.prices = append(a.prices, r.UnitPrice)
		}
		salesTotals[r.Name] += tons
	}

	dates := make([]string, 0, len(aggs))
	for d := range aggs {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	prodByDay, salesByDay := ByDayProduct(in.Production, in.Sales)
	running := RunningInventory(opening, prodByDay, salesByDay)
	res := &MetricsResult{Products: reg.products, Dates: dates}

	for _, date := range dates {
		for _, p := range reg.products {
			a := aggs[date][p.Name]
			if a == nil {
				a = &dayAgg{}
			}
			level := running[date][p.Name]
			avgDaily := salesTotals[p.Name] / float64(len(dates))
			price := WeightedAveragePrice(a.volumes, a.prices)

			m := model.DailyMetric{
				RecordDate:            date,
				ProductID:             p.ID,
				ProductName:           p.Name,
				ProductionVolume:      model.Float(a.production),
				SalesVolume:           model.Float(a.sales),
				InventoryLevel:        model.Float(level),
				AveragePrice:          model.Float(price),
				SalesAmount:           model.Float(a.amount),
				InventoryTurnoverDays: model.Float(TurnoverDays(level, avgDaily, opts.TurnoverCapDays)),
			}
			if opts.DropZeroRows && m.IsZero() {
				res.DroppedZeroRows++
				continue
			}
			res.Metrics = append(res.Metrics, m)
		}
	}
	return res
}

// DailyTotals 从日指标汇总 日期 -> 总销量 / 总产量
func DailyTotals(metrics []model.DailyMetric) (sales, production map[string]float64) {
	sales = map[string]float64{}
	production = map[string]float64{}
	for _, m := range metrics {
		sales[m.RecordDate] += model.Value(m.SalesVolume)
		production[m.RecordDate] += model.Value(m.ProductionVolume)
	}
	return sales, production
}

// ByDayProduct 源记录按 日期 -> 产品 汇总吨数
func ByDayProduct(production []model.ProductionRecord, sales []model.SalesRecord) (prodByDay, salesByDay map[string]map[string]float64) {
	prodByDay = map[string]map[string]float64{}
	salesByDay = map[string]map[string]float64{}
	for _, r := range production {
		d := r.Date.Format("2006-01-02")
		if prodByDay[d] == nil {
			prodByDay[d] = map[string]float64{}
		}
		prodByDay[d][r.Name] += r.Tons()
	}
	for _, r := range sales {
		d := r.Date.Format("2006-01-02")
		if salesByDay[d] == nil {
			salesByDay[d] = map[string]float64{}
		}
		salesByDay[d][r.Name] += r.Tons()
	}
	return prodByDay, salesByDay
}
