package calculator

import (
	"math"
	"testing"
	"time"

	"springsnow/internal/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func day(s string) time.Time {
	t, _ := time.ParseInLocation("2006-01-02", s, time.Local)
	return t
}

func TestRatio(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name              string
		sales, production float64
		want              float64
	}{
		{"正常", 50, 100, 50},
		{"截断", 600, 100, 500},
		{"无产量", 10, 0, 0},
		{"负产量", 10, -5, 0},
	}
	for _, c := range cases {
		if got := Ratio(c.sales, c.production, DefaultRatioClip); !almostEqual(got, c.want) {
			t.Fatalf("%s: got %v, want %v", c.name, got, c.want)
		}
	}
	if got := Ratio(900, 100, DefaultImporterRatioClip); got != 900 {
		t.Fatalf("importer clip should allow 900, got %v", got)
	}
}

func TestThresholds(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()
	if !th.IsAbnormal(-1) || !th.IsAbnormal(201) || th.IsAbnormal(200) {
		t.Fatalf("unexpected abnormal boundaries")
	}
	if th.Class(160) != "warning" || th.Class(250) != "abnormal" || th.Class(100) != "" {
		t.Fatalf("unexpected classes")
	}
	if RatioClass(101) != "high-value" || RatioClass(89) != "low-value" || RatioClass(95) != "" {
		t.Fatalf("unexpected product ratio classes")
	}
}

func TestTurnoverDays(t *testing.T) {
	t.Parallel()

	cases := []struct {
		inventory, avg, want float64
	}{
		{10, 3, 3.33},
		{10, 6, 1.67},
		{1000, 1, 365},
		{5, 0, 0},
	}
	for _, c := range cases {
		if got := TurnoverDays(c.inventory, c.avg, DefaultTurnoverCapDays); got != c.want {
			t.Fatalf("TurnoverDays(%v, %v) = %v, want %v", c.inventory, c.avg, got, c.want)
		}
	}
}

func TestDailyRatiosAndStats(t *testing.T) {
	t.Parallel()

	sales := map[string]float64{"2025-06-01": 50, "2025-06-02": 120, "2025-06-03": 10}
	prod := map[string]float64{"2025-06-01": 100, "2025-06-02": 100}

	daily := DailyRatios(sales, prod, DefaultRatioClip)
	if len(daily) != 3 || daily[0].Date != "2025-06-01" || daily[2].Ratio != 0 {
		t.Fatalf("unexpected daily ratios: %+v", daily)
	}

	stats := Stats(daily, DefaultRatioClip)
	if stats.TotalDays != 2 || stats.TotalSales != 180 || stats.TotalProduction != 200 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if !almostEqual(stats.AvgRatio, 90) || stats.MinRatio != 50 || stats.MaxRatio != 120 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestProductRatioDetail_SortedByRatio(t *testing.T) {
	t.Parallel()

	sales := map[string]map[string]float64{"2025-06-01": {"A": 1, "B": 3}}
	prod := map[string]map[string]float64{"2025-06-01": {"A": 2, "B": 2, "C": 1}}

	rows := ProductRatioDetail(sales, prod, DefaultRatioClip)["2025-06-01"]
	if len(rows) != 3 || rows[0].Name != "B" || rows[0].Ratio != 150 || rows[2].Name != "C" {
		t.Fatalf("unexpected detail: %+v", rows)
	}
}

func TestRunningInventory(t *testing.T) {
	t.Parallel()

	opening := map[string]float64{"A": 10}
	prod := map[string]map[string]float64{
		"2025-06-01": {"A": 5},
		"2025-06-02": {"B": 4},
	}
	sales := map[string]map[string]float64{
		"2025-06-01": {"A": 3},
		"2025-06-02": {"A": 2},
	}

	got := RunningInventory(opening, prod, sales)
	if got["2025-06-01"]["A"] != 12 {
		t.Fatalf("day1 A = %v", got["2025-06-01"]["A"])
	}
	if got["2025-06-02"]["A"] != 10 || got["2025-06-02"]["B"] != 4 {
		t.Fatalf("day2 = %v", got["2025-06-02"])
	}
	if opening["A"] != 10 {
		t.Fatalf("opening mutated")
	}
}

func metricsFixture() MetricsInput {
	return MetricsInput{
		Inventory: []model.InventoryItem{
			{Name: "鸡大胸", Category: "分割品", Closing: 10000},
		},
		Production: []model.ProductionRecord{
			{Date: day("2025-06-01"), Name: "鸡大胸", QuantityKg: 5000},
			{Date: day("2025-06-01"), Name: "鸡翅", Category: "分割品", QuantityKg: 2000},
			{Date: day("2025-06-01"), Name: "鸡腿", QuantityKg: 0},
		},
		Sales: []model.SalesRecord{
			{Date: day("2025-06-01"), Name: "鸡大胸", QuantityKg: 3000, TaxFreeAmount: 30000, UnitPrice: 10900},
			{Date: day("2025-06-02"), Name: "鸡大胸", QuantityKg: 1000, TaxFreeAmount: 12000, UnitPrice: 13080},
		},
	}
}

func TestBuildDailyMetrics(t *testing.T) {
	t.Parallel()

	res := BuildDailyMetrics(metricsFixture(), MetricsOptions{TaxRate: 1.09, DropZeroRows: true})

	if len(res.Products) != 3 || res.Products[0].Name != "鸡大胸" || res.Products[1].Name != "鸡翅" || res.Products[2].ID != 3 {
		t.Fatalf("unexpected products: %+v", res.Products)
	}
	if len(res.Dates) != 2 || res.Dates[0] != "2025-06-01" {
		t.Fatalf("unexpected dates: %v", res.Dates)
	}
	if len(res.Metrics) != 4 || res.DroppedZeroRows != 2 {
		t.Fatalf("unexpected metrics: %d rows, dropped %d", len(res.Metrics), res.DroppedZeroRows)
	}

	byKey := map[string]model.DailyMetric{}
	for _, m := range res.Metrics {
		byKey[m.RecordDate+"/"+m.ProductName] = m
	}

	breast := byKey["2025-06-01/鸡大胸"]
	if model.Value(breast.ProductionVolume) != 5 || model.Value(breast.SalesVolume) != 3 {
		t.Fatalf("unexpected volumes: %+v", breast)
	}
	if model.Value(breast.InventoryLevel) != 12 || model.Value(breast.InventoryTurnoverDays) != 6 {
		t.Fatalf("unexpected inventory: level %v turnover %v", model.Value(breast.InventoryLevel), model.Value(breast.InventoryTurnoverDays))
	}
	if !almostEqual(model.Value(breast.AveragePrice), 10900) || !almostEqual(model.Value(breast.SalesAmount), 32700) {
		t.Fatalf("unexpected price/amount: %+v", breast)
	}

	next := byKey["2025-06-02/鸡大胸"]
	if model.Value(next.InventoryLevel) != 11 || model.Value(next.InventoryTurnoverDays) != 5.5 {
		t.Fatalf("unexpected day2: level %v turnover %v", model.Value(next.InventoryLevel), model.Value(next.InventoryTurnoverDays))
	}

	wing := byKey["2025-06-02/鸡翅"]
	if model.Value(wing.InventoryLevel) != 2 || model.Value(wing.InventoryTurnoverDays) != 0 {
		t.Fatalf("carried inventory without sales: %+v", wing)
	}
}

func TestBuildDailyMetrics_KeepZeroRows(t *testing.T) {
	t.Parallel()

	res := BuildDailyMetrics(metricsFixture(), MetricsOptions{DropZeroRows: false})
	if len(res.Metrics) != 6 || res.DroppedZeroRows != 0 {
		t.Fatalf("unexpected metrics: %d rows, dropped %d", len(res.Metrics), res.DroppedZeroRows)
	}
	for i := 1; i < len(res.Metrics); i++ {
		a, b := res.Metrics[i-1], res.Metrics[i]
		if a.RecordDate > b.RecordDate || (a.RecordDate == b.RecordDate && a.ProductID > b.ProductID) {
			t.Fatalf("metrics not ordered at %d", i)
		}
	}
}

func TestWeightedAveragePrice(t *testing.T) {
	t.Parallel()

	if got := WeightedAveragePrice([]float64{1, 3}, []float64{100, 200}); got != 175 {
		t.Fatalf("got %v", got)
	}
	if got := WeightedAveragePrice(nil, nil); got != 0 {
		t.Fatalf("got %v", got)
	}
	if got := SalesPricePerTon(10000, 1000, 1.09); !almostEqual(got, 10900) {
		t.Fatalf("got %v", got)
	}
}

func TestDepartmentRatio(t *testing.T) {
	t.Parallel()

	sales := []model.SalesRecord{
		{Name: "A", Department: "生品部", QuantityKg: 2000},
		{Name: "A", Department: "熟食部", QuantityKg: 1000},
	}
	inventory := []model.InventoryItem{
		{Name: "A", Department: "生品部", Production: 4000},
		{Name: "B", Department: "熟食部", Production: 1000},
	}

	res := DepartmentRatio(sales, inventory, "生品部", DefaultRatioClip)
	if !almostEqual(res.DeptRatio, 50) || !almostEqual(res.AllRatio, 60) {
		t.Fatalf("unexpected ratios: %+v", res)
	}
	if len(res.Products) != 1 || res.Products[0].Name != "A" || !almostEqual(res.Products[0].Ratio, 50) {
		t.Fatalf("unexpected products: %+v", res.Products)
	}
}

func TestSignificantChanges(t *testing.T) {
	t.Parallel()

	adjs := []model.PriceAdjustment{
		{AdjustmentDate: "2025-04-01", ProductName: "A", PriceDifference: 300},
		{AdjustmentDate: "2025-04-03", ProductName: "B", PriceDifference: -200},
		{AdjustmentDate: "2025-04-03", ProductName: "C", PriceDifference: 500},
		{AdjustmentDate: "2025-04-03", ProductName: "D", PriceDifference: 199},
	}
	got := SignificantChanges(adjs, DefaultMinPriceDiff)
	if len(got) != 3 || got[0].ProductName != "C" || got[1].ProductName != "B" || got[2].ProductName != "A" {
		t.Fatalf("unexpected order: %+v", got)
	}

	s := SummarizePrices(adjs)
	if s.Increases != 3 || s.Decreases != 1 || s.MaxIncrease != 500 || s.MaxDecrease != -200 || s.Products != 4 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestMissingDates(t *testing.T) {
	t.Parallel()

	got := MissingDates([]time.Time{day("2025-06-05"), day("2025-06-01"), day("2025-06-02")})
	if len(got) != 2 || got[0].Format("2006-01-02") != "2025-06-03" || got[1].Format("2006-01-02") != "2025-06-04" {
		t.Fatalf("unexpected missing dates: %v", got)
	}
	if MissingDates([]time.Time{day("2025-06-01")}) != nil {
		t.Fatalf("single date has no gaps")
	}
}

func TestTopInventory(t *testing.T) {
	t.Parallel()

	ranks, total := TopInventory(map[string]float64{"A": 30, "B": 50, "C": 20, "D": -5}, 2)
	if total != 100 || len(ranks) != 2 || ranks[0].Name != "B" || ranks[0].Percentage != 50 || ranks[1].Rank != 2 {
		t.Fatalf("unexpected ranks: %+v total %v", ranks, total)
	}
}
