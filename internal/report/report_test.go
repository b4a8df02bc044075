package report

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"springsnow/internal/model"
)

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.Local)
}

func fixtureInput() Input {
	return Input{
		Inventory: []model.InventoryItem{
			{Name: "鸡大胸", Category: "分割品", Production: 2000, Sales: 4100, Closing: 5000},
			{Name: "鸡翅", Category: "分割品", Production: 1000, Sales: 1600, Closing: 8000},
		},
		Production: []model.ProductionRecord{
			{Date: day(1), Name: "鸡大胸", QuantityKg: 1000},
			{Date: day(2), Name: "鸡大胸", QuantityKg: 1000},
			{Date: day(2), Name: "鸡翅", QuantityKg: 1000},
		},
		Sales: []model.SalesRecord{
			{Date: day(1), Name: "鸡大胸", QuantityKg: 2500, TaxFreeAmount: 25000},
			{Date: day(2), Name: "鸡大胸", QuantityKg: 1600, TaxFreeAmount: 16000},
			{Date: day(2), Name: "鸡翅", QuantityKg: 1600, TaxFreeAmount: 24000},
		},
		Prices: []model.PriceAdjustment{
			{AdjustmentDate: "2025-04-03", ProductName: "鸡大胸", CurrentPrice: 9300, PriceDifference: 300, PreviousPrice: model.Float(9000)},
			{AdjustmentDate: "2025-04-01", ProductName: "鸡翅", CurrentPrice: 14900, PriceDifference: -100, PreviousPrice: model.Float(15000)},
		},
		PriceDates: []time.Time{
			time.Date(2025, 4, 1, 0, 0, 0, 0, time.Local),
			time.Date(2025, 4, 3, 0, 0, 0, 0, time.Local),
		},
		Comparisons: []model.PriceComparison{
			{Name: "鸡大胸", OwnPrice: 9300, PeerMidPrice: 9350, MidDiff: -50},
			{Name: "鸡翅", OwnPrice: 15000, PeerMidPrice: 14980, MidDiff: 20},
		},
		Industry: []*model.IndustrySeries{
			{Product: "毛鸡", Points: []model.IndustryPoint{
				{Date: day(1), Price: 7.5, Change: 0.1},
				{Date: day(2), Price: 7.7, Change: 0.2},
			}},
		},
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	d := Build(fixtureInput(), Options{})

	require.Len(t, d.Ratios, 2)
	assert.InDelta(t, 250, d.Ratios[0].Ratio, 1e-9)
	assert.Equal(t, "abnormal", d.Ratios[0].Class)
	assert.InDelta(t, 160, d.Ratios[1].Ratio, 1e-9)
	assert.Equal(t, "warning", d.Ratios[1].Class)
	assert.Equal(t, 2, d.RatioStats.TotalDays)

	require.Len(t, d.Inventory, 2)
	assert.Equal(t, "鸡翅", d.Inventory[0].Name)
	assert.InDelta(t, 13, d.InvTotals.Closing, 1e-9)
	assert.Equal(t, 1, d.TopInv[0].Rank)

	require.Len(t, d.Sales, 2)
	assert.InDelta(t, 10900, d.Sales[0].AvgPrice, 1e-6)
	assert.Equal(t, "鸡大胸", d.Sales[1].Products[0].Name)

	assert.Equal(t, 1, d.Summary.SignificantChanges)
	assert.Equal(t, 1, d.Summary.NegativeComparisons)
	assert.Equal(t, []string{"2025-04-02"}, d.Summary.MissingPriceDates)
	assert.InDelta(t, 7.7, d.Industry[0].Latest.Price, 1e-9)
}

func TestBuild_ExcludesFreshPrices(t *testing.T) {
	t.Parallel()

	in := fixtureInput()
	in.Prices = append(in.Prices,
		model.PriceAdjustment{AdjustmentDate: "2025-04-03", ProductName: "鲜鸡肝", CurrentPrice: 5000, PriceDifference: 800},
		model.PriceAdjustment{AdjustmentDate: "2025-04-03", ProductName: "鲜凤肠", CurrentPrice: 6000, PriceDifference: 400},
	)
	d := Build(in, Options{})

	require.Len(t, d.Significant, 2)
	names := []string{d.Significant[0].ProductName, d.Significant[1].ProductName}
	assert.ElementsMatch(t, []string{"鸡大胸", "鲜凤肠"}, names)
}

func openPage(t *testing.T, dir, name string) *goquery.Document {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	g, err := NewGenerator()
	require.NoError(t, err)

	d := Build(fixtureInput(), Options{GeneratedAt: time.Date(2025, 6, 3, 8, 0, 0, 0, time.Local)})
	files, err := g.Generate(dir, d)
	require.NoError(t, err)
	for _, p := range Pages {
		assert.Contains(t, files, filepath.Join(dir, p.File))
	}

	index := openPage(t, dir, "index.html")
	assert.Equal(t, "2", strings.TrimSpace(index.Find("#card-products .value").Text()))
	assert.Equal(t, "1", strings.TrimSpace(index.Find("#card-price-changes .value").Text()))
	assert.Equal(t, "2025-04-02", strings.TrimSpace(index.Find("#missing-dates li").Text()))
	assert.Contains(t, index.Find("footer").Text(), "2025-06-03 08:00:00")
	assert.Equal(t, "index.html", index.Find("nav a.active").AttrOr("href", ""))

	ratio := openPage(t, dir, "ratio.html")
	rows := ratio.Find("#ratioTable tbody tr")
	assert.Equal(t, 2, rows.Length())
	assert.True(t, rows.Eq(0).HasClass("abnormal"))
	assert.True(t, rows.Eq(1).HasClass("warning"))
	assert.Equal(t, 1, ratio.Find("#ratioPanel_2025-06-01 tbody tr").Length())
	assert.True(t, ratio.Find("#ratioPanel_2025-06-01 td.high-value").Length() == 1)

	inventory := openPage(t, dir, "inventory.html")
	assert.Equal(t, "鸡翅", inventory.Find("#inventoryTable tbody tr").First().Find("td").First().Text())
	assert.Equal(t, "13.0", strings.TrimSpace(inventory.Find("#card-closing .value").Text()))
	assert.Equal(t, ChartInventoryTop, inventory.Find("img.chart").AttrOr("src", ""))

	details := openPage(t, dir, "details.html")
	total := details.Find("#salesTable_2025-06-02 tr.total-row td")
	assert.Equal(t, "3,200", total.Eq(1).Text())
	assert.Equal(t, "40,000", total.Eq(2).Text())

	prices := openPage(t, dir, "price_volatility.html")
	assert.Equal(t, 1, prices.Find("#comparisonTable tr.negative").Length())
	assert.Equal(t, 1, prices.Find("#significantTable tbody tr").Length())
	assert.Equal(t, 1, prices.Find("#significantTable td.increase").Length())

	industry := openPage(t, dir, "industry.html")
	assert.Equal(t, 1, industry.Find(".industry").Length())
	assert.Equal(t, "毛鸡", industry.Find(".industry h2").Text())

	_, err = os.Stat(filepath.Join(dir, ChartRatioTrend))
	assert.NoError(t, err)
}

func TestGenerate_EmptyInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	g, err := NewGenerator()
	require.NoError(t, err)

	_, err = g.Generate(dir, Build(Input{}, Options{}))
	require.NoError(t, err)

	inventory := openPage(t, dir, "inventory.html")
	assert.Equal(t, 0, inventory.Find("img.chart").Length())
	assert.Contains(t, inventory.Find(".empty").Text(), "暂无库存数据")

	industry := openPage(t, dir, "industry.html")
	assert.Contains(t, industry.Find(".empty").Text(), "暂无行业数据")
}

func TestArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "img"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "img", "a.png"), []byte("png"), 0644))

	now := time.Date(2025, 6, 3, 0, 0, 0, 0, time.Local)
	path, err := Archive(dir, now)
	require.NoError(t, err)
	assert.Equal(t, "20250603_价格波动分析.zip", filepath.Base(path))

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"index.html", "img/a.png"}, names)
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		v    float64
		prec int
		want string
	}{
		{1234567.891, 2, "1,234,567.89"},
		{999, 0, "999"},
		{-1234.4, 0, "-1,234"},
		{0, 1, "0.0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNumber(tt.v, tt.prec))
	}
}
