package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// 图表文件名
const (
	ChartInventoryTop = "inventory_top15.png"
	ChartRatioTrend   = "ratio_trend.png"
	ChartSalesTrend   = "sales_trend.png"
)

var (
	colorBlue   = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	colorOrange = color.RGBA{R: 230, G: 126, B: 34, A: 255}
	colorGreen  = color.RGBA{R: 39, G: 174, B: 96, A: 255}
	colorGray   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// series 折线图中的一条线；默认字体不含中文，名称用 ASCII
type series struct {
	Name   string
	Values []float64
	Color  color.Color
}

// sparseLabels 日期过多时只保留约 10 个刻度标签
func sparseLabels(labels []string) []string {
	step := len(labels)/10 + 1
	out := make([]string, len(labels))
	for i, l := range labels {
		if i%step == 0 || i == len(labels)-1 {
			out[i] = l
		}
	}
	return out
}

// shortDate "2025-06-01" -> "06-01"
func shortDate(date string) string {
	if len(date) == len("2006-01-02") {
		return date[5:]
	}
	return date
}

func barChart(path, title, yLabel string, labels []string, values []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = yLabel

	bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(18))
	if err != nil {
		return fmt.Errorf("failed to build bar chart: %w", err)
	}
	bars.Color = colorBlue
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars, plotter.NewGrid())

	p.NominalX(labels...)
	p.Y.Min = 0

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}

func lineChart(path, title, yLabel string, labels []string, reference *float64, lines ...series) error {
	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = yLabel
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for _, s := range lines {
		pts := make(plotter.XYs, len(s.Values))
		for i, v := range s.Values {
			pts[i].X = float64(i)
			pts[i].Y = v
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return fmt.Errorf("failed to build line %s: %w", s.Name, err)
		}
		line.Color = s.Color
		line.Width = vg.Points(2)
		points.GlyphStyle.Color = s.Color
		points.GlyphStyle.Shape = draw.CircleGlyph{}
		points.GlyphStyle.Radius = vg.Points(2)
		p.Add(line, points)
		p.Legend.Add(s.Name, line)
	}

	if reference != nil {
		ref := *reference
		fn := plotter.NewFunction(func(float64) float64 { return ref })
		fn.Color = colorGray
		fn.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(fn)
	}

	p.NominalX(sparseLabels(labels)...)
	p.X.Tick.Label.Rotation = 0.6
	p.X.Tick.Label.XAlign = draw.XRight

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(path), err)
	}
	return nil
}

// renderCharts 生成全部 PNG，返回 图表名 -> 文件名；无数据的图表不生成
func renderCharts(outputDir string, d *Data) (map[string]string, error) {
	charts := map[string]string{}

	if len(d.TopInv) > 0 {
		labels := make([]string, len(d.TopInv))
		values := make([]float64, len(d.TopInv))
		for i, r := range d.TopInv {
			labels[i] = fmt.Sprintf("#%d", r.Rank)
			values[i] = r.Level
		}
		if err := barChart(filepath.Join(outputDir, ChartInventoryTop), "Top 15 Inventory", "tons", labels, values); err != nil {
			return nil, err
		}
		charts["inventory"] = ChartInventoryTop
	}

	if len(d.Ratios) > 0 {
		labels := make([]string, len(d.Ratios))
		ratios := make([]float64, len(d.Ratios))
		for i, r := range d.Ratios {
			labels[i] = shortDate(r.Date)
			ratios[i] = r.Ratio
		}
		hundred := 100.0
		if err := lineChart(filepath.Join(outputDir, ChartRatioTrend), "Daily Sales / Production Ratio", "%",
			labels, &hundred, series{Name: "ratio", Values: ratios, Color: colorBlue}); err != nil {
			return nil, err
		}
		charts["ratio"] = ChartRatioTrend
	}

	if len(d.Sales) > 0 {
		labels := make([]string, len(d.Sales))
		volume := make([]float64, len(d.Sales))
		for i, s := range d.Sales {
			labels[i] = shortDate(s.Date)
			volume[i] = s.Volume
		}
		if err := lineChart(filepath.Join(outputDir, ChartSalesTrend), "Daily Sales Volume", "tons",
			labels, nil, series{Name: "sales", Values: volume, Color: colorOrange}); err != nil {
			return nil, err
		}
		charts["sales"] = ChartSalesTrend
	}

	for i := range d.Industry {
		v := &d.Industry[i]
		if len(v.Points) == 0 {
			continue
		}
		labels := make([]string, len(v.Points))
		prices := make([]float64, len(v.Points))
		for j, pt := range v.Points {
			labels[j] = pt.Date.Format("01-02")
			prices[j] = pt.Price
		}
		name := fmt.Sprintf("industry_%d.png", i+1)
		if err := lineChart(filepath.Join(outputDir, name), fmt.Sprintf("Industry Price #%d", i+1), "price",
			labels, nil, series{Name: "price", Values: prices, Color: colorGreen}); err != nil {
			return nil, err
		}
		v.Chart = name
	}
	return charts, nil
}
