package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Page 报告中的一个页面
type Page struct {
	File string
	Name string
}

// Pages 导航顺序
var Pages = []Page{
	{File: "index.html", Name: "首页"},
	{File: "inventory.html", Name: "库存情况"},
	{File: "ratio.html", Name: "产销率"},
	{File: "sales.html", Name: "销售情况"},
	{File: "details.html", Name: "明细"},
	{File: "price_volatility.html", Name: "价格波动"},
	{File: "industry.html", Name: "行业趋势"},
}

type view struct {
	Title       string
	Active      string
	Nav         []Page
	GeneratedAt string
	D           *Data
	Charts      map[string]string
}

var funcs = template.FuncMap{
	"num":  formatNumber,
	"kg":   func(tons float64) float64 { return tons * 1000 },
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
}

// Generator HTML 报告生成器
type Generator struct {
	pages map[string]*template.Template
}

// NewGenerator 解析内嵌模板
func NewGenerator() (*Generator, error) {
	g := &Generator{pages: make(map[string]*template.Template, len(Pages))}
	for _, p := range Pages {
		name := strings.TrimSuffix(p.File, ".html") + ".tmpl"
		t, err := template.New(p.File).Funcs(funcs).ParseFS(templatesFS, "templates/layout.tmpl", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		g.pages[p.File] = t
	}
	return g, nil
}

// Generate 生成全部图表与页面，返回写出的文件列表
func (g *Generator) Generate(outputDir string, d *Data) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", outputDir, err)
	}

	charts, err := renderCharts(outputDir, d)
	if err != nil {
		// 图表失败不影响页面
		log.Warn().Err(err).Msg("图表生成失败")
		charts = map[string]string{}
	}

	var files []string
	for _, name := range charts {
		files = append(files, filepath.Join(outputDir, name))
	}
	for _, v := range d.Industry {
		if v.Chart != "" {
			files = append(files, filepath.Join(outputDir, v.Chart))
		}
	}

	for _, p := range Pages {
		path := filepath.Join(outputDir, p.File)
		if err := g.renderPage(path, p, d, charts); err != nil {
			log.Error().Err(err).Str("page", p.File).Msg("页面生成失败")
			continue
		}
		files = append(files, path)
	}
	log.Info().Str("dir", outputDir).Int("files", len(files)).Msg("报告生成完成")
	return files, nil
}

func (g *Generator) renderPage(path string, p Page, d *Data, charts map[string]string) error {
	var buf bytes.Buffer
	err := g.pages[p.File].ExecuteTemplate(&buf, "layout", view{
		Title:       d.Options.Title + " - " + p.Name,
		Active:      p.File,
		Nav:         Pages,
		GeneratedAt: d.Options.GeneratedAt.Format("2006-01-02 15:04:05"),
		D:           d,
		Charts:      charts,
	})
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", p.File, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// formatNumber 千分位 + 固定小数位
func formatNumber(v float64, prec int) string {
	s := decimal.NewFromFloat(v).StringFixed(int32(prec))
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + frac
}
