package quality

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

//go:embed templates/report.tmpl
var templateFS embed.FS

var htmlTemplate = template.Must(template.New("report.tmpl").Funcs(template.FuncMap{
	"pct": func(v float64) string {
		return decimal.NewFromFloat(v*100).StringFixed(1) + "%"
	},
}).ParseFS(templateFS, "templates/report.tmpl"))

// WriteJSON 以缩进 JSON 写出报告
func WriteJSON(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rep)
}

// WriteHTML 渲染 HTML 报告
func WriteHTML(w io.Writer, rep *Report) error {
	return htmlTemplate.Execute(w, rep)
}

// Save 在 dir 下写出 quality_report_{id}.json 与 .html，返回两个路径
func Save(dir string, rep *Report) (jsonPath, htmlPath string, err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	base := filepath.Join(dir, "quality_report_"+rep.ReportID)

	jsonPath = base + ".json"
	if err := writeFile(jsonPath, func(w io.Writer) error { return WriteJSON(w, rep) }); err != nil {
		return "", "", err
	}
	htmlPath = base + ".html"
	if err := writeFile(htmlPath, func(w io.Writer) error { return WriteHTML(w, rep) }); err != nil {
		return "", "", err
	}
	return jsonPath, htmlPath, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
