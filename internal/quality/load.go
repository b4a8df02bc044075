package quality

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog/log"

	"springsnow/internal/config"
	"springsnow/internal/model"
	"springsnow/internal/parser"
)

// Source 待检查的源文件
type Source struct {
	Name string
	Path string
}

// SourcesFromConfig 配置中的三个主源文件
func SourcesFromConfig(cfg *config.AppConfig) []Source {
	return []Source{
		{Name: string(model.SourceInventory), Path: config.SourcePath(cfg, cfg.Sources.InventoryFile)},
		{Name: string(model.SourceProduction), Path: config.SourcePath(cfg, cfg.Sources.ProductionFile)},
		{Name: string(model.SourceSales), Path: config.SourcePath(cfg, cfg.Sources.SalesFile)},
	}
}

// CheckFile 读取工作簿第一个 Sheet 并检查
func (m *Monitor) CheckFile(name, path string) (DatasetReport, error) {
	f, err := parser.OpenWorkbook(path)
	if err != nil {
		return DatasetReport{}, err
	}
	defer f.Close()

	sheet, err := parser.ReadSheet(f, "")
	if err != nil {
		return DatasetReport{}, err
	}
	var columns []string
	for _, h := range sheet.Headers {
		if h != "" {
			columns = append(columns, h)
		}
	}
	d := m.Check(name, sheet.Records, columns)
	if rec, err := m.recognizer.RecognizeWorkbook(f); err == nil {
		d.Detected = &rec
	}
	return d, nil
}

// Run 依次检查各源文件；文件缺失或无法读取时记为警告，全部失败时返回错误
func (m *Monitor) Run(ctx context.Context, sources []Source) (*Report, error) {
	var datasets []DatasetReport
	var warnings []string
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(src.Path); err != nil {
			msg := fmt.Sprintf("%s: 文件不存在 %s", src.Name, src.Path)
			warnings = append(warnings, msg)
			log.Warn().Str("dataset", src.Name).Str("file", src.Path).Msg("数据质量检查跳过：文件不存在")
			continue
		}
		d, err := m.CheckFile(src.Name, src.Path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", src.Name, err))
			log.Warn().Err(err).Str("dataset", src.Name).Msg("数据质量检查失败")
			continue
		}
		if msg, ok := mismatch(src.Name, d.Detected); ok {
			warnings = append(warnings, msg)
			log.Warn().Str("dataset", src.Name).Str("detected", string(d.Detected.Source)).Msg("源文件类型与预期不符")
		}
		datasets = append(datasets, d)
	}
	if len(datasets) == 0 {
		return nil, fmt.Errorf("no readable source files: %v", warnings)
	}

	rep := m.Report(datasets)
	rep.Warnings = warnings
	return rep, nil
}

// mismatch 识别出的类型与数据集名称不一致时返回警告
func mismatch(name string, rec *parser.SheetRecognitionResult) (string, bool) {
	if rec == nil || rec.Source == "unknown" || rec.Source == model.SourceKind(name) {
		return "", false
	}
	switch model.SourceKind(name) {
	case model.SourceInventory, model.SourceProduction, model.SourceSales, model.SourcePrice:
		return fmt.Sprintf("%s: 表头更像 %s (置信度 %.0f%%)", name, rec.Source, rec.Confidence*100), true
	}
	return "", false
}

// RatioDataQuality 产销率分析的数据质量评分
// 0.3·完整性 + 0.4·准确性 + 0.3·一致性，保留两位小数
func RatioDataQuality(sales []model.SalesRecord, inventory []model.InventoryItem) float64 {
	completeness := 0.0
	if len(sales) > 0 {
		completeness += 0.5
	}
	if len(inventory) > 0 {
		completeness += 0.5
	}

	accuracy := 1.0
	salesTotal, productionTotal := 0.0, 0.0
	negSales, negProduction := false, false
	for _, r := range sales {
		salesTotal += r.QuantityKg
		negSales = negSales || r.QuantityKg < 0
	}
	for _, it := range inventory {
		productionTotal += it.Production
		negProduction = negProduction || it.Production < 0
	}
	if negSales {
		accuracy -= 0.3
	}
	if negProduction {
		accuracy -= 0.3
	}

	// 产销比例过于极端
	consistency := 1.0
	if len(sales) > 0 && len(inventory) > 0 && productionTotal > 0 {
		ratio := salesTotal / productionTotal
		if ratio > 10 || ratio < 0.01 {
			consistency -= 0.5
		}
	}

	score := 0.3*completeness + 0.4*math.Max(0, accuracy) + 0.3*math.Max(0, consistency)
	return math.Round(score*100) / 100
}
