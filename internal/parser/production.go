package parser

import (
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"springsnow/internal/filter"
	"springsnow/internal/model"
)

// LoadProduction 打开并解析产成品入库列表
func LoadProduction(path, sheet string) ([]model.ProductionRecord, *LoadReport, error) {
	f, err := OpenWorkbook(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, report, err := ParseProduction(f, sheet)
	if report != nil {
		report.File = path
	}
	return records, report, err
}

// ParseProduction 解析产成品入库列表；数量单位保持公斤
func ParseProduction(f *excelize.File, sheet string) ([]model.ProductionRecord, *LoadReport, error) {
	start := time.Now()

	s, err := ReadSheet(f, sheet)
	if err != nil {
		return nil, nil, err
	}
	report := &LoadReport{Source: model.SourceProduction, Sheet: s.Name, TotalRows: len(s.Records)}

	mapping, err := ProductionFields().Map(s)
	if err != nil {
		return nil, report, err
	}
	records := canonicalizeName(s.Records, mapping)

	kept, stats := filter.Apply(filter.ProductionChain(), records)
	report.Filter = stats

	out := make([]model.ProductionRecord, 0, len(kept))
	for _, r := range kept {
		date, ok := ParseDate(r.Value(mapping[FieldDate]))
		if !ok {
			report.InvalidRows++
			log.Debug().Int("row", r.Row).Str("value", r.Value(mapping[FieldDate])).Msg("入库日期无法解析，跳过")
			continue
		}
		qty := ParseFloat(r.Value(mapping[FieldQuantity]))
		if math.IsNaN(qty) {
			qty = 0
		}
		out = append(out, model.ProductionRecord{
			Date:       date,
			Name:       strings.TrimSpace(r.Value(filter.ColMaterialName)),
			Category:   strings.TrimSpace(r.Value(mapping[FieldCategory])),
			QuantityKg: qty,
		})
	}

	report.KeptRows = len(out)
	report.Duration = time.Since(start)
	log.Info().
		Str("sheet", s.Name).
		Int("total", report.TotalRows).
		Int("kept", report.KeptRows).
		Int("invalid", report.InvalidRows).
		Interface("dropped", stats.Dropped).
		Msg("产成品入库列表解析完成")
	return out, report, nil
}
