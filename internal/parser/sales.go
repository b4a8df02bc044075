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

// DefaultTaxRate 含税系数（9% 增值税）
const DefaultTaxRate = 1.09

// SalesOptions 销售表解析选项
type SalesOptions struct {
	Sheet   string
	TaxRate float64
	// Chain 为空时使用销售口径；部门产销率传入 filter.DepartmentChain()
	Chain *filter.Chain
}

// LoadSales 打开并解析销售发票执行查询
func LoadSales(path string, opts SalesOptions) ([]model.SalesRecord, *LoadReport, error) {
	f, err := OpenWorkbook(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, report, err := ParseSales(f, opts)
	if report != nil {
		report.File = path
	}
	return records, report, err
}

// ParseSales 解析销售发票；单价统一为 元/吨（含税）
func ParseSales(f *excelize.File, opts SalesOptions) ([]model.SalesRecord, *LoadReport, error) {
	start := time.Now()
	if opts.TaxRate <= 0 {
		opts.TaxRate = DefaultTaxRate
	}

	s, err := ReadSheet(f, opts.Sheet)
	if err != nil {
		return nil, nil, err
	}
	report := &LoadReport{Source: model.SourceSales, Sheet: s.Name, TotalRows: len(s.Records)}

	mapping, err := SalesFields().Map(s)
	if err != nil {
		return nil, report, err
	}
	if mapping[FieldTaxFreeAmount] == "" && mapping[FieldLocalTaxPrice] == "" && mapping[FieldTaxPrice] == "" {
		report.Warnings = append(report.Warnings, "未找到价格或金额列，单价记为 0")
	}
	records := canonicalizeName(s.Records, mapping)

	chain := filter.SalesChain()
	if opts.Chain != nil {
		chain = *opts.Chain
	}
	kept, stats := filter.Apply(chain, records)
	report.Filter = stats

	out := make([]model.SalesRecord, 0, len(kept))
	for _, r := range kept {
		date, ok := ParseDate(r.Value(mapping[FieldDate]))
		if !ok {
			report.InvalidRows++
			continue
		}
		qty := ParseFloat(r.Value(mapping[FieldQuantity]))
		if math.IsNaN(qty) {
			report.InvalidRows++
			continue
		}
		amount := FloatOrZero(r.Value(mapping[FieldTaxFreeAmount]))

		out = append(out, model.SalesRecord{
			Date:          date,
			Name:          strings.TrimSpace(r.Value(filter.ColMaterialName)),
			Category:      strings.TrimSpace(r.Value(mapping[FieldCategory])),
			Customer:      strings.TrimSpace(r.Value(mapping[FieldCustomer])),
			Department:    strings.TrimSpace(r.Value(mapping[FieldDepartment])),
			QuantityKg:    qty,
			TaxFreeAmount: amount,
			UnitPrice:     unitPrice(r, mapping, qty, amount, opts.TaxRate),
		})
	}

	report.KeptRows = len(out)
	report.Duration = time.Since(start)
	log.Info().
		Str("sheet", s.Name).
		Int("total", report.TotalRows).
		Int("kept", report.KeptRows).
		Int("invalid", report.InvalidRows).
		Interface("dropped", report.Filter.Dropped).
		Msg("销售发票解析完成")
	return out, report, nil
}

// unitPrice 单价回退顺序：本币含税单价 -> 含税单价 -> 无税金额/数量*税率 -> 0
func unitPrice(r Record, mapping map[string]string, qtyKg, taxFreeAmount, taxRate float64) float64 {
	for _, field := range []string{FieldLocalTaxPrice, FieldTaxPrice} {
		col := mapping[field]
		if col == "" {
			continue
		}
		if v := ParseFloat(r.Value(col)); !math.IsNaN(v) {
			return v * 1000
		}
	}
	if mapping[FieldTaxFreeAmount] != "" && qtyKg > 0 {
		return taxFreeAmount / qtyKg * taxRate * 1000
	}
	return 0
}
