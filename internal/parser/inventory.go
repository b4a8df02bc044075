package parser

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"springsnow/internal/filter"
	"springsnow/internal/model"
)

// LoadInventory 打开并解析收发存汇总表
func LoadInventory(path, sheet string) ([]model.InventoryItem, *LoadReport, error) {
	f, err := OpenWorkbook(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	items, report, err := ParseInventory(f, sheet)
	if report != nil {
		report.File = path
	}
	return items, report, err
}

// LoadDepartmentInventory 按部门产销率口径解析收发存汇总表
func LoadDepartmentInventory(path, sheet string) ([]model.InventoryItem, *LoadReport, error) {
	f, err := OpenWorkbook(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	items, report, err := ParseInventoryWith(f, sheet, filter.DepartmentChain())
	if report != nil {
		report.File = path
	}
	return items, report, err
}

// ParseInventory 解析收发存汇总表并应用库存口径过滤
func ParseInventory(f *excelize.File, sheet string) ([]model.InventoryItem, *LoadReport, error) {
	return ParseInventoryWith(f, sheet, filter.InventoryChain())
}

// ParseInventoryWith 使用指定过滤链解析收发存汇总表
func ParseInventoryWith(f *excelize.File, sheet string, chain filter.Chain) ([]model.InventoryItem, *LoadReport, error) {
	start := time.Now()

	s, err := ReadSheet(f, sheet)
	if err != nil {
		return nil, nil, err
	}
	report := &LoadReport{Source: model.SourceInventory, Sheet: s.Name, TotalRows: len(s.Records)}

	mapping, err := InventoryFields().Map(s)
	if err != nil {
		return nil, report, err
	}
	records := canonicalizeName(s.Records, mapping)

	kept, stats := filter.Apply(chain, records)
	report.Filter = stats

	items := make([]model.InventoryItem, 0, len(kept))
	for _, r := range kept {
		items = append(items, model.InventoryItem{
			Name:       strings.TrimSpace(r.Value(filter.ColMaterialName)),
			Category:   strings.TrimSpace(r.Value(mapping[FieldCategory])),
			Customer:   strings.TrimSpace(r.Value(mapping[FieldCustomer])),
			Department: strings.TrimSpace(r.Value(mapping[FieldDepartment])),
			Production: FloatOrZero(r.Value(mapping[FieldProduction])),
			Sales:      FloatOrZero(r.Value(mapping[FieldSales])),
			Closing:    FloatOrZero(r.Value(mapping[FieldClosing])),
		})
	}

	report.KeptRows = len(items)
	report.Duration = time.Since(start)
	log.Info().
		Str("sheet", s.Name).
		Int("total", report.TotalRows).
		Int("kept", report.KeptRows).
		Int("rescued", stats.Rescued).
		Interface("dropped", stats.Dropped).
		Msg("收发存汇总表解析完成")
	return items, report, nil
}

// canonicalizeName 名称列使用别名时，复制到 物料名称 以便过滤规则统一取值
func canonicalizeName(records []Record, mapping map[string]string) []Record {
	col := mapping[FieldName]
	if col == "" || col == filter.ColMaterialName {
		return records
	}
	for i := range records {
		records[i].Values[filter.ColMaterialName] = records[i].Values[col]
	}
	return records
}
