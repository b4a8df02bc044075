package parser

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet 读取后的工作表：规范化表头 + 数据行
type Sheet struct {
	Name    string
	Headers []string
	Records []Record
	Rows    [][]string // 原始行（含表头），供多模板等非表格布局使用
}

// HasColumn 表头中是否存在该列
func (s *Sheet) HasColumn(name string) bool {
	for _, h := range s.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// OpenWorkbook 打开工作簿
func OpenWorkbook(path string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	return f, nil
}

// ResolveSheet 返回指定 Sheet，未指定时取第一个
func ResolveSheet(f *excelize.File, sheet string) (string, error) {
	if sheet != "" {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			return "", fmt.Errorf("sheet %q not found", sheet)
		}
		return sheet, nil
	}
	list := f.GetSheetList()
	if len(list) == 0 {
		return "", ErrNoSheets
	}
	return list[0], nil
}

// ReadSheet 读取 Sheet：第一行为表头，丢弃全空行
func ReadSheet(f *excelize.File, sheet string) (*Sheet, error) {
	name, err := ResolveSheet(f, sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}

	out := &Sheet{Name: name, Rows: rows}
	if len(rows) == 0 {
		return out, nil
	}

	out.Headers = make([]string, len(rows[0]))
	for i, h := range rows[0] {
		out.Headers[i] = NormalizeColumnName(h)
	}

	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		values := make(map[string]string, len(out.Headers))
		for col, h := range out.Headers {
			if h == "" {
				continue
			}
			// 同名列取第一个
			if _, dup := values[h]; dup {
				continue
			}
			if col < len(row) {
				values[h] = row[col]
			} else {
				values[h] = ""
			}
		}
		out.Records = append(out.Records, Record{Row: i + 2, Values: values})
	}
	return out, nil
}
