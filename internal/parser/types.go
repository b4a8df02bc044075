package parser

import (
	"errors"
	"time"

	"springsnow/internal/filter"
	"springsnow/internal/model"
)

var (
	// ErrMissingColumn 缺少必需列
	ErrMissingColumn = errors.New("missing required column")
	// ErrNoSheets 工作簿中没有可用的 Sheet
	ErrNoSheets = errors.New("workbook has no sheets")
)

// SheetRecognitionResult Sheet 识别结果
type SheetRecognitionResult struct {
	SheetName  string           `json:"sheetName"`
	Source     model.SourceKind `json:"source"`
	Confidence float64          `json:"confidence"` // 置信度 0-1
}

// LoadReport 单个源文件的加载报告
type LoadReport struct {
	Source      model.SourceKind `json:"source"`
	File        string           `json:"file"`
	Sheet       string           `json:"sheet"`
	TotalRows   int              `json:"totalRows"`
	KeptRows    int              `json:"keptRows"`
	InvalidRows int              `json:"invalidRows"` // 日期/数量无法解析
	Filter      filter.Stats     `json:"filter"`
	Warnings    []string         `json:"warnings,omitempty"`
	Duration    time.Duration    `json:"duration"`
}

// Record Excel 中的一行，按规范化后的表头取值
type Record struct {
	Row    int // Excel 行号（从 1 开始）
	Values map[string]string
}

// Get 实现 filter.Row
func (r Record) Get(column string) (string, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Value 取值，列不存在返回空串
func (r Record) Value(column string) string {
	return r.Values[column]
}
