package parser

import (
	"github.com/xuri/excelize/v2"

	"springsnow/internal/model"
)

// SheetRecognizer 根据表头关键字识别源表类型
type SheetRecognizer struct {
	keyFields map[model.SourceKind][]string
}

// NewSheetRecognizer 创建识别器
func NewSheetRecognizer() *SheetRecognizer {
	return &SheetRecognizer{
		keyFields: map[model.SourceKind][]string{
			model.SourceInventory: {
				"物料名称|商品名称",
				"^入库$",
				"^出库$",
				"^结存$",
			},
			model.SourceProduction: {
				"物料名称|商品名称",
				"^主数量$",
				"入库日期|单据日期",
				"物料大类|物料所属分类",
			},
			model.SourceSales: {
				"^发票日期$",
				"物料名称|商品名称",
				"^主数量$",
				"无税金额|含税单价",
				"客户名称",
			},
		},
	}
}

// Recognize 识别 Sheet 类型；置信度低于 0.5 视为 unknown
func (r *SheetRecognizer) Recognize(sheetName string, columnNames []string) SheetRecognitionResult {
	if _, ok := ParseSheetDate(sheetName); ok {
		return SheetRecognitionResult{SheetName: sheetName, Source: model.SourcePrice, Confidence: 1}
	}

	normalized := make([]string, len(columnNames))
	for i, col := range columnNames {
		normalized[i] = NormalizeColumnName(col)
	}

	best := SheetRecognitionResult{SheetName: sheetName, Source: "unknown"}
	// 固定顺序，保证同分时结果稳定
	for _, kind := range []model.SourceKind{model.SourceSales, model.SourceProduction, model.SourceInventory} {
		fields := r.keyFields[kind]
		matched := 0
		for _, field := range fields {
			for _, col := range normalized {
				if MatchPattern(col, field) {
					matched++
					break
				}
			}
		}
		confidence := float64(matched) / float64(len(fields))
		if confidence > best.Confidence {
			best.Source = kind
			best.Confidence = confidence
		}
	}

	if best.Confidence < 0.5 {
		best.Source = "unknown"
	}
	return best
}

// RecognizeWorkbook 识别工作簿首个 Sheet（调价表按全部 Sheet 名判断）
func (r *SheetRecognizer) RecognizeWorkbook(f *excelize.File) (SheetRecognitionResult, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return SheetRecognitionResult{}, ErrNoSheets
	}
	for _, name := range sheets {
		if _, ok := ParseSheetDate(name); ok {
			return SheetRecognitionResult{SheetName: name, Source: model.SourcePrice, Confidence: 1}, nil
		}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return SheetRecognitionResult{}, err
	}
	var headers []string
	if len(rows) > 0 {
		headers = rows[0]
	}
	return r.Recognize(sheets[0], headers), nil
}
