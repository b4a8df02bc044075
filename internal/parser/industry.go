package parser

import (
	"fmt"
	"math"
	"sort"

	"github.com/xuri/excelize/v2"

	"springsnow/internal/model"
)

// 宽表格式：第一列日期，第九列价格
const wideLayoutColumns = 9

// LoadIndustrySeries 打开并解析行业历史价格文件
func LoadIndustrySeries(path, product string) (*model.IndustrySeries, error) {
	f, err := OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseIndustrySeries(f, product)
}

// ParseIndustrySeries 解析行业价格序列，按日期升序并计算环比变动
func ParseIndustrySeries(f *excelize.File, product string) (*model.IndustrySeries, error) {
	s, err := ReadSheet(f, "")
	if err != nil {
		return nil, err
	}
	if len(s.Headers) == 0 {
		return nil, fmt.Errorf("%s: %w: empty sheet", product, ErrMissingColumn)
	}

	dateIdx, priceIdx := 0, -1
	if len(s.Headers) >= wideLayoutColumns {
		priceIdx = wideLayoutColumns - 1
	} else {
		for i, h := range s.Headers {
			if h == "价格" || h == "price" {
				priceIdx = i
				break
			}
		}
	}
	if priceIdx < 0 {
		return nil, fmt.Errorf("%s: %w: 价格", product, ErrMissingColumn)
	}

	series := &model.IndustrySeries{Product: product}
	for _, row := range s.Rows[1:] {
		date, ok := ParseDate(cell(row, dateIdx))
		if !ok {
			continue
		}
		price := ParseFloat(cell(row, priceIdx))
		if math.IsNaN(price) {
			continue
		}
		series.Points = append(series.Points, model.IndustryPoint{Date: date, Price: price})
	}

	sort.SliceStable(series.Points, func(i, j int) bool { return series.Points[i].Date.Before(series.Points[j].Date) })
	for i := 1; i < len(series.Points); i++ {
		series.Points[i].Change = series.Points[i].Price - series.Points[i-1].Price
	}
	return series, nil
}
