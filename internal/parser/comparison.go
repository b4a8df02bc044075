package parser

import (
	"strings"

	"github.com/xuri/excelize/v2"

	"springsnow/internal/model"
)

// LoadComparison 打开并解析价格对比表
func LoadComparison(path string) ([]model.PriceComparison, error) {
	f, err := OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseComparison(f, "")
}

// ParseComparison 解析春雪与小明农牧价格对比；五列缺一不可
func ParseComparison(f *excelize.File, sheet string) ([]model.PriceComparison, error) {
	s, err := ReadSheet(f, sheet)
	if err != nil {
		return nil, err
	}
	mapping, err := ComparisonFields().Map(s)
	if err != nil {
		return nil, err
	}

	out := make([]model.PriceComparison, 0, len(s.Records))
	for _, r := range s.Records {
		out = append(out, model.PriceComparison{
			Name:          strings.TrimSpace(r.Value(mapping[FieldName])),
			Specification: strings.TrimSpace(r.Value(mapping[FieldSpecification])),
			OwnPrice:      FloatOrZero(r.Value(mapping[FieldOwnPrice])),
			PeerMidPrice:  FloatOrZero(r.Value(mapping[FieldPeerMidPrice])),
			MidDiff:       FloatOrZero(r.Value(mapping[FieldMidDiff])),
		})
	}
	return out, nil
}
