package parser

import (
	"testing"

	"springsnow/internal/model"
)

func TestSheetRecognizer_Recognize(t *testing.T) {
	t.Parallel()

	r := NewSheetRecognizer()
	cases := []struct {
		sheet   string
		headers []string
		want    model.SourceKind
	}{
		{"Sheet1", []string{"物料名称", "物料分类名称", "入库", "出库", "结存"}, model.SourceInventory},
		{"Sheet1", []string{"入库日期", "物料名称", "主数量", "物料大类"}, model.SourceProduction},
		{"Sheet1", []string{"发票日期", "物料名称", "主数量", "本币无税金额", "客户名称"}, model.SourceSales},
		{"价格表5月6号", nil, model.SourcePrice},
		{"Sheet1", []string{"随便", "什么"}, "unknown"},
	}
	for _, c := range cases {
		res := r.Recognize(c.sheet, c.headers)
		if res.Source != c.want {
			t.Fatalf("headers %v: got %s (%.2f), want %s", c.headers, res.Source, res.Confidence, c.want)
		}
	}
}
