package parser

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

type fixtureSheet struct {
	name string
	rows [][]any
}

// writeWorkbook 在临时目录生成测试工作簿
func writeWorkbook(t *testing.T, sheets ...fixtureSheet) string {
	t.Helper()

	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		for r, row := range s.rows {
			axis, _ := excelize.CoordinatesToCellName(1, r+1)
			values := row
			if err := f.SetSheetRow(s.name, axis, &values); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
