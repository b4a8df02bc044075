package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"springsnow/internal/model"
)

// 工作簿中的 Sheet 名
const (
	SheetMetrics  = "日指标"
	SheetProducts = "产品"
	SheetPrices   = "调价记录"
)

// Exporter Excel 导出器：产品、日指标与调价记录各一张 Sheet
type Exporter struct {
	src Source
}

// NewExporter 创建导出器
func NewExporter(src Source) *Exporter {
	return &Exporter{src: src}
}

// ExportOptions 导出选项
type ExportOptions struct {
	Progress func(ProgressEvent)
}

// Export 导出 Excel
func (e *Exporter) Export(opts ExportOptions) (*excelize.File, error) {
	prog := newProgress(opts.Progress)
	prog.report(0, "读取数据")
	ds, err := LoadDataset(e.src)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := fillWorkbook(f, ds, prog); err != nil {
		_ = f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	prog.report(100, "完成")
	return f, nil
}

func fillWorkbook(f *excelize.File, ds *Dataset, prog *progress) error {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("创建表头样式失败: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetMetrics); err != nil {
		return err
	}
	prog.report(10, "写入日指标")
	if err := writeMetricsSheet(f, ds.Metrics, header, prog); err != nil {
		return err
	}

	prog.report(70, "写入产品")
	if _, err := f.NewSheet(SheetProducts); err != nil {
		return err
	}
	rows := make([][]any, 0, len(ds.Products))
	for _, p := range ds.Products {
		rows = append(rows, []any{p.ID, p.Name, deref(p.SKU), deref(p.Category)})
	}
	if err := writeSheet(f, SheetProducts, []any{"产品ID", "产品名称", "SKU", "分类"}, rows, header); err != nil {
		return err
	}

	prog.report(85, "写入调价记录")
	if _, err := f.NewSheet(SheetPrices); err != nil {
		return err
	}
	rows = rows[:0]
	for _, a := range ds.Prices {
		rows = append(rows, []any{
			a.AdjustmentDate, a.ProductName, a.Specification, a.AdjustmentCount,
			nullable(a.PreviousPrice), a.CurrentPrice, a.PriceDifference, a.Category,
		})
	}
	return writeSheet(f, SheetPrices,
		[]any{"调价日期", "品名", "规格", "调价次数", "前价格", "价格", "价差", "分类"}, rows, header)
}

// writeMetricsSheet 日指标行数多，使用 StreamWriter
func writeMetricsSheet(f *excelize.File, metrics []model.DailyMetric, headerStyle int, prog *progress) error {
	sw, err := f.NewStreamWriter(SheetMetrics)
	if err != nil {
		return fmt.Errorf("创建 %s 写入器失败: %w", SheetMetrics, err)
	}
	if err := sw.SetColWidth(1, 1, 12); err != nil {
		return err
	}
	if err := sw.SetColWidth(3, 3, 18); err != nil {
		return err
	}

	titles := []string{"日期", "产品ID", "产品名称", "产量(吨)", "销量(吨)", "库存(吨)", "均价(元/吨)", "销售额(元)", "周转天数"}
	head := make([]any, len(titles))
	for i, t := range titles {
		head[i] = excelize.Cell{StyleID: headerStyle, Value: t}
	}
	if err := sw.SetRow("A1", head); err != nil {
		return err
	}

	for i, m := range metrics {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, []any{
			m.RecordDate, m.ProductID, m.ProductName,
			nullable(m.ProductionVolume), nullable(m.SalesVolume), nullable(m.InventoryLevel),
			nullable(m.AveragePrice), nullable(m.SalesAmount), nullable(m.InventoryTurnoverDays),
		}); err != nil {
			return fmt.Errorf("写入 %s 第 %d 行失败: %w", SheetMetrics, i+2, err)
		}
		prog.rows(10, 69, i+1, len(metrics), "写入日指标")
	}
	return sw.Flush()
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("写入 %s 第 %d 行失败: %w", sheet, i+2, err)
		}
	}
	return nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
