package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jszwec/csvutil"

	"springsnow/internal/model"
)

// utf8BOM 让 Excel 正确识别中文
const utf8BOM = "\ufeff"

// WriteCSV 以 csv 标签列序写出日指标
func WriteCSV(w io.Writer, metrics []model.DailyMetric) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(metrics) == 0 {
		if err := enc.EncodeHeader(model.DailyMetric{}); err != nil {
			return fmt.Errorf("failed to encode csv header: %w", err)
		}
	}
	for _, m := range metrics {
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("failed to encode %s/%d: %w", m.RecordDate, m.ProductID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile 从 Source 读取日指标写入 path，返回行数
func WriteCSVFile(path string, src Source) (int, error) {
	metrics, err := src.ListDailyMetrics()
	if err != nil {
		return 0, fmt.Errorf("failed to list daily metrics: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, metrics); err != nil {
		return 0, err
	}
	return len(metrics), f.Close()
}
