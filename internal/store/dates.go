package store

import "fmt"

// DateStat 有数据的日期统计
type DateStat struct {
	Date          string `json:"date"`
	MetricCount   int    `json:"metricCount"`
	ProductsCount int    `json:"productCount"`
}

// ListAvailableDates 列出 DailyMetrics 中存在数据的日期（升序）
func (s *Store) ListAvailableDates() ([]DateStat, error) {
	rows, err := s.db.Query(`
		SELECT record_date, COUNT(1), COUNT(DISTINCT product_id)
		FROM DailyMetrics
		GROUP BY record_date
		ORDER BY record_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query available dates failed: %w", err)
	}
	defer rows.Close()

	out := make([]DateStat, 0)
	for rows.Next() {
		var it DateStat
		if err := rows.Scan(&it.Date, &it.MetricCount, &it.ProductsCount); err != nil {
			return nil, fmt.Errorf("scan available dates failed: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate available dates failed: %w", err)
	}
	return out, nil
}

// DateRange 日指标的最早与最晚日期；无数据时为空串
func (s *Store) DateRange() (start, end string, err error) {
	err = s.db.QueryRow("SELECT COALESCE(MIN(record_date), ''), COALESCE(MAX(record_date), '') FROM DailyMetrics").Scan(&start, &end)
	if err != nil {
		return "", "", fmt.Errorf("query date range failed: %w", err)
	}
	return start, end, nil
}
