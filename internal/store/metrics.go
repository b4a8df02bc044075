package store

import (
	"database/sql"
	"fmt"
	"strings"

	"springsnow/internal/model"
)

const insertMetricSQL = `INSERT INTO DailyMetrics (
	record_date, product_id,
	production_volume, sales_volume, inventory_level,
	average_price, sales_amount, inventory_turnover_days
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// SaveOptions 保存日指标选项
type SaveOptions struct {
	Clear bool // 先清空 DailyMetrics
}

// SaveResult 保存结果
type SaveResult struct {
	Products int
	Metrics  int
}

// SaveMetrics 在一个事务中写入产品与日指标
// 日指标的 product_id 按名称重新映射为数据库中的 ID
func (s *Store) SaveMetrics(products []model.Product, metrics []model.DailyMetric, opts SaveOptions) (SaveResult, error) {
	var res SaveResult
	err := s.withTx(func(tx *sql.Tx) error {
		if opts.Clear {
			if _, err := tx.Exec("DELETE FROM DailyMetrics"); err != nil {
				return fmt.Errorf("failed to clear DailyMetrics: %w", err)
			}
		}

		ids, err := upsertProductsTx(tx, products)
		if err != nil {
			return err
		}
		res.Products = len(ids)

		byOldID := make(map[int64]int64, len(products))
		for _, p := range products {
			byOldID[p.ID] = ids[p.Name]
		}
		remapped := make([]model.DailyMetric, len(metrics))
		for i, m := range metrics {
			if id, ok := byOldID[m.ProductID]; ok {
				m.ProductID = id
			}
			remapped[i] = m
		}

		res.Metrics, err = upsertMetricsTx(tx, remapped)
		return err
	})
	return res, err
}

func upsertMetricsTx(tx *sql.Tx, metrics []model.DailyMetric) (int, error) {
	stmt, err := tx.Prepare("INSERT OR REPLACE" + strings.TrimPrefix(insertMetricSQL, "INSERT"))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range metrics {
		if _, err := stmt.Exec(metricArgs(m)...); err != nil {
			return 0, fmt.Errorf("failed to insert metric %s/%d: %w", m.RecordDate, m.ProductID, err)
		}
	}
	return len(metrics), nil
}

// InsertResult 逐行插入结果
type InsertResult struct {
	Inserted int      `json:"inserted"`
	Total    int      `json:"total"`
	Errors   []string `json:"errors,omitempty"`
}

// InsertDailyMetrics 逐行插入，失败的行（主键冲突、未知产品）跳过并计数
func (s *Store) InsertDailyMetrics(metrics []model.DailyMetric) (InsertResult, error) {
	res := InsertResult{Total: len(metrics)}
	if len(metrics) == 0 {
		return res, nil
	}

	err := s.withTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(insertMetricSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, m := range metrics {
			if _, err := stmt.Exec(metricArgs(m)...); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s/%d: %v", m.RecordDate, m.ProductID, err))
				continue
			}
			res.Inserted++
		}
		return nil
	})
	return res, err
}

func metricArgs(m model.DailyMetric) []any {
	return []any{
		m.RecordDate, m.ProductID,
		m.ProductionVolume, m.SalesVolume, m.InventoryLevel,
		m.AveragePrice, m.SalesAmount, m.InventoryTurnoverDays,
	}
}

// ListDailyMetrics 全部日指标（带产品名），按日期、产品排序
func (s *Store) ListDailyMetrics() ([]model.DailyMetric, error) {
	rows, err := s.db.Query(`
		SELECT
			dm.record_date, dm.product_id, p.product_name,
			dm.production_volume, dm.sales_volume, dm.inventory_level,
			dm.average_price, dm.sales_amount, dm.inventory_turnover_days
		FROM DailyMetrics dm
		JOIN Products p ON dm.product_id = p.product_id
		ORDER BY dm.record_date, dm.product_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily metrics: %w", err)
	}
	defer rows.Close()

	var out []model.DailyMetric
	for rows.Next() {
		var m model.DailyMetric
		if err := rows.Scan(
			&m.RecordDate, &m.ProductID, &m.ProductName,
			&m.ProductionVolume, &m.SalesVolume, &m.InventoryLevel,
			&m.AveragePrice, &m.SalesAmount, &m.InventoryTurnoverDays,
		); err != nil {
			return nil, fmt.Errorf("failed to scan daily metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountDailyMetrics 日指标行数
func (s *Store) CountDailyMetrics() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(1) FROM DailyMetrics").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count daily metrics: %w", err)
	}
	return n, nil
}
