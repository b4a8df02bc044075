package store

import (
	"database/sql"
	"fmt"

	"springsnow/internal/filter"
	"springsnow/internal/model"
)

// InsertPriceAdjustments 写入调价记录，产品不存在时自动创建
func (s *Store) InsertPriceAdjustments(adjs []model.PriceAdjustment) (int, error) {
	if len(adjs) == 0 {
		return 0, nil
	}

	// 产品 id 只在事务内解析，回滚时不回写调用方的切片
	ids := make([]int64, len(adjs))
	err := s.withTx(func(tx *sql.Tx) error {
		for i, a := range adjs {
			ids[i] = a.ProductID
			if ids[i] != 0 {
				continue
			}
			id, err := ensureProductTx(tx, a.ProductName, a.Category)
			if err != nil {
				return err
			}
			ids[i] = id
		}

		stmt, err := tx.Prepare(`
			INSERT INTO PriceAdjustments (
				adjustment_date, product_id, product_name, specification, adjustment_count,
				previous_price, current_price, price_difference, category
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, a := range adjs {
			if _, err := stmt.Exec(
				a.AdjustmentDate, ids[i], a.ProductName, model.String(a.Specification), a.AdjustmentCount,
				a.PreviousPrice, a.CurrentPrice, a.PriceDifference, model.String(a.Category),
			); err != nil {
				return fmt.Errorf("failed to insert price adjustment %s/%s: %w", a.AdjustmentDate, a.ProductName, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(adjs), nil
}

const priceColumns = `
	pa.adjustment_id, pa.adjustment_date, pa.product_id, pa.product_name,
	COALESCE(pa.specification, ''), pa.adjustment_count,
	pa.previous_price, pa.current_price, pa.price_difference, COALESCE(pa.category, '')
`

func (s *Store) queryPriceAdjustments(query string, args ...any) ([]model.PriceAdjustment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price adjustments: %w", err)
	}
	defer rows.Close()

	out := make([]model.PriceAdjustment, 0)
	for rows.Next() {
		var a model.PriceAdjustment
		if err := rows.Scan(
			&a.ID, &a.AdjustmentDate, &a.ProductID, &a.ProductName,
			&a.Specification, &a.AdjustmentCount,
			&a.PreviousPrice, &a.CurrentPrice, &a.PriceDifference, &a.Category,
		); err != nil {
			return nil, fmt.Errorf("failed to scan price adjustment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListPriceAdjustments 全部调价记录，按日期、次数排序
func (s *Store) ListPriceAdjustments() ([]model.PriceAdjustment, error) {
	return s.queryPriceAdjustments(`SELECT ` + priceColumns + ` FROM PriceAdjustments pa ORDER BY pa.adjustment_date, pa.adjustment_count, pa.adjustment_id`)
}

// PriceChanges 区间内 |价差| >= minDiff 的调价，按日期降序、|价差| 降序
func (s *Store) PriceChanges(start, end string, minDiff float64) ([]model.PriceAdjustment, error) {
	return s.queryPriceAdjustments(`
		SELECT `+priceColumns+`
		FROM PriceAdjustments pa
		JOIN Products p ON pa.product_id = p.product_id
		WHERE pa.adjustment_date BETWEEN ? AND ?
			AND ABS(pa.price_difference) >= ?
			AND `+filter.PriceAdjustmentClause("pa", false)+`
		ORDER BY pa.adjustment_date DESC, ABS(pa.price_difference) DESC
	`, start, end, minDiff)
}

// PriceTrends 区间内调价走势，productName 为空时返回全部产品
func (s *Store) PriceTrends(start, end, productName string) ([]model.PriceAdjustment, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM PriceAdjustments pa
		JOIN Products p ON pa.product_id = p.product_id
		WHERE pa.adjustment_date BETWEEN ? AND ?
			AND ` + filter.PriceAdjustmentClause("pa", false)
	args := []any{start, end}
	if productName != "" {
		query += " AND pa.product_name = ?"
		args = append(args, productName)
	}
	query += " ORDER BY pa.adjustment_date ASC, pa.adjustment_count ASC"
	return s.queryPriceAdjustments(query, args...)
}
