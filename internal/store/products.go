package store

import (
	"database/sql"
	"errors"
	"fmt"

	"springsnow/internal/model"
)

// upsertProductSQL 按名称插入或补全分类，返回数据库中的 product_id
const upsertProductSQL = `
	INSERT INTO Products (product_name, sku, category) VALUES (?, ?, ?)
	ON CONFLICT(product_name) DO UPDATE SET
		category = COALESCE(Products.category, excluded.category),
		sku = COALESCE(Products.sku, excluded.sku)
	RETURNING product_id
`

// upsertProductsTx 批量写入产品，返回 名称 -> 数据库 product_id
func upsertProductsTx(tx *sql.Tx, products []model.Product) (map[string]int64, error) {
	stmt, err := tx.Prepare(upsertProductSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	ids := make(map[string]int64, len(products))
	for _, p := range products {
		var id int64
		if err := stmt.QueryRow(p.Name, p.SKU, p.Category).Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to upsert product %s: %w", p.Name, err)
		}
		ids[p.Name] = id
	}
	return ids, nil
}

// ensureProductTx 按名称查找产品，不存在时创建
func ensureProductTx(tx *sql.Tx, name, category string) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT product_id FROM Products WHERE product_name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to query product %s: %w", name, err)
	}

	res, err := tx.Exec("INSERT INTO Products (product_name, category) VALUES (?, ?)", name, model.String(category))
	if err != nil {
		return 0, fmt.Errorf("failed to create product %s: %w", name, err)
	}
	return res.LastInsertId()
}

// ListProducts 全部产品，按名称排序
func (s *Store) ListProducts() ([]model.Product, error) {
	rows, err := s.db.Query("SELECT product_id, product_name, sku, category FROM Products ORDER BY product_name")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	out := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Category); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListProductsByID 全部产品，按 product_id 排序（导出使用）
func (s *Store) ListProductsByID() ([]model.Product, error) {
	rows, err := s.db.Query("SELECT product_id, product_name, sku, category FROM Products ORDER BY product_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Category); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
