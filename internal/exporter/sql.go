package exporter

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"springsnow/internal/model"
)

//go:embed d1_schema.sql
var d1Schema string

// DefaultBatchSize DailyMetrics 每批 INSERT 条数
const DefaultBatchSize = 1000

// Source 导出所需的数据读取接口（*store.Store 实现）
type Source interface {
	ListProductsByID() ([]model.Product, error)
	ListDailyMetrics() ([]model.DailyMetric, error)
	ListPriceAdjustments() ([]model.PriceAdjustment, error)
}

// Dataset 一次导出的全部数据
type Dataset struct {
	Products []model.Product
	Metrics  []model.DailyMetric
	Prices   []model.PriceAdjustment
}

// LoadDataset 从 Source 读取全部数据
func LoadDataset(src Source) (*Dataset, error) {
	products, err := src.ListProductsByID()
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	metrics, err := src.ListDailyMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to list daily metrics: %w", err)
	}
	prices, err := src.ListPriceAdjustments()
	if err != nil {
		return nil, fmt.Errorf("failed to list price adjustments: %w", err)
	}
	return &Dataset{Products: products, Metrics: metrics, Prices: prices}, nil
}

// SQLOptions SQL 导出选项
type SQLOptions struct {
	BatchSize     int
	SchemaPrefix  string
	IncludeSchema bool
	RunID         string
	GeneratedAt   time.Time
}

// SQLStats 导出统计
type SQLStats struct {
	Products int `json:"products"`
	Metrics  int `json:"metrics"`
	Prices   int `json:"prices"`
	Batches  int `json:"batches"`
}

// SQLWriter 生成可由 wrangler d1 execute 执行的 SQL 文件
type SQLWriter struct {
	w    *bufio.Writer
	opts SQLOptions
	err  error
}

// NewSQLWriter 创建 SQLWriter
func NewSQLWriter(w io.Writer, opts SQLOptions) *SQLWriter {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}
	return &SQLWriter{w: bufio.NewWriter(w), opts: opts}
}

func (s *SQLWriter) printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

func (s *SQLWriter) table(name string) string {
	return s.opts.SchemaPrefix + name
}

// Write 写出表头注释、可选建表语句、Products、分批 DailyMetrics 与 PriceAdjustments
func (s *SQLWriter) Write(ds *Dataset) (SQLStats, error) {
	stats := SQLStats{Products: len(ds.Products), Metrics: len(ds.Metrics), Prices: len(ds.Prices)}

	s.printf("-- 春雪食品产销分析数据导出\n")
	s.printf("-- 单位: 产量/销量/库存为吨, 价格为元/吨(含税)\n")
	s.printf("-- Generated at: %s\n", s.opts.GeneratedAt.Format("2006-01-02 15:04:05"))
	s.printf("-- Products: %d, DailyMetrics: %d, PriceAdjustments: %d\n", stats.Products, stats.Metrics, stats.Prices)
	if s.opts.RunID != "" {
		s.printf("-- Run ID: %s\n", s.opts.RunID)
	}
	s.printf("\n")

	if s.opts.IncludeSchema {
		s.printf("-- Schema --\n%s\n", strings.ReplaceAll(d1Schema, "{prefix}", s.opts.SchemaPrefix))
	}

	s.printf("-- Products Data --\n")
	for _, p := range ds.Products {
		s.printf("INSERT OR REPLACE INTO %s (product_id, product_name, sku, category) VALUES (%d, %s, %s, %s);\n",
			s.table("Products"), p.ID, Quote(p.Name), QuoteNullable(p.SKU), QuoteNullable(p.Category))
	}
	s.printf("\n-- Inserted %d products\n\n", len(ds.Products))

	s.printf("-- DailyMetrics Data --\n")
	for start := 0; start < len(ds.Metrics); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(ds.Metrics))
		stats.Batches++
		s.printf("-- Batch %d --\n", stats.Batches)
		for _, m := range ds.Metrics[start:end] {
			s.printf("INSERT INTO %s (record_date, product_id, production_volume, sales_volume, sales_amount, inventory_level, average_price, inventory_turnover_days) VALUES (%s, %d, %s, %s, %s, %s, %s, %s);\n",
				s.table("DailyMetrics"), Quote(m.RecordDate), m.ProductID,
				Number(m.ProductionVolume), Number(m.SalesVolume), Number(m.SalesAmount),
				Number(m.InventoryLevel), Number(m.AveragePrice), Number(m.InventoryTurnoverDays))
		}
		s.printf("\n")
	}

	if len(ds.Prices) > 0 {
		s.printf("-- PriceAdjustments Data --\n")
		for _, a := range ds.Prices {
			s.printf("INSERT INTO %s (adjustment_date, product_id, product_name, specification, adjustment_count, previous_price, current_price, price_difference, category) VALUES (%s, %d, %s, %s, %d, %s, %s, %s, %s);\n",
				s.table("PriceAdjustments"), Quote(a.AdjustmentDate), a.ProductID, Quote(a.ProductName),
				QuoteNullable(model.String(a.Specification)), a.AdjustmentCount, Number(a.PreviousPrice),
				formatFloat(a.CurrentPrice), formatFloat(a.PriceDifference), QuoteNullable(model.String(a.Category)))
		}
		s.printf("\n")
	}

	if s.err != nil {
		return stats, fmt.Errorf("failed to write sql: %w", s.err)
	}
	if err := s.w.Flush(); err != nil {
		return stats, fmt.Errorf("failed to flush sql: %w", err)
	}
	return stats, nil
}

// WriteSQLFile 从 Source 读取数据并写入 path
func WriteSQLFile(path string, src Source, opts SQLOptions) (SQLStats, error) {
	ds, err := LoadDataset(src)
	if err != nil {
		return SQLStats{}, err
	}

	f, err := os.Create(path)
	if err != nil {
		return SQLStats{}, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	stats, err := NewSQLWriter(f, opts).Write(ds)
	if err != nil {
		return stats, err
	}
	log.Info().
		Str("file", path).
		Int("products", stats.Products).
		Int("metrics", stats.Metrics).
		Int("prices", stats.Prices).
		Int("batches", stats.Batches).
		Msg("SQL 文件已生成")
	return stats, f.Close()
}

// Quote 单引号字符串字面量，内部单引号加倍
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteNullable nil 或空串输出 NULL
func QuoteNullable(s *string) string {
	if s == nil || *s == "" {
		return "NULL"
	}
	return Quote(*s)
}

// Number nil 输出 NULL，否则为最短精确十进制
func Number(v *float64) string {
	if v == nil {
		return "NULL"
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NULL"
	}
	return decimal.NewFromFloat(v).String()
}
