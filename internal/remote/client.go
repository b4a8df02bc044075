package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"springsnow/internal/metrics"
	"springsnow/internal/model"
)

// ImportBatchPath 远程批量导入接口
const ImportBatchPath = "/api/admin/import-batch"

// 默认值
const (
	DefaultBatchSize = 100
	DefaultTimeout   = 30 * time.Second
)

// ErrBatchRejected 远程接口返回非 2xx
var ErrBatchRejected = errors.New("remote rejected batch")

// Options 客户端选项
type Options struct {
	BaseURL       string
	BatchSize     int
	Timeout       time.Duration
	RatePerSecond float64 // <=0 表示不限速
	HTTPClient    *http.Client
	Metrics       *metrics.Metrics
}

// Client 远程导入客户端
type Client struct {
	baseURL   string
	batchSize int
	http      *http.Client
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
}

// NewClient 创建客户端
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("remote api url is empty")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Default
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return &Client{
		baseURL:   base,
		batchSize: opts.BatchSize,
		http:      opts.HTTPClient,
		limiter:   limiter,
		metrics:   opts.Metrics,
	}, nil
}

// Row 远程接口接收的日指标字段
type Row struct {
	RecordDate       string   `json:"record_date"`
	ProductID        int64    `json:"product_id"`
	ProductionVolume *float64 `json:"production_volume"`
	SalesVolume      *float64 `json:"sales_volume"`
	InventoryLevel   *float64 `json:"inventory_level"`
	AveragePrice     *float64 `json:"average_price"`
	SalesAmount      *float64 `json:"sales_amount"`
}

// RowsFromMetrics 转换为远程行
func RowsFromMetrics(metrics []model.DailyMetric) []Row {
	rows := make([]Row, len(metrics))
	for i, m := range metrics {
		rows[i] = Row{
			RecordDate:       m.RecordDate,
			ProductID:        m.ProductID,
			ProductionVolume: m.ProductionVolume,
			SalesVolume:      m.SalesVolume,
			InventoryLevel:   m.InventoryLevel,
			AveragePrice:     m.AveragePrice,
			SalesAmount:      m.SalesAmount,
		}
	}
	return rows
}

// Metric 接收端把远程行还原为日指标
func (r Row) Metric() model.DailyMetric {
	return model.DailyMetric{
		RecordDate:       r.RecordDate,
		ProductID:        r.ProductID,
		ProductionVolume: r.ProductionVolume,
		SalesVolume:      r.SalesVolume,
		InventoryLevel:   r.InventoryLevel,
		AveragePrice:     r.AveragePrice,
		SalesAmount:      r.SalesAmount,
	}
}

type batchRequest struct {
	Data []Row `json:"data"`
}

// BatchResponse 远程接口响应
type BatchResponse struct {
	Success  bool   `json:"success"`
	Inserted int    `json:"inserted"`
	Total    int    `json:"total"`
	Error    string `json:"error,omitempty"`
}

// PushResult 推送结果
type PushResult struct {
	Batches  int `json:"batches"`
	Sent     int `json:"sent"`
	Inserted int `json:"inserted"`
}

// PushDailyMetrics 分批推送；遇到第一个失败的批次即停止
func (c *Client) PushDailyMetrics(ctx context.Context, metrics []model.DailyMetric) (PushResult, error) {
	var res PushResult
	rows := RowsFromMetrics(metrics)
	total := (len(rows) + c.batchSize - 1) / c.batchSize

	for start := 0; start < len(rows); start += c.batchSize {
		end := min(start+c.batchSize, len(rows))
		batchNum := start/c.batchSize + 1

		if err := c.limiter.Wait(ctx); err != nil {
			return res, err
		}
		resp, err := c.postBatch(ctx, rows[start:end])
		if err != nil {
			c.metrics.RemoteBatches.WithLabelValues("failed").Inc()
			log.Error().Err(err).Int("batch", batchNum).Int("total", total).Msg("批次推送失败")
			return res, fmt.Errorf("batch %d/%d: %w", batchNum, total, err)
		}
		c.metrics.RemoteBatches.WithLabelValues("ok").Inc()

		res.Batches++
		res.Sent += end - start
		res.Inserted += resp.Inserted
		log.Info().
			Int("batch", batchNum).
			Int("total", total).
			Int("records", end-start).
			Int("inserted", resp.Inserted).
			Msg("批次推送成功")
	}
	return res, nil
}

func (c *Client) postBatch(ctx context.Context, rows []Row) (*BatchResponse, error) {
	payload, err := json.Marshal(batchRequest{Data: rows})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ImportBatchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrBatchRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out BatchResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return &out, nil
}
