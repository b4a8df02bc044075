package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"springsnow/internal/calculator"
	"springsnow/internal/config"
	"springsnow/internal/metrics"
	"springsnow/internal/model"
	"springsnow/internal/parser"
	"springsnow/internal/store"
)

// 导入种类，写入 import_logs.kind
const (
	KindMetrics = "metrics"
	KindPrices  = "prices"
)

// Coordinator 导入协调器
type Coordinator struct {
	store   *store.Store
	cfg     *config.AppConfig
	metrics *metrics.Metrics
}

// NewCoordinator 创建导入协调器；m 为 nil 时使用 metrics.Default
func NewCoordinator(st *store.Store, cfg *config.AppConfig, m *metrics.Metrics) *Coordinator {
	if m == nil {
		m = metrics.Default
	}
	return &Coordinator{store: st, cfg: cfg, metrics: m}
}

// ImportOptions 导入选项
type ImportOptions struct {
	InventoryPath  string
	ProductionPath string
	SalesPath      string
	ClearExisting  bool // 是否清空现有日指标
}

// OptionsFromConfig 按配置中的 excel_dir 与文件名组装导入选项
func OptionsFromConfig(cfg *config.AppConfig) ImportOptions {
	return ImportOptions{
		InventoryPath:  config.SourcePath(cfg, cfg.Sources.InventoryFile),
		ProductionPath: config.SourcePath(cfg, cfg.Sources.ProductionFile),
		SalesPath:      config.SourcePath(cfg, cfg.Sources.SalesFile),
	}
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`      // start/info/file_done/done/error
	Message   string      `json:"message"`   // 事件消息
	Data      interface{} `json:"data"`      // 附加数据
	Timestamp time.Time   `json:"timestamp"` // 时间戳
}

// loaded 三个源文件的解析结果
type loaded struct {
	inventory  []model.InventoryItem
	production []model.ProductionRecord
	sales      []model.SalesRecord
	reports    []*parser.LoadReport
}

// Import 执行导入，返回进度通道
func (c *Coordinator) Import(ctx context.Context, opts ImportOptions) <-chan ProgressEvent {
	progressChan := make(chan ProgressEvent, 100)

	go func() {
		defer close(progressChan)
		if _, err := c.Run(ctx, opts, progressChan); err != nil {
			c.sendProgress(progressChan, ProgressEvent{
				Type:      "error",
				Message:   err.Error(),
				Timestamp: time.Now(),
			})
		}
	}()

	return progressChan
}

// Run 同步执行导入；progressChan 可为 nil
func (c *Coordinator) Run(ctx context.Context, opts ImportOptions, progressChan chan ProgressEvent) (*model.ImportSummary, error) {
	startTime := time.Now()
	runID := uuid.NewString()

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "start",
		Message: "开始导入 Excel 文件",
		Data: map[string]string{
			"run_id":     runID,
			"inventory":  filepath.Base(opts.InventoryPath),
			"production": filepath.Base(opts.ProductionPath),
			"sales":      filepath.Base(opts.SalesPath),
		},
		Timestamp: time.Now(),
	})

	logID, err := c.store.CreateImportLog(runID, KindMetrics, filepath.Dir(opts.SalesPath))
	if err != nil {
		return nil, err
	}

	summary, err := c.run(ctx, runID, logID, opts, progressChan)
	c.metrics.ObserveImport(KindMetrics, err, time.Since(startTime))
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("导入失败")
		if uerr := c.store.UpdateImportLog(logID, store.ImportLogUpdate{Status: "failed", ErrorMessage: err.Error()}); uerr != nil {
			log.Warn().Err(uerr).Msg("更新导入日志失败")
		}
		return nil, err
	}

	c.sendProgress(progressChan, ProgressEvent{
		Type:      "done",
		Message:   "导入完成",
		Data:      summary,
		Timestamp: time.Now(),
	})
	log.Info().
		Str("run_id", runID).
		Int("products", summary.Products).
		Int("metrics", summary.Metrics).
		Int("dropped_zero_rows", summary.DroppedZeroRows).
		Dur("duration", time.Since(startTime)).
		Msg("导入完成")
	return summary, nil
}

func (c *Coordinator) run(ctx context.Context, runID string, logID int64, opts ImportOptions, progressChan chan ProgressEvent) (*model.ImportSummary, error) {
	data, err := c.load(ctx, opts, progressChan)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := calculator.BuildDailyMetrics(calculator.MetricsInput{
		Inventory:  data.inventory,
		Production: data.production,
		Sales:      data.sales,
	}, calculator.MetricsOptions{
		TaxRate:         c.cfg.Business.TaxRate,
		TurnoverCapDays: c.cfg.Business.TurnoverCapDays,
		DropZeroRows:    c.cfg.Business.DropZeroRows,
	})

	c.sendProgress(progressChan, ProgressEvent{
		Type:    "info",
		Message: fmt.Sprintf("合并完成: %d 个产品, %d 天, %d 条日指标", len(result.Products), len(result.Dates), len(result.Metrics)),
		Data: map[string]int{
			"products":          len(result.Products),
			"dates":             len(result.Dates),
			"metrics":           len(result.Metrics),
			"dropped_zero_rows": result.DroppedZeroRows,
		},
		Timestamp: time.Now(),
	})

	saved, err := c.store.SaveMetrics(result.Products, result.Metrics, store.SaveOptions{Clear: opts.ClearExisting})
	if err != nil {
		return nil, err
	}
	c.metrics.MetricsWritten.Add(float64(saved.Metrics))

	for _, r := range data.reports {
		if err := c.store.InsertImportSource(logID, r); err != nil {
			log.Warn().Err(err).Str("file", r.File).Msg("记录源文件失败")
		}
	}

	if err := c.store.UpdateImportLog(logID, store.ImportLogUpdate{
		Status:          "completed",
		Products:        saved.Products,
		Metrics:         saved.Metrics,
		DroppedZeroRows: result.DroppedZeroRows,
	}); err != nil {
		return nil, err
	}
	if err := c.store.SetLastRun(runID, time.Now().Format(time.RFC3339)); err != nil {
		return nil, err
	}

	summary := &model.ImportSummary{
		RunID:           runID,
		Products:        saved.Products,
		Metrics:         saved.Metrics,
		DroppedZeroRows: result.DroppedZeroRows,
		Dates:           len(result.Dates),
		Sources:         make(map[string]int, len(data.reports)),
	}
	for _, r := range data.reports {
		summary.Sources[string(r.Source)] = r.KeptRows
	}
	return summary, nil
}

// load 并发读取三个源文件，任一失败即整体失败
func (c *Coordinator) load(ctx context.Context, opts ImportOptions, progressChan chan ProgressEvent) (*loaded, error) {
	var (
		data      loaded
		invReport *parser.LoadReport
		prdReport *parser.LoadReport
		slsReport *parser.LoadReport
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, report, err := parser.LoadInventory(opts.InventoryPath, "")
		if err != nil {
			return fmt.Errorf("failed to load inventory %s: %w", opts.InventoryPath, err)
		}
		data.inventory, invReport = items, report
		return gctx.Err()
	})
	g.Go(func() error {
		records, report, err := parser.LoadProduction(opts.ProductionPath, "")
		if err != nil {
			return fmt.Errorf("failed to load production %s: %w", opts.ProductionPath, err)
		}
		data.production, prdReport = records, report
		return gctx.Err()
	})
	g.Go(func() error {
		records, report, err := parser.LoadSales(opts.SalesPath, parser.SalesOptions{TaxRate: c.cfg.Business.TaxRate})
		if err != nil {
			return fmt.Errorf("failed to load sales %s: %w", opts.SalesPath, err)
		}
		data.sales, slsReport = records, report
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	data.reports = []*parser.LoadReport{invReport, prdReport, slsReport}
	for _, r := range data.reports {
		c.metrics.ObserveLoad(string(r.Source), r.TotalRows, r.KeptRows, r.Filter.Dropped)
		c.sendProgress(progressChan, ProgressEvent{
			Type:      "file_done",
			Message:   fmt.Sprintf("%s 解析完成: %d/%d 行保留", filepath.Base(r.File), r.KeptRows, r.TotalRows),
			Data:      r,
			Timestamp: time.Now(),
		})
	}
	return &data, nil
}

// PriceImportResult 调价表导入结果
type PriceImportResult struct {
	RunID       string                  `json:"runId"`
	Records     int                     `json:"records"`
	Dates       []string                `json:"dates"`
	Missing     []string                `json:"missingDates"`
	Significant []model.PriceAdjustment `json:"significant"`
	Skipped     []string                `json:"skippedSheets,omitempty"`
}

// ImportPrices 读取调价表并写入 PriceAdjustments
func (c *Coordinator) ImportPrices(ctx context.Context, path string, clear bool) (*PriceImportResult, error) {
	startTime := time.Now()
	runID := uuid.NewString()

	logID, err := c.store.CreateImportLog(runID, KindPrices, path)
	if err != nil {
		return nil, err
	}

	res, err := c.importPrices(ctx, runID, logID, path, clear)
	c.metrics.ObserveImport(KindPrices, err, time.Since(startTime))
	if err != nil {
		if uerr := c.store.UpdateImportLog(logID, store.ImportLogUpdate{Status: "failed", ErrorMessage: err.Error()}); uerr != nil {
			log.Warn().Err(uerr).Msg("更新导入日志失败")
		}
		return nil, err
	}
	return res, nil
}

func (c *Coordinator) importPrices(ctx context.Context, runID string, logID int64, path string, clear bool) (*PriceImportResult, error) {
	book, err := parser.LoadPriceBook(path, c.cfg.Business.PriceYear)
	if err != nil {
		return nil, fmt.Errorf("failed to load price book %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(book.Adjustments) == 0 {
		return nil, errors.New("no price adjustments found")
	}

	if clear {
		if err := c.store.ClearPriceAdjustments(); err != nil {
			return nil, err
		}
	}
	n, err := c.store.InsertPriceAdjustments(book.Adjustments)
	if err != nil {
		return nil, err
	}
	c.metrics.PriceRecords.Add(float64(n))
	c.metrics.ObserveLoad(string(model.SourcePrice), book.Report.TotalRows, book.Report.KeptRows, nil)

	if err := c.store.InsertImportSource(logID, book.Report); err != nil {
		log.Warn().Err(err).Msg("记录调价表失败")
	}
	if err := c.store.UpdateImportLog(logID, store.ImportLogUpdate{Status: "completed", PriceRecords: n}); err != nil {
		return nil, err
	}
	if err := c.store.SetLastPriceRun(runID); err != nil {
		return nil, err
	}

	res := &PriceImportResult{
		RunID:       runID,
		Records:     n,
		Significant: calculator.SignificantChanges(book.Adjustments, c.cfg.Business.MinPriceDiff),
		Skipped:     book.Skipped,
	}
	for _, d := range book.Dates {
		res.Dates = append(res.Dates, parser.FormatDate(d))
	}
	for _, d := range calculator.MissingDates(book.Dates) {
		res.Missing = append(res.Missing, parser.FormatDate(d))
	}
	log.Info().Str("run_id", runID).Int("records", n).Int("significant", len(res.Significant)).Msg("调价表导入完成")
	return res, nil
}

// sendProgress 发送进度事件
func (c *Coordinator) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	if ch == nil {
		return
	}
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}
