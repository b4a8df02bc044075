package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"

	"springsnow/internal/calculator"
	"springsnow/internal/config"
	"springsnow/internal/parser"
)

// LoadInput 按配置读取报告源文件
// 收发存、入库、销售为必需文件；调价表、价格对比与行业数据缺失时只记录警告
func LoadInput(ctx context.Context, cfg *config.AppConfig) (*Input, []string, error) {
	src := cfg.Sources
	in := &Input{}
	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		warnings = append(warnings, msg)
		log.Warn().Msg(msg)
	}

	var err error
	if in.Inventory, _, err = parser.LoadInventory(config.SourcePath(cfg, src.InventoryFile), ""); err != nil {
		return nil, warnings, err
	}
	if in.Production, _, err = parser.LoadProduction(config.SourcePath(cfg, src.ProductionFile), ""); err != nil {
		return nil, warnings, err
	}
	if in.Sales, _, err = parser.LoadSales(config.SourcePath(cfg, src.SalesFile), parser.SalesOptions{TaxRate: cfg.Business.TaxRate}); err != nil {
		return nil, warnings, err
	}
	if err := ctx.Err(); err != nil {
		return nil, warnings, err
	}

	if path := config.SourcePath(cfg, src.PriceFile); exists(path) {
		book, err := parser.LoadPriceBook(path, cfg.Business.PriceYear)
		if err != nil {
			warn("调价表读取失败: %v", err)
		} else {
			in.Prices, in.PriceDates = book.Adjustments, book.Dates
		}
	} else {
		warn("未找到调价表: %s", path)
	}

	if path := config.SourcePath(cfg, src.ComparisonFile); exists(path) {
		rows, err := parser.LoadComparison(path)
		if err != nil {
			warn("价格对比表读取失败: %v", err)
		} else {
			in.Comparisons = rows
		}
	} else {
		warn("未找到价格对比表: %s", path)
	}

	products := make([]string, 0, len(src.IndustryFiles))
	for product := range src.IndustryFiles {
		products = append(products, product)
	}
	sort.Strings(products)
	for _, product := range products {
		path := config.SourcePath(cfg, src.IndustryFiles[product])
		if !exists(path) {
			warn("未找到行业数据 %s: %s", product, path)
			continue
		}
		series, err := parser.LoadIndustrySeries(path, product)
		if err != nil {
			warn("行业数据 %s 读取失败: %v", product, err)
			continue
		}
		in.Industry = append(in.Industry, series)
	}
	return in, warnings, nil
}

// OptionsFromConfig 报告口径
func OptionsFromConfig(cfg *config.AppConfig) Options {
	b := cfg.Business
	return Options{
		TaxRate:      b.TaxRate,
		RatioClip:    b.RatioClip,
		MinPriceDiff: b.MinPriceDiff,
		Thresholds: calculator.Thresholds{
			Clip:         b.RatioClip,
			AbnormalLow:  b.AbnormalRatioLow,
			AbnormalHigh: b.AbnormalRatioHigh,
			Warning:      b.RatioWarning,
		},
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
