package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"springsnow/internal/config"
	"springsnow/internal/importer"
	"springsnow/internal/metrics"
	"springsnow/internal/model"
)

var (
	importClear bool

	pricesFile  string
	pricesClear bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "导入收发存、入库与销售表",
	Long: `读取 excel_dir 下的三个源文件，过滤、合并为日指标后写入 SQLite。

EXAMPLES:

  springsnow import            # 追加/覆盖同日同产品的日指标
  springsnow import --clear    # 先清空日指标再导入`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}

		opts := importer.OptionsFromConfig(cfg)
		opts.ClearExisting = importClear

		faint := color.New(color.Faint)
		coordinator := importer.NewCoordinator(st, cfg, metrics.Default)
		var summary *model.ImportSummary
		for event := range coordinator.Import(cmd.Context(), opts) {
			switch event.Type {
			case "error":
				return errors.New(event.Message)
			case "done":
				summary, _ = event.Data.(*model.ImportSummary)
			default:
				faint.Println("  " + event.Message)
			}
		}
		if summary == nil {
			return errors.New("导入未完成")
		}

		color.Green("✓ 导入完成 (run %s)", summary.RunID)
		fmt.Printf("  产品 %d 个, 日期 %d 天, 日指标 %d 条, 丢弃全零行 %d 条\n",
			summary.Products, summary.Dates, summary.Metrics, summary.DroppedZeroRows)
		for _, src := range []model.SourceKind{model.SourceInventory, model.SourceProduction, model.SourceSales} {
			fmt.Printf("  %-12s 保留 %d 行\n", src, summary.Sources[string(src)])
		}
		return nil
	},
}

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "导入调价表并列出显著调价",
	Long: `读取调价表（每个 sheet 为一天，如 "6.3"），写入 PriceAdjustments，
并列出价差不小于 min_price_diff 的调价记录与缺失日期。

EXAMPLES:

  springsnow prices                       # 使用配置中的 price_file
  springsnow prices --file 调价表.xlsx     # 指定文件
  springsnow prices --clear               # 先清空调价记录`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		path := pricesFile
		if path == "" {
			path = config.SourcePath(cfg, cfg.Sources.PriceFile)
		}

		res, err := importer.NewCoordinator(st, cfg, metrics.Default).ImportPrices(cmd.Context(), path, pricesClear)
		if err != nil {
			return err
		}

		color.Green("✓ 调价记录 %d 条, 覆盖 %d 天", res.Records, len(res.Dates))
		for _, s := range res.Skipped {
			color.Yellow("  跳过 sheet: %s", s)
		}
		if len(res.Missing) > 0 {
			color.Yellow("  缺失日期: %v", res.Missing)
		}

		if len(res.Significant) == 0 {
			fmt.Printf("  没有价差 ≥ %.0f 的调价\n", cfg.Business.MinPriceDiff)
			return nil
		}
		fmt.Printf("\n显著调价 (价差 ≥ %.0f 元/吨):\n", cfg.Business.MinPriceDiff)
		up, down := color.New(color.FgRed), color.New(color.FgGreen)
		for _, a := range res.Significant {
			c := up
			if a.PriceDifference < 0 {
				c = down
			}
			fmt.Printf("  %s  %-16s %10.0f  %s\n", a.AdjustmentDate, a.ProductName, a.CurrentPrice, c.Sprintf("%+.0f", a.PriceDifference))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importClear, "clear", false, "导入前清空日指标")
	rootCmd.AddCommand(importCmd)

	pricesCmd.Flags().StringVar(&pricesFile, "file", "", "调价表路径 (默认: 配置中的 price_file)")
	pricesCmd.Flags().BoolVar(&pricesClear, "clear", false, "导入前清空调价记录")
	rootCmd.AddCommand(pricesCmd)
}
