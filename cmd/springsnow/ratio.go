package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"springsnow/internal/calculator"
	"springsnow/internal/config"
	"springsnow/internal/filter"
	"springsnow/internal/parser"
	"springsnow/internal/quality"
	"springsnow/internal/report"
)

var (
	ratioStart string
	ratioEnd   string
)

var ratioCmd = &cobra.Command{
	Use:   "ratio",
	Short: "查看产销率",
	Long: `按日输出产销率（销量 / 产量 × 100）与区间统计，
并按责任部门口径计算部门产销率。

EXAMPLES:

  springsnow ratio                                   # 全部日期
  springsnow ratio --start 2025-11-01 --end 2025-11-30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		start, end := ratioStart, ratioEnd
		if start == "" || end == "" {
			first, last, err := st.DateRange()
			if err != nil {
				return err
			}
			if start == "" {
				start = first
			}
			if end == "" {
				end = last
			}
		}
		if start == "" {
			color.Yellow("没有日指标，请先运行 'springsnow import'")
			return nil
		}

		sales, production, err := st.DailyTotals(start, end)
		if err != nil {
			return err
		}
		clip := cfg.Business.RatioClip
		daily := calculator.DailyRatios(sales, production, clip)
		th := report.OptionsFromConfig(cfg).Thresholds

		fmt.Printf("%-12s %12s %12s %10s\n", "日期", "销量(吨)", "产量(吨)", "产销率")
		for _, d := range daily {
			line := fmt.Sprintf("%-12s %12.2f %12.2f %9.1f%%", d.Date, d.Sales, d.Production, d.Ratio)
			switch {
			case th.IsAbnormal(d.Ratio):
				color.Red("%s", line)
			case th.IsWarning(d.Ratio):
				color.Yellow("%s", line)
			default:
				fmt.Println(line)
			}
		}

		stats := calculator.Stats(daily, clip)
		fmt.Println()
		color.Green("✓ %s ~ %s 平均产销率 %.1f%%", start, end, stats.AvgRatio)
		fmt.Printf("  最低 %.1f%%, 最高 %.1f%%, 有产量 %d 天, 销量 %.2f 吨, 产量 %.2f 吨\n",
			stats.MinRatio, stats.MaxRatio, stats.TotalDays, stats.TotalSales, stats.TotalProduction)

		return printDepartmentRatio()
	},
}

// printDepartmentRatio 源文件齐全时输出部门产销率
func printDepartmentRatio() error {
	salesPath := config.SourcePath(cfg, cfg.Sources.SalesFile)
	invPath := config.SourcePath(cfg, cfg.Sources.InventoryFile)
	for _, p := range []string{salesPath, invPath} {
		if _, err := os.Stat(p); err != nil {
			color.Yellow("\n跳过部门产销率: 未找到 %s", p)
			return nil
		}
	}

	chain := filter.DepartmentChain()
	sales, _, err := parser.LoadSales(salesPath, parser.SalesOptions{TaxRate: cfg.Business.TaxRate, Chain: &chain})
	if err != nil {
		return err
	}
	inventory, _, err := parser.LoadDepartmentInventory(invPath, "")
	if err != nil {
		return err
	}

	res := calculator.DepartmentRatio(sales, inventory, cfg.Business.Department, cfg.Business.RatioClip)
	fmt.Printf("\n部门产销率 (%s):\n", res.Department)
	fmt.Printf("  本部门 %.1f%%  销量 %.2f 吨 / 产量 %.2f 吨\n", res.DeptRatio, res.DeptSales, res.DeptProduction)
	fmt.Printf("  全部门 %.1f%%  销量 %.2f 吨 / 产量 %.2f 吨\n", res.AllRatio, res.AllSales, res.AllProduction)
	for _, p := range res.Products {
		fmt.Printf("  %-16s %8.2f / %8.2f  %6.1f%%\n", p.Name, p.DeptSales, p.Production, p.Ratio)
	}
	fmt.Printf("  数据质量评分 %.2f\n", quality.RatioDataQuality(sales, inventory))
	return nil
}

func init() {
	ratioCmd.Flags().StringVar(&ratioStart, "start", "", "开始日期 YYYY-MM-DD (默认: 最早日期)")
	ratioCmd.Flags().StringVar(&ratioEnd, "end", "", "结束日期 YYYY-MM-DD (默认: 最晚日期)")
	rootCmd.AddCommand(ratioCmd)
}
