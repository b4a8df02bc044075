package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"springsnow/internal/config"
	"springsnow/internal/metrics"
	"springsnow/internal/quality"
)

var qualityOut string

var qualityCmd = &cobra.Command{
	Use:   "quality",
	Short: "检查源文件数据质量",
	Long: `对收发存、入库、销售三个源文件做完整性、准确性、一致性、有效性检查，
写出 quality_report_<id>.json 与 .html。

EXAMPLES:

  springsnow quality                 # 写入 data/reports
  springsnow quality --out ./qa      # 指定输出目录`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := qualityOut
		if out == "" {
			out = config.GetDataPath(cfg, "reports", "")
		}

		opts := quality.OptionsFromConfig(cfg.Quality)
		opts.Metrics = metrics.Default
		rep, err := quality.NewMonitor(opts).Run(cmd.Context(), quality.SourcesFromConfig(cfg))
		if err != nil {
			return err
		}
		for _, w := range rep.Warnings {
			color.Yellow("  ! %s", w)
		}

		jsonPath, htmlPath, err := quality.Save(out, rep)
		if err != nil {
			return err
		}

		printLevel(rep.Level, "总体评分 %.1f%% (%s)", rep.OverallScore*100, rep.Level.Label())
		fmt.Printf("  完整性 %.1f%%  准确性 %.1f%%  一致性 %.1f%%  有效性 %.1f%%\n",
			rep.Scores.Completeness*100, rep.Scores.Accuracy*100, rep.Scores.Consistency*100, rep.Scores.Validity*100)
		fmt.Printf("  记录 %d 条, 问题 %d 个 (严重 %d)\n", rep.TotalRecords, rep.IssueCount, rep.CriticalIssues)

		for _, d := range rep.Datasets {
			printLevel(d.Level, "  %-12s %6.1f%%  %d 条, %d 个问题", d.Name, d.Score*100, d.Records, len(d.Issues))
		}
		if len(rep.Recommendations) > 0 {
			fmt.Println("\n建议:")
			for _, r := range rep.Recommendations {
				fmt.Printf("  - %s\n", r)
			}
		}

		fmt.Println()
		color.Green("✓ %s", jsonPath)
		color.Green("✓ %s", htmlPath)
		return nil
	},
}

// printLevel 按等级着色输出
func printLevel(level quality.Level, format string, args ...any) {
	switch level {
	case quality.LevelExcellent, quality.LevelGood:
		color.Green(format, args...)
	case quality.LevelAcceptable:
		color.Yellow(format, args...)
	default:
		color.Red(format, args...)
	}
}

func init() {
	qualityCmd.Flags().StringVarP(&qualityOut, "out", "o", "", "输出目录 (默认: data/reports)")
	rootCmd.AddCommand(qualityCmd)
}
