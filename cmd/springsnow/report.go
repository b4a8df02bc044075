package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"springsnow/internal/config"
	"springsnow/internal/report"
	"springsnow/internal/util"
)

var (
	reportOut  string
	reportZip  bool
	reportOpen bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "生成 HTML 看板",
	Long: `直接读取源 Excel，生成库存、产销率、销量价格、调价与行业对比页面。

调价表、价格对比表与行业数据缺失时只打印警告。

EXAMPLES:

  springsnow report                    # 写入 data/reports
  springsnow report --out ./site       # 指定输出目录
  springsnow report --zip --open       # 打包并在浏览器中打开`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := reportOut
		if out == "" {
			out = config.GetDataPath(cfg, "reports", "")
		}

		in, warnings, err := report.LoadInput(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			color.Yellow("  ! %s", w)
		}

		gen, err := report.NewGenerator()
		if err != nil {
			return err
		}
		d := report.Build(*in, report.OptionsFromConfig(cfg))
		files, err := gen.Generate(out, d)
		if err != nil {
			return err
		}

		color.Green("✓ 看板已生成: %s (%d 个文件)", out, len(files))
		fmt.Printf("  产品 %d 个, 平均产销率 %.1f%%, 显著调价 %d 条\n",
			d.Summary.ProductCount, d.Summary.AvgRatio, d.Summary.SignificantChanges)

		if reportZip {
			archive, err := report.Archive(out, time.Now())
			if err != nil {
				return err
			}
			color.Green("✓ 已打包: %s", archive)
		}
		if reportOpen {
			index := filepath.Join(out, report.Pages[0].File)
			if err := util.OpenPath(index); err != nil {
				fmt.Printf("无法自动打开浏览器，请手动打开: %s\n", index)
			}
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "输出目录 (默认: data/reports)")
	reportCmd.Flags().BoolVar(&reportZip, "zip", false, "生成后打包为 zip")
	reportCmd.Flags().BoolVar(&reportOpen, "open", false, "生成后打开首页")
	rootCmd.AddCommand(reportCmd)
}
