package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"springsnow/internal/config"
	"springsnow/internal/exporter"
)

var (
	exportSQLOut     string
	exportRunWrangle bool
	exportLocal      bool

	exportCSVOut  string
	exportXLSXOut string
)

// exportPath 未指定输出时写入 data/exports
func exportPath(out, name string) string {
	if out != "" {
		return out
	}
	return config.GetDataPath(cfg, "exports", name)
}

var exportSQLCmd = &cobra.Command{
	Use:   "export-sql",
	Short: "生成 Cloudflare D1 导入 SQL",
	Long: `把 Products、DailyMetrics 与 PriceAdjustments 写成可由
'wrangler d1 execute' 执行的 SQL 文件，并打印执行命令。

EXAMPLES:

  springsnow export-sql                       # 写入 data/exports/import_data.sql
  springsnow export-sql --out ./import.sql    # 指定输出
  springsnow export-sql --run-wrangler        # 生成后直接执行并核对行数`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		out := exportPath(exportSQLOut, filepath.Base(cfg.Export.SQLFile))
		runID, _, _ := st.GetLastRun()

		stats, err := exporter.WriteSQLFile(out, st, exporter.SQLOptions{
			BatchSize:     cfg.Export.BatchSize,
			SchemaPrefix:  cfg.Export.SchemaPrefix,
			IncludeSchema: cfg.Export.IncludeSchema,
			RunID:         runID,
		})
		if err != nil {
			return err
		}
		color.Green("✓ SQL 已生成: %s", out)
		fmt.Printf("  产品 %d, 日指标 %d (%d 批), 调价 %d\n", stats.Products, stats.Metrics, stats.Batches, stats.Prices)

		w := exporter.Wrangler{Database: cfg.Export.D1Database, Dir: cfg.Export.WranglerDir, Local: exportLocal}
		if !exportRunWrangle {
			command, err := w.Command(out)
			if err != nil {
				return err
			}
			fmt.Println("\n执行导入:")
			fmt.Printf("  cd %s && %s\n", cfg.Export.WranglerDir, command)
			return nil
		}

		output, err := exporter.RunWrangler(cmd.Context(), w, out)
		fmt.Print(output)
		if err != nil {
			return err
		}
		color.Green("✓ 已导入 D1: %s", cfg.Export.D1Database)
		return nil
	},
}

var exportCSVCmd = &cobra.Command{
	Use:   "export-csv",
	Short: "导出日指标 CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		out := exportPath(exportCSVOut, "daily_metrics.csv")
		n, err := exporter.WriteCSVFile(out, st)
		if err != nil {
			return err
		}
		color.Green("✓ 已导出 %d 条日指标: %s", n, out)
		return nil
	},
}

var exportXLSXCmd = &cobra.Command{
	Use:   "export-xlsx",
	Short: "导出 Excel 工作簿（产品、日指标、调价记录）",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		out := exportPath(exportXLSXOut, fmt.Sprintf("springsnow_%s.xlsx", time.Now().Format("20060102")))

		faint := color.New(color.Faint)
		stage := ""
		f, err := exporter.NewExporter(st).Export(exporter.ExportOptions{
			Progress: func(p exporter.ProgressEvent) {
				if p.Stage != stage {
					stage = p.Stage
					faint.Printf("  %3d%% %s\n", p.Percent, p.Stage)
				}
			},
		})
		if err != nil {
			return err
		}
		defer f.Close()

		if err := f.SaveAs(out); err != nil {
			return fmt.Errorf("写入 %s 失败: %w", out, err)
		}
		color.Green("✓ 已导出: %s", out)
		return nil
	},
}

func init() {
	exportSQLCmd.Flags().StringVarP(&exportSQLOut, "out", "o", "", "输出文件 (默认: data/exports/<sql_file>)")
	exportSQLCmd.Flags().BoolVar(&exportRunWrangle, "run-wrangler", false, "生成后执行 wrangler d1 execute")
	exportSQLCmd.Flags().BoolVar(&exportLocal, "local", false, "对本地 D1 执行 (--local)")
	rootCmd.AddCommand(exportSQLCmd)

	exportCSVCmd.Flags().StringVarP(&exportCSVOut, "out", "o", "", "输出文件 (默认: data/exports/daily_metrics.csv)")
	rootCmd.AddCommand(exportCSVCmd)

	exportXLSXCmd.Flags().StringVarP(&exportXLSXOut, "out", "o", "", "输出文件 (默认: data/exports/springsnow_YYYYMMDD.xlsx)")
	rootCmd.AddCommand(exportXLSXCmd)
}
