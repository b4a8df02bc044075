package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"springsnow/internal/metrics"
	"springsnow/internal/remote"
)

var pushAPI string

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "把本地日指标推送到远程 API",
	Long: `读取 SQLite 中的全部日指标，按 batch_size 分批 POST 到
<api_url>/api/admin/import-batch，遇到失败批次立即停止。

EXAMPLES:

  springsnow push                                  # 使用配置中的 api_url
  springsnow push --api https://example.workers.dev`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		base := cfg.Remote.APIURL
		if pushAPI != "" {
			base = pushAPI
		}

		client, err := remote.NewClient(remote.Options{
			BaseURL:       base,
			BatchSize:     cfg.Remote.BatchSize,
			Timeout:       cfg.Remote.Timeout.Duration,
			RatePerSecond: cfg.Remote.RatePerSecond,
			Metrics:       metrics.Default,
		})
		if err != nil {
			return err
		}

		rows, err := st.ListDailyMetrics()
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			color.Yellow("没有可推送的日指标，请先运行 'springsnow import'")
			return nil
		}

		res, err := client.PushDailyMetrics(cmd.Context(), rows)
		if err != nil {
			color.Red("✗ 已推送 %d 批 (%d 条) 后失败", res.Batches, res.Sent)
			return err
		}
		color.Green("✓ 推送完成: %s", base)
		fmt.Printf("  批次 %d, 发送 %d 条, 远端写入 %d 条\n", res.Batches, res.Sent, res.Inserted)
		return nil
	},
}

func init() {
	pushCmd.Flags().StringVar(&pushAPI, "api", "", "远程 API 地址 (覆盖配置中的 api_url)")
	rootCmd.AddCommand(pushCmd)
}
