package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"springsnow/internal/metrics"
	"springsnow/internal/server"
	"springsnow/internal/util"
)

var (
	servePort int
	serveDev  bool
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP API 服务",
	Long: `启动 HTTP API 服务，直到收到 SIGINT/SIGTERM。

未通过 --port 指定端口时，从配置端口开始寻找第一个空闲端口。
GET /metrics 输出 Prometheus 指标。

EXAMPLES:

  springsnow serve                  # 使用配置端口
  springsnow serve --port 8787      # 指定端口
  springsnow serve --dev --open     # 开发模式并打开浏览器`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("dev") {
			cfg.Server.DevMode = serveDev
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		} else {
			p, err := util.FindAvailablePort(port)
			if err != nil {
				return err
			}
			if p != port {
				log.Warn().Int("configured", port).Int("port", p).Msg("配置端口被占用，改用空闲端口")
			}
			port = p
		}
		cfg.Server.Port = port

		st, err := openStore()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.NewServer(cfg, st, metrics.Default)
		url := fmt.Sprintf("http://localhost:%d", port)
		color.Green("✓ 服务地址: %s", url)
		fmt.Println("按 Ctrl+C 停止服务...")

		if serveOpen {
			if err := util.OpenBrowser(url); err != nil {
				fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
			}
		}
		return srv.Run(ctx, fmt.Sprintf(":%d", port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "服务端口 (覆盖配置)")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "开发模式")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "启动后打开浏览器")
	rootCmd.AddCommand(serveCmd)
}

