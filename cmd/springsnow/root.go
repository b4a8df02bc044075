package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"springsnow/internal/config"
	"springsnow/internal/logging"
	"springsnow/internal/store"
)

// skipConfig 标记不需要加载配置的命令
const skipConfig = "skip-config"

var (
	configPath string
	dataDir    string
	logLevel   string
	logJSON    bool

	cfg       *config.AppConfig
	logCloser io.Closer
	db        *store.Store
)

var rootCmd = &cobra.Command{
	Use:   "springsnow",
	Short: "春雪食品产销数据工具",
	Long: `springsnow 把 ERP 导出的 Excel 报表整理为日指标，写入 SQLite，
并提供看板生成、数据质量检查、D1 导出与 HTTP API。

源文件（默认位于 excel_dir）：

  收发存汇总表查询.xlsx    库存与入库
  产成品入库列表.xlsx      生产入库
  销售发票执行查询.xlsx    销售发票
  调价表.xlsx              调价记录

常用命令：

  $ springsnow import --clear          # 重新导入日指标
  $ springsnow prices                  # 导入调价表
  $ springsnow report --zip --open     # 生成看板并打包
  $ springsnow quality                 # 数据质量检查
  $ springsnow export-sql              # 生成 D1 导入 SQL
  $ springsnow serve --open            # 启动 API 服务

配置：

  config.toml -> .env -> SPRINGSNOW_* 环境变量 -> 命令行参数，依次覆盖。
  运行 'springsnow config init' 生成默认配置。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		opts := logging.Options{Level: logLevel, JSON: logJSON}
		var err error
		if logCloser, err = logging.Setup(opts); err != nil {
			return err
		}
		if cmd.Annotations[skipConfig] != "" {
			return nil
		}

		if cfg, err = loadConfig(); err != nil {
			return err
		}
		if cfg.Data.LogFile != "" {
			// 配置了日志文件时改为 JSON 并同时写文件
			if err := closeLog(); err != nil {
				return err
			}
			opts.JSON = true
			opts.File = config.GetDataPath(cfg, "", cfg.Data.LogFile)
			logCloser, err = logging.Setup(opts)
		}
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("关闭数据库失败")
			}
			db = nil
		}
		return closeLog()
	},
}

// closeLog 关闭当前日志输出，可重复调用
func closeLog() error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径 (默认: 可执行文件目录下的 config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "数据目录 (覆盖配置文件)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "日志级别: debug/info/warn/error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "输出 JSON 日志")
}

// Execute 执行根命令
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig() (*config.AppConfig, error) {
	c, info, err := config.LoadConfigWithInfo(configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if dataDir != "" {
		c.Data.DataDir = dataDir
	}
	if _, err := config.EnsureDataDir(c); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	log.Debug().
		Str("path", info.Path).
		Bool("found", info.FileFound).
		Strs("env", info.EnvOverrides).
		Msg("配置已加载")
	return c, nil
}

// openStore 打开 SQLite，进程退出前由 PersistentPostRunE 关闭
func openStore() (*store.Store, error) {
	if db != nil {
		return db, nil
	}
	st, err := store.New(config.DBPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	db = st
	return db, nil
}
