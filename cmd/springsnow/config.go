package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"springsnow/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "管理配置文件",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "写入默认 config.toml",
	Long: `在 --config 指定的位置（默认可执行文件目录）写入默认配置。
文件已存在时需加 --force 覆盖。

EXAMPLES:

  springsnow config init
  springsnow config init --config ./config.toml --force`,
	Annotations: map[string]string{skipConfig: "1"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s 已存在，使用 --force 覆盖", path)
		}
		if err := config.SaveConfig(config.DefaultConfig(), path); err != nil {
			return fmt.Errorf("写入配置失败: %w", err)
		}
		color.Green("✓ 已写入默认配置: %s", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "打印合并环境变量后的生效配置",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := toml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "覆盖已存在的配置文件")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
