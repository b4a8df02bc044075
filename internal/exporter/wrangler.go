package exporter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// VerifyCountSQL 导入后核对远程行数
const VerifyCountSQL = "SELECT (SELECT COUNT(*) FROM Products) AS products, (SELECT COUNT(*) FROM DailyMetrics) AS metrics;"

// Wrangler 通过 npx wrangler 操作 Cloudflare D1
type Wrangler struct {
	Database string
	Dir      string // 执行目录（含 wrangler.toml）
	Local    bool   // --local 替代 --remote
}

func (w Wrangler) target() string {
	if w.Local {
		return "--local"
	}
	return "--remote"
}

// FileArgs 执行 SQL 文件的命令参数
func (w Wrangler) FileArgs(file string) ([]string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", file, err)
	}
	return []string{"npx", "wrangler", "d1", "execute", w.Database, w.target(), "--file=" + abs}, nil
}

// CommandArgs 执行单条 SQL 的命令参数
func (w Wrangler) CommandArgs(sql string) []string {
	return []string{"npx", "wrangler", "d1", "execute", w.Database, w.target(), "--command", sql}
}

// Run 执行命令并返回合并后的输出
func (w Wrangler) Run(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = w.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log.Info().Str("dir", w.Dir).Str("cmd", strings.Join(args, " ")).Msg("执行 wrangler")
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("wrangler failed: %w", err)
	}
	return out.String(), nil
}

// Command 打印用的执行命令
func (w Wrangler) Command(file string) (string, error) {
	args, err := w.FileArgs(file)
	if err != nil {
		return "", err
	}
	return strings.Join(args, " "), nil
}

// RunWrangler 执行 SQL 文件，随后执行行数核对
func RunWrangler(ctx context.Context, w Wrangler, file string) (string, error) {
	args, err := w.FileArgs(file)
	if err != nil {
		return "", err
	}
	out, err := w.Run(ctx, args)
	if err != nil {
		return out, err
	}
	verify, err := w.Run(ctx, w.CommandArgs(VerifyCountSQL))
	return out + verify, err
}
