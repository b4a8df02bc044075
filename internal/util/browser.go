package util

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
)

// maxPortProbe FindAvailablePort 最多尝试的端口数
const maxPortProbe = 50

// OpenBrowser 打开默认浏览器，主要方式失败时尝试备选方式
// 支持 Windows 7/10/11, macOS, Linux
func OpenBrowser(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		// rundll32 比 cmd /c start 更稳定，特别是在 Windows 7 上
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	case "darwin":
		cmd = exec.Command("open", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	err := cmd.Start()
	if err == nil {
		return nil
	}

	// 降级方案
	switch runtime.GOOS {
	case "windows":
		return exec.Command("explorer", target).Start()
	case "linux":
		for _, browser := range []string{"google-chrome", "firefox", "chromium-browser", "sensible-browser"} {
			if exec.Command(browser, target).Start() == nil {
				return nil
			}
		}
	}
	return err
}

// FileURL 本地文件的 file:// 地址
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if runtime.GOOS == "windows" {
		u.Path = "/" + u.Path
	}
	return u.String(), nil
}

// OpenPath 在浏览器中打开生成的本地文件
func OpenPath(path string) error {
	u, err := FileURL(path)
	if err != nil {
		return err
	}
	return OpenBrowser(u)
}

// FindAvailablePort 从 startPort 起查找第一个可监听的端口
func FindAvailablePort(startPort int) (int, error) {
	for port := startPort; port < startPort+maxPortProbe && port <= 65535; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			continue
		}
		_ = ln.Close()
		return port, nil
	}
	return 0, errors.New("no available port")
}
