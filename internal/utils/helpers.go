package utils

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// IsTerminal 标准输出是否为终端
// 非终端(重定向到文件/CI)时关闭进度条
func IsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// FormatBytes 字节数格式化为 KB/MB
func FormatBytes(size int64) string {
	switch {
	case size >= 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
	case size >= 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
