package main

import (
	"fmt"
	"strings"
	"time"
)

// ValidateFlags 验证命令行标志
// 零值表示未指定,交给配置文件决定
func ValidateFlags(mode string, timeout time.Duration, keywords []string) error {
	if mode != "" {
		validModes := map[string]bool{
			"static":  true,
			"dynamic": true,
		}
		if !validModes[mode] {
			return fmt.Errorf("无效的抓取模式: %s (有效值: static, dynamic)", mode)
		}
	}

	if timeout < 0 || timeout > 10*time.Minute {
		return fmt.Errorf("请求超时必须在0-10分钟之间,当前值: %s", timeout)
	}

	for _, k := range keywords {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("关键字不能为空")
		}
	}

	return nil
}
