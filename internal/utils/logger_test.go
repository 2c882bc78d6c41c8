package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitLogger(t *testing.T) {
	tempDir := t.TempDir()

	config := LogConfig{
		Level:      "debug",
		LogDir:     filepath.Join(tempDir, "logs"),
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		NoConsole:  true,
	}

	if err := InitLogger(config); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	if _, err := os.Stat(config.LogDir); os.IsNotExist(err) {
		t.Errorf("日志目录未创建: %s", config.LogDir)
	}

	Info("测试信息日志")
	Warn("测试警告日志")
	Debug("测试调试日志")

	mainLogPath := filepath.Join(config.LogDir, mainLogName)
	if _, err := os.Stat(mainLogPath); os.IsNotExist(err) {
		t.Errorf("主日志文件未创建: %s", mainLogPath)
	}
}

func TestErrorLogOnlyReceivesWarnings(t *testing.T) {
	tempDir := t.TempDir()

	config := DefaultLogConfig()
	config.LogDir = tempDir
	config.Compress = false
	config.NoConsole = true

	if err := InitLogger(config); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	Info("普通进度信息")
	Warnf("详情页获取失败: %s", "https://example.com/da/1")

	content, err := os.ReadFile(filepath.Join(tempDir, errorLogName))
	if err != nil {
		t.Fatalf("读取错误日志失败: %v", err)
	}

	if strings.Contains(string(content), "普通进度信息") {
		t.Error("错误日志不应包含info级别日志")
	}
	if !strings.Contains(string(content), "详情页获取失败") {
		t.Error("错误日志应包含warn级别日志")
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	config := DefaultLogConfig()
	config.LogDir = t.TempDir()
	config.Level = "verbose"
	config.NoConsole = true

	if err := InitLogger(config); err != nil {
		t.Fatalf("初始化日志器失败: %v", err)
	}

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("期望回退到info级别, 实际: %s", zerolog.GlobalLevel())
	}
}

func TestDefaultLogConfig(t *testing.T) {
	config := DefaultLogConfig()

	if config.Level != "info" {
		t.Errorf("默认日志级别错误: 期望 'info', 得到 '%s'", config.Level)
	}
	if config.LogDir != "logs" {
		t.Errorf("默认日志目录错误: 期望 'logs', 得到 '%s'", config.LogDir)
	}
	if config.MaxBackups != 3 {
		t.Errorf("默认备份数错误: 期望 3, 得到 %d", config.MaxBackups)
	}
	if !config.Compress {
		t.Error("默认应该启用压缩")
	}
}
