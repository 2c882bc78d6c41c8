package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/RecoveryAshes/DAReportFinder/internal/core"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"
)

// checkResult 单项检查结果
type checkResult struct {
	name    string
	ok      bool
	warning bool // 不影响static模式
	detail  string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查运行环境 (凭据、输出目录、浏览器)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("==============================================")
		fmt.Println("  DAReportFinder 环境检查")
		fmt.Println("==============================================")
		fmt.Printf("✅ Go版本: %s\n", runtime.Version())
		fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

		results := runChecks(appConfig)
		allOK := true
		for _, r := range results {
			switch {
			case r.ok:
				fmt.Printf("✅ %s: %s\n", r.name, r.detail)
			case r.warning:
				fmt.Printf("⚠️  %s: %s\n", r.name, r.detail)
			default:
				fmt.Printf("❌ %s: %s\n", r.name, r.detail)
				allOK = false
			}
		}

		fmt.Println("==============================================")
		if !allOK {
			return fmt.Errorf("环境检查失败,请解决上述问题")
		}
		fmt.Println("✅ 环境检查通过")
		return nil
	},
}

// runChecks 依次检查数据源凭据、输出目录和浏览器
func runChecks(cfg *core.Config) []checkResult {
	var results []checkResult

	for _, s := range cfg.Sources {
		r := checkResult{name: "数据源 " + s.Name, ok: true, detail: "凭据已配置"}
		if s.ResolveCredential() == "" {
			r.ok = false
			r.warning = s.CredentialEnv == ""
			if s.CredentialEnv != "" {
				r.detail = "环境变量 " + s.CredentialEnv + " 未设置"
			} else {
				r.detail = "未配置凭据"
			}
		}
		results = append(results, r)
	}

	results = append(results, checkWritable(cfg.Output.ReportsDir))

	browser := checkResult{name: "浏览器", ok: true}
	if cfg.Fetch.BrowserBin != "" {
		browser.detail = cfg.Fetch.BrowserBin
		if _, err := os.Stat(cfg.Fetch.BrowserBin); err != nil {
			browser.ok = false
			browser.detail = fmt.Sprintf("%s 不存在", cfg.Fetch.BrowserBin)
		}
	} else if path, found := launcher.LookPath(); found {
		browser.detail = path
	} else {
		browser.ok = false
		browser.detail = "未找到Chromium,dynamic模式首次运行时会自动下载"
	}
	// 浏览器只在dynamic模式必需
	browser.warning = !browser.ok && cfg.Fetch.Mode != "dynamic"
	results = append(results, browser)

	return results
}

// checkWritable 检查报告目录是否可写
func checkWritable(dir string) checkResult {
	r := checkResult{name: "报告目录", detail: dir}
	if err := os.MkdirAll(dir, 0755); err != nil {
		r.detail = fmt.Sprintf("无法创建 %s: %v", dir, err)
		return r
	}

	probe, err := os.CreateTemp(dir, ".check-*")
	if err != nil {
		r.detail = fmt.Sprintf("%s 不可写: %v", dir, err)
		return r
	}
	probe.Close()
	os.Remove(probe.Name())

	if abs, err := filepath.Abs(dir); err == nil {
		r.detail = abs
	}
	r.ok = true
	return r
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
