package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/RecoveryAshes/DAReportFinder/internal/core"
	"github.com/RecoveryAshes/DAReportFinder/internal/crawlers"
	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/RecoveryAshes/DAReportFinder/internal/utils"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	envFile    string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers []string

	// 运行参数
	reportsDir string
	csvFile    string
	mode       string
	timeout    time.Duration
	keywords   []string
	sources    []string
	noProgress bool
)

// appConfig 在 PersistentPreRunE 中加载
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "dareportfinder",
	Short: "DA声学/噪声报告查找工具",
	Long: `DAReportFinder - 从市政DA数据源中查找并下载声学/噪声报告

处理流程:
  • 查询每个数据源最近的DA记录
  • 抓取记录的详情页,识别链接文本含关键字的文档
  • 下载文档到 reports/<时间戳>/ 目录
  • 导出汇总CSV

示例:
  # 使用默认数据源 (凭据从 MORPH_API_KEY 读取,支持 .env 文件)
  dareportfinder

  # 只处理ACT,增加关键字
  dareportfinder --source ACT -k acoustic -k noise -k vibration

  # JavaScript渲染的门户使用动态模式
  dareportfinder --mode dynamic

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(envFile); err != nil {
			return err
		}

		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		if err := ValidateFlags(mode, timeout, keywords); err != nil {
			return err
		}
		if err := config.ApplyOverrides(core.Overrides{
			ReportsDir: reportsDir,
			CSVFile:    csvFile,
			Mode:       mode,
			Timeout:    timeout,
			Keywords:   keywords,
			LogLevel:   logLevel,
			NoProgress: noProgress || !utils.IsTerminal(),
			Sources:    sources,
		}); err != nil {
			return err
		}
		if verbose && logLevel == "" {
			config.Logging.Level = "debug"
		}
		if err := config.Validate(); err != nil {
			return fmt.Errorf("配置验证失败: %w", err)
		}

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd.Context())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "查询所有数据源并下载匹配的报告 (默认命令)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPipeline(cmd.Context())
	},
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "列出已配置的数据源 (凭据脱敏)",
	RunE: func(cmd *cobra.Command, args []string) error {
		querier := crawlers.NewSourceQuerier(nil, appConfig.Fetch.QueryLimit)
		redactor := utils.NewRedactor()

		tw := table.NewWriter()
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"#", "名称", "查询地址", "凭据"})
		for i, s := range appConfig.Sources {
			queryURL, err := querier.BuildURL(s)
			if err != nil {
				return err
			}
			credential := "无"
			if s.ResolveCredential() != "" {
				credential = "已配置"
			} else if s.CredentialEnv != "" {
				credential = "缺失 ($" + s.CredentialEnv + ")"
			}
			tw.AppendRow(table.Row{i + 1, s.Name, redactor.RedactURL(queryURL), credential})
		}
		fmt.Println(tw.Render())
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	// 不需要加载配置
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("DAReportFinder %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// loadEnvFile 加载 .env,默认文件不存在时忽略
func loadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("加载 .env 失败: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("加载环境变量文件失败: %w", err)
	}
	return nil
}

// runPipeline 执行一次完整运行
// 运行目录或运行锁创建失败是致命错误,在处理任何数据源之前返回
func runPipeline(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := core.NewRunContext(appConfig, time.Now())
	if err != nil {
		return fmt.Errorf("初始化运行失败: %w", err)
	}
	defer run.Close()

	runLog := utils.WithRun(run.ID)
	runLog.Info().Str("output_dir", run.OutputDir).Str("mode", appConfig.Fetch.Mode).Msg("运行开始")

	headerManager, err := core.NewHeaderManager(appConfig.Fetch.UserAgent, appConfig.Fetch.Headers, headers)
	if err != nil {
		return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}

	fetcher := crawlers.NewDocumentFetcher(crawlers.FetcherConfig{
		Timeout:            appConfig.Fetch.Timeout,
		MaxBodySize:        appConfig.Fetch.MaxBodySizeMB * 1024 * 1024,
		InsecureSkipVerify: appConfig.Fetch.InsecureSkipVerify,
	}, headerManager)

	var pages crawlers.PageFetcher = fetcher
	if appConfig.Fetch.Mode == "dynamic" {
		dynamic := crawlers.NewDynamicPageFetcher(crawlers.DynamicConfig{
			Timeout:            appConfig.Fetch.Timeout,
			Headless:           appConfig.Fetch.Headless,
			Stealth:            appConfig.Fetch.Stealth,
			SettleTime:         appConfig.Fetch.SettleTime,
			InsecureSkipVerify: appConfig.Fetch.InsecureSkipVerify,
			BrowserBin:         appConfig.Fetch.BrowserBin,
		})
		defer dynamic.Close()
		pages = dynamic
	}

	querier := crawlers.NewSourceQuerier(fetcher, appConfig.Fetch.QueryLimit)
	pipeline := core.NewPipeline(run, querier, pages, fetcher, appConfig.Output.Progress)

	result, runErr := pipeline.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	reporter := utils.NewReporter(appConfig.Output.CSVFile, run.OutputDir)
	if err := reporter.ExportCSV(result.Rows); err != nil {
		return fmt.Errorf("导出CSV失败: %w", err)
	}

	if appConfig.Output.Manifest {
		manifest := &models.RunManifest{
			RunID:     run.ID,
			StartTime: run.StartedAt,
			EndTime:   time.Now(),
			OutputDir: run.OutputDir,
			CSVFile:   reporter.CSVPath(),
			Keywords:  run.Keywords,
			Sources:   run.SourceNames(),
			Stats:     result.Stats,
			Rows:      result.Rows,
			Failures:  result.Failures,
		}
		if path, err := reporter.WriteManifest(manifest); err != nil {
			utils.Warnf("写入运行清单失败: %v", err)
		} else {
			utils.Debugf("运行清单: %s", path)
		}
	}

	if appConfig.Output.Summary && len(result.Rows) > 0 {
		fmt.Println(utils.RenderSummary(result.Rows))
	}

	csvPath, _ := filepath.Abs(reporter.CSVPath())
	fmt.Printf("\n✅ 共 %d 条记录找到声学/噪声报告\n", len(result.Rows))
	fmt.Printf("📄 结果已导出: %s\n", csvPath)
	fmt.Printf("📁 文档目录: %s\n", run.OutputDir)
	if len(result.Failures) > 0 {
		fmt.Printf("⚠️  失败 %d 次,详见日志\n", len(result.Failures))
	}

	if runErr != nil {
		utils.Warn("运行被中断,以上为部分结果")
	}
	return nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径 (默认查找 configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "环境变量文件 (默认 .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")

	// 运行参数
	rootCmd.PersistentFlags().StringVarP(&reportsDir, "output", "o", "", "报告根目录 (默认 reports)")
	rootCmd.PersistentFlags().StringVar(&csvFile, "csv", "", "汇总CSV路径")
	rootCmd.PersistentFlags().StringVarP(&mode, "mode", "m", "", "详情页抓取模式 (static|dynamic)")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "单次请求超时 (默认 30s)")
	rootCmd.PersistentFlags().StringSliceVarP(&keywords, "keyword", "k", nil, "链接文本关键字,可多次指定")
	rootCmd.PersistentFlags().StringSliceVarP(&sources, "source", "s", nil, "只处理指定名称的数据源,可多次指定")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")

	rootCmd.AddCommand(runCmd, sourcesCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
