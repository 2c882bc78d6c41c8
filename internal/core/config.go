package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Sources    []models.SourceDescriptor `mapstructure:"sources" validate:"min=1"`
	Keywords   []string                  `mapstructure:"keywords" validate:"min=1,dive,required"`
	Extensions []string                  `mapstructure:"extensions" validate:"min=1,dive,required"`
	Fetch      FetchConfig               `mapstructure:"fetch"`
	Output     OutputConfig              `mapstructure:"output"`
	Logging    LoggingConfig             `mapstructure:"logging"`
}

// FetchConfig 网络请求配置
type FetchConfig struct {
	Mode               string            `mapstructure:"mode" validate:"oneof=static dynamic"`
	Timeout            time.Duration     `mapstructure:"timeout" validate:"gt=0"`
	QueryLimit         int               `mapstructure:"query_limit" validate:"gt=0"`
	MaxBodySizeMB      int               `mapstructure:"max_body_size_mb" validate:"gte=0"`
	InsecureSkipVerify bool              `mapstructure:"insecure_skip_verify"`
	UserAgent          string            `mapstructure:"user_agent"`
	Headers            map[string]string `mapstructure:"headers"`

	// 以下仅 dynamic 模式使用
	Headless   bool          `mapstructure:"headless"`
	Stealth    bool          `mapstructure:"stealth"`
	SettleTime time.Duration `mapstructure:"settle_time" validate:"gte=0"`
	BrowserBin string        `mapstructure:"browser_bin"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	ReportsDir string `mapstructure:"reports_dir" validate:"required"`
	CSVFile    string `mapstructure:"csv_file" validate:"required"`
	Progress   bool   `mapstructure:"progress"`
	Manifest   bool   `mapstructure:"manifest"`
	Summary    bool   `mapstructure:"summary"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// LoadConfig 加载配置文件
// configPath为空时在 ./configs, . , ~/.dareportfinder 中查找 config.yaml,找不到则使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".dareportfinder"))
		}
	}

	// 环境变量覆盖, 如 DAREPORT_FETCH_TIMEOUT=60s
	v.SetEnvPrefix("DAREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: configPath, Cause: fmt.Errorf("读取配置文件失败: %w", err)}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: fmt.Errorf("解析配置文件失败: %w", err)}
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("sources", []map[string]interface{}{
		{
			"name":           "City of Sydney",
			"endpoint":       "https://api.morph.io/planningalerts-scrapers/city_of_sydney/data.json",
			"credential_env": "MORPH_API_KEY",
		},
		{
			"name":           "ACT",
			"endpoint":       "https://api.morph.io/planningalerts-scrapers/act/data.json",
			"credential_env": "MORPH_API_KEY",
		},
	})
	v.SetDefault("keywords", models.DefaultKeywords)
	v.SetDefault("extensions", models.DefaultDocumentMarkers)

	// 网络请求默认值
	v.SetDefault("fetch.mode", "static")
	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.query_limit", models.DefaultQueryLimit)
	v.SetDefault("fetch.max_body_size_mb", 0)
	v.SetDefault("fetch.insecure_skip_verify", false)
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.headless", true)
	v.SetDefault("fetch.stealth", true)
	v.SetDefault("fetch.settle_time", "2s")

	// 输出默认值
	v.SetDefault("output.reports_dir", "reports")
	v.SetDefault("output.csv_file", "all_councils_acoustic_reports.csv")
	v.SetDefault("output.progress", true)
	v.SetDefault("output.manifest", true)
	v.SetDefault("output.summary", true)

	// 日志默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return &models.ConfigError{FilePath: "config", Cause: err}
	}

	// 每个数据源按自身的validate标签校验
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return &models.ConfigError{FilePath: "sources", Cause: fmt.Errorf("数据源名称重复: %s", s.Name)}
		}
		seen[s.Name] = true
	}
	return nil
}

// Overrides 命令行参数覆盖项,零值表示不覆盖
type Overrides struct {
	ReportsDir string
	CSVFile    string
	Mode       string
	Timeout    time.Duration
	Keywords   []string
	LogLevel   string
	NoProgress bool
	Sources    []string // 只处理这些名称的数据源
}

// ApplyOverrides 命令行参数优先于配置文件
func (c *Config) ApplyOverrides(o Overrides) error {
	if o.ReportsDir != "" {
		c.Output.ReportsDir = o.ReportsDir
	}
	if o.CSVFile != "" {
		c.Output.CSVFile = o.CSVFile
	}
	if o.Mode != "" {
		c.Fetch.Mode = o.Mode
	}
	if o.Timeout > 0 {
		c.Fetch.Timeout = o.Timeout
	}
	if len(o.Keywords) > 0 {
		c.Keywords = o.Keywords
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.NoProgress {
		c.Output.Progress = false
	}

	if len(o.Sources) > 0 {
		filtered, err := selectSources(c.Sources, o.Sources)
		if err != nil {
			return err
		}
		c.Sources = filtered
	}
	return nil
}

// selectSources 按名称筛选数据源,保持配置中的顺序
func selectSources(all []models.SourceDescriptor, names []string) ([]models.SourceDescriptor, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = true
	}

	selected := make([]models.SourceDescriptor, 0, len(names))
	for _, s := range all {
		key := strings.ToLower(s.Name)
		if wanted[key] {
			selected = append(selected, s)
			delete(wanted, key)
		}
	}

	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for n := range wanted {
			missing = append(missing, n)
		}
		return nil, &models.ConfigError{FilePath: "sources", Cause: fmt.Errorf("未配置的数据源: %s", strings.Join(missing, ", "))}
	}
	return selected, nil
}
