package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/schollz/progressbar/v3"
)

// ManifestFileName 运行清单文件名
const ManifestFileName = "run_manifest.json"

// Reporter 报告生成器
// 负责CSV导出、运行清单和终端摘要
type Reporter struct {
	csvPath   string
	outputDir string
}

// NewReporter 创建报告生成器
//   - csvPath: 汇总CSV路径 (存在则覆盖)
//   - outputDir: 本次运行目录,运行清单写在这里
func NewReporter(csvPath string, outputDir string) *Reporter {
	return &Reporter{
		csvPath:   csvPath,
		outputDir: outputDir,
	}
}

// CSVPath 汇总CSV路径
func (r *Reporter) CSVPath() string {
	return r.csvPath
}

// ExportCSV 写出汇总CSV
// 列顺序固定为 models.ExportColumns,运行结束时写一次
func (r *Reporter) ExportCSV(rows []models.ResultRow) error {
	if dir := filepath.Dir(r.csvPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建CSV目录失败: %w", err)
		}
	}

	file, err := os.Create(r.csvPath)
	if err != nil {
		return fmt.Errorf("创建CSV文件失败: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(models.ExportColumns); err != nil {
		return fmt.Errorf("写入CSV表头失败: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row.CSVRecord()); err != nil {
			return fmt.Errorf("写入CSV行失败: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("写入CSV失败: %w", err)
	}

	Debugf("保存CSV: %s (%d 行)", r.csvPath, len(rows))
	return nil
}

// WriteManifest 保存运行清单JSON
func (r *Reporter) WriteManifest(manifest *models.RunManifest) (string, error) {
	path := filepath.Join(r.outputDir, ManifestFileName)

	data, err := manifest.ToJSON()
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("写入运行清单失败: %w", err)
	}

	Debugf("保存运行清单: %s", path)
	return path, nil
}

// RenderSummary 渲染结果摘要表格
func RenderSummary(rows []models.ResultRow) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Council", "Reference", "Address", "Files"})

	for i, row := range rows {
		tw.AppendRow(table.Row{i + 1, row.SourceName, row.Reference, row.Address, strconv.Itoa(len(row.MatchedPaths))})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, WidthMax: 48},
		{Number: 5, Align: text.AlignRight},
	})
	return tw.Render()
}

// NewProgressBar 创建进度条
// enabled为false时返回静默进度条,调用方无需判空
func NewProgressBar(max int, description string, enabled bool) *progressbar.ProgressBar {
	if !enabled {
		return progressbar.DefaultSilent(int64(max), description)
	}
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
