package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/DAReportFinder/internal/crawlers"
	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const (
	// RunDirLayout 运行目录的时间戳格式
	RunDirLayout = "2006-01-02_15-04-05"

	// LockFileName reports目录下的运行锁
	LockFileName = ".dareportfinder.lock"
)

// ErrRunLocked 另一个进程正在使用同一个reports目录
var ErrRunLocked = errors.New("另一个运行实例正在使用该报告目录")

// RunContext 一次运行的上下文
// 运行开始时创建,作为参数传给所有组件,运行期间不变
type RunContext struct {
	ID         string
	StartedAt  time.Time
	ReportsDir string
	OutputDir  string
	Keywords   []string
	Markers    []string
	Sources    []models.SourceDescriptor
	Resolver   *crawlers.FilenameResolver

	lock *flock.Flock
}

// NewRunContext 创建运行上下文
// 依次: 创建reports目录 → 获取运行锁 → 创建时间戳目录
// 任何一步失败都是致命错误,此时还没有开始处理任何数据源
func NewRunContext(cfg *Config, now time.Time) (*RunContext, error) {
	reportsDir := cfg.Output.ReportsDir
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return nil, fmt.Errorf("创建报告目录失败: %w", err)
	}

	lock := flock.New(filepath.Join(reportsDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("获取运行锁失败: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrRunLocked, reportsDir)
	}

	outputDir := filepath.Join(reportsDir, now.Format(RunDirLayout))
	// 目录已存在说明同一秒内启动过另一次运行,不复用
	if err := os.Mkdir(outputDir, 0755); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("创建运行目录失败: %w", err)
	}

	return &RunContext{
		ID:         uuid.New().String(),
		StartedAt:  now,
		ReportsDir: reportsDir,
		OutputDir:  outputDir,
		Keywords:   append([]string(nil), cfg.Keywords...),
		Markers:    append([]string(nil), cfg.Extensions...),
		Sources:    append([]models.SourceDescriptor(nil), cfg.Sources...),
		Resolver:   crawlers.NewFilenameResolver(),
		lock:       lock,
	}, nil
}

// SourceNames 数据源名称列表(按配置顺序)
func (rc *RunContext) SourceNames() []string {
	names := make([]string, len(rc.Sources))
	for i, s := range rc.Sources {
		names[i] = s.Name
	}
	return names
}

// Close 释放运行锁
func (rc *RunContext) Close() error {
	if rc.lock == nil {
		return nil
	}
	return rc.lock.Unlock()
}
