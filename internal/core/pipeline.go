package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/RecoveryAshes/DAReportFinder/internal/crawlers"
	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/RecoveryAshes/DAReportFinder/internal/utils"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// RecordSource 数据源查询接口
type RecordSource interface {
	Query(ctx context.Context, source models.SourceDescriptor) ([]models.Record, error)
}

// Pipeline 顺序处理所有数据源
//
// 每条记录的状态:
//
//	无详情页URL → 结束(无结果行)
//	有详情页URL → 获取页面 → 失败: 结束(无结果行)
//	                       → 成功: 分类 → 无匹配: 结束(无结果行)
//	                                    → 有匹配: 逐个下载 → 至少一个成功时产生结果行
type Pipeline struct {
	run        *RunContext
	source     RecordSource
	pages      crawlers.PageFetcher
	files      crawlers.FileDownloader
	classifier *crawlers.DocumentClassifier
	progress   bool
	log        zerolog.Logger

	sourceBar *progressbar.ProgressBar
	result    *models.RunResult
}

// NewPipeline 创建处理管线
func NewPipeline(run *RunContext, source RecordSource, pages crawlers.PageFetcher, files crawlers.FileDownloader, progress bool) *Pipeline {
	return &Pipeline{
		run:        run,
		source:     source,
		pages:      pages,
		files:      files,
		classifier: crawlers.NewDocumentClassifier(run.Keywords, run.Markers),
		progress:   progress,
		log:        utils.WithRun(run.ID),
	}
}

// Run 按配置顺序处理所有数据源
// ctx取消时在两条记录之间停止,返回已处理部分的结果和ctx.Err()
func (p *Pipeline) Run(ctx context.Context) (*models.RunResult, error) {
	start := time.Now()
	p.result = &models.RunResult{
		Rows:     make([]models.ResultRow, 0),
		Failures: make([]models.FailureInfo, 0),
	}
	p.result.Stats.SourcesTotal = len(p.run.Sources)

	p.log.Info().Str("output_dir", p.run.OutputDir).Strs("keywords", p.run.Keywords).Msgf("🚀 开始处理 %d 个数据源", len(p.run.Sources))

	// 外层按数据源计数,内层按记录计数
	p.sourceBar = utils.NewProgressBar(len(p.run.Sources), "数据源", p.progress)

	var runErr error
	for i, source := range p.run.Sources {
		utils.Infof("==================== [%d/%d] %s ====================", i+1, len(p.run.Sources), source.Name)
		if err := p.processSource(ctx, source); err != nil {
			runErr = err
			break
		}
		p.sourceBar.Add(1)
	}
	if runErr != nil {
		p.sourceBar.Exit()
	} else {
		p.sourceBar.Finish()
	}

	p.result.Stats.Duration = time.Since(start).Seconds()
	p.logStats()

	if runErr != nil {
		p.log.Warn().Err(runErr).Msg("运行被中断,导出已处理部分")
	}
	return p.result, runErr
}

// processSource 处理单个数据源
// 只有ctx取消会返回错误,查询失败只跳过该数据源
func (p *Pipeline) processSource(ctx context.Context, source models.SourceDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := p.source.Query(ctx, source)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.result.Stats.SourcesFailed++
		p.recordFailure(&models.SourceQueryError{SourceName: source.Name, Cause: err})
		return nil
	}
	utils.Infof("获取到 %d 条记录", len(records))

	bar := utils.NewProgressBar(len(records), source.Name, p.progress)
	defer bar.Finish()

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}

		p.result.Stats.RecordsSeen++
		if row := p.processRecord(ctx, source.Name, rec); row != nil {
			p.result.Rows = append(p.result.Rows, *row)
			p.result.Stats.RowsWithDocuments++
			utils.Infof("  ✅ %s - %s: %d 个文档", rec.Reference, rec.DisplayAddress(), len(row.MatchedPaths))
		}
		bar.Add(1)
	}
	return nil
}

// processRecord 处理单条记录,没有成功下载的文档时返回nil
func (p *Pipeline) processRecord(ctx context.Context, sourceName string, rec models.Record) *models.ResultRow {
	if !rec.HasDetailURL() {
		p.result.Stats.RecordsNoDetail++
		utils.Debugf("记录 %s 无详情页URL,跳过", rec.Reference)
		return nil
	}

	html, err := p.pages.FetchPage(ctx, rec.DetailURL)
	if err != nil {
		p.result.Stats.PagesFailed++
		p.recordFailure(&models.DetailPageFetchError{SourceName: sourceName, Reference: rec.Reference, URL: rec.DetailURL, Cause: err})
		return nil
	}
	p.result.Stats.PagesFetched++

	links, err := p.classifier.FindMatches(html, rec.DetailURL)
	if err != nil {
		p.result.Stats.PagesFailed++
		p.recordFailure(&models.DetailPageFetchError{SourceName: sourceName, Reference: rec.Reference, URL: rec.DetailURL, Cause: err})
		return nil
	}
	if len(links) == 0 {
		return nil
	}
	p.result.Stats.CandidateMatches += len(links)

	var documents []models.MatchedDocument
	for _, link := range links {
		doc, err := p.download(ctx, sourceName, rec.Reference, link)
		if err != nil {
			p.result.Stats.DownloadsFailed++
			p.recordFailure(&models.DocumentDownloadError{SourceName: sourceName, Reference: rec.Reference, URL: link.Href, Cause: err})
			continue
		}
		p.result.Stats.DownloadsOK++
		p.result.Stats.BytesWritten += doc.Size
		documents = append(documents, *doc)
	}

	if len(documents) == 0 {
		return nil
	}

	paths := make([]string, len(documents))
	for i, d := range documents {
		paths[i] = d.LocalPath
	}
	return &models.ResultRow{
		SourceName:   sourceName,
		Reference:    rec.Reference,
		Address:      rec.DisplayAddress(),
		DetailURL:    rec.DetailURL,
		MatchedPaths: paths,
		Documents:    documents,
	}
}

// download 下载单个文档并写入解析出的路径
// 失败时释放已分配的路径
func (p *Pipeline) download(ctx context.Context, sourceName, reference string, link models.DocumentLink) (*models.MatchedDocument, error) {
	path := p.run.Resolver.Resolve(sourceName, reference, link.Href, p.run.OutputDir)

	data, err := p.files.DownloadFile(ctx, link.Href)
	if err != nil {
		p.run.Resolver.Release(path)
		return nil, err
	}

	if err := writeNewFile(path, data); err != nil {
		p.run.Resolver.Release(path)
		return nil, err
	}

	utils.Debugf("已保存 %s (%s)", path, utils.FormatBytes(int64(len(data))))
	return &models.MatchedDocument{
		Link:         link,
		LocalPath:    path,
		Size:         int64(len(data)),
		DownloadedAt: time.Now(),
	}, nil
}

// writeNewFile 以独占方式创建文件,已存在时失败而不是覆盖
func writeNewFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("写入文件失败: %w", err)
	}
	return file.Close()
}

// recordFailure 记录失败并输出警告
func (p *Pipeline) recordFailure(err error) {
	info := models.FailureInfo{Error: err.Error()}

	var (
		sourceErr *models.SourceQueryError
		pageErr   *models.DetailPageFetchError
		docErr    *models.DocumentDownloadError
	)
	switch {
	case errors.As(err, &sourceErr):
		info.Scope = models.ScopeSource
		info.SourceName = sourceErr.SourceName
	case errors.As(err, &pageErr):
		info.Scope = models.ScopePage
		info.SourceName = pageErr.SourceName
		info.Reference = pageErr.Reference
		info.URL = pageErr.URL
	case errors.As(err, &docErr):
		info.Scope = models.ScopeDocument
		info.SourceName = docErr.SourceName
		info.Reference = docErr.Reference
		info.URL = docErr.URL
	}

	p.result.Failures = append(p.result.Failures, info)
	utils.Warnf("⚠️  %v", err)
}

func (p *Pipeline) logStats() {
	s := p.result.Stats
	utils.Info("==================================================")
	utils.Info("📊 运行统计")
	utils.Info("==================================================")
	utils.Infof("数据源: %d (失败 %d)", s.SourcesTotal, s.SourcesFailed)
	utils.Infof("记录: %d (无详情页 %d)", s.RecordsSeen, s.RecordsNoDetail)
	utils.Infof("详情页: 成功 %d, 失败 %d", s.PagesFetched, s.PagesFailed)
	utils.Infof("候选文档: %d, 下载成功 %d, 失败 %d", s.CandidateMatches, s.DownloadsOK, s.DownloadsFailed)
	utils.Infof("📦 总大小: %s", utils.FormatBytes(s.BytesWritten))
	utils.Infof("⏱️  总耗时: %.2f秒", s.Duration)
	utils.Info("==================================================")
}
