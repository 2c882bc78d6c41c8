package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ExportColumns 导出CSV的固定列顺序
var ExportColumns = []string{"council", "council_reference", "address", "info_url", "matching_documents"}

// MatchedPathSeparator matching_documents列中路径的分隔符
const MatchedPathSeparator = "; "

// ResultRow 一条结果行
// 仅当该记录至少有一个文档下载成功时才会创建
type ResultRow struct {
	SourceName   string            `json:"council"`
	Reference    string            `json:"council_reference"`
	Address      string            `json:"address"`
	DetailURL    string            `json:"info_url"`
	MatchedPaths []string          `json:"matching_documents"`
	Documents    []MatchedDocument `json:"documents,omitempty"`
}

// CSVRecord 按ExportColumns顺序返回一行
func (r ResultRow) CSVRecord() []string {
	return []string{
		r.SourceName,
		r.Reference,
		r.Address,
		r.DetailURL,
		strings.Join(r.MatchedPaths, MatchedPathSeparator),
	}
}

// FailureScope 失败发生的范围
type FailureScope string

const (
	ScopeSource   FailureScope = "source"
	ScopePage     FailureScope = "page"
	ScopeDocument FailureScope = "document"
)

// FailureInfo 失败记录(用于运行清单)
type FailureInfo struct {
	Scope      FailureScope `json:"scope"`
	SourceName string       `json:"council"`
	Reference  string       `json:"council_reference,omitempty"`
	URL        string       `json:"url,omitempty"`
	Error      string       `json:"error"`
}

// RunStats 运行统计
type RunStats struct {
	SourcesTotal      int     `json:"sources_total"`
	SourcesFailed     int     `json:"sources_failed"`
	RecordsSeen       int     `json:"records_seen"`
	RecordsNoDetail   int     `json:"records_no_detail"`
	PagesFetched      int     `json:"pages_fetched"`
	PagesFailed       int     `json:"pages_failed"`
	CandidateMatches  int     `json:"candidate_matches"`
	DownloadsOK       int     `json:"downloads_ok"`
	DownloadsFailed   int     `json:"downloads_failed"`
	BytesWritten      int64   `json:"bytes_written"`
	RowsWithDocuments int     `json:"rows_with_documents"`
	Duration          float64 `json:"duration"` // 秒
}

// RunResult 一次运行的结果
type RunResult struct {
	Rows     []ResultRow   `json:"rows"`
	Failures []FailureInfo `json:"failures"`
	Stats    RunStats      `json:"stats"`
}

// RunManifest 运行清单,写入本次运行目录
type RunManifest struct {
	RunID     string    `json:"run_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	OutputDir string    `json:"output_dir"`
	CSVFile   string    `json:"csv_file"`
	Keywords  []string  `json:"keywords"`
	Sources   []string  `json:"sources"`

	Stats    RunStats      `json:"stats"`
	Rows     []ResultRow   `json:"rows"`
	Failures []FailureInfo `json:"failures"`
}

// ToJSON 序列化为JSON
func (m *RunManifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
