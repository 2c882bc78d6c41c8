package models

import "time"

// DefaultKeywords 默认关键字(声学/噪声报告)
var DefaultKeywords = []string{"acoustic", "noise"}

// DefaultDocumentMarkers 文档类链接标记
var DefaultDocumentMarkers = []string{".pdf", ".doc", ".docx"}

// DocumentExtension 所有下载文件统一使用的扩展名
const DocumentExtension = ".pdf"

// DocumentLink 详情页中提取出的文档链接
type DocumentLink struct {
	Href     string `json:"href"`      // 绝对URL
	LinkText string `json:"link_text"` // 可见文本
}

// MatchedDocument 已下载的匹配文档
// 写入成功后创建,之后不再修改
type MatchedDocument struct {
	Link         DocumentLink `json:"link"`
	LocalPath    string       `json:"local_path"`
	Size         int64        `json:"size"`
	DownloadedAt time.Time    `json:"downloaded_at"`
}
