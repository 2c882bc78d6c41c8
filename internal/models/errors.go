package models

import (
	"fmt"
)

// FetchErrorKind 网络请求失败类型
type FetchErrorKind string

const (
	FetchNetwork FetchErrorKind = "network" // 连接/协议错误
	FetchTimeout FetchErrorKind = "timeout" // 超时
	FetchStatus  FetchErrorKind = "status"  // 非成功状态码
	FetchEmpty   FetchErrorKind = "empty"   // 响应体为空
	FetchDecode  FetchErrorKind = "decode"  // 响应解析失败
)

// FetchError 单次网络请求失败
type FetchError struct {
	URL        string
	Kind       FetchErrorKind
	StatusCode int
	Cause      error
}

// Error 实现error接口
func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("请求失败 [%s] (%s, HTTP %d): %v", e.URL, e.Kind, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("请求失败 [%s] (%s): %v", e.URL, e.Kind, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// SourceQueryError 数据源查询失败,整个数据源被跳过
type SourceQueryError struct {
	SourceName string
	Cause      error
}

func (e *SourceQueryError) Error() string {
	return fmt.Sprintf("数据源查询失败 [%s]: %v", e.SourceName, e.Cause)
}

func (e *SourceQueryError) Unwrap() error {
	return e.Cause
}

// DetailPageFetchError 详情页获取或解析失败,该记录不产生结果行
type DetailPageFetchError struct {
	SourceName string
	Reference  string
	URL        string
	Cause      error
}

func (e *DetailPageFetchError) Error() string {
	return fmt.Sprintf("详情页获取失败 [%s %s] %s: %v", e.SourceName, e.Reference, e.URL, e.Cause)
}

func (e *DetailPageFetchError) Unwrap() error {
	return e.Cause
}

// DocumentDownloadError 单个文档下载失败,同一记录的其他文档继续处理
type DocumentDownloadError struct {
	SourceName string
	Reference  string
	URL        string
	Cause      error
}

func (e *DocumentDownloadError) Error() string {
	return fmt.Sprintf("文档下载失败 [%s %s] %s: %v", e.SourceName, e.Reference, e.URL, e.Cause)
}

func (e *DocumentDownloadError) Unwrap() error {
	return e.Cause
}
