package utils

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
)

var (
	// SensitiveKeywords 敏感名称关键字 (头部名称和查询参数名共用)
	SensitiveKeywords = []string{
		"authorization",
		"token",
		"key",
		"secret",
		"password",
		"credential",
	}
)

// Redactor 脱敏器
// 负责识别并脱敏敏感HTTP头部和URL查询参数(如数据源的key参数)
type Redactor struct {
	sensitiveKeywords []string
}

// NewRedactor 创建脱敏器
func NewRedactor() *Redactor {
	return &Redactor{
		sensitiveKeywords: SensitiveKeywords,
	}
}

// IsSensitive 根据名称关键字判断是否敏感
func (r *Redactor) IsSensitive(name string) bool {
	nameLower := strings.ToLower(name)
	for _, keyword := range r.sensitiveKeywords {
		if strings.Contains(nameLower, keyword) {
			return true
		}
	}
	return false
}

// RedactValue 脱敏单个值
func (r *Redactor) RedactValue(name, value string) string {
	if !r.IsSensitive(name) || value == "" {
		return value
	}

	// Bearer Token - 仅显示前缀
	if strings.HasPrefix(value, "Bearer ") {
		return "Bearer ***"
	}

	// 长密钥 - 显示前4位+后4位
	if len(value) > 12 {
		return value[:4] + "***" + value[len(value)-4:]
	}

	return "***"
}

// RedactHeaders 脱敏整个http.Header,返回安全的字符串map (用于日志)
func (r *Redactor) RedactHeaders(headers http.Header) map[string]string {
	result := make(map[string]string)
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		result[name] = r.RedactValue(name, values[0])
	}
	return result
}

// RedactHeadersToString 格式化为 "Header1: value1, Header2: value2"
// 按名称排序,保证日志稳定
func (r *Redactor) RedactHeadersToString(headers http.Header) string {
	redacted := r.RedactHeaders(headers)
	names := make([]string, 0, len(redacted))
	for name := range redacted {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+redacted[name])
	}
	return strings.Join(parts, ", ")
}

// RedactURL 脱敏URL中的敏感查询参数
// 无法解析的URL原样返回
func (r *Redactor) RedactURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.RawQuery == "" {
		return rawURL
	}

	query := parsed.Query()
	changed := false
	for name, values := range query {
		if !r.IsSensitive(name) {
			continue
		}
		for i, v := range values {
			values[i] = r.RedactValue(name, v)
		}
		changed = true
	}
	if !changed {
		return rawURL
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}
