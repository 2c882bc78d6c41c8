package crawlers

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/RecoveryAshes/DAReportFinder/internal/models"
)

// maxStemBytes 文件名主体最大字节数(不含扩展名和去重后缀)
// 常见文件系统单个文件名上限为255字节
const maxStemBytes = 200

var (
	reservedCharsRegex = regexp.MustCompile(`[<>:"/\\|?*]`)

	// \s 只匹配ASCII空白,另外覆盖Unicode空格(NBSP、全角空格等)、\v 和 NEL
	whitespaceRegex = regexp.MustCompile(`[\s\p{Z}\v\x{85}]+`)
)

// FilenameResolver 生成本地文件路径
//
// 路径格式: {outputDir}/{source}_{reference}_{basename}.pdf
// 已存在于磁盘或已被本解析器分配过的路径会追加 _1, _2, ... 后缀
//
// 已分配路径集合由互斥锁保护,同一进程内即使并发下载也不会得到重复路径
type FilenameResolver struct {
	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewFilenameResolver 创建文件名解析器(每次运行一个)
func NewFilenameResolver() *FilenameResolver {
	return &FilenameResolver{
		reserved: make(map[string]struct{}),
	}
}

// Resolve 为候选文档生成唯一的本地路径
// 没有错误分支,最坏情况下(空文件名)也返回合法路径
func (fr *FilenameResolver) Resolve(sourceName, reference, candidateURL, outputDir string) string {
	name := SanitizeFilename(fmt.Sprintf("%s_%s_%s", sourceName, reference, baseNameFromURL(candidateURL)))
	stem := truncateStem(strings.TrimSuffix(name, filepath.Ext(name)))

	fr.mu.Lock()
	defer fr.mu.Unlock()

	fullPath := filepath.Join(outputDir, stem+models.DocumentExtension)
	for i := 1; fr.taken(fullPath); i++ {
		fullPath = filepath.Join(outputDir, fmt.Sprintf("%s_%d%s", stem, i, models.DocumentExtension))
	}

	fr.reserved[fullPath] = struct{}{}
	return fullPath
}

// Release 释放已分配但未写入的路径(下载失败时调用)
func (fr *FilenameResolver) Release(path string) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	delete(fr.reserved, path)
}

// taken 调用者必须已持有 fr.mu
func (fr *FilenameResolver) taken(p string) bool {
	if _, ok := fr.reserved[p]; ok {
		return true
	}
	_, err := os.Lstat(p)
	return err == nil
}

// SanitizeFilename 替换文件系统保留字符,空白序列合并为单个下划线
func SanitizeFilename(name string) string {
	name = reservedCharsRegex.ReplaceAllString(name, "_")
	return whitespaceRegex.ReplaceAllString(name, "_")
}

// baseNameFromURL 取URL路径最后一段(去掉查询串和片段)
// 按转义后的路径切分,%2F 不会被当作路径分隔符
func baseNameFromURL(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil {
		escaped := parsed.EscapedPath()
		if escaped == "" || strings.HasSuffix(escaped, "/") {
			return ""
		}
		last := path.Base(escaped)
		if unescaped, err := url.PathUnescape(last); err == nil {
			return unescaped
		}
		return last
	}

	// 无法解析时按原始文本处理
	last := rawURL[strings.LastIndex(rawURL, "/")+1:]
	if idx := strings.IndexAny(last, "?#"); idx >= 0 {
		last = last[:idx]
	}
	return last
}

// truncateStem 按字节截断,保证不切断多字节字符
func truncateStem(stem string) string {
	if len(stem) <= maxStemBytes {
		return stem
	}
	cut := maxStemBytes
	for cut > 0 && !utf8.RuneStart(stem[cut]) {
		cut--
	}
	return stem[:cut]
}
