package crawlers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/RecoveryAshes/DAReportFinder/internal/utils"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
)

// DocumentClassifier 从详情页中识别声学/噪声报告链接
//
// 判断规则(仅基于链接元数据,不检查文档内容):
//  1. 链接href或可见文本包含文档标记(.pdf/.doc/.docx),不区分大小写
//  2. 可见文本包含任一关键字,不区分大小写
//
// 无可见文本的链接只可能通过href满足规则1,永远不满足规则2
type DocumentClassifier struct {
	keywords []string
	markers  []string
}

// NewDocumentClassifier 创建分类器
// keywords/markers为空时使用默认值
func NewDocumentClassifier(keywords, markers []string) *DocumentClassifier {
	if len(keywords) == 0 {
		keywords = models.DefaultKeywords
	}
	if len(markers) == 0 {
		markers = models.DefaultDocumentMarkers
	}

	fold := cases.Fold()
	dc := &DocumentClassifier{}
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			dc.keywords = append(dc.keywords, fold.String(kw))
		}
	}
	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" {
			dc.markers = append(dc.markers, strings.ToLower(m))
		}
	}
	return dc
}

// Keywords 生效的关键字(已折叠大小写)
func (dc *DocumentClassifier) Keywords() []string {
	return append([]string(nil), dc.keywords...)
}

// FindMatches 返回页面中命中的文档链接,顺序与页面中出现的顺序一致
// 指向同一URL的多个锚点都会返回,本地文件名冲突由FilenameResolver处理
func (dc *DocumentClassifier) FindMatches(pageHTML, pageURL string) ([]models.DocumentLink, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("解析页面URL失败: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("解析HTML失败: %w", err)
	}

	fold := cases.Fold()
	matches := make([]models.DocumentLink, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		text := LinkText(s)
		if !dc.isDocumentLink(href, text) {
			return
		}
		if !dc.hasKeyword(fold.String(text)) {
			utils.Debugf("文档链接未命中关键字: %s (%q)", href, text)
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			utils.Debugf("跳过无法解析的链接: %s: %v", href, err)
			return
		}
		abs := base.ResolveReference(ref)
		if !models.IsHTTPURL(abs) {
			return
		}
		abs.Fragment = ""

		matches = append(matches, models.DocumentLink{Href: abs.String(), LinkText: text})
	})

	return matches, nil
}

// isDocumentLink href或文本中含文档标记
func (dc *DocumentClassifier) isDocumentLink(href, text string) bool {
	lowerHref := strings.ToLower(href)
	lowerText := strings.ToLower(text)
	for _, m := range dc.markers {
		if strings.Contains(lowerHref, m) || strings.Contains(lowerText, m) {
			return true
		}
	}
	return false
}

// hasKeyword foldedText 必须已折叠大小写
func (dc *DocumentClassifier) hasKeyword(foldedText string) bool {
	if foldedText == "" {
		return false
	}
	for _, kw := range dc.keywords {
		if strings.Contains(foldedText, kw) {
			return true
		}
	}
	return false
}

// LinkText 提取锚点下所有文本节点
// 每个节点去除首尾空白后以单个空格连接,内部空白序列也合并为单个空格
func LinkText(s *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
