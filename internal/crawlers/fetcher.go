package crawlers

import (
	"bytes"
	"compress/flate"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/RecoveryAshes/DAReportFinder/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// DefaultRequestTimeout 单次网络请求超时
const DefaultRequestTimeout = 30 * time.Second

// PageFetcher 获取详情页HTML
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) (string, error)
}

// FileDownloader 下载文档原始字节
type FileDownloader interface {
	DownloadFile(ctx context.Context, fileURL string) ([]byte, error)
}

// FetcherConfig 抓取器配置
type FetcherConfig struct {
	Timeout            time.Duration
	MaxBodySize        int  // 字节, 0 表示不限制
	InsecureSkipVerify bool // 跳过TLS证书验证
}

// Response 一次成功请求的结果
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// DocumentFetcher 基于Colly的静态抓取器
//
// 每次请求克隆一个collector并绑定调用方的context:
//   - 同步模式,一次调用一个请求
//   - 允许重复访问同一URL(不同记录可能链接同一文档)
//   - 不重试,超时即失败
type DocumentFetcher struct {
	collector      *colly.Collector
	headerProvider models.HeaderProvider
	timeout        time.Duration
}

// NewDocumentFetcher 创建抓取器
func NewDocumentFetcher(config FetcherConfig, headerProvider models.HeaderProvider) *DocumentFetcher {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	// 所有状态码都交给OnResponse,由 isSuccessStatus 判断
	// colly默认把 >=203 视为错误,203/206 等2xx也会失败
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.MaxBodySize(config.MaxBodySize),
		colly.ParseHTTPErrorResponse(),
	)

	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify,
		},
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
	})
	if config.InsecureSkipVerify {
		utils.Warnf("TLS证书验证已禁用")
	}

	// 克隆出的collector共享同一个http.Client,超时对所有请求生效
	c.SetRequestTimeout(timeout)
	utils.Debugf("抓取器: HTTP超时设置为 %s", timeout)

	return &DocumentFetcher{
		collector:      c,
		headerProvider: headerProvider,
		timeout:        timeout,
	}
}

// FetchPage 获取详情页HTML
func (f *DocumentFetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	resp, err := f.do(ctx, pageURL, true)
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// DownloadFile 下载文档字节
// 响应体为空视为失败,保证结果行中的每个文件都有内容
func (f *DocumentFetcher) DownloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	resp, err := f.do(ctx, fileURL, false)
	if err != nil {
		return nil, err
	}
	if len(resp.Body) == 0 {
		return nil, &models.FetchError{URL: fileURL, Kind: models.FetchEmpty, StatusCode: resp.StatusCode, Cause: errors.New("响应体为空")}
	}
	return resp.Body, nil
}

// Get 发起GET请求并返回完整响应(数据源查询使用)
func (f *DocumentFetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	return f.do(ctx, rawURL, false)
}

func (f *DocumentFetcher) do(ctx context.Context, rawURL string, detectCharset bool) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, &models.FetchError{URL: rawURL, Kind: models.FetchNetwork, Cause: err}
	}

	c := f.collector.Clone()
	c.Context = ctx
	c.DetectCharset = detectCharset

	var (
		result     *Response
		statusCode int
	)

	c.OnRequest(func(r *colly.Request) {
		if f.headerProvider == nil {
			return
		}
		headers, err := f.headerProvider.GetHeaders()
		if err != nil {
			utils.Warnf("获取HTTP头部失败: %v", err)
			return
		}
		for name, values := range headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
	})

	c.OnResponse(func(r *colly.Response) {
		body := r.Body
		if encoding := r.Headers.Get("Content-Encoding"); encoding != "" {
			decoded, err := decodeBody(encoding, r.Body)
			if err != nil {
				utils.Warnf("解压响应失败 [%s] (编码=%s): %v", rawURL, encoding, err)
			} else {
				body = decoded
			}
		}

		result = &Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       body,
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	utils.Debugf("访问: %s", rawURL)
	if err := c.Visit(rawURL); err != nil {
		return nil, classifyFetchError(rawURL, statusCode, err)
	}
	if result == nil {
		// 请求被中止(如OnRequest中Abort),没有响应
		return nil, &models.FetchError{URL: rawURL, Kind: models.FetchNetwork, Cause: errors.New("未收到响应")}
	}
	// 重定向已由http.Client跟随,这里是最终状态码
	if !isSuccessStatus(result.StatusCode) {
		return nil, &models.FetchError{URL: rawURL, Kind: models.FetchStatus, StatusCode: result.StatusCode, Cause: errors.New(http.StatusText(result.StatusCode))}
	}

	return result, nil
}

// isSuccessStatus 2xx视为成功
func isSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}

// classifyFetchError 将colly/net错误归类为FetchError
func classifyFetchError(rawURL string, statusCode int, err error) *models.FetchError {
	fetchErr := &models.FetchError{URL: rawURL, Kind: models.FetchNetwork, StatusCode: statusCode, Cause: err}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fetchErr.Kind = models.FetchTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		fetchErr.Kind = models.FetchTimeout
	case statusCode != 0 && !isSuccessStatus(statusCode):
		fetchErr.Kind = models.FetchStatus
	}
	return fetchErr
}

// decodeBody 根据Content-Encoding解码响应体
// gzip已由colly解码,这里处理 br 和 deflate
func decodeBody(contentEncoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "br":
		decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decoded, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decoded, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decoded, nil

	default:
		return body, nil
	}
}
