package crawlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/RecoveryAshes/DAReportFinder/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// DynamicConfig 动态抓取配置
type DynamicConfig struct {
	Timeout            time.Duration
	Headless           bool
	Stealth            bool          // 使用go-rod/stealth隐藏自动化特征
	SettleTime         time.Duration // 页面加载后额外等待时间(等待脚本渲染文档列表)
	InsecureSkipVerify bool
	BrowserBin         string // 浏览器路径,为空时由launcher自动下载/查找
}

// DynamicPageFetcher 使用go-rod渲染详情页
//
// 部分议会门户的文档列表由JavaScript渲染,静态抓取只能拿到空壳页面。
// 浏览器在第一次调用时启动,之后复用,每个页面一个标签页。
// 文档下载仍由DocumentFetcher完成。
type DynamicPageFetcher struct {
	config DynamicConfig

	mu      sync.Mutex
	browser *rod.Browser
}

// NewDynamicPageFetcher 创建动态抓取器(此时不启动浏览器)
func NewDynamicPageFetcher(config DynamicConfig) *DynamicPageFetcher {
	if config.Timeout <= 0 {
		config.Timeout = DefaultRequestTimeout
	}
	return &DynamicPageFetcher{config: config}
}

// FetchPage 渲染页面并返回完整HTML
func (d *DynamicPageFetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	if err := models.ValidateURL(pageURL); err != nil {
		return "", &models.FetchError{URL: pageURL, Kind: models.FetchNetwork, Cause: err}
	}

	browser, err := d.ensureBrowser()
	if err != nil {
		return "", &models.FetchError{URL: pageURL, Kind: models.FetchNetwork, Cause: err}
	}

	page, err := d.newPage(browser)
	if err != nil {
		return "", &models.FetchError{URL: pageURL, Kind: models.FetchNetwork, Cause: fmt.Errorf("创建标签页失败: %w", err)}
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			utils.Debugf("关闭标签页失败: %v", closeErr)
		}
	}()

	navCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()
	page = page.Context(navCtx)

	if err := page.Navigate(pageURL); err != nil {
		return "", d.fetchError(pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", d.fetchError(pageURL, err)
	}

	if d.config.SettleTime > 0 {
		select {
		case <-time.After(d.config.SettleTime):
		case <-navCtx.Done():
			return "", d.fetchError(pageURL, navCtx.Err())
		}
	}

	html, err := page.HTML()
	if err != nil {
		return "", d.fetchError(pageURL, err)
	}

	utils.Debugf("页面渲染完成: %s (%d bytes)", pageURL, len(html))
	return html, nil
}

// Close 关闭浏览器
func (d *DynamicPageFetcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser == nil {
		return nil
	}
	err := d.browser.Close()
	d.browser = nil
	utils.Debugf("浏览器已关闭")
	return err
}

func (d *DynamicPageFetcher) ensureBrowser() (*rod.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser != nil {
		return d.browser, nil
	}

	l := launcher.New().Headless(d.config.Headless)
	if d.config.BrowserBin != "" {
		l = l.Bin(d.config.BrowserBin)
	}
	if d.config.InsecureSkipVerify {
		l = l.Set("ignore-certificate-errors")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	utils.Debugf("浏览器已启动: %s", controlURL)
	d.browser = browser
	return browser, nil
}

func (d *DynamicPageFetcher) newPage(browser *rod.Browser) (*rod.Page, error) {
	if d.config.Stealth {
		return stealth.Page(browser)
	}
	return browser.Page(proto.TargetCreateTarget{URL: ""})
}

func (d *DynamicPageFetcher) fetchError(pageURL string, err error) *models.FetchError {
	kind := models.FetchNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		kind = models.FetchTimeout
	}
	return &models.FetchError{URL: pageURL, Kind: kind, Cause: err}
}
