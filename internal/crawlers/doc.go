// Package crawlers 提供DA详情页抓取、文档识别和下载功能
//
// # 概述
//
// crawlers包实现单条DA记录的文档发现流程:
// 获取详情页 → 识别候选文档链接 → 关键字分类 → 生成本地文件名 → 下载。
// 所有组件都按顺序调用,每次网络请求只尝试一次。
//
// # 核心组件
//
// ## DocumentFetcher
//
// 基于Colly的静态抓取器,负责详情页HTML、文档字节和数据源JSON。
// 每次请求克隆collector并绑定调用方的context,超时默认30秒。
//
//	fetcher := NewDocumentFetcher(FetcherConfig{Timeout: 30 * time.Second}, headerManager)
//	html, err := fetcher.FetchPage(ctx, "https://example.com/da/1")
//	data, err := fetcher.DownloadFile(ctx, "https://example.com/docs/noise.pdf")
//
// 失败统一返回 *models.FetchError,Kind区分 network/timeout/status/empty/decode。
//
// ## DynamicPageFetcher
//
// 基于go-rod的动态抓取器,用于文档列表由JavaScript渲染的门户。
// 浏览器按需启动并复用,可选go-rod/stealth。只负责详情页,文档下载仍走DocumentFetcher。
//
// ## DocumentClassifier
//
// 用goquery遍历 a[href],链接文本由所有文本节点拼接。
// 规则: href或文本含 .pdf/.doc/.docx 且文本含关键字(默认 acoustic, noise)。
//
//	classifier := NewDocumentClassifier([]string{"acoustic", "noise"}, nil)
//	links, err := classifier.FindMatches(html, pageURL)
//
// ## FilenameResolver
//
// 生成 {source}_{reference}_{basename}.pdf,替换保留字符,重名追加 _1, _2...
// 已分配的路径记录在内存中,连续两次相同输入也会得到不同路径。
//
//	resolver := NewFilenameResolver()
//	path := resolver.Resolve("ACT", "DA123", link.Href, outputDir)
//
// ## SourceQuerier
//
// 查询morph.io数据源,返回 models.Record 列表。日志和错误中的key参数会被脱敏。
//
// # 配置参数
//
//	fetch:
//	  mode: static            # static | dynamic
//	  timeout: 30s
//	  query_limit: 200
//	  insecure_skip_verify: false
//
//	keywords: [acoustic, noise]
//	extensions: [.pdf, .doc, .docx]
package crawlers
