package crawlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/DAReportFinder/internal/models"
	"github.com/RecoveryAshes/DAReportFinder/internal/utils"
)

// SourceQuerier 查询数据源(morph.io data.json)获取DA记录
type SourceQuerier struct {
	fetcher  *DocumentFetcher
	limit    int
	redactor *utils.Redactor
}

// NewSourceQuerier 创建数据源查询器
// limit<=0 时使用 models.DefaultQueryLimit
func NewSourceQuerier(fetcher *DocumentFetcher, limit int) *SourceQuerier {
	if limit <= 0 {
		limit = models.DefaultQueryLimit
	}
	return &SourceQuerier{
		fetcher:  fetcher,
		limit:    limit,
		redactor: utils.NewRedactor(),
	}
}

// sourceRow 数据源返回的一行,只取需要的字段
type sourceRow struct {
	CouncilReference flexString `json:"council_reference"`
	Address          flexString `json:"address"`
	Description      flexString `json:"description"`
	InfoURL          flexString `json:"info_url"`
}

// Query 拉取数据源记录
// 任何失败(网络、状态码、JSON)都以单个错误返回,调用方跳过整个数据源
func (q *SourceQuerier) Query(ctx context.Context, source models.SourceDescriptor) ([]models.Record, error) {
	queryURL, err := q.BuildURL(source)
	if err != nil {
		return nil, err
	}

	utils.Debugf("查询数据源 [%s]: %s", source.Name, q.redactor.RedactURL(queryURL))

	resp, err := q.fetcher.Get(ctx, queryURL)
	if err != nil {
		return nil, q.redactError(err)
	}

	var rows []sourceRow
	if err := json.Unmarshal(bytes.TrimSpace(resp.Body), &rows); err != nil {
		return nil, &models.FetchError{URL: q.redactor.RedactURL(queryURL), Kind: models.FetchDecode, StatusCode: resp.StatusCode, Cause: fmt.Errorf("解析JSON失败: %w", err)}
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.Record{
			Reference:   string(row.CouncilReference),
			Address:     string(row.Address),
			Description: string(row.Description),
			DetailURL:   strings.TrimSpace(string(row.InfoURL)),
		})
	}

	utils.Debugf("数据源 [%s] 返回 %d 条记录", source.Name, len(records))
	return records, nil
}

// redactError 错误信息中的URL可能带有key参数,返回前脱敏
func (q *SourceQuerier) redactError(err error) error {
	var fetchErr *models.FetchError
	if errors.As(err, &fetchErr) {
		fetchErr.URL = q.redactor.RedactURL(fetchErr.URL)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = q.redactor.RedactURL(urlErr.URL)
	}
	return err
}

// BuildURL 拼接查询URL: endpoint?query=...&key=...
func (q *SourceQuerier) BuildURL(source models.SourceDescriptor) (string, error) {
	endpoint, err := url.Parse(source.Endpoint)
	if err != nil {
		return "", fmt.Errorf("数据源地址无效 [%s]: %w", source.Name, err)
	}

	params := endpoint.Query()
	params.Set("query", fmt.Sprintf(models.DefaultSourceQuery, q.limit))
	if key := source.ResolveCredential(); key != "" {
		params.Set("key", key)
	}
	endpoint.RawQuery = params.Encode()

	return endpoint.String(), nil
}

// flexString 兼容字符串/数字/null的JSON字段
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	// 数字或布尔值按原文保存
	*f = flexString(data)
	return nil
}
