package holiday

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	apperrors "github.com/paiban/monthroster/pkg/errors"
	"github.com/paiban/monthroster/pkg/logger"
	"github.com/paiban/monthroster/pkg/model"
)

// DefaultBaseURL 公共节假日接口（Nager.Date v3）
const DefaultBaseURL = "https://date.nager.at"

// Client 远程节假日查询
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient 创建客户端，baseURL 为空时使用默认地址
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Holidays 实现 Provider，只保留全国性的法定假日
func (c *Client) Holidays(ctx context.Context, country string, year int) ([]Holiday, error) {
	country = normalizeCountry(country)
	url := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", c.BaseURL, year, country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "创建节假日请求失败")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSourceUnavailable, "节假日服务不可用").WithField("url", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSourceUnavailable, "读取节假日响应失败")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.CodeSourceUnavailable,
			fmt.Sprintf("节假日服务返回 %d", resp.StatusCode)).WithField("url", url)
	}

	hs, err := ParseHolidays(body, country)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("country", country).
		Int("year", year).
		Int("count", len(hs)).
		Dur("elapsed", time.Since(start)).
		Msg("获取节假日")
	return hs, nil
}

// ParseHolidays 解析接口返回的 JSON 数组
func ParseHolidays(body []byte, country string) ([]Holiday, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.New(apperrors.CodeSourceUnavailable, "节假日响应不是有效的 JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, apperrors.New(apperrors.CodeSourceUnavailable, "节假日响应不是数组")
	}

	var out []Holiday
	var parseErr error
	seen := make(map[string]bool)
	root.ForEach(func(_, item gjson.Result) bool {
		if !isNationwide(item) {
			return true
		}
		raw := item.Get("date").String()
		date, err := model.ParseDate(raw)
		if err != nil {
			parseErr = apperrors.Wrap(err, apperrors.CodeSourceUnavailable, "节假日日期无效")
			return false
		}
		// 同一天多个假日只保留第一个
		if seen[raw] {
			return true
		}
		seen[raw] = true
		out = append(out, Holiday{
			Date:      date,
			Name:      item.Get("name").String(),
			LocalName: item.Get("localName").String(),
			Country:   normalizeCountry(country),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	sortHolidays(out)
	return out, nil
}

// isNationwide 全国适用且类型包含 Public；缺少字段时视为适用
func isNationwide(item gjson.Result) bool {
	if g := item.Get("global"); g.Exists() && !g.Bool() {
		return false
	}
	types := item.Get("types")
	if !types.Exists() {
		return true
	}
	for _, t := range types.Array() {
		if t.String() == "Public" {
			return true
		}
	}
	return false
}
