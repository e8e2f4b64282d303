package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ipxlabs/rts/internal/model"
)

// Fetcher 收益数据拉取器，从外部平台API拉取收益数字
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeoutSecs int) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: time.Duration(timeoutSecs) * time.Second,
		},
	}
}

// FetchRevenue 拉取单个数据源，按DataPath提取收益金额（最小货币单位）
func (f *Fetcher) FetchRevenue(ctx context.Context, source *model.OracleSourceModel) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request for source %d: %w", source.Id, err)
	}
	req.Header.Set("Accept", "application/json")

	// AuthHeader格式为 "Header-Name: value"
	if source.AuthHeader != "" {
		name, value, ok := strings.Cut(source.AuthHeader, ":")
		if ok {
			req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch source %d (%s): %w", source.Id, source.Platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("source %d returned status %d", source.Id, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("failed to read source %d response: %w", source.Id, err)
	}

	return ExtractAmount(body, source.DataPath)
}

// ExtractAmount 按点分路径从JSON响应中提取金额，
// 支持数字和数字字符串两种取值
func ExtractAmount(data []byte, path string) (int64, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return 0, fmt.Errorf("invalid JSON response: %w", err)
	}

	cur := doc
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return 0, fmt.Errorf("data path %q: %q is not an object", path, key)
		}
		cur, ok = obj[key]
		if !ok {
			return 0, fmt.Errorf("data path %q: key %q not found", path, key)
		}
	}

	switch v := cur.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("data path %q: value %s is not an integer amount", path, v.String())
		}
		return n, nil
	case string:
		var n json.Number = json.Number(strings.TrimSpace(v))
		amount, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("data path %q: value %q is not an integer amount", path, v)
		}
		return amount, nil
	default:
		return 0, fmt.Errorf("data path %q: unsupported value type %T", path, cur)
	}
}
