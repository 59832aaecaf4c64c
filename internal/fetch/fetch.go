// 包 fetch 封装 HTTP 客户端（代理/超时/重试/会话 Cookie），用于直接下载已登录的报告页。
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

// DefaultUserAgent 在未配置时使用；目标站点要求 UA 能识别使用者。
const DefaultUserAgent = "masstg-export (mass telegram report extractor)"

// Client 为带重试的 HTTP 客户端。
type Client struct {
	http   *http.Client
	retry  int
	ua     string
	cookie string
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	Retry      int
	UserAgent  string
	Cookie     string
}

// New 创建客户端，支持 http/https 代理与基础超时配置。
// 环境变量 MASSTG_UA / MASSTG_COOKIE 优先于 Options。
func New(opts Options) (*Client, error) {
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && opts.ProxyHTTPS != "" {
				return url.Parse(opts.ProxyHTTPS)
			}
			if req.URL.Scheme == "http" && opts.ProxyHTTP != "" {
				return url.Parse(opts.ProxyHTTP)
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Retry < 0 {
		return nil, fmt.Errorf("retry must be >= 0, got %d", opts.Retry)
	}
	c := &Client{
		http:   &http.Client{Transport: transport, Timeout: opts.Timeout},
		retry:  opts.Retry,
		ua:     opts.UserAgent,
		cookie: opts.Cookie,
	}
	if v := os.Getenv("MASSTG_UA"); v != "" {
		c.ua = v
	}
	if v := os.Getenv("MASSTG_COOKIE"); v != "" {
		c.cookie = v
	}
	if c.ua == "" {
		c.ua = DefaultUserAgent
	}
	return c, nil
}

// Get 请求失败或非 2xx 时按线性回退重试。
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	var lastErr error
	attempts := c.retry + 1
	for i := 0; i < attempts; i++ {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if reqErr != nil {
			return nil, fmt.Errorf("new request: %w", reqErr)
		}
		req.Header.Set("User-Agent", c.ua)
		if c.cookie != "" {
			req.Header.Set("Cookie", c.cookie)
		}
		resp, err := c.http.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("http status: %s", resp.Status)
			if resp.Body != nil {
				resp.Body.Close()
			}
		} else {
			lastErr = err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 300 * time.Millisecond):
		}
	}
	return nil, lastErr
}
