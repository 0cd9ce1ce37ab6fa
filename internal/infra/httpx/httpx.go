package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultRetryMax = 1
	DefaultRPS      = 20
	DefaultBurst    = 40

	userAgent = "filmfiesta/1.0 (+https://www.themoviedb.org)"
)

// Transport 把“限速 + 有界重试 + 固定 UA/Accept”固化为统一策略。
//
// 设计目标：gateway 只负责“拼 URL + 解析 JSON”，不关心网络策略细节。
type Transport struct {
	Base http.RoundTripper

	// Limiter 为 nil 时不限速。等待令牌会尊重 request 的 ctx。
	Limiter *rate.Limiter

	// RetryMax 表示最大重试次数（不含首次尝试）。只对传输层错误重试，不对 HTTP 状态码重试。
	RetryMax int
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		if t.Limiter != nil {
			if err := t.Limiter.Wait(req.Context()); err != nil {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, err
			}
		}

		// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", userAgent)
		}
		if r.Header.Get("Accept") == "" {
			r.Header.Set("Accept", "application/json")
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试，直接返回最后错误。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// Options 描述 API client 的网络策略。零值字段使用默认值。
type Options struct {
	ProxyURL string
	Timeout  time.Duration
	RetryMax *int
	RPS      float64
	Burst    int
}

// NewAPIClient 构造访问元数据 API 的 HTTP client。
//
// 规则：
// - proxyURL 非空：走代理
// - RPS<=0：不限速
// - 有界重试 + 总超时
func NewAPIClient(o Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
	}

	if p := strings.TrimSpace(o.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 缺少 scheme 或 host")
		}
		base.Proxy = http.ProxyURL(u)
	}

	retry := DefaultRetryMax
	if o.RetryMax != nil {
		retry = *o.RetryMax
	}

	var lim *rate.Limiter
	if o.RPS > 0 {
		burst := o.Burst
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(o.RPS), burst)
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Transport: &Transport{
			Base:     base,
			Limiter:  lim,
			RetryMax: retry,
		},
		Timeout: timeout,
	}, nil
}
