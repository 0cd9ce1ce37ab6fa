package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"
)

type flakyRT struct {
	fails int32
	calls int32
	last  *http.Request
}

func (f *flakyRT) RoundTrip(r *http.Request) (*http.Response, error) {
	n := atomic.AddInt32(&f.calls, 1)
	f.last = r
	if n <= f.fails {
		return nil, errors.New("connection reset")
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
}

func TestTransport_RetriesIdempotentGET(t *testing.T) {
	rt := &flakyRT{fails: 1}
	tr := &Transport{Base: rt, RetryMax: 1}

	req := httptest.NewRequest(http.MethodGet, "http://api.test/movie/popular", nil)
	req.Body = nil
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if rt.calls != 2 {
		t.Fatalf("期望 2 次尝试，实际 %d", rt.calls)
	}
	if rt.last.Header.Get("Accept") != "application/json" || rt.last.Header.Get("User-Agent") == "" {
		t.Fatalf("应补齐默认 header：%v", rt.last.Header)
	}
	if req.Header.Get("Accept") != "" {
		t.Fatalf("不应修改调用方的 request")
	}
}

func TestTransport_NoRetryBeyondMax(t *testing.T) {
	rt := &flakyRT{fails: 5}
	tr := &Transport{Base: rt, RetryMax: 2}

	req := httptest.NewRequest(http.MethodGet, "http://api.test/x", nil)
	req.Body = nil
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if rt.calls != 3 {
		t.Fatalf("期望 3 次尝试，实际 %d", rt.calls)
	}
}

func TestTransport_LimiterRespectsCanceledContext(t *testing.T) {
	rt := &flakyRT{}
	// burst=0：永远拿不到令牌，只能靠 ctx 结束等待。
	tr := &Transport{Base: rt, Limiter: rate.NewLimiter(rate.Limit(1), 0)}

	req := httptest.NewRequest(http.MethodGet, "http://api.test/x", nil)
	req.Body = nil
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatalf("期望限速等待失败，但得到 nil")
	}
	if rt.calls != 0 {
		t.Fatalf("拿不到令牌时不应发出请求，实际 %d", rt.calls)
	}
}

func TestNewAPIClient_Proxy(t *testing.T) {
	c, err := NewAPIClient(Options{ProxyURL: "http://127.0.0.1:8080"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	base := tr.Base.(*http.Transport)
	if base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if tr.RetryMax != DefaultRetryMax {
		t.Fatalf("期望默认 RetryMax=%d，实际 %d", DefaultRetryMax, tr.RetryMax)
	}
	if c.Timeout != DefaultTimeout {
		t.Fatalf("期望默认超时，实际 %v", c.Timeout)
	}
}

func TestNewAPIClient_Defaults(t *testing.T) {
	zero := 0
	c, err := NewAPIClient(Options{RetryMax: &zero, RPS: 5, Burst: 2})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr := c.Transport.(*Transport)
	if tr.Base.(*http.Transport).Proxy != nil {
		t.Fatalf("不期望启用代理")
	}
	if tr.RetryMax != 0 {
		t.Fatalf("显式 RetryMax=0 应生效，实际 %d", tr.RetryMax)
	}
	if tr.Limiter == nil || tr.Limiter.Burst() != 2 {
		t.Fatalf("期望启用限速 burst=2")
	}
}

func TestNewAPIClient_InvalidProxyURL(t *testing.T) {
	if _, err := NewAPIClient(Options{ProxyURL: "http://[::1"}); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}
