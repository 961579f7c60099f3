package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestFetchPageSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Fatalf("User-Agent 不正确: %s", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	p := NewPage(PageOptions{URL: srv.URL, Timeout: time.Second, UserAgent: "test-agent"}, noopLogger())
	body, err := p.FetchPage(context.Background())
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if body != "<html>ok</html>" {
		t.Fatalf("返回内容不正确: %q", body)
	}
}

func TestFetchPageBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewPage(PageOptions{URL: srv.URL, Timeout: time.Second}, noopLogger())
	_, err := p.FetchPage(context.Background())
	if err == nil {
		t.Fatal("非 2xx 应返回错误")
	}
	if !errors.Is(err, ErrBadStatus) {
		t.Fatalf("应为 ErrBadStatus: %v", err)
	}
}

func TestFetchPageTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	p := NewPage(PageOptions{URL: srv.URL, Timeout: 50 * time.Millisecond}, noopLogger())
	if _, err := p.FetchPage(context.Background()); err == nil {
		t.Fatal("超时应返回错误")
	}
}

func TestFetchPageMissingURL(t *testing.T) {
	p := NewPage(PageOptions{}, noopLogger())
	if _, err := p.FetchPage(context.Background()); err == nil {
		t.Fatal("未配置 URL 应报错")
	}
}
