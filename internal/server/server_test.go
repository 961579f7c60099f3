package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"set-index-snapshots/internal/recorder"
	"set-index-snapshots/internal/snapshot"
)

type stubRecorder struct {
	recorded int
}

func (s *stubRecorder) Record(context.Context) recorder.Result {
	s.recorded++
	return recorder.Result{
		Date:   "2024-01-01",
		Time:   "12:01:00",
		Saved:  true,
		Period: snapshot.PeriodAM,
		Live:   snapshot.Reading{TwoD: "60", Set: "1,234.56", Value: "7,890.12", FetchedAt: 1704081660},
	}
}

func (s *stubRecorder) Live(context.Context) recorder.LiveSnapshot {
	return recorder.LiveSnapshot{
		Date: "2024-01-01",
		Time: "13:00:00",
		Live: snapshot.Reading{Error: "dial timeout", FetchedAt: 1704085200},
	}
}

func (s *stubRecorder) Daily(context.Context) snapshot.Daily {
	return snapshot.PlaceholderDaily()
}

func (s *stubRecorder) History(context.Context) snapshot.History {
	h := make(snapshot.History)
	h.Put("2024-01-01", snapshot.PeriodAM, snapshot.Reading{TwoD: "60"})
	return h
}

func newTestServer(t *testing.T) (*httptest.Server, *stubRecorder) {
	t.Helper()
	rec := &stubRecorder{}
	srv := httptest.NewServer(New(Options{}, rec, zerolog.Nop()).Handler())
	t.Cleanup(srv.Close)
	return srv, rec
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("响应应为合法 JSON: %v", err)
	}
	return resp.StatusCode
}

func TestLiveRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/", "/live"} {
		var body struct {
			Date string           `json:"date"`
			Time string           `json:"time"`
			Live snapshot.Reading `json:"live"`
		}
		if code := getJSON(t, srv.URL+path, &body); code != http.StatusOK {
			t.Fatalf("%s 应返回 200, 实际 %d", path, code)
		}
		if body.Date != "2024-01-01" {
			t.Fatalf("%s 日期不正确: %+v", path, body)
		}
		// Degraded readings still serve as 200 with the error field set.
		if body.Live.Error == "" {
			t.Fatalf("降级读数应带 error 字段: %+v", body.Live)
		}
	}
}

func TestDailyRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	var d snapshot.Daily
	if code := getJSON(t, srv.URL+"/daily", &d); code != http.StatusOK {
		t.Fatalf("应返回 200, 实际 %d", code)
	}
	if d.Date != "--" || d.AM != nil {
		t.Fatalf("应返回占位记录: %+v", d)
	}
}

func TestHistoryRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	var h snapshot.History
	if code := getJSON(t, srv.URL+"/history", &h); code != http.StatusOK {
		t.Fatalf("应返回 200, 实际 %d", code)
	}
	if got, ok := h.Get("2024-01-01", snapshot.PeriodAM); !ok || got.TwoD != "60" {
		t.Fatalf("历史内容不正确: %+v", h)
	}
}

func TestRecordRoute(t *testing.T) {
	srv, rec := newTestServer(t)

	resp, err := http.Post(srv.URL+"/record", "application/json", nil)
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()

	var result recorder.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("解析结果失败: %v", err)
	}
	if !result.Saved || result.Period != snapshot.PeriodAM {
		t.Fatalf("手动触发结果不正确: %+v", result)
	}
	if rec.recorded != 1 {
		t.Fatalf("应恰好执行一次记录: %d", rec.recorded)
	}

	// GET on the trigger route is not allowed.
	getResp, err := http.Get(srv.URL + "/record")
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /record 应为 405, 实际 %d", getResp.StatusCode)
	}
}

func TestHealthRoute(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]string
	if code := getJSON(t, srv.URL+"/healthz", &body); code != http.StatusOK {
		t.Fatalf("应返回 200, 实际 %d", code)
	}
	if body["status"] != "ok" {
		t.Fatalf("健康检查内容不正确: %+v", body)
	}
}
