package app

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"set-index-snapshots/internal/config"
	"set-index-snapshots/internal/snapshot"
)

func testApp() *App {
	cfg := &config.Config{}
	cfg.Windows.AM = "12:01:00"
	cfg.Windows.PM = "16:30:00"
	cfg.Export.MaxDataPoints = 100
	return NewApp(cfg, zerolog.Nop())
}

func sampleHistory() snapshot.History {
	h := make(snapshot.History)
	h.Put("2024-01-01", snapshot.PeriodAM, snapshot.Reading{TwoD: "60", Set: "1,234.56", Value: "7,890.12", FetchedAt: 1})
	h.Put("2024-01-01", snapshot.PeriodPM, snapshot.Reading{TwoD: "43", Set: "1,240.54", Value: "8,000.03", FetchedAt: 2})
	h.Put("2024-01-02", snapshot.PeriodAM, snapshot.Reading{Error: "dial timeout", FetchedAt: 3})
	h.Put("2024-01-03", snapshot.PeriodAM, snapshot.Reading{TwoD: "11", Set: "1,250.01", Value: "9,000.01", FetchedAt: 4})
	return h
}

func TestCollectEntriesSortedAndBounded(t *testing.T) {
	a := testApp()

	entries := a.collectEntries(sampleHistory(), time.UTC, ExportOptions{})
	if len(entries) != 4 {
		t.Fatalf("应收集全部条目: %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].When.Before(entries[i-1].When) {
			t.Fatalf("条目应按时间升序: %v 在 %v 之后", entries[i].When, entries[i-1].When)
		}
	}
	if entries[0].Period != snapshot.PeriodAM || entries[1].Period != snapshot.PeriodPM {
		t.Fatalf("同一天 am 应早于 pm: %+v", entries[:2])
	}

	bounded := a.collectEntries(sampleHistory(), time.UTC, ExportOptions{From: "2024-01-02", To: "2024-01-02"})
	if len(bounded) != 1 || bounded[0].Date != "2024-01-02" {
		t.Fatalf("日期过滤不正确: %+v", bounded)
	}
}

func TestDownsampleEntries(t *testing.T) {
	entries := make([]historyEntry, 10)
	for i := range entries {
		entries[i].When = time.Unix(int64(i), 0)
	}

	down := downsampleEntries(entries, 4)
	if len(down) != 4 {
		t.Fatalf("降采样后应为 4 条: %d", len(down))
	}
	if !down[0].When.Equal(entries[0].When) || !down[3].When.Equal(entries[9].When) {
		t.Fatalf("降采样应保留首尾: %+v", down)
	}

	if got := downsampleEntries(entries, 20); len(got) != 10 {
		t.Fatalf("上限大于条目数时不应降采样: %d", len(got))
	}

	one := downsampleEntries(entries, 1)
	if len(one) != 1 || !one[0].When.Equal(entries[9].When) {
		t.Fatalf("上限为 1 时应只保留最后一条: %+v", one)
	}
}

func TestWriteHistoryCSV(t *testing.T) {
	a := testApp()
	entries := a.collectEntries(sampleHistory(), time.UTC, ExportOptions{})

	path := filepath.Join(t.TempDir(), "out", "history.csv")
	if err := writeHistoryCSV(path, entries); err != nil {
		t.Fatalf("写 CSV 失败: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("打开 CSV 失败: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("读 CSV 失败: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("应为表头加四行: %d", len(rows))
	}
	if rows[0][0] != "date" || rows[1][2] != "60" {
		t.Fatalf("CSV 内容不正确: %+v", rows[:2])
	}
}

func TestExportRequiresOutput(t *testing.T) {
	a := testApp()
	if err := a.Export(context.Background(), ExportOptions{}); err == nil {
		t.Fatal("未指定输出时应报错")
	}
}

func TestExportRejectsBadBounds(t *testing.T) {
	a := testApp()
	err := a.Export(context.Background(), ExportOptions{CSVPath: "x.csv", From: "01-02-2024"})
	if err == nil {
		t.Fatal("非法日期边界应报错")
	}
}
