package snapshot

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("创建 pgxmock 失败: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewPostgresStore(mock, zerolog.Nop())
}

func TestPostgresMigrate(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS daily_snapshot").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS snapshot_history").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate 失败: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("期望未满足: %v", err)
	}
}

func TestPostgresSaveDaily(t *testing.T) {
	mock, store := newMockStore(t)

	reading := Reading{TwoD: "60", Set: "1,234.56", Value: "7,890.12", FetchedAt: 1704081660}
	d := Daily{Date: "2024-01-01", Time: "12:01:00"}
	d.Set(PeriodAM, reading)

	amJSON, _ := json.Marshal(reading)
	mock.ExpectExec("INSERT INTO daily_snapshot").
		WithArgs("2024-01-01", "12:01:00", amJSON, []byte(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.SaveDaily(context.Background(), d); err != nil {
		t.Fatalf("SaveDaily 失败: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("期望未满足: %v", err)
	}
}

func TestPostgresLoadDailyNoRow(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT snap_date, snap_time, am, pm FROM daily_snapshot").
		WillReturnRows(pgxmock.NewRows([]string{"snap_date", "snap_time", "am", "pm"}))

	d := store.LoadDaily(context.Background())
	if d.Date != "--" || d.AM != nil || d.PM != nil {
		t.Fatalf("无记录时应返回占位: %+v", d)
	}
}

func TestPostgresLoadDaily(t *testing.T) {
	mock, store := newMockStore(t)

	reading := Reading{TwoD: "60", Set: "1,234.56", Value: "7,890.12", FetchedAt: 1704081660}
	amJSON, _ := json.Marshal(reading)

	mock.ExpectQuery("SELECT snap_date, snap_time, am, pm FROM daily_snapshot").
		WillReturnRows(pgxmock.NewRows([]string{"snap_date", "snap_time", "am", "pm"}).
			AddRow("2024-01-01", "12:01:00", amJSON, []byte(nil)))

	d := store.LoadDaily(context.Background())
	if d.Date != "2024-01-01" {
		t.Fatalf("日期不正确: %+v", d)
	}
	if d.AM == nil || *d.AM != reading {
		t.Fatalf("am 读数不一致: %+v", d.AM)
	}
	if d.PM != nil {
		t.Fatalf("pm 应为空: %+v", d.PM)
	}
}

func TestPostgresAppendHistory(t *testing.T) {
	mock, store := newMockStore(t)

	reading := Reading{TwoD: "05", Set: "1,297.20", Value: "5.00", FetchedAt: 1704081660}
	payload, _ := json.Marshal(reading)

	mock.ExpectExec("INSERT INTO snapshot_history").
		WithArgs("2024-01-01", "am", payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.AppendHistory(context.Background(), "2024-01-01", PeriodAM, reading); err != nil {
		t.Fatalf("AppendHistory 失败: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("期望未满足: %v", err)
	}
}

func TestPostgresLoadHistory(t *testing.T) {
	mock, store := newMockStore(t)

	am := Reading{TwoD: "60", Set: "1,234.56", Value: "7,890.12", FetchedAt: 1}
	amJSON, _ := json.Marshal(am)
	pm := Reading{TwoD: "43", Set: "1,240.54", Value: "8,000.03", FetchedAt: 2}
	pmJSON, _ := json.Marshal(pm)

	mock.ExpectQuery("SELECT snap_date, period, reading").
		WillReturnRows(pgxmock.NewRows([]string{"snap_date", "period", "reading"}).
			AddRow("2024-01-01", "am", amJSON).
			AddRow("2024-01-01", "pm", pmJSON))

	h := store.LoadHistory(context.Background())
	if len(h) != 1 || len(h["2024-01-01"]) != 2 {
		t.Fatalf("历史结构不正确: %+v", h)
	}
	got, _ := h.Get("2024-01-01", PeriodPM)
	if got != pm {
		t.Fatalf("pm 读数不一致: %+v", got)
	}
}

func TestPostgresLoadHistoryQueryFailure(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("SELECT snap_date, period, reading").
		WillReturnError(context.DeadlineExceeded)

	h := store.LoadHistory(context.Background())
	if len(h) != 0 {
		t.Fatalf("查询失败应返回空历史: %+v", h)
	}
}
