package clock

import (
	"testing"
	"time"
)

func TestCivilTimeFormatting(t *testing.T) {
	loc := time.FixedZone("MMT", int(6*time.Hour+30*time.Minute)/int(time.Second))
	// 2024-01-01 05:31:00 UTC == 2024-01-01 12:01:00 +0630
	instant := time.Date(2024, 1, 1, 5, 31, 0, 0, time.UTC)

	ct := At(instant, loc)
	if ct.Date() != "2024-01-01" {
		t.Fatalf("日期格式不正确: %s", ct.Date())
	}
	if ct.Clock() != "12:01:00" {
		t.Fatalf("时间格式不正确: %s", ct.Clock())
	}
	if ct.Unix() != instant.Unix() {
		t.Fatalf("epoch 不应随时区变化")
	}
}

func TestCivilTimeZeroPadding(t *testing.T) {
	ct := At(time.Date(2024, 3, 7, 4, 5, 6, 0, time.UTC), time.UTC)
	if ct.Date() != "2024-03-07" {
		t.Fatalf("日期应零填充: %s", ct.Date())
	}
	if ct.Clock() != "04:05:06" {
		t.Fatalf("时间应零填充: %s", ct.Clock())
	}
}

func TestSecondOfDay(t *testing.T) {
	ct := At(time.Date(2024, 1, 1, 16, 30, 0, 0, time.UTC), time.UTC)
	if got := ct.SecondOfDay(); got != 16*3600+30*60 {
		t.Fatalf("SecondOfDay 计算错误: %d", got)
	}

	sec, err := SecondOfDayString("16:30:00")
	if err != nil {
		t.Fatalf("合法触发时间不应报错: %v", err)
	}
	if sec != ct.SecondOfDay() {
		t.Fatalf("字符串与实例换算应一致: %d vs %d", sec, ct.SecondOfDay())
	}

	if _, err := SecondOfDayString("25:00:00"); err == nil {
		t.Fatal("非法时间应报错")
	}
}

func TestNewSystemUnknownZone(t *testing.T) {
	if _, err := NewSystem("Not/AZone"); err == nil {
		t.Fatal("未知时区应报错")
	}
}
