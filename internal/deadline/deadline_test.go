package deadline

import (
	"testing"
	"time"
)

var now = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

func days(n int) time.Time { return now.AddDate(0, 0, n) }

func ptr(t time.Time) *time.Time { return &t }

func TestDaysBetween(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		end  time.Time
		want int
	}{
		{start, 0},
		{start.Add(time.Hour), 1}, // partial day rounds up
		{start.AddDate(0, 0, 1), 1},
		{start.AddDate(0, 0, 1).Add(time.Minute), 2},
		{start.Add(-time.Hour), 0}, // ceil of a small negative
		{start.AddDate(0, 0, -2), -2},
	}
	for _, c := range cases {
		if got := DaysBetween(start, c.end); got != c.want {
			t.Errorf("DaysBetween(start, %v) = %d, want %d", c.end, got, c.want)
		}
	}
}

func TestClassify_Unfinished(t *testing.T) {
	cases := []struct {
		name     string
		forecast time.Time
		want     Health
	}{
		{"forecast today", now.Add(-3 * time.Hour), HealthYellow},
		{"forecast tomorrow", days(1), HealthYellow},
		{"forecast yesterday", days(-1), HealthRed},
		{"forecast in five days", days(5), HealthGreen},
		{"forecast in two days", days(2), HealthGreen},
	}
	for _, c := range cases {
		if got := Classify(now, c.forecast, nil); got != c.want {
			t.Errorf("%s: got %s, want %s", c.name, got, c.want)
		}
	}
}

func TestClassify_Finished(t *testing.T) {
	forecast := days(2)
	if got := Classify(now, forecast, ptr(forecast.Add(time.Second))); got != HealthRed {
		t.Errorf("finished after forecast: got %s, want %s", got, HealthRed)
	}
	if got := Classify(now, forecast, ptr(forecast)); got != HealthGreen {
		t.Errorf("finished exactly at forecast: got %s, want %s", got, HealthGreen)
	}
	if got := Classify(now, forecast, ptr(days(-1))); got != HealthGreen {
		t.Errorf("finished early: got %s, want %s", got, HealthGreen)
	}
}

func TestOnTime_Unfinished(t *testing.T) {
	created := days(-5)
	if !OnTime(now, created, nil, 5) {
		t.Error("elapsed equal to expected should be on time")
	}
	if OnTime(now, created, nil, 4) {
		t.Error("elapsed beyond expected should be late")
	}
}

func TestOnTime_Finished(t *testing.T) {
	created := days(-10)
	finished := ptr(days(-3)) // took 7 days
	if !OnTime(now, created, finished, 7) {
		t.Error("finish within expected duration should be on time")
	}
	if OnTime(now, created, finished, 6) {
		t.Error("finish past expected duration should be late")
	}
	// The snapshot uses the finish instant even if "now" moved on.
	if !OnTime(now.AddDate(1, 0, 0), created, finished, 7) {
		t.Error("finished demands must not decay with the clock")
	}
}
