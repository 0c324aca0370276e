package engine

import (
	"strings"
	"testing"
	"time"
)

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		interval time.Duration
	}{
		{name: "duration", raw: "5m", interval: 5 * time.Minute},
		{name: "compound duration", raw: "2h30m", interval: 2*time.Hour + 30*time.Minute},
		{name: "cron", raw: "*/5 * * * *"},
		{name: "cron descriptor", raw: "@hourly"},
		{name: "cron every", raw: "@every 55m"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Interval() != tt.interval {
				t.Fatalf("Interval = %v, want %v", got.Interval(), tt.interval)
			}
			now := time.Now()
			if next := got.Next(now); !next.After(now) {
				t.Fatalf("Next(%v) = %v, not in the future", now, next)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "-5m", "0s", "* * *"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Fatalf("ParseSchedule(%q): expected error", raw)
		}
	}
}

func TestScheduleNextInterval(t *testing.T) {
	t.Parallel()
	s, err := ParseSchedule("10m")
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	if next := s.Next(base); next != base.Add(10*time.Minute) {
		t.Fatalf("Next = %v, want %v", next, base.Add(10*time.Minute))
	}
}

func TestScheduleNextCron(t *testing.T) {
	t.Parallel()
	s, err := ParseSchedule("*/5 * * * *")
	if err != nil {
		t.Fatalf("ParseSchedule: %v", err)
	}
	base := time.Date(2025, 1, 1, 12, 1, 0, 0, time.UTC)
	if next := s.Next(base); next.Minute() != 5 {
		t.Fatalf("Next = %v, want next 5-minute mark", next)
	}
}

func TestParseScheduleErrorMentionsInput(t *testing.T) {
	t.Parallel()
	_, err := ParseSchedule("bogus")
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("error should name the bad schedule, got %v", err)
	}
}
