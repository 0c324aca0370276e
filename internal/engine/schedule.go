package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule is either a cron expression or a fixed interval.
//
// Supported forms:
//   - Cron (crontab.guru-style): "*/5 * * * *", "@hourly", "@every 55m"
//   - Interval duration: "5m", "2h30m"
type Schedule struct {
	cron  cron.Schedule
	every time.Duration
}

// ParseSchedule parses a schedule string. Anything with whitespace or a
// leading '@' is treated as cron; otherwise it must be a Go duration.
func ParseSchedule(raw string) (Schedule, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Schedule{}, fmt.Errorf("schedule required")
	}

	if strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@") {
		sched, err := cron.ParseStandard(s)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid cron schedule %q: %w", raw, err)
		}
		return Schedule{cron: sched}, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid schedule %q (use cron like '*/5 * * * *' or duration like '5m')", raw)
	}
	if d <= 0 {
		return Schedule{}, fmt.Errorf("interval must be > 0")
	}
	return Schedule{every: d}, nil
}

// Next returns the first activation strictly after t.
func (s Schedule) Next(t time.Time) time.Time {
	if s.cron != nil {
		return s.cron.Next(t)
	}
	return t.Add(s.every)
}

// Interval reports the fixed interval, or 0 for cron schedules.
func (s Schedule) Interval() time.Duration { return s.every }
