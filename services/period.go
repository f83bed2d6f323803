package services

import (
	"strings"
	"time"
)

const (
	PeriodWeek   = "week"
	PeriodMonth  = "month"
	PeriodAll    = "all"
	PeriodCustom = "custom"

	DefaultPeriod = PeriodMonth
)

// Period is a half-open window [From, To). An "all" period has zero bounds and is not filtered.
type Period struct {
	Name string
	From time.Time
	To   time.Time
}

func (p Period) Bounded() bool { return p.Name != PeriodAll }

func (p Period) Contains(t time.Time) bool {
	if !p.Bounded() {
		return true
	}
	return !t.Before(p.From) && t.Before(p.To)
}

// AllTime is the unbounded period.
func AllTime() Period { return Period{Name: PeriodAll} }

// ResolvePeriod derives the window for name at now in loc. Windows are calendar aligned:
// a week starts Monday 00:00 and a month on the 1st at 00:00, each running until the start
// of the next one. Unknown names fall back to the current month. Custom bounds are dates
// (2006-01-02) or RFC3339 timestamps; a date bound starts at 00:00 in loc.
func ResolvePeriod(name, from, to string, now time.Time, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch strings.ToLower(strings.TrimSpace(name)) {
	case PeriodWeek:
		offset := (int(midnight.Weekday()) + 6) % 7
		start := midnight.AddDate(0, 0, -offset)
		return Period{Name: PeriodWeek, From: start, To: start.AddDate(0, 0, 7)}, nil
	case PeriodAll:
		return AllTime(), nil
	case PeriodCustom:
		start, err := parseBound(from, loc)
		if err != nil {
			return Period{}, invalid("custom period needs a valid from: %q", from)
		}
		end, err := parseBound(to, loc)
		if err != nil {
			return Period{}, invalid("custom period needs a valid to: %q", to)
		}
		if !end.After(start) {
			return Period{}, invalid("custom period must end after it starts")
		}
		return Period{Name: PeriodCustom, From: start, To: end}, nil
	default:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return Period{Name: PeriodMonth, From: start, To: start.AddDate(0, 1, 0)}, nil
	}
}

func parseBound(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.ParseInLocation("2006-01-02", v, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

// ParseInstant reads a date or RFC3339 timestamp supplied by a caller.
func ParseInstant(v string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := parseBound(v, loc)
	if err != nil {
		return time.Time{}, invalid("not a date or RFC3339 time: %q", v)
	}
	return t, nil
}
