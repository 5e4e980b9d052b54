package core

import (
	"fmt"
	"time"
)

const (
	GranularityMonth Granularity = "month"
	GranularityWeek  Granularity = "week"
)

// Granularity selects how dates are bucketed into periods.
type Granularity string

// Bucketer is the strategy interface for period bucketing. Bucket returns the
// UTC range and canonical name of the period that owns the given date.
type Bucketer interface {
	Bucket(date time.Time) Period
}

// MonthBucketer buckets dates into calendar months.
type MonthBucketer struct{}

// Bucket returns [first instant of month, last second of month] in UTC,
// named "YYYY-MM".
func (MonthBucketer) Bucket(date time.Time) Period {
	date = date.UTC()
	year, month := date.Year(), date.Month()
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return Period{
		Name:      fmt.Sprintf("%d-%02d", year, int(month)),
		StartDate: start,
		EndDate:   end,
	}
}

// WeekBucketer buckets dates into ISO weeks (Monday start).
type WeekBucketer struct{}

// Bucket returns [Monday 00:00:00, Sunday 23:59:59] in UTC, named
// "Week of <Monday's date>".
func (WeekBucketer) Bucket(date time.Time) Period {
	d := DateOnly(date)
	offset := (int(d.Weekday()) - int(time.Monday) + 7) % 7
	start := d.AddDate(0, 0, -offset)
	end := start.AddDate(0, 0, 7).Add(-time.Second)
	return Period{
		Name:      "Week of " + start.Format("Jan 2, 2006"),
		StartDate: start,
		EndDate:   end,
	}
}

// bucketers maps granularities to their strategies.
var bucketers = map[Granularity]Bucketer{
	GranularityMonth: MonthBucketer{},
	GranularityWeek:  WeekBucketer{},
}

// GetBucketer returns the bucketing strategy for a granularity.
func GetBucketer(g Granularity) (Bucketer, error) {
	b, ok := bucketers[g]
	if !ok {
		return nil, fmt.Errorf("unknown period granularity: %s", g)
	}
	return b, nil
}
