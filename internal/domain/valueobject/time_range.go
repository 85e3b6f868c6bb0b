package valueobject

import (
	"errors"
	"time"
)

// TimeRange представляет временной диапазон (Value Object)
// Иммутабельный объект
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange создает новый TimeRange с валидацией
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.After(end) {
		return TimeRange{}, errors.New("start time must be before end time")
	}

	if start.IsZero() || end.IsZero() {
		return TimeRange{}, errors.New("start and end times cannot be zero")
	}

	return TimeRange{
		start: start,
		end:   end,
	}, nil
}

// NewTimeRangeEndingAt создает TimeRange длиной duration, заканчивающийся в end
func NewTimeRangeEndingAt(end time.Time, duration time.Duration) (TimeRange, error) {
	if duration <= 0 {
		return TimeRange{}, errors.New("duration must be positive")
	}
	return NewTimeRange(end.Add(-duration), end)
}

// Start возвращает начальное время
func (tr TimeRange) Start() time.Time {
	return tr.start
}

// End возвращает конечное время
func (tr TimeRange) End() time.Time {
	return tr.end
}

// Contains проверяет, попадает ли указанное время в диапазон
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.start) && !t.After(tr.end)
}

// Period - период аналитики ("7d", "30d", "90d")
type Period string

const (
	Period7d  Period = "7d"
	Period30d Period = "30d"
	Period90d Period = "90d"
)

// ParsePeriod возвращает известный период; все остальное трактуется как 7d
func ParsePeriod(raw string) Period {
	switch Period(raw) {
	case Period30d:
		return Period30d
	case Period90d:
		return Period90d
	default:
		return Period7d
	}
}

// Duration возвращает длительность периода
func (p Period) Duration() time.Duration {
	day := 24 * time.Hour
	switch p {
	case Period30d:
		return 30 * day
	case Period90d:
		return 90 * day
	default:
		return 7 * day
	}
}

// Range строит диапазон периода, заканчивающийся в now
func (p Period) Range(now time.Time) TimeRange {
	return TimeRange{start: now.Add(-p.Duration()), end: now}
}
