package builder

import (
	"errors"
	"fmt"
	"time"
)

// IntervalUnit is a calendar unit used by FutureDate.
type IntervalUnit int

const (
	Millisecond IntervalUnit = iota
	Second
	Minute
	Hour
	Day
	Week
	Month
	Year
)

var (
	ErrInvalidHour   = errors.New("triggers: hour must be in 0..23")
	ErrInvalidMinute = errors.New("triggers: minute must be in 0..59")
	ErrInvalidSecond = errors.New("triggers: second must be in 0..59")
	ErrInvalidDay    = errors.New("triggers: day of month must be in 1..31")
	ErrInvalidMonth  = errors.New("triggers: month must be in 1..12")
)

func validateHourMinute(hour, minute int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w, got %d", ErrInvalidHour, hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("%w, got %d", ErrInvalidMinute, minute)
	}
	return nil
}

func validateTime(hour, minute, second int) error {
	if err := validateHourMinute(hour, minute); err != nil {
		return err
	}
	if second < 0 || second > 59 {
		return fmt.Errorf("%w, got %d", ErrInvalidSecond, second)
	}
	return nil
}

func validateDayOfMonth(day int) error {
	if day < 1 || day > 31 {
		return fmt.Errorf("%w, got %d", ErrInvalidDay, day)
	}
	return nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// FutureDate returns now moved forward by interval units.
func FutureDate(interval int, unit IntervalUnit) time.Time {
	return FutureDateFrom(time.Now(), interval, unit)
}

// FutureDateFrom returns from moved forward by interval units. Month and year
// arithmetic normalises like time.AddDate.
func FutureDateFrom(from time.Time, interval int, unit IntervalUnit) time.Time {
	switch unit {
	case Millisecond:
		return from.Add(time.Duration(interval) * time.Millisecond)
	case Second:
		return from.Add(time.Duration(interval) * time.Second)
	case Minute:
		return from.Add(time.Duration(interval) * time.Minute)
	case Hour:
		return from.Add(time.Duration(interval) * time.Hour)
	case Day:
		return from.AddDate(0, 0, interval)
	case Week:
		return from.AddDate(0, 0, 7*interval)
	case Month:
		return from.AddDate(0, interval, 0)
	case Year:
		return from.AddDate(interval, 0, 0)
	}
	return from
}

// TodayAt returns today at the given local time of day.
func TodayAt(hour, minute, second int) (time.Time, error) {
	return DateOf(hour, minute, second, time.Now())
}

// TomorrowAt returns tomorrow at the given local time of day.
func TomorrowAt(hour, minute, second int) (time.Time, error) {
	return DateOf(hour, minute, second, time.Now().AddDate(0, 0, 1))
}

// DateOf returns the given time of day on the date of day, in day's location.
func DateOf(hour, minute, second int, day time.Time) (time.Time, error) {
	if err := validateTime(hour, minute, second); err != nil {
		return time.Time{}, err
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, second, 0, day.Location()), nil
}

// DateOfYMD is DateOf for an explicit calendar date in loc.
func DateOfYMD(hour, minute, second, dayOfMonth, month, year int, loc *time.Location) (time.Time, error) {
	if err := validateTime(hour, minute, second); err != nil {
		return time.Time{}, err
	}
	if err := validateDayOfMonth(dayOfMonth); err != nil {
		return time.Time{}, err
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("%w, got %d", ErrInvalidMonth, month)
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(year, time.Month(month), dayOfMonth, hour, minute, second, 0, loc), nil
}

// EvenHourDate rounds t up to the next whole hour. A zero t means now.
func EvenHourDate(t time.Time) time.Time {
	return EvenHourDateBefore(orNow(t)).Add(time.Hour)
}

// EvenHourDateBefore truncates t to the whole hour. A zero t means now.
func EvenHourDateBefore(t time.Time) time.Time {
	t = orNow(t)
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), 0, 0, 0, t.Location())
}

// EvenMinuteDate rounds t up to the next whole minute. A zero t means now.
func EvenMinuteDate(t time.Time) time.Time {
	return EvenMinuteDateBefore(orNow(t)).Add(time.Minute)
}

// EvenMinuteDateBefore truncates t to the whole minute. A zero t means now.
func EvenMinuteDateBefore(t time.Time) time.Time {
	t = orNow(t)
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, t.Location())
}

// EvenSecondDate rounds t up to the next whole second. A zero t means now.
func EvenSecondDate(t time.Time) time.Time {
	return EvenSecondDateBefore(orNow(t)).Add(time.Second)
}

// EvenSecondDateBefore truncates t to the whole second. A zero t means now.
func EvenSecondDateBefore(t time.Time) time.Time {
	t = orNow(t)
	return t.Add(-time.Duration(t.Nanosecond()))
}

// NextGivenMinuteDate returns the first instant after t whose minute is a
// multiple of base, with seconds cleared. Base 0 means the start of the next
// hour. A zero t means now.
func NextGivenMinuteDate(t time.Time, base int) (time.Time, error) {
	if base < 0 || base > 59 {
		return time.Time{}, fmt.Errorf("triggers: minute base must be in 0..59, got %d", base)
	}
	t = orNow(t)
	hour := EvenHourDateBefore(t)
	if base == 0 {
		return hour.Add(time.Hour), nil
	}
	next := (t.Minute()/base + 1) * base
	if next >= 60 {
		return hour.Add(time.Hour), nil
	}
	return hour.Add(time.Duration(next) * time.Minute), nil
}

// NextGivenSecondDate returns the first instant after t whose second is a
// multiple of base, with milliseconds cleared. Base 0 means the start of the
// next minute. A zero t means now.
func NextGivenSecondDate(t time.Time, base int) (time.Time, error) {
	if base < 0 || base > 59 {
		return time.Time{}, fmt.Errorf("triggers: second base must be in 0..59, got %d", base)
	}
	t = orNow(t)
	minute := EvenMinuteDateBefore(t)
	if base == 0 {
		return minute.Add(time.Minute), nil
	}
	next := (t.Second()/base + 1) * base
	if next >= 60 {
		return minute.Add(time.Minute), nil
	}
	return minute.Add(time.Duration(next) * time.Second), nil
}
