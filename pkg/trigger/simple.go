package trigger

import (
	"math"
	"math/big"
	"time"
)

func (t *Trigger) simpleFireTimeAfter(after time.Time) time.Time {
	s := &t.simple
	if s.complete {
		return time.Time{}
	}
	if s.timesTriggered > s.repeatCount && s.repeatCount != RepeatIndefinitely {
		return time.Time{}
	}
	if after.IsZero() {
		after = time.Now()
	}
	if s.repeatCount == 0 && !after.Before(t.startTime) {
		return time.Time{}
	}
	if !t.endTime.IsZero() && !t.endTime.After(after) {
		return time.Time{}
	}
	if after.Before(t.startTime) {
		return t.startTime
	}
	if s.repeatInterval < 1 {
		return time.Time{}
	}

	occurrence := intervalsBetween(t.startTime, after, s.repeatInterval)
	if occurrence == math.MaxInt64 {
		return time.Time{}
	}
	occurrence++
	if occurrence > int64(s.repeatCount) && s.repeatCount != RepeatIndefinitely {
		return time.Time{}
	}
	next := addIntervals(t.startTime, occurrence, s.repeatInterval)
	if !t.endTime.IsZero() && !t.endTime.After(next) {
		return time.Time{}
	}
	return next
}

func (t *Trigger) simpleFireTimeBefore(end time.Time) time.Time {
	if end.Before(t.startTime) {
		return time.Time{}
	}
	if t.simple.repeatInterval < 1 {
		return t.startTime
	}
	n := intervalsBetween(t.startTime, end, t.simple.repeatInterval)
	return addIntervals(t.startTime, n, t.simple.repeatInterval)
}

func (t *Trigger) simpleFinalFireTime() time.Time {
	s := &t.simple
	if s.repeatCount == 0 {
		return t.startTime
	}
	if s.repeatCount == RepeatIndefinitely {
		if t.endTime.IsZero() {
			return time.Time{}
		}
		return t.simpleFireTimeBefore(t.endTime)
	}
	last := addIntervals(t.startTime, int64(s.repeatCount), s.repeatInterval)
	if t.endTime.IsZero() || last.Before(t.endTime) {
		return last
	}
	return t.simpleFireTimeBefore(t.endTime)
}

// NumTimesFiredBetween returns how many whole repeat intervals fit between
// start and end. It is zero for triggers without a repeat interval.
func (t *Trigger) NumTimesFiredBetween(start, end time.Time) int {
	if t.simple.repeatInterval < 1 || start.IsZero() || end.IsZero() {
		return 0
	}
	n := intervalsBetween(start, end, t.simple.repeatInterval)
	if n > math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

var nanosPerSecond = big.NewInt(int64(time.Second))

// intervalsBetween returns how many whole intervals fit in end-start. Spans
// longer than time.Duration can hold fall back to big arithmetic. The result
// saturates at math.MaxInt64.
func intervalsBetween(start, end time.Time, interval time.Duration) int64 {
	d := end.Sub(start)
	if d > math.MinInt64 && d < math.MaxInt64 {
		return int64(d / interval)
	}
	span := big.NewInt(end.Unix() - start.Unix())
	span.Mul(span, nanosPerSecond)
	span.Add(span, big.NewInt(int64(end.Nanosecond()-start.Nanosecond())))
	span.Quo(span, big.NewInt(int64(interval)))
	if !span.IsInt64() {
		if span.Sign() < 0 {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return span.Int64()
}

// addIntervals returns start + n*interval without overflowing
// time.Duration. n must not be negative.
func addIntervals(start time.Time, n int64, interval time.Duration) time.Time {
	if n == 0 || int64(interval) <= math.MaxInt64/n {
		return start.Add(time.Duration(n) * interval)
	}
	total := new(big.Int).Mul(big.NewInt(n), big.NewInt(int64(interval)))
	secs, nanos := new(big.Int).QuoRem(total, nanosPerSecond, new(big.Int))
	return time.Unix(start.Unix()+secs.Int64(), int64(start.Nanosecond())+nanos.Int64()).In(start.Location())
}
