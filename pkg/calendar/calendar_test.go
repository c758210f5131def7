package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-triggers/pkg/core"
)

// Monday.
var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestCalendarInterface(t *testing.T) {
	daily, err := NewDaily(nil, "09:00", "17:00")
	require.NoError(t, err)

	var _ core.Calendar = NewBase(nil)
	var _ core.Calendar = NewHoliday(nil)
	var _ core.Calendar = NewWeekly(nil)
	var _ core.Calendar = daily
	var _ core.Calendar = NewFunc(nil, "", func(time.Time) bool { return true })
	var _ core.NextIncludedTimer = NewWeekly(nil)
	var _ core.NextIncludedTimer = daily
}

func TestBase_IncludesEverythingWithoutChain(t *testing.T) {
	b := NewBase(nil)
	b.SetDescription("all")
	assert.True(t, b.IsTimeIncluded(day0))
	assert.Equal(t, day0.Add(time.Nanosecond), b.NextIncludedTime(day0))
	assert.Equal(t, "all", b.Description())
}

func TestHoliday(t *testing.T) {
	h := NewHoliday(nil)
	h.AddExcludedDate(day0.Add(15 * time.Hour))
	h.AddExcludedDate(day0.AddDate(0, 0, 1))

	assert.False(t, h.IsTimeIncluded(day0.Add(3*time.Hour)))
	assert.False(t, h.IsTimeIncluded(day0.AddDate(0, 0, 1).Add(23*time.Hour)))
	assert.True(t, h.IsTimeIncluded(day0.AddDate(0, 0, 2)))
	assert.Equal(t, day0.AddDate(0, 0, 2), h.NextIncludedTime(day0))
	assert.Equal(t, []time.Time{day0, day0.AddDate(0, 0, 1)}, h.ExcludedDates())

	h.RemoveExcludedDate(day0)
	assert.True(t, h.IsTimeIncluded(day0.Add(time.Hour)))
}

func TestHoliday_Location(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	h := NewHoliday(nil)
	h.SetLocation(tokyo)
	h.AddExcludedDate(time.Date(2024, 1, 2, 0, 0, 0, 0, tokyo))

	// 2024-01-01T16:00Z is already January 2nd in Tokyo.
	assert.False(t, h.IsTimeIncluded(day0.Add(16*time.Hour)))
	assert.True(t, h.IsTimeIncluded(day0.Add(14*time.Hour)))
}

func TestWeekly_DefaultsToWeekends(t *testing.T) {
	w := NewWeekly(nil)
	sat := day0.AddDate(0, 0, 5)

	assert.True(t, w.IsTimeIncluded(day0))
	assert.False(t, w.IsTimeIncluded(sat.Add(10*time.Hour)))
	assert.Equal(t, day0.AddDate(0, 0, 7), w.NextIncludedTime(sat))

	w.SetDayExcluded(time.Monday, true)
	assert.Equal(t, day0.AddDate(0, 0, 8), w.NextIncludedTime(sat))
	assert.True(t, w.IsDayExcluded(time.Monday))
}

func TestWeekly_AllExcluded(t *testing.T) {
	w := NewWeekly(nil)
	for d := time.Sunday; d <= time.Saturday; d++ {
		w.SetDayExcluded(d, true)
	}
	assert.True(t, w.AreAllDaysExcluded())
	assert.True(t, w.NextIncludedTime(day0).IsZero())
}

func TestDaily(t *testing.T) {
	d, err := NewDaily(nil, "09:00", "17:30")
	require.NoError(t, err)

	assert.True(t, d.IsTimeIncluded(day0.Add(8*time.Hour)))
	assert.False(t, d.IsTimeIncluded(day0.Add(9*time.Hour)))
	assert.True(t, d.IsTimeIncluded(day0.Add(17*time.Hour+30*time.Minute)))
	assert.Equal(t, day0.Add(17*time.Hour+30*time.Minute), d.NextIncludedTime(day0.Add(12*time.Hour)))

	d.SetInverted(true)
	assert.False(t, d.IsTimeIncluded(day0.Add(8*time.Hour)))
	assert.True(t, d.IsTimeIncluded(day0.Add(12*time.Hour)))
	assert.Equal(t, day0.Add(9*time.Hour), d.NextIncludedTime(day0.Add(2*time.Hour)))
	assert.Equal(t, day0.AddDate(0, 0, 1).Add(9*time.Hour), d.NextIncludedTime(day0.Add(20*time.Hour)))
}

func TestDaily_InvalidRange(t *testing.T) {
	_, err := NewDaily(nil, "17:00", "09:00")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = NewDaily(nil, "nine", "10:00")
	assert.Error(t, err)
}

func TestChaining(t *testing.T) {
	h := NewHoliday(nil)
	h.AddExcludedDate(day0.AddDate(0, 0, 7)) // next Monday
	w := NewWeekly(h)

	sat := day0.AddDate(0, 0, 5)
	assert.False(t, w.IsTimeIncluded(day0.AddDate(0, 0, 7)))
	assert.Equal(t, day0.AddDate(0, 0, 8), w.NextIncludedTime(sat))

	business, err := NewDaily(w, "00:00", "09:00")
	require.NoError(t, err)
	assert.Equal(t, day0.AddDate(0, 0, 8).Add(9*time.Hour), business.NextIncludedTime(sat))
}

// onlyIncluded is a calendar with nothing beyond IsTimeIncluded.
type onlyIncluded func(time.Time) bool

func (o onlyIncluded) IsTimeIncluded(ts time.Time) bool { return o(ts) }

func TestChaining_BaseWithoutNextIncludedTime(t *testing.T) {
	monday := day0.AddDate(0, 0, 7)
	base := onlyIncluded(func(ts time.Time) bool { return !startOfDay(ts).Equal(monday) })
	w := NewWeekly(base)

	assert.False(t, w.IsTimeIncluded(monday))
	assert.True(t, w.IsTimeIncluded(monday.AddDate(0, 0, 1)))

	sat := day0.AddDate(0, 0, 5)
	assert.Equal(t, sat, w.NextIncludedTime(sat))
	assert.Equal(t, monday, NewBase(base).NextIncludedTime(monday))
}

func TestFunc(t *testing.T) {
	f := NewFunc(nil, "odd hours", func(ts time.Time) bool { return ts.Hour()%2 == 1 })
	assert.True(t, f.IsTimeIncluded(day0.Add(time.Hour)))
	assert.False(t, f.IsTimeIncluded(day0))
	assert.Equal(t, day0, f.NextIncludedTime(day0))
	assert.Equal(t, "odd hours", f.Description())
}
