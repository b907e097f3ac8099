package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/model"
)

func TestNextOccurrenceDaily(t *testing.T) {
	after := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	next, ok := NextOccurrence(model.RecurrencePattern{Type: model.RecurrenceDaily, Interval: 1}, after)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), next)

	next, ok = NextOccurrence(model.RecurrencePattern{Type: model.RecurrenceDaily, Interval: 3}, after)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 13, 9, 0, 0, 0, time.UTC), next)

	// Interval below one is treated as one.
	next, ok = NextOccurrence(model.RecurrencePattern{Type: model.RecurrenceDaily}, after)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceWeekly(t *testing.T) {
	// Monday 2025-03-10.
	after := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("without day list advances whole weeks", func(t *testing.T) {
		next, ok := NextOccurrence(model.RecurrencePattern{Type: model.RecurrenceWeekly, Interval: 2}, after)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, 3, 24, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("advances to next listed weekday", func(t *testing.T) {
		// Wednesday and Friday.
		p := model.RecurrencePattern{Type: model.RecurrenceWeekly, Interval: 1, DaysOfWeek: []int{3, 5}}
		next, ok := NextOccurrence(p, after)
		require.True(t, ok)
		assert.Equal(t, time.Weekday(3), next.Weekday())
		assert.Equal(t, time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("same weekday next week", func(t *testing.T) {
		p := model.RecurrencePattern{Type: model.RecurrenceWeekly, Interval: 1, DaysOfWeek: []int{1}}
		next, ok := NextOccurrence(p, after)
		require.True(t, ok)
		assert.Equal(t, time.Date(2025, 3, 17, 9, 0, 0, 0, time.UTC), next)
	})
}

func TestNextOccurrenceMonthly(t *testing.T) {
	after := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	next, ok := NextOccurrence(model.RecurrencePattern{Type: model.RecurrenceMonthly, Interval: 1}, after)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC), next)

	// Pinned day of month.
	next, ok = NextOccurrence(model.RecurrencePattern{Type: model.RecurrenceMonthly, Interval: 1, DayOfMonth: 15}, after)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC), next)

	// Out-of-range pin is ignored.
	next, ok = NextOccurrence(model.RecurrencePattern{Type: model.RecurrenceMonthly, Interval: 1, DayOfMonth: 31}, after)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceYearly(t *testing.T) {
	after := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	next, ok := NextOccurrence(model.RecurrencePattern{Type: model.RecurrenceYearly, Interval: 1}, after)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceEnded(t *testing.T) {
	after := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)

	_, ok := NextOccurrence(model.RecurrencePattern{Type: model.RecurrenceDaily, Interval: 1, EndDate: &end}, after)
	assert.False(t, ok)
}

func TestNextOccurrenceUnknownType(t *testing.T) {
	after := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	_, ok := NextOccurrence(model.RecurrencePattern{Type: "Hourly"}, after)
	assert.False(t, ok)
}
