package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maralabs/gomara/internal/store"
)

// scored builds a descending-timestamp log sequence from scores, newest
// first, the order the store returns.
func scored(scores ...int) []store.DailyLog {
	logs := make([]store.DailyLog, len(scores))
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i, sc := range scores {
		day := base.AddDate(0, 0, -i)
		logs[i] = store.DailyLog{
			ID:              day.Format("2006-01-02"),
			Date:            day.Format("2006-01-02"),
			Timestamp:       day.UnixMilli(),
			Rating:          5,
			Source:          store.SourceInternal,
			CalculatedScore: sc,
		}
	}
	return logs
}

func TestCompute_EmptyHistory(t *testing.T) {
	got := Compute(nil)
	assert.Equal(t, 0, got.CurrentScore)
	assert.Equal(t, TrendStable, got.Trend)
}

func TestCompute_CurrentScoreIsRecentMean(t *testing.T) {
	got := Compute(scored(80, 60, 70))
	assert.Equal(t, 70, got.CurrentScore)
}

func TestCompute_CurrentScoreCapsAtFourteenLogs(t *testing.T) {
	// 14 recent logs at 80, one older at 0 that must not count.
	scores := make([]int, 15)
	for i := 0; i < 14; i++ {
		scores[i] = 80
	}
	got := Compute(scored(scores...))
	assert.Equal(t, 80, got.CurrentScore)
}

func TestTrend_StableAtThreeOrFewer(t *testing.T) {
	for _, scores := range [][]int{
		{100},
		{100, 0},
		{100, 0, 100},
	} {
		got := Compute(scored(scores...))
		assert.Equal(t, TrendStable, got.Trend, "scores %v", scores)
	}
}

func TestTrend_Directions(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   Trend
	}{
		{"up", []int{90, 90, 90, 60, 60, 60}, TrendUp},
		{"down", []int{60, 60, 60, 90, 90, 90}, TrendDown},
		{"within threshold is stable", []int{63, 63, 63, 60, 60, 60}, TrendStable},
		{"exactly five apart is stable", []int{65, 65, 65, 60, 60, 60}, TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(scored(tt.scores...))
			assert.Equal(t, tt.want, got.Trend)
		})
	}
}

func TestCompute_SplitAndFlags(t *testing.T) {
	logs := scored(80, 70, 60, 50)
	logs[0].RedFlag = true
	logs[2].Source = store.SourceExternal

	got := Compute(logs)
	assert.Equal(t, 1, got.RedFlagCount)
	assert.Equal(t, 75, got.InternalExternalSplit)
	assert.Equal(t, 5, got.AvgMood)
}

func TestCalendarWindow_EveryDayExactlyOnce(t *testing.T) {
	today := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	logs := scored(80, 70) // 2026-08-30 and 2026-08-29

	window := CalendarWindow(logs, today, 30)
	require.Len(t, window, 30)

	seen := map[string]int{}
	for _, day := range window {
		seen[day.Date]++
	}
	assert.Len(t, seen, 30, "every calendar day appears exactly once")

	assert.Equal(t, "2026-08-01", window[0].Date)
	assert.Equal(t, "2026-08-30", window[29].Date)

	// Only matching dates carry a log; nothing is synthesized.
	matched := 0
	for _, day := range window {
		if day.Log != nil {
			matched++
			assert.Equal(t, day.Date, day.Log.Date)
		}
	}
	assert.Equal(t, 2, matched)
}

func TestCalendarWindow_NoLogs(t *testing.T) {
	today := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	window := CalendarWindow(nil, today, 30)
	require.Len(t, window, 30)
	for _, day := range window {
		assert.Nil(t, day.Log)
	}
}

func TestBuckets(t *testing.T) {
	got := Buckets(scored(95, 80, 79, 50, 49, 0))
	assert.Equal(t, BucketCounts{Healthy: 2, Warning: 2, Critical: 2}, got)
}

func TestEnergySeries_OldestFirst(t *testing.T) {
	logs := scored(80, 70, 60)
	logs[0].Energy = store.EnergyCharged
	logs[2].Energy = store.EnergyDrained

	series := EnergySeries(logs, 7)
	require.Len(t, series, 3)
	assert.Equal(t, store.EnergyDrained, series[0].Energy)
	assert.Equal(t, store.EnergyCharged, series[2].Energy)
}
