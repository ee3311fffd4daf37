// Package metrics derives the dashboard statistics from the stored log
// sequence. Everything is recomputed from scratch on each call; the input
// is bounded by daily logging cadence, so there is nothing worth caching.
//
// All functions expect logs sorted descending by timestamp, which is the
// only order the store hands out.
package metrics

import (
	"math"
	"time"

	"github.com/maralabs/gomara/internal/store"
)

// Trend direction of the recent clarity scores.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// recentWindow is how many logs feed the current score and mood averages.
const recentWindow = 14

// Summary is the dashboard metric set.
type Summary struct {
	CurrentScore int   `json:"currentScore"`
	Trend        Trend `json:"trend"`
	AvgMood      int   `json:"avgMood"`
	RedFlagCount int   `json:"redFlagCount"`
	// InternalExternalSplit is the percentage of logs attributing the
	// day's mood to the relationship itself.
	InternalExternalSplit int `json:"internalExternalSplit"`
}

// Compute builds the dashboard summary. An empty history yields a zero
// score and a stable trend.
func Compute(logs []store.DailyLog) Summary {
	if len(logs) == 0 {
		return Summary{Trend: TrendStable}
	}

	recent := logs
	if len(recent) > recentWindow {
		recent = recent[:recentWindow]
	}

	var scoreSum, moodSum int
	for _, l := range recent {
		scoreSum += l.CalculatedScore
		moodSum += l.Rating
	}

	redFlags := 0
	internal := 0
	for _, l := range logs {
		if l.RedFlag {
			redFlags++
		}
		if l.Source == store.SourceInternal {
			internal++
		}
	}

	return Summary{
		CurrentScore:          roundDiv(scoreSum, len(recent)),
		Trend:                 trend(logs),
		AvgMood:               roundDiv(moodSum, len(recent)),
		RedFlagCount:          redFlags,
		InternalExternalSplit: roundDiv(internal*100, len(logs)),
	}
}

// trend compares the mean of the 3 most recent scores against the mean of
// the next 3 older ones (index 3-5). Fewer than 4 logs is always stable.
// Both means divide by 3 even when fewer older logs exist, matching the
// production scoring behavior users already see.
func trend(logs []store.DailyLog) Trend {
	if len(logs) <= 3 {
		return TrendStable
	}
	recentAvg := sumScore(logs[0:3]) / 3
	olderAvg := sumScore(logs[3:min(6, len(logs))]) / 3
	switch {
	case recentAvg > olderAvg+5:
		return TrendUp
	case recentAvg < olderAvg-5:
		return TrendDown
	default:
		return TrendStable
	}
}

func sumScore(logs []store.DailyLog) float64 {
	sum := 0
	for _, l := range logs {
		sum += l.CalculatedScore
	}
	return float64(sum)
}

func roundDiv(sum, n int) int {
	return int(math.Round(float64(sum) / float64(n)))
}

// CalendarDay is one cell of the calendar window. Log is nil on days the
// user did not journal; no score is synthesized for missing days.
type CalendarDay struct {
	Date string          `json:"date"`
	Log  *store.DailyLog `json:"log,omitempty"`
}

// CalendarWindow returns the last days calendar days oldest to newest,
// inclusive of today, each paired with the log whose date matches exactly.
func CalendarWindow(logs []store.DailyLog, today time.Time, days int) []CalendarDay {
	byDate := make(map[string]*store.DailyLog, len(logs))
	for i := range logs {
		if _, ok := byDate[logs[i].Date]; !ok {
			byDate[logs[i].Date] = &logs[i]
		}
	}

	window := make([]CalendarDay, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		window = append(window, CalendarDay{Date: date, Log: byDate[date]})
	}
	return window
}

// BucketCounts partitions logs by stored score: healthy days sit at 80 and
// above, critical below 50, warning in between.
type BucketCounts struct {
	Healthy  int `json:"healthy"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
}

// Buckets counts the logs in each score band.
func Buckets(logs []store.DailyLog) BucketCounts {
	var b BucketCounts
	for _, l := range logs {
		switch {
		case l.CalculatedScore >= 80:
			b.Healthy++
		case l.CalculatedScore >= 50:
			b.Warning++
		default:
			b.Critical++
		}
	}
	return b
}

// EnergyPoint is one sample of the energy chart feed.
type EnergyPoint struct {
	Date   string            `json:"date"`
	Energy store.EnergyLevel `json:"energy"`
}

// EnergySeries returns the n most recent energy values oldest to newest,
// the order the chart draws them in.
func EnergySeries(logs []store.DailyLog, n int) []EnergyPoint {
	if len(logs) > n {
		logs = logs[:n]
	}
	series := make([]EnergyPoint, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		series = append(series, EnergyPoint{Date: logs[i].Date, Energy: logs[i].Energy})
	}
	return series
}
