// Package scoring computes the daily clarity score and the clarity-point
// level ladder. All functions are pure and deterministic.
package scoring

import "math"

// Points awarded toward the level ladder.
const (
	PointsPerLog      = 10
	PointsPerAnalysis = 200
)

// LevelThreshold is one rung of the ladder.
type LevelThreshold struct {
	Level  int
	Points int
	Title  string
}

// LevelThresholds is ordered ascending by points.
var LevelThresholds = []LevelThreshold{
	{Level: 1, Points: 0, Title: "In the Fog"},
	{Level: 2, Points: 50, Title: "Seeking Light"},
	{Level: 3, Points: 150, Title: "Pathfinder"},
	{Level: 4, Points: 300, Title: "Clarity Seeker"},
	{Level: 5, Points: 500, Title: "Summit of Truth"},
}

// LevelForPoints returns the highest rung whose threshold the points reach.
func LevelForPoints(points int) (int, string) {
	level, title := LevelThresholds[0].Level, LevelThresholds[0].Title
	for _, t := range LevelThresholds {
		if points >= t.Points {
			level, title = t.Level, t.Title
		}
	}
	return level, title
}

// ComputeDailyScore maps one tracker submission to a 0-100 clarity score.
//
// base = 30 + rating*4 + energy*10 + 20 if the user can still see a future.
// A red flag costs 30%. A low mood attributed to external life factors is
// discounted 20% in the relationship's favor, but never on a red-flag day:
// the penalty takes precedence over the mitigation.
//
// rating is 1-10, energy is -1, 0 or 1.
func ComputeDailyScore(rating, energy int, visionPositive, redFlag, sourceIsExternal bool) int {
	score := float64(30 + rating*4 + energy*10)
	if visionPositive {
		score += 20
	}

	if redFlag {
		score *= 0.7
	} else if rating < 5 && sourceIsExternal {
		score *= 1.2
	}

	return int(math.Round(math.Min(100, math.Max(0, score))))
}
