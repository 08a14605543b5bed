package momentum

import (
	"math"
	"strings"

	"github.com/momentumfc/momentum/internal/logger"
)

// Trend labels for the rolling goal sequences
const (
	TrendImproving = "Improving"
	TrendDeclining = "Declining"
	TrendStable    = "Stable"
)

// TeamStats holds the rolling momentum statistics for one team. It is
// computed fresh for each prediction cycle, never persisted.
type TeamStats struct {
	TeamID string

	// Form over the last 5 usable matches, most recent first ("WDLWW")
	Form       string
	FormPoints int

	// Venue split of form points within the last-5 window
	HomeFormPoints int
	AwayFormPoints int

	// Recency-weighted form points over the last-5 window
	RecentFormWeight float64

	// Goal averages
	GoalsScoredL5Avg    float64
	GoalsConcededL5Avg  float64
	GoalsScoredL10Avg   float64
	GoalsConcededL10Avg float64

	// Half-time goal averages over the last-5 window
	HTGoalsScoredAvg   float64
	HTGoalsConcededAvg float64

	// Counts over the last-5 window
	CleanSheets int
	BTTS        int

	// Goal trends over the last-5 sequences
	TrendScored   string
	TrendConceded string

	// Matches that contributed to the stats
	MatchesUsed int
}

// ComputeTeamStats calculates rolling momentum statistics for a team from
// its matches, ordered most recent first. Returns nil when no matches are
// available; that is a signal for the caller, not an error. Matches without
// a usable full-time score are skipped; a missing half-time score only
// suppresses the half-time aggregation for that match.
func ComputeTeamStats(matches []*MatchRecord, teamID string, isHome bool) *TeamStats {
	if len(matches) == 0 {
		logger.Warn("No matches available for team", teamID)
		return nil
	}

	if len(matches) < Config.LowSampleThreshold {
		logger.Warn("Limited match data for team, proceeding with low confidence", teamID, len(matches))
	}

	var form strings.Builder
	var scoredL5, concededL5 []float64
	var scoredL10, concededL10 []float64
	var htScored, htConceded []float64
	var homeFormPoints, awayFormPoints int
	var cleanSheets, btts int
	var recentFormWeight float64
	var used int

	limit := len(matches)
	if limit > 10 {
		limit = 10
	}

	// windows index raw positions, so a skipped match still consumes its
	// slot and its recency weight
	for i, match := range matches[:limit] {
		teamScore, oppScore, ok := match.ScoreFor(teamID, ScoreTagFullTime)
		if !ok {
			logger.Debug("Skipping match without usable full-time score", match.ID)
			continue
		}

		if i < 5 {
			var points int
			switch {
			case teamScore > oppScore:
				form.WriteByte('W')
				points = 3
			case teamScore == oppScore:
				form.WriteByte('D')
				points = 1
			default:
				form.WriteByte('L')
				points = 0
			}

			recentFormWeight += float64(points) * RecencyWeightL5(i)

			if match.WasHome(teamID) {
				homeFormPoints += points
			} else {
				awayFormPoints += points
			}

			scoredL5 = append(scoredL5, float64(teamScore))
			concededL5 = append(concededL5, float64(oppScore))

			if oppScore == 0 {
				cleanSheets++
			}
			if teamScore > 0 && oppScore > 0 {
				btts++
			}

			if htFor, htAgainst, htOk := match.ScoreFor(teamID, ScoreTagHalfTime); htOk {
				htScored = append(htScored, float64(htFor))
				htConceded = append(htConceded, float64(htAgainst))
			}
		}

		scoredL10 = append(scoredL10, float64(teamScore))
		concededL10 = append(concededL10, float64(oppScore))

		used++
	}

	formStr := form.String()

	return &TeamStats{
		TeamID:              teamID,
		Form:                formStr,
		FormPoints:          strings.Count(formStr, "W")*3 + strings.Count(formStr, "D"),
		HomeFormPoints:      homeFormPoints,
		AwayFormPoints:      awayFormPoints,
		RecentFormWeight:    recentFormWeight,
		GoalsScoredL5Avg:    safeAverage(scoredL5),
		GoalsConcededL5Avg:  safeAverage(concededL5),
		GoalsScoredL10Avg:   safeAverage(scoredL10),
		GoalsConcededL10Avg: safeAverage(concededL10),
		HTGoalsScoredAvg:    safeAverage(htScored),
		HTGoalsConcededAvg:  safeAverage(htConceded),
		CleanSheets:         cleanSheets,
		BTTS:                btts,
		TrendScored:         calculateTrend(scoredL5),
		TrendConceded:       calculateTrend(concededL5),
		MatchesUsed:         used,
	}
}

// safeAverage returns the mean of the values rounded to two decimal places,
// 0.0 for an empty slice
func safeAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*100) / 100
}

// calculateTrend compares the mean of the two most recent values against
// the mean of the two oldest. Fewer than TrendMinValues values is Stable.
func calculateTrend(values []float64) string {
	if len(values) < Config.TrendMinValues {
		return TrendStable
	}
	recentAvg := (values[0] + values[1]) / 2
	olderAvg := (values[len(values)-2] + values[len(values)-1]) / 2

	switch {
	case recentAvg > olderAvg*Config.TrendImproveFactor:
		return TrendImproving
	case recentAvg < olderAvg*Config.TrendDeclineFactor:
		return TrendDeclining
	default:
		return TrendStable
	}
}
