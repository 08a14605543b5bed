package momentum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intp(n int) *int { return &n }

// buildMatch creates a finished home match for teamID against opponentID
// with tagged full-time and half-time scores
func buildMatch(id, homeID, awayID string, homeGoals, awayGoals int, daysAgo int) *MatchRecord {
	m := NewMatchRecord()
	m.ID = id
	m.HomeID = homeID
	m.AwayID = awayID
	m.HomeTeamName = "Home " + homeID
	m.AwayTeamName = "Away " + awayID
	m.UTCTime = time.Now().AddDate(0, 0, -daysAgo)
	m.Status = "finished"
	m.Scores = []MatchScore{
		{Description: ScoreTagFullTime, Home: intp(homeGoals), Away: intp(awayGoals)},
		{Description: ScoreTagHalfTime, Home: intp(homeGoals / 2), Away: intp(awayGoals / 2)},
	}
	return m
}

func TestComputeTeamStatsEmptyInput(t *testing.T) {
	stats := ComputeTeamStats(nil, "100", true)
	if stats != nil {
		t.Fatalf("expected nil stats for empty match list, got %+v", stats)
	}
}

func TestComputeTeamStatsRollingWindows(t *testing.T) {
	// Most recent first: scored 2,1,3,0,1 conceded 0,0,1,2,1
	matches := []*MatchRecord{
		buildMatch("m1", "100", "200", 2, 0, 1),
		buildMatch("m2", "100", "200", 1, 0, 8),
		buildMatch("m3", "100", "200", 3, 1, 15),
		buildMatch("m4", "100", "200", 0, 2, 22),
		buildMatch("m5", "100", "200", 1, 1, 29),
	}

	stats := ComputeTeamStats(matches, "100", true)
	if stats == nil {
		t.Fatal("expected stats, got nil")
	}

	assert.Equal(t, "WWWLD", stats.Form)
	assert.Equal(t, 10, stats.FormPoints)
	assert.Equal(t, 10, stats.HomeFormPoints)
	assert.Equal(t, 0, stats.AwayFormPoints)

	// 3*1.0 + 3*0.9 + 3*0.8 + 0*0.7 + 1*0.6
	assert.InDelta(t, 8.7, stats.RecentFormWeight, 1e-9)

	assert.InDelta(t, 1.4, stats.GoalsScoredL5Avg, 1e-9)
	assert.InDelta(t, 0.8, stats.GoalsConcededL5Avg, 1e-9)
	assert.Equal(t, 2, stats.CleanSheets)
	assert.Equal(t, 2, stats.BTTS)
	assert.Equal(t, 5, stats.MatchesUsed)
}

func TestComputeTeamStatsTrends(t *testing.T) {
	// Scored sequence 2,1,3,0,1: recent mean 1.5 beats 1.15x the older
	// mean 0.5, so scoring is improving. Conceded 0,0,1,2,1 drops from
	// 1.5 to 0, a decline.
	matches := []*MatchRecord{
		buildMatch("m1", "100", "200", 2, 0, 1),
		buildMatch("m2", "100", "200", 1, 0, 8),
		buildMatch("m3", "100", "200", 3, 1, 15),
		buildMatch("m4", "100", "200", 0, 2, 22),
		buildMatch("m5", "100", "200", 1, 1, 29),
	}

	stats := ComputeTeamStats(matches, "100", true)
	if stats == nil {
		t.Fatal("expected stats, got nil")
	}
	assert.Equal(t, TrendImproving, stats.TrendScored)
	assert.Equal(t, TrendDeclining, stats.TrendConceded)
}

func TestComputeTeamStatsShortSequenceTrendIsStable(t *testing.T) {
	matches := []*MatchRecord{
		buildMatch("m1", "100", "200", 4, 0, 1),
		buildMatch("m2", "100", "200", 3, 0, 8),
		buildMatch("m3", "100", "200", 0, 0, 15),
	}
	stats := ComputeTeamStats(matches, "100", true)
	if stats == nil {
		t.Fatal("expected stats, got nil")
	}
	assert.Equal(t, TrendStable, stats.TrendScored)
}

func TestComputeTeamStatsSkipsMatchWithoutFullTimeScore(t *testing.T) {
	broken := buildMatch("m2", "100", "200", 0, 0, 8)
	broken.Scores = []MatchScore{
		{Description: ScoreTagHalfTime, Home: intp(0), Away: intp(0)},
	}
	nullScore := buildMatch("m3", "100", "200", 0, 0, 15)
	nullScore.Scores = []MatchScore{
		{Description: ScoreTagFullTime, Home: nil, Away: intp(1)},
	}

	matches := []*MatchRecord{
		buildMatch("m1", "100", "200", 2, 1, 1),
		broken,
		nullScore,
		buildMatch("m4", "100", "200", 1, 0, 22),
	}

	stats := ComputeTeamStats(matches, "100", true)
	if stats == nil {
		t.Fatal("expected stats, got nil")
	}
	assert.Equal(t, 2, stats.MatchesUsed)
	assert.Equal(t, "WW", stats.Form)
}

func TestComputeTeamStatsSkippedMatchConsumesWindowSlot(t *testing.T) {
	// the most recent record has no usable score, but it still occupies the
	// top window slot: the first usable match gets weight 0.9, not 1.0, and
	// the fifth win falls outside the last-5 window
	malformed := buildMatch("m0", "100", "200", 0, 0, 0)
	malformed.Scores = nil

	matches := []*MatchRecord{
		malformed,
		buildMatch("m1", "100", "200", 1, 0, 7),
		buildMatch("m2", "100", "200", 1, 0, 14),
		buildMatch("m3", "100", "200", 1, 0, 21),
		buildMatch("m4", "100", "200", 1, 0, 28),
		buildMatch("m5", "100", "200", 1, 0, 35),
	}

	stats := ComputeTeamStats(matches, "100", true)
	if stats == nil {
		t.Fatal("expected stats, got nil")
	}

	assert.Equal(t, "WWWW", stats.Form)
	assert.Equal(t, 12, stats.FormPoints)
	// 3*0.9 + 3*0.8 + 3*0.7 + 3*0.6
	assert.InDelta(t, 9.0, stats.RecentFormWeight, 1e-9)
	assert.InDelta(t, 1.0, stats.GoalsScoredL5Avg, 1e-9)
	assert.Equal(t, 5, stats.MatchesUsed)
}

func TestComputeTeamStatsMissingHalfTimeOnlySuppressesHT(t *testing.T) {
	noHT := buildMatch("m1", "100", "200", 2, 1, 1)
	noHT.Scores = []MatchScore{
		{Description: ScoreTagFullTime, Home: intp(2), Away: intp(1)},
	}
	withHT := buildMatch("m2", "100", "200", 2, 0, 8)
	withHT.Scores = []MatchScore{
		{Description: ScoreTagFullTime, Home: intp(2), Away: intp(0)},
		{Description: ScoreTagHalfTime, Home: intp(1), Away: intp(0)},
	}

	stats := ComputeTeamStats([]*MatchRecord{noHT, withHT}, "100", true)
	if stats == nil {
		t.Fatal("expected stats, got nil")
	}
	// both matches count towards full-time aggregates
	assert.Equal(t, 2, stats.MatchesUsed)
	// only the second match contributes half-time numbers
	assert.InDelta(t, 1.0, stats.HTGoalsScoredAvg, 1e-9)
	assert.InDelta(t, 0.0, stats.HTGoalsConcededAvg, 1e-9)
}

func TestComputeTeamStatsAwayVenueSplit(t *testing.T) {
	matches := []*MatchRecord{
		buildMatch("m1", "200", "100", 0, 2, 1),  // away win for 100
		buildMatch("m2", "100", "200", 1, 1, 8),  // home draw
		buildMatch("m3", "200", "100", 1, 1, 15), // away draw
	}
	stats := ComputeTeamStats(matches, "100", false)
	if stats == nil {
		t.Fatal("expected stats, got nil")
	}
	assert.Equal(t, 1, stats.HomeFormPoints)
	assert.Equal(t, 4, stats.AwayFormPoints)
	assert.Equal(t, "WDD", stats.Form)
}

func TestSafeAverageRounding(t *testing.T) {
	assert.Equal(t, 0.0, safeAverage(nil))
	assert.Equal(t, 0.33, safeAverage([]float64{1, 0, 0}))
	assert.Equal(t, 1.67, safeAverage([]float64{1, 2, 2}))
}

func TestRecencyWeightTables(t *testing.T) {
	assert.Equal(t, 1.0, RecencyWeightL5(0))
	assert.Equal(t, 0.6, RecencyWeightL5(4))
	assert.Equal(t, Config.RecencyFloor, RecencyWeightL5(7))
	assert.Equal(t, 0.55, RecencyWeightL10(9))
	assert.Equal(t, Config.RecencyFloor, RecencyWeightL10(12))
}
