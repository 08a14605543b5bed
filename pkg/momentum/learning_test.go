package momentum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// aggregate builds one accuracy row with the given totals
func aggregate(predType string, made, correct int) *AccuracyBucket {
	return &AccuracyBucket{
		PredictionType:     predType,
		ConfidenceBucket:   "50-70%",
		LeagueID:           47,
		PredictionsMade:    made,
		PredictionsCorrect: correct,
	}
}

func TestAdjustWeightsBoostsAccurateGoalMarkets(t *testing.T) {
	// over_25 at 12/20 = 0.60 beats the high threshold, so both goal
	// weights move up by the learning rate
	buckets := []*AccuracyBucket{aggregate("over_25", 20, 12)}
	ws := NewWeightSet()

	adjustments := AdjustWeights(buckets, ws)
	require.Len(t, adjustments, 2)

	assert.InDelta(t, 1.15, ws.GoalsScored(), 1e-9)
	assert.InDelta(t, 1.15, ws.GoalsConceded(), 1e-9)

	for _, adj := range adjustments {
		assert.Equal(t, 1.0, adj.OldWeight)
		assert.InDelta(t, 1.15, adj.NewWeight, 1e-9)
		assert.Equal(t, "over_25", adj.PredictionType)
		assert.InDelta(t, 0.6, adj.PerformanceScore, 1e-9)
	}
}

func TestAdjustWeightsReducesInaccurateMarkets(t *testing.T) {
	buckets := []*AccuracyBucket{aggregate(TypeDraw, 25, 10)} // 0.40
	ws := NewWeightSet()

	adjustments := AdjustWeights(buckets, ws)
	require.Len(t, adjustments, 1)
	assert.Equal(t, FactorFormPoints, adjustments[0].FactorName)
	assert.InDelta(t, 0.85, ws.FormPoints(), 1e-9)
}

func TestAdjustWeightsSkipsBelowMinSamples(t *testing.T) {
	buckets := []*AccuracyBucket{
		aggregate(TypeHomeWin, 9, 9),
		aggregate("over_25", 5, 5),
		aggregate(TypeBTTS, 3, 0),
	}
	ws := NewWeightSet()
	before := ws.Snapshot()

	adjustments := AdjustWeights(buckets, ws)
	assert.Empty(t, adjustments)
	assert.Equal(t, before, ws.Snapshot())
}

func TestAdjustWeightsSkipsAcceptableAccuracy(t *testing.T) {
	// 0.50 sits between the thresholds, nothing moves
	buckets := []*AccuracyBucket{aggregate(TypeHomeWin, 20, 10)}
	ws := NewWeightSet()

	adjustments := AdjustWeights(buckets, ws)
	assert.Empty(t, adjustments)
}

func TestAdjustWeightsAveragesOpposingTypes(t *testing.T) {
	// home_win boosts form_points while draw reduces it; the averaged
	// factor is 1.0, below the change threshold, so form_points holds.
	// home_advantage is only targeted by home_win and still moves.
	buckets := []*AccuracyBucket{
		aggregate(TypeHomeWin, 20, 14), // 0.70
		aggregate(TypeDraw, 20, 6),     // 0.30
	}
	ws := NewWeightSet()

	adjustments := AdjustWeights(buckets, ws)
	assert.InDelta(t, 1.0, ws.FormPoints(), 1e-9)
	assert.InDelta(t, 1.15, ws.HomeAdvantage(), 1e-9)

	for _, adj := range adjustments {
		assert.NotEqual(t, FactorFormPoints, adj.FactorName)
	}
}

func TestAdjustWeightsSumsAcrossBucketsAndLeagues(t *testing.T) {
	// 4/8 in one bucket and 8/12 in another: 12/20 = 0.60 overall
	buckets := []*AccuracyBucket{
		{PredictionType: "over_25", ConfidenceBucket: "30-50%", LeagueID: 47, PredictionsMade: 8, PredictionsCorrect: 4},
		{PredictionType: "over_25", ConfidenceBucket: "50-70%", LeagueID: 48, PredictionsMade: 12, PredictionsCorrect: 8},
	}
	ws := NewWeightSet()

	adjustments := AdjustWeights(buckets, ws)
	require.Len(t, adjustments, 2)
	assert.InDelta(t, 1.15, ws.GoalsScored(), 1e-9)
}

func TestAdjustWeightsRespectsBounds(t *testing.T) {
	buckets := []*AccuracyBucket{aggregate("over_25", 20, 16)} // 0.80
	ws := NewWeightSet()
	ws.Set(FactorGoalsScored, 1.9)
	ws.Set(FactorGoalsConceded, MaxWeight)

	adjustments := AdjustWeights(buckets, ws)
	assert.LessOrEqual(t, ws.GoalsScored(), MaxWeight)
	assert.Equal(t, MaxWeight, ws.GoalsConceded())

	// the weight already at the ceiling produces no adjustment record
	for _, adj := range adjustments {
		assert.NotEqual(t, FactorGoalsConceded, adj.FactorName)
	}
}

func TestAdjustWeightsUntrackedTypesAreIgnored(t *testing.T) {
	// goal-line aggregates outside the tracked list never steer weights
	buckets := []*AccuracyBucket{
		aggregate("over_05", 50, 48),
		aggregate("under_95", 50, 49),
	}
	ws := NewWeightSet()

	adjustments := AdjustWeights(buckets, ws)
	assert.Empty(t, adjustments)
}

func TestAdjustWeightsEmptyInputIsNoOp(t *testing.T) {
	ws := NewWeightSet()
	assert.Nil(t, AdjustWeights(nil, ws))
}
