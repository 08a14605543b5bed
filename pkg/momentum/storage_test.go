package momentum

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageRoundTrip(t *testing.T) {
	t.Log("=== STORAGE ROUND TRIP ===")

	t.Log("1. Initializing in-memory database...")
	err := InitDatabase(":memory:")
	require.NoError(t, err, "Failed to initialize database")
	defer CloseDatabase()

	t.Log("2. Saving matches and checking merge on re-save...")
	m1 := buildMatch("rt-m1", "100", "200", 2, 1, 3)
	m2 := buildMatch("rt-m2", "200", "100", 0, 0, 10)
	require.NoError(t, SaveMatches([]*MatchRecord{m1, m2}))

	// a re-fetch of the same match with fresher data merges into the row
	fresher := NewMatchRecord()
	fresher.ID = "rt-m2"
	fresher.HomeID = "200"
	fresher.AwayID = "100"
	fresher.HomeTeamName = "Renamed FC"
	fresher.AwayTeamName = "Away 100"
	require.NoError(t, SaveMatches([]*MatchRecord{fresher}))

	loaded := NewMatchRecord()
	loaded.ID = "rt-m2"
	require.NoError(t, FindByPrimaryKey(loaded, loaded.GetPrimaryKey()))
	assert.Equal(t, "Renamed FC", loaded.HomeTeamName)
	assert.Equal(t, 0, loaded.HomeGoals, "merge must not clobber stored goals")

	t.Log("3. Loading recent matches for a team, most recent first...")
	recent, err := RecentMatchesForTeam("100", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "rt-m1", recent[0].ID)
	assert.True(t, recent[0].UTCTime.After(recent[1].UTCTime))

	t.Log("4. Stats from stored rows must match stats from tagged entries...")
	stats := ComputeTeamStats(recent, "100", true)
	require.NotNil(t, stats)
	assert.Equal(t, "WD", stats.Form)
	assert.Equal(t, 2, stats.MatchesUsed)
}

func TestPredictionUpsertByFixture(t *testing.T) {
	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	p := PredictMatch(sampleStats(), sampleStats(), NewWeightSet())
	p.FixtureID = "fix-1"
	p.MatchDate = time.Now().AddDate(0, 0, -1)
	p.HomeTeam = "Alpha"
	p.AwayTeam = "Beta"
	p.LeagueID = 47
	require.NoError(t, SavePrediction(p))

	// a second save for the same fixture updates in place
	p.HomeTeam = "Alpha Town"
	require.NoError(t, SavePrediction(p))

	rows, err := FindAll(&MatchPrediction{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	stored := rows[0].(*MatchPrediction)
	assert.Equal(t, "Alpha Town", stored.HomeTeam)

	// the goal-line ladder survives the JSON column
	require.NoError(t, stored.DecodeMarkets())
	assert.Len(t, stored.Markets, len(Config.GoalLines))
	market, ok := stored.MarketFor(2.5)
	require.True(t, ok)
	assert.Equal(t, 100, market.Over+market.Under)
}

func TestPendingPredictionsWindow(t *testing.T) {
	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	fresh := PredictMatch(sampleStats(), sampleStats(), NewWeightSet())
	fresh.FixtureID = "fix-fresh"
	fresh.MatchDate = time.Now().AddDate(0, 0, -2)
	require.NoError(t, SavePrediction(fresh))

	stale := PredictMatch(sampleStats(), sampleStats(), NewWeightSet())
	stale.FixtureID = "fix-stale"
	stale.MatchDate = time.Now().AddDate(0, 0, -Config.ResultsWindow-5)
	require.NoError(t, SavePrediction(stale))

	resolved := PredictMatch(sampleStats(), sampleStats(), NewWeightSet())
	resolved.FixtureID = "fix-done"
	resolved.MatchDate = time.Now().AddDate(0, 0, -3)
	resolved.SetActualScore(1, 0)
	require.NoError(t, SavePrediction(resolved))

	pending, err := PendingPredictions()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "fix-fresh", pending[0].FixtureID)
}

func TestWeightSetPersistence(t *testing.T) {
	t.Log("=== WEIGHT PERSISTENCE ===")

	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	t.Log("1. A fresh database yields the default weight set...")
	ws, err := LoadWeightSet()
	require.NoError(t, err)
	assert.Equal(t, 1.2, ws.RecentFormBoost())

	t.Log("2. Saving an adjusted set and reloading it...")
	adjustments := []WeightAdjustment{{
		FactorName:       FactorGoalsScored,
		OldWeight:        1.0,
		NewWeight:        1.15,
		PredictionType:   "over_25",
		PerformanceScore: 0.6,
	}}
	ws.Set(FactorGoalsScored, 1.15)
	require.NoError(t, SaveWeightSet(ws, adjustments))

	reloaded, err := LoadWeightSet()
	require.NoError(t, err)
	assert.InDelta(t, 1.15, reloaded.GoalsScored(), 1e-9)
	assert.Equal(t, 1.2, reloaded.RecentFormBoost())

	t.Log("3. The adjusted row carries its annotations...")
	row := &WeightFactor{FactorName: FactorGoalsScored}
	require.NoError(t, FindByPrimaryKey(row, row.GetPrimaryKey()))
	assert.Equal(t, "over_25", row.PredictionType)
	assert.InDelta(t, 0.6, row.PerformanceScore, 1e-9)
	assert.NotEmpty(t, row.LastAdjusted)
}

func TestAccuracyBucketPersistence(t *testing.T) {
	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	tracker := NewAccuracyTracker(nil)
	tracker.RecordOutcome(TypeHomeWin, 55, true, 47)
	tracker.RecordOutcome(TypeHomeWin, 55, false, 47)
	tracker.RecordOutcome("over_25", 62, true, 48)
	require.NoError(t, SaveAccuracyBuckets(tracker.Buckets()))

	loaded, err := LoadAccuracyBuckets()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	// a second cycle seeds from storage and keeps accumulating
	second := NewAccuracyTracker(loaded)
	second.RecordOutcome(TypeHomeWin, 55, true, 47)
	require.NoError(t, SaveAccuracyBuckets(second.Buckets()))

	reloaded, err := LoadAccuracyBuckets()
	require.NoError(t, err)
	for _, b := range reloaded {
		if b.PredictionType == TypeHomeWin {
			assert.Equal(t, 3, b.PredictionsMade)
			assert.Equal(t, 2, b.PredictionsCorrect)
			assert.Equal(t, 66.7, b.AccuracyRate)
		}
	}
}

// rejectedRow is a weights-table row whose save hook always fails
type rejectedRow struct {
	FactorName    string  `column:"factor_name" dbtype:"TEXT" primary:"true"`
	CurrentWeight float64 `column:"current_weight" dbtype:"REAL"`
}

func (r *rejectedRow) GetTableName() string { return "weights" }
func (r *rejectedRow) GetPrimaryKey() map[string]interface{} {
	return map[string]interface{}{"factor_name": r.FactorName}
}
func (r *rejectedRow) SetPrimaryKey(pk map[string]interface{}) error { return nil }
func (r *rejectedRow) BeforeSave() error                             { return errors.New("row rejected") }
func (r *rejectedRow) AfterSave() error                              { return nil }
func (r *rejectedRow) BeforeDelete() error                           { return nil }
func (r *rejectedRow) AfterDelete() error                            { return nil }

func TestBulkSaveRollsBackOnFailure(t *testing.T) {
	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	good := &WeightFactor{FactorName: FactorFormPoints, CurrentWeight: 1.5}
	bad := &rejectedRow{FactorName: "bad_factor"}

	err := BulkSave([]Persistable{good, bad})
	require.Error(t, err)

	// the failure must roll back the earlier row in the batch too
	rows, err := FindAll(&WeightFactor{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLearnFlowAgainstStorage(t *testing.T) {
	t.Log("=== LEARN FLOW ===")

	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	t.Log("1. Storing a batch of resolved predictions...")
	tracker := NewAccuracyTracker(nil)
	for i := 0; i < 20; i++ {
		p := PredictMatch(sampleStats(), sampleStats(), NewWeightSet())
		p.FixtureID = "learn-" + string(rune('a'+i))
		p.MatchDate = time.Now().AddDate(0, 0, -1)
		p.LeagueID = 47
		// 12 of 20 land over 2.5 goals for a 0.60 over_25 accuracy
		if i < 12 {
			p.SetActualScore(2, 1)
		} else {
			p.SetActualScore(1, 0)
		}
		require.NoError(t, SavePrediction(p))
		require.NoError(t, tracker.ScorePrediction(p))
	}
	require.NoError(t, SaveAccuracyBuckets(tracker.Buckets()))

	t.Log("2. Adjusting weights from the stored aggregates...")
	buckets, err := LoadAccuracyBuckets()
	require.NoError(t, err)

	ws, err := LoadWeightSet()
	require.NoError(t, err)

	adjustments := AdjustWeights(buckets, ws)
	require.NoError(t, SaveWeightSet(ws, adjustments))

	t.Log("3. The averaged adjustments landed and survived a reload...")
	// goals weights see over_25 (0.60) and btts (0.60) pushing up and
	// under_25 (0.40) pushing down: mean factor 1.05
	final, err := LoadWeightSet()
	require.NoError(t, err)
	assert.InDelta(t, 1.05, final.GoalsScored(), 1e-9)
	assert.InDelta(t, 1.05, final.GoalsConceded(), 1e-9)
	// home_advantage is steered only by the perfect home_win record
	assert.InDelta(t, 1.15, final.HomeAdvantage(), 1e-9)
}
