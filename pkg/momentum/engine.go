package momentum

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/momentumfc/momentum/internal/logger"
)

/**
* Cycle orchestration.
* The predict cycle prices upcoming fixtures; the learn cycle resolves
* stored predictions and re-tunes the weight set. The two are run
* separately and never interleaved, so the weight set has exactly one
* writer.
 */

// RunPredictCycle fetches upcoming fixtures, computes per-team stats
// through a cycle-local match cache, prices every fixture with the current
// weight set and upserts the prediction rows. A failure on one fixture
// skips that fixture only.
func RunPredictCycle() error {
	if err := os.MkdirAll(Config.CachePath, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	ws, err := LoadWeightSet()
	if err != nil {
		return err
	}
	logger.Inform("Running predict cycle with weights", ws.Snapshot())

	ds := GetDatasource()
	cache := NewMatchCache(ds)

	fixtures, err := ds.GetUpcomingFixtures(Config.FixtureHorizon)
	if err != nil {
		return err
	}
	if len(fixtures) == 0 {
		logger.Info("No upcoming fixtures inside the horizon")
		return nil
	}

	var priced int
	for _, fixture := range fixtures {
		prediction, err := predictFixture(fixture, cache, ws)
		if err != nil {
			logger.Warn("Skipping fixture", fixture.ID, err)
			continue
		}
		if prediction == nil {
			continue
		}
		if err := SavePrediction(prediction); err != nil {
			logger.Warn("Failed to store prediction", fixture.ID, err)
			continue
		}
		logger.Info("Stored prediction:", fixture.HomeTeamName, "vs", fixture.AwayTeamName,
			"confidence", prediction.ConfidenceScore)
		priced++
	}

	logger.Highlight("Predict cycle complete,", priced, "of", len(fixtures), "fixtures priced")

	reportFile := filepath.Join(Config.ReportPath,
		fmt.Sprintf("predictions-%s.csv", time.Now().Format("2006-01-02")))
	if err := ExportPredictionsCSV(reportFile); err != nil {
		logger.Warn("Failed to write prediction report", err)
	}
	return nil
}

// predictFixture prices one fixture, returning nil when either side lacks
// the match history to produce stats
func predictFixture(fixture *MatchRecord, cache *MatchCache, ws *WeightSet) (*MatchPrediction, error) {
	homeMatches, err := cache.TeamMatches(fixture.HomeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load home team matches: %w", err)
	}
	awayMatches, err := cache.TeamMatches(fixture.AwayID)
	if err != nil {
		return nil, fmt.Errorf("failed to load away team matches: %w", err)
	}

	homeStats := ComputeTeamStats(homeMatches, fixture.HomeID, true)
	awayStats := ComputeTeamStats(awayMatches, fixture.AwayID, false)
	if homeStats == nil || awayStats == nil {
		logger.Info("Insufficient data for fixture", fixture.HomeTeamName, "vs", fixture.AwayTeamName)
		return nil, nil
	}

	prediction := PredictMatch(homeStats, awayStats, ws)
	prediction.FixtureID = fixture.ID
	prediction.MatchDate = fixture.UTCTime
	prediction.HomeTeam = fixture.HomeTeamName
	prediction.AwayTeam = fixture.AwayTeamName
	prediction.LeagueID = fixture.LeagueID
	return prediction, nil
}

// RunLearnCycle resolves pending predictions against provider results,
// folds the outcomes into the accuracy aggregates, and re-tunes the
// weight set from them.
func RunLearnCycle() error {
	pending, err := PendingPredictions()
	if err != nil {
		return err
	}
	logger.Inform("Running learn cycle,", len(pending), "pending prediction(s)")

	existing, err := LoadAccuracyBuckets()
	if err != nil {
		return err
	}
	tracker := NewAccuracyTracker(existing)

	ds := GetDatasource()
	var resolved int
	for _, prediction := range pending {
		homeGoals, awayGoals, ok, err := ds.GetFixtureResult(prediction.FixtureID)
		if err != nil {
			logger.Warn("Could not fetch result for fixture", prediction.FixtureID, err)
			continue
		}
		if !ok {
			logger.Debug("Fixture not yet resolved", prediction.FixtureID)
			continue
		}

		prediction.SetActualScore(homeGoals, awayGoals)
		if err := Save(prediction); err != nil {
			logger.Warn("Failed to store result for fixture", prediction.FixtureID, err)
			continue
		}
		if err := tracker.ScorePrediction(prediction); err != nil {
			logger.Warn("Failed to score prediction", prediction.FixtureID, err)
			continue
		}
		resolved++
	}

	logger.Info("Resolved", resolved, "of", len(pending), "pending prediction(s)")

	if err := SaveAccuracyBuckets(tracker.Buckets()); err != nil {
		return err
	}

	ws, err := LoadWeightSet()
	if err != nil {
		return err
	}
	adjustments := AdjustWeights(tracker.Buckets(), ws)
	if err := SaveWeightSet(ws, adjustments); err != nil {
		return err
	}

	logger.Highlight("Learn cycle complete,", len(adjustments), "weight(s) adjusted")
	return nil
}
