package momentum

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/momentumfc/momentum/internal/logger"
)

// Compile-time check to ensure AccuracyBucket implements Persistable interface
var _ Persistable = (*AccuracyBucket)(nil)

// Prediction type keys for the tracked markets
const (
	TypeHomeWin = "home_win"
	TypeDraw    = "draw"
	TypeAwayWin = "away_win"
	TypeBTTS    = "btts"
)

// OverTypeKey returns the prediction type key for an over line, e.g. 2.5
// becomes "over_25"
func OverTypeKey(line float64) string {
	return "over_" + lineKey(line)
}

// UnderTypeKey returns the prediction type key for an under line
func UnderTypeKey(line float64) string {
	return "under_" + lineKey(line)
}

func lineKey(line float64) string {
	return strings.ReplaceAll(fmt.Sprintf("%.1f", line), ".", "")
}

// AccuracyBucket is one persisted accuracy aggregate, keyed by prediction
// type, confidence bucket and league
type AccuracyBucket struct {
	PredictionType     string  `column:"prediction_type" dbtype:"TEXT" primary:"true"`
	ConfidenceBucket   string  `column:"confidence_bucket" dbtype:"TEXT" primary:"true"`
	LeagueID           int     `column:"league_id" dbtype:"INTEGER" primary:"true"`
	PredictionsMade    int     `column:"predictions_made" dbtype:"INTEGER DEFAULT 0"`
	PredictionsCorrect int     `column:"predictions_correct" dbtype:"INTEGER DEFAULT 0"`
	AccuracyRate       float64 `column:"accuracy_rate" dbtype:"REAL DEFAULT 0.0"`
	LastUpdated        string  `column:"last_updated" dbtype:"TEXT"`
}

func (b *AccuracyBucket) GetTableName() string { return "accuracy" }

func (b *AccuracyBucket) GetPrimaryKey() map[string]interface{} {
	return map[string]any{
		"prediction_type":   b.PredictionType,
		"confidence_bucket": b.ConfidenceBucket,
		"league_id":         b.LeagueID,
	}
}

func (b *AccuracyBucket) SetPrimaryKey(pk map[string]interface{}) error {
	predType, ok := pk["prediction_type"].(string)
	if !ok {
		return fmt.Errorf("prediction_type must be a string")
	}
	bucket, ok := pk["confidence_bucket"].(string)
	if !ok {
		return fmt.Errorf("confidence_bucket must be a string")
	}
	league, ok := pk["league_id"].(int)
	if !ok {
		return fmt.Errorf("league_id must be an int")
	}
	b.PredictionType = predType
	b.ConfidenceBucket = bucket
	b.LeagueID = league
	return nil
}

func (b *AccuracyBucket) BeforeSave() error   { return nil }
func (b *AccuracyBucket) AfterSave() error    { return nil }
func (b *AccuracyBucket) BeforeDelete() error { return nil }
func (b *AccuracyBucket) AfterDelete() error  { return nil }

// bucketForPct maps a predicted percentage to its confidence bucket
func bucketForPct(pct int) string {
	switch {
	case pct < 30:
		return "0-30%"
	case pct < 50:
		return "30-50%"
	case pct < 70:
		return "50-70%"
	default:
		return "70-100%"
	}
}

// AccuracyTracker accumulates prediction outcomes into (type, bucket, league)
// aggregates. Seed it from storage, record a cycle's outcomes, then persist.
type AccuracyTracker struct {
	buckets map[string]*AccuracyBucket
}

// NewAccuracyTracker creates a tracker seeded with existing aggregates
func NewAccuracyTracker(existing []*AccuracyBucket) *AccuracyTracker {
	t := &AccuracyTracker{buckets: make(map[string]*AccuracyBucket)}
	for _, b := range existing {
		t.buckets[t.key(b.PredictionType, b.ConfidenceBucket, b.LeagueID)] = b
	}
	return t
}

func (t *AccuracyTracker) key(predType, bucket string, leagueID int) string {
	return fmt.Sprintf("%s|%s|%d", predType, bucket, leagueID)
}

// RecordOutcome folds one resolved market into its aggregate
func (t *AccuracyTracker) RecordOutcome(predType string, predictedPct int, wasCorrect bool, leagueID int) {
	bucket := bucketForPct(predictedPct)
	k := t.key(predType, bucket, leagueID)

	b, ok := t.buckets[k]
	if !ok {
		b = &AccuracyBucket{
			PredictionType:   predType,
			ConfidenceBucket: bucket,
			LeagueID:         leagueID,
		}
		t.buckets[k] = b
	}

	b.PredictionsMade++
	if wasCorrect {
		b.PredictionsCorrect++
	}
	b.AccuracyRate = math.Round(float64(b.PredictionsCorrect)/float64(b.PredictionsMade)*100*10) / 10
	b.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	logger.Debug("Recorded outcome", predType, bucket, b.PredictionsCorrect, b.PredictionsMade)
}

// ScorePrediction records the outcome of every tracked market for one
// resolved fixture
func (t *AccuracyTracker) ScorePrediction(p *MatchPrediction) error {
	if !p.Resolved() {
		return fmt.Errorf("fixture %s has no recorded result", p.FixtureID)
	}

	league := p.LeagueID
	totalGoals := p.ActualHomeGoals + p.ActualAwayGoals

	t.RecordOutcome(TypeHomeWin, p.HomeWinPct, p.ActualResult == ResultHome, league)
	t.RecordOutcome(TypeDraw, p.DrawPct, p.ActualResult == ResultDraw, league)
	t.RecordOutcome(TypeAwayWin, p.AwayWinPct, p.ActualResult == ResultAway, league)

	for _, market := range p.Markets {
		over := float64(totalGoals) > market.Line
		t.RecordOutcome(OverTypeKey(market.Line), market.Over, over, league)
		t.RecordOutcome(UnderTypeKey(market.Line), market.Under, !over, league)
	}

	bothScored := p.ActualHomeGoals > 0 && p.ActualAwayGoals > 0
	t.RecordOutcome(TypeBTTS, p.BTTSPct, bothScored, league)

	return nil
}

// Buckets returns every aggregate held by the tracker
func (t *AccuracyTracker) Buckets() []*AccuracyBucket {
	out := make([]*AccuracyBucket, 0, len(t.buckets))
	for _, b := range t.buckets {
		out = append(out, b)
	}
	return out
}

// LoadAccuracyBuckets reads all persisted accuracy aggregates
func LoadAccuracyBuckets() ([]*AccuracyBucket, error) {
	rows, err := FindAll(&AccuracyBucket{})
	if err != nil {
		return nil, fmt.Errorf("failed to load accuracy data: %w", err)
	}
	var buckets []*AccuracyBucket
	for _, row := range rows {
		if b, ok := row.(*AccuracyBucket); ok {
			buckets = append(buckets, b)
		}
	}
	return buckets, nil
}

// SaveAccuracyBuckets persists the tracker's aggregates
func SaveAccuracyBuckets(buckets []*AccuracyBucket) error {
	var objects []Persistable
	for _, b := range buckets {
		objects = append(objects, b)
	}
	if len(objects) == 0 {
		return nil
	}
	return BulkSave(objects)
}
