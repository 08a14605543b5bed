package momentum

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/momentumfc/momentum/internal/logger"
)

// Compile-time check to ensure MatchPrediction implements Persistable interface
var _ Persistable = (*MatchPrediction)(nil)

// Result codes for a resolved match
const (
	ResultHome = "H"
	ResultDraw = "D"
	ResultAway = "A"
)

// GoalLine is a priced over/under market for one goal line
type GoalLine struct {
	Line  float64 `json:"line"`
	Over  int     `json:"over"`
	Under int     `json:"under"`
}

// MatchPrediction holds the priced markets for one fixture. Rows are
// upserted by fixture id; the learn cycle fills the actual result fields
// once the match is resolved.
type MatchPrediction struct {
	// Primary key
	FixtureID string `json:"fixtureId" column:"fixture_id" dbtype:"TEXT" primary:"true" index:"true"`

	// Fixture info
	MatchDate time.Time `json:"matchDate" column:"match_date" dbtype:"DATETIME" index:"true"`
	HomeTeam  string    `json:"homeTeam" column:"home_team" dbtype:"TEXT"`
	AwayTeam  string    `json:"awayTeam" column:"away_team" dbtype:"TEXT"`
	LeagueID  int       `json:"leagueId" column:"league_id" dbtype:"INTEGER DEFAULT -1" index:"true"`

	// 1X2 percentages, always summing to 100
	HomeWinPct int `json:"homeWinPct" column:"home_win_pct" dbtype:"INTEGER DEFAULT -1"`
	DrawPct    int `json:"drawPct" column:"draw_pct" dbtype:"INTEGER DEFAULT -1"`
	AwayWinPct int `json:"awayWinPct" column:"away_win_pct" dbtype:"INTEGER DEFAULT -1"`

	// Goal-line ladder, serialized to a JSON column on save
	Markets     []GoalLine `json:"markets,omitempty" db:"-"`
	MarketsJSON string     `json:"-" column:"markets" dbtype:"TEXT"`

	// Headline over/under line convenience columns
	OverPrimaryPct  int `json:"overPrimaryPct" column:"over_primary_pct" dbtype:"INTEGER DEFAULT -1"`
	UnderPrimaryPct int `json:"underPrimaryPct" column:"under_primary_pct" dbtype:"INTEGER DEFAULT -1"`

	// Half-time and team-total markets
	HTHomeOver05Pct int `json:"htHomeOver05Pct" column:"ht_home_over_05_pct" dbtype:"INTEGER DEFAULT -1"`
	HTAwayOver05Pct int `json:"htAwayOver05Pct" column:"ht_away_over_05_pct" dbtype:"INTEGER DEFAULT -1"`
	FTHomeOver15Pct int `json:"ftHomeOver15Pct" column:"ft_home_over_15_pct" dbtype:"INTEGER DEFAULT -1"`
	FTAwayOver15Pct int `json:"ftAwayOver15Pct" column:"ft_away_over_15_pct" dbtype:"INTEGER DEFAULT -1"`

	BTTSPct int `json:"bttsPct" column:"btts_pct" dbtype:"INTEGER DEFAULT -1"`

	// Expected goals and confidence
	HomeExpectedGoals float64 `json:"homeExpectedGoals" column:"home_expected_goals" dbtype:"REAL DEFAULT -1.0"`
	AwayExpectedGoals float64 `json:"awayExpectedGoals" column:"away_expected_goals" dbtype:"REAL DEFAULT -1.0"`
	ConfidenceScore   float64 `json:"confidenceScore" column:"confidence_score" dbtype:"REAL DEFAULT -1.0"`

	// Filled by the learn cycle once the fixture resolves
	ActualHomeGoals int    `json:"actualHomeGoals" column:"actual_home_goals" dbtype:"INTEGER DEFAULT -1"`
	ActualAwayGoals int    `json:"actualAwayGoals" column:"actual_away_goals" dbtype:"INTEGER DEFAULT -1"`
	ActualResult    string `json:"actualResult" column:"actual_result" dbtype:"TEXT"`

	// Metadata
	CreatedAt time.Time `json:"createdAt" column:"created_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updatedAt" column:"updated_at" dbtype:"DATETIME DEFAULT CURRENT_TIMESTAMP"`
}

/////////////////////////////////////////////////////////////////////////
////// Persistable Interface Implementation
/////////////////////////////////////////////////////////////////////////

func (p *MatchPrediction) GetTableName() string { return "predictions" }

func (p *MatchPrediction) GetPrimaryKey() map[string]interface{} {
	return map[string]any{"fixture_id": p.FixtureID}
}

func (p *MatchPrediction) SetPrimaryKey(pk map[string]interface{}) error {
	if id, ok := pk["fixture_id"].(string); ok {
		p.FixtureID = id
		return nil
	}
	return fmt.Errorf("primary key 'fixture_id' must be a string")
}

// BeforeSave serializes the goal-line ladder and stamps timestamps
func (p *MatchPrediction) BeforeSave() error {
	if len(p.Markets) > 0 {
		data, err := json.Marshal(p.Markets)
		if err != nil {
			return fmt.Errorf("failed to serialize markets: %w", err)
		}
		p.MarketsJSON = string(data)
	}

	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return nil
}

func (p *MatchPrediction) AfterSave() error    { return nil }
func (p *MatchPrediction) BeforeDelete() error { return nil }
func (p *MatchPrediction) AfterDelete() error  { return nil }

// DecodeMarkets rebuilds the goal-line ladder from the JSON column after a
// row is loaded from storage
func (p *MatchPrediction) DecodeMarkets() error {
	if len(p.Markets) > 0 || p.MarketsJSON == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(p.MarketsJSON), &p.Markets); err != nil {
		return fmt.Errorf("failed to decode markets for fixture %s: %w", p.FixtureID, err)
	}
	return nil
}

// MarketFor returns the priced market for the given goal line
func (p *MatchPrediction) MarketFor(line float64) (GoalLine, bool) {
	for _, m := range p.Markets {
		if m.Line == line {
			return m, true
		}
	}
	return GoalLine{}, false
}

// Resolved reports whether the actual result has been recorded
func (p *MatchPrediction) Resolved() bool {
	return p.ActualHomeGoals >= 0 && p.ActualAwayGoals >= 0
}

// SetActualScore records the final score and derives the result code
func (p *MatchPrediction) SetActualScore(homeGoals, awayGoals int) {
	p.ActualHomeGoals = homeGoals
	p.ActualAwayGoals = awayGoals
	switch {
	case homeGoals > awayGoals:
		p.ActualResult = ResultHome
	case homeGoals < awayGoals:
		p.ActualResult = ResultAway
	default:
		p.ActualResult = ResultDraw
	}
}

/////////////////////////////////////////////////////////////////////////
////// Prediction Engine
/////////////////////////////////////////////////////////////////////////

// PredictMatch prices every market for a fixture from the two teams' rolling
// stats and the current weight set. It is a pure function of its inputs and
// the configured market set.
func PredictMatch(home, away *TeamStats, w *WeightSet) *MatchPrediction {
	// Expected goals from attack strength and opposition defence weakness,
	// with a venue boost scaled by form at that venue. The away venue boost
	// is halved, and only the home side gets the flat advantage term.
	homeAttacking := home.GoalsScoredL5Avg * w.GoalsScored() *
		(1 + (float64(home.HomeFormPoints)/15)*w.HomeAwaySplit())
	homeDefendingWeakness := away.GoalsConcededL5Avg * w.GoalsConceded()

	awayAttacking := away.GoalsScoredL5Avg * w.GoalsScored() *
		(1 + (float64(away.AwayFormPoints)/15)*w.HomeAwaySplit()*0.5)
	awayDefendingWeakness := home.GoalsConcededL5Avg * w.GoalsConceded()

	homeExpected := homeAttacking*0.6 + homeDefendingWeakness*0.4
	awayExpected := awayAttacking*0.6 + awayDefendingWeakness*0.4
	homeExpected += Config.HomeAdvantageExp * w.HomeAdvantage()

	totalExpected := homeExpected + awayExpected

	// Over/under ladder: linear curve centred at 50% on the line itself,
	// 20 points per expected goal either side
	markets := make([]GoalLine, 0, len(Config.GoalLines))
	for _, line := range Config.GoalLines {
		overBase := 50 + (totalExpected-line)*20
		over := roundPct(clampF(overBase, Config.OverFloor, Config.OverCap))
		markets = append(markets, GoalLine{Line: line, Over: over, Under: 100 - over})
	}

	// 1X2 from the recency-weighted form difference plus a home edge.
	// Clamp first, then renormalize; the order matters for the shape of
	// the final distribution.
	formDiff := (home.RecentFormWeight - away.RecentFormWeight) * w.RecentFormBoost()
	homeAdvantageBoost := 8 * w.HomeAdvantage()

	homeWin := 40 + formDiff*2 + homeAdvantageBoost
	awayWin := 30 - formDiff*1.5

	homeWin = clampF(homeWin, 15, 75)
	awayWin = clampF(awayWin, 10, 60)

	if totalProb := homeWin + awayWin; totalProb > 85 {
		scale := 85 / totalProb
		homeWin *= scale
		awayWin *= scale
	}

	draw := math.Max(15, 100-homeWin-awayWin)

	total := homeWin + draw + awayWin
	homeWin = homeWin / total * 100
	awayWin = awayWin / total * 100

	homeWinPct, drawPct, awayWinPct := roundOutcome(homeWin, awayWin)

	// Half-time scoring runs at roughly half the full-time rate
	htHomeOver := math.Min(70, homeExpected*35*w.HTGoals())
	htAwayOver := math.Min(70, awayExpected*35*w.HTGoals())

	ftHomeOver := math.Min(85, homeExpected*50)
	ftAwayOver := math.Min(85, awayExpected*50)

	bttsProbability := (homeExpected/2.0)*(awayExpected/2.0)*100 +
		(float64(home.BTTS+away.BTTS)/10)*30
	btts := roundPct(clampF(bttsProbability, 10, 75))

	// Confidence from sample size, form separation and over/under clarity
	sampleQuality := math.Min(float64(len(home.Form)), 5) / 5
	formClarity := math.Abs(home.RecentFormWeight-away.RecentFormWeight) / 15
	goalsClarity := math.Abs(totalExpected-2.5) / 2

	confidence := sampleQuality*0.5 + formClarity*0.3 + goalsClarity*0.2
	confidence = clampF(confidence, 0.1, 1.0)
	confidence = math.Round(confidence*100) / 100

	prediction := &MatchPrediction{
		FixtureID:         "",
		HomeWinPct:        homeWinPct,
		DrawPct:           drawPct,
		AwayWinPct:        awayWinPct,
		Markets:           markets,
		HomeExpectedGoals: math.Round(homeExpected*100) / 100,
		AwayExpectedGoals: math.Round(awayExpected*100) / 100,
		BTTSPct:           btts,
		ConfidenceScore:   confidence,
		ActualHomeGoals:   -1,
		ActualAwayGoals:   -1,
		LeagueID:          -1,
		FTHomeOver15Pct:   roundPct(ftHomeOver),
		FTAwayOver15Pct:   roundPct(ftAwayOver),
		HTHomeOver05Pct:   -1,
		HTAwayOver05Pct:   -1,
		OverPrimaryPct:    -1,
		UnderPrimaryPct:   -1,
	}

	if Config.HalfTimeMarkets {
		prediction.HTHomeOver05Pct = roundPct(htHomeOver)
		prediction.HTAwayOver05Pct = roundPct(htAwayOver)
	}

	if primary, ok := prediction.MarketFor(Config.PrimaryGoalLine); ok {
		prediction.OverPrimaryPct = primary.Over
		prediction.UnderPrimaryPct = primary.Under
	}

	logger.Debug("Priced match", homeExpected, awayExpected, homeWinPct, drawPct, awayWinPct)
	return prediction
}

// roundOutcome rounds the 1X2 percentages at the integer boundary. The draw
// takes the remainder so the three always sum to exactly 100; if both sides
// round up at a half point the missing point comes off the larger side so the
// draw keeps its 15 floor.
func roundOutcome(homeWin, awayWin float64) (homePct, drawPct, awayPct int) {
	homePct = roundPct(homeWin)
	awayPct = roundPct(awayWin)
	drawPct = 100 - homePct - awayPct
	if drawPct < 15 {
		if homePct >= awayPct {
			homePct -= 15 - drawPct
		} else {
			awayPct -= 15 - drawPct
		}
		drawPct = 15
	}
	return homePct, drawPct, awayPct
}

// clampF clamps v into [lo, hi]
func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundPct rounds a percentage to the nearest integer
func roundPct(v float64) int {
	return int(math.Round(v))
}

/////////////////////////////////////////////////////////////////////////
////// Storage helpers
/////////////////////////////////////////////////////////////////////////

// SavePrediction upserts a prediction row by fixture id
func SavePrediction(p *MatchPrediction) error {
	if p.FixtureID == "" {
		return fmt.Errorf("prediction has no fixture id")
	}
	return Save(p)
}

// PendingPredictions returns stored predictions without a recorded result
// whose match date falls inside the resolution window
func PendingPredictions() ([]*MatchPrediction, error) {
	cutoff := time.Now().AddDate(0, 0, -Config.ResultsWindow)
	rows, err := FindWhere(&MatchPrediction{},
		"actual_home_goals < 0 AND match_date >= ? AND match_date <= ? ORDER BY match_date",
		cutoff, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to load pending predictions: %w", err)
	}
	var predictions []*MatchPrediction
	for _, row := range rows {
		p, ok := row.(*MatchPrediction)
		if !ok {
			continue
		}
		if err := p.DecodeMarkets(); err != nil {
			logger.Warn("Skipping prediction with corrupt markets", p.FixtureID, err)
			continue
		}
		predictions = append(predictions, p)
	}
	return predictions, nil
}
