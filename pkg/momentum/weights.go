package momentum

import (
	"fmt"
	"time"

	"github.com/momentumfc/momentum/internal/logger"
)

// Bounds every factor weight is held within
const (
	MinWeight = 0.3
	MaxWeight = 2.0
)

// Factor names
const (
	FactorFormPoints      = "form_points"
	FactorGoalsScored     = "goals_scored_weight"
	FactorGoalsConceded   = "goals_conceded_weight"
	FactorHomeAdvantage   = "home_advantage"
	FactorHTGoals         = "ht_goals_weight"
	FactorTrendMultiplier = "trend_multiplier"
	FactorRecentFormBoost = "recent_form_boost"
	FactorHomeAwaySplit   = "home_away_split"
)

// AllFactors lists every tunable factor name
var AllFactors = []string{
	FactorFormPoints,
	FactorGoalsScored,
	FactorGoalsConceded,
	FactorHomeAdvantage,
	FactorHTGoals,
	FactorTrendMultiplier,
	FactorRecentFormBoost,
	FactorHomeAwaySplit,
}

// defaultFactorValue returns the starting weight for a factor
func defaultFactorValue(name string) float64 {
	switch name {
	case FactorRecentFormBoost:
		return 1.2
	case FactorHomeAwaySplit:
		return 1.1
	default:
		return 1.0
	}
}

// WeightSet holds the current value of every prediction factor. Values are
// clamped into [MinWeight, MaxWeight] when set, so a stored weight is always
// in bounds.
type WeightSet struct {
	values map[string]float64
}

// NewWeightSet returns a WeightSet with every factor at its default value
func NewWeightSet() *WeightSet {
	ws := &WeightSet{values: make(map[string]float64, len(AllFactors))}
	for _, name := range AllFactors {
		ws.values[name] = defaultFactorValue(name)
	}
	return ws
}

// Get returns the current weight for the named factor, falling back to the
// factor's default when unset
func (ws *WeightSet) Get(name string) float64 {
	if v, ok := ws.values[name]; ok {
		return v
	}
	return defaultFactorValue(name)
}

// Set stores a weight for the named factor, clamped into bounds
func (ws *WeightSet) Set(name string, value float64) {
	if value < MinWeight {
		value = MinWeight
	}
	if value > MaxWeight {
		value = MaxWeight
	}
	ws.values[name] = value
}

// Snapshot returns a copy of the current factor values
func (ws *WeightSet) Snapshot() map[string]float64 {
	out := make(map[string]float64, len(ws.values))
	for k, v := range ws.values {
		out[k] = v
	}
	return out
}

// Named accessors used by the prediction engine

func (ws *WeightSet) FormPoints() float64      { return ws.Get(FactorFormPoints) }
func (ws *WeightSet) GoalsScored() float64     { return ws.Get(FactorGoalsScored) }
func (ws *WeightSet) GoalsConceded() float64   { return ws.Get(FactorGoalsConceded) }
func (ws *WeightSet) HomeAdvantage() float64   { return ws.Get(FactorHomeAdvantage) }
func (ws *WeightSet) HTGoals() float64         { return ws.Get(FactorHTGoals) }
func (ws *WeightSet) TrendMultiplier() float64 { return ws.Get(FactorTrendMultiplier) }
func (ws *WeightSet) RecentFormBoost() float64 { return ws.Get(FactorRecentFormBoost) }
func (ws *WeightSet) HomeAwaySplit() float64   { return ws.Get(FactorHomeAwaySplit) }

// WeightFactor is the persisted row for a single factor weight
type WeightFactor struct {
	FactorName       string  `column:"factor_name" dbtype:"TEXT" primary:"true"`
	CurrentWeight    float64 `column:"current_weight" dbtype:"REAL"`
	PredictionType   string  `column:"prediction_type" dbtype:"TEXT"`
	PerformanceScore float64 `column:"performance_score" dbtype:"REAL"`
	LastAdjusted     string  `column:"last_adjusted" dbtype:"TEXT"`
}

func (wf *WeightFactor) GetTableName() string { return "weights" }

func (wf *WeightFactor) GetPrimaryKey() map[string]interface{} {
	return map[string]interface{}{"factor_name": wf.FactorName}
}

func (wf *WeightFactor) SetPrimaryKey(pk map[string]interface{}) error {
	name, ok := pk["factor_name"].(string)
	if !ok {
		return fmt.Errorf("factor_name must be a string")
	}
	wf.FactorName = name
	return nil
}

func (wf *WeightFactor) BeforeSave() error   { return nil }
func (wf *WeightFactor) AfterSave() error    { return nil }
func (wf *WeightFactor) BeforeDelete() error { return nil }
func (wf *WeightFactor) AfterDelete() error  { return nil }

// LoadWeightSet reads the persisted weights, defaulting any factor without
// a stored row
func LoadWeightSet() (*WeightSet, error) {
	ws := NewWeightSet()
	rows, err := FindAll(&WeightFactor{})
	if err != nil {
		return nil, fmt.Errorf("failed to load weights: %w", err)
	}
	for _, row := range rows {
		wf, ok := row.(*WeightFactor)
		if !ok {
			continue
		}
		ws.Set(wf.FactorName, wf.CurrentWeight)
	}
	return ws, nil
}

// SaveWeightSet persists every factor, annotating the rows touched by the
// given adjustments with their adjusting type and performance score
func SaveWeightSet(ws *WeightSet, adjustments []WeightAdjustment) error {
	byFactor := make(map[string]WeightAdjustment, len(adjustments))
	for _, adj := range adjustments {
		byFactor[adj.FactorName] = adj
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var objects []Persistable
	for _, name := range AllFactors {
		wf := &WeightFactor{
			FactorName:    name,
			CurrentWeight: ws.Get(name),
		}
		// preserve prior annotations for untouched factors
		existing := &WeightFactor{FactorName: name}
		if err := FindByPrimaryKey(existing, existing.GetPrimaryKey()); err == nil {
			wf.PredictionType = existing.PredictionType
			wf.PerformanceScore = existing.PerformanceScore
			wf.LastAdjusted = existing.LastAdjusted
		}
		if adj, ok := byFactor[name]; ok {
			wf.PredictionType = adj.PredictionType
			wf.PerformanceScore = adj.PerformanceScore
			wf.LastAdjusted = now
		}
		objects = append(objects, wf)
	}

	if err := BulkSave(objects); err != nil {
		return fmt.Errorf("failed to save weights: %w", err)
	}
	logger.Info("Saved weight set,", len(adjustments), "factor(s) adjusted")
	return nil
}
