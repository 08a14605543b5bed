package momentum

import (
	"math"
	"strings"

	"github.com/momentumfc/momentum/internal/logger"
)

// trackedTypes are the prediction types allowed to steer weight adaptation.
// Other goal-line aggregates are recorded for observability only.
var trackedTypes = []string{
	TypeHomeWin,
	TypeDraw,
	TypeAwayWin,
	"over_25",
	"under_25",
	TypeBTTS,
}

// weightMappings names the factors each prediction type steers
var weightMappings = map[string][]string{
	TypeHomeWin: {FactorFormPoints, FactorHomeAdvantage, FactorRecentFormBoost, FactorHomeAwaySplit},
	TypeDraw:    {FactorFormPoints},
	TypeAwayWin: {FactorFormPoints, FactorHomeAwaySplit},
	"over_25":   {FactorGoalsScored, FactorGoalsConceded},
	"under_25":  {FactorGoalsScored, FactorGoalsConceded},
	TypeBTTS:    {FactorGoalsScored, FactorGoalsConceded},
}

// WeightAdjustment describes one applied factor change
type WeightAdjustment struct {
	FactorName       string
	OldWeight        float64
	NewWeight        float64
	PredictionType   string  // contributing types, comma separated
	PerformanceScore float64 // mean accuracy of the contributing types
}

// pendingAdjustment accumulates the per-type factors targeting one weight
type pendingAdjustment struct {
	factor   float64
	predType string
	accuracy float64
}

// AdjustWeights tunes the weight set from accumulated accuracy aggregates.
// Each tracked prediction type with enough samples nudges its mapped factors
// up when it beats the high accuracy threshold and down when it falls below
// the low one; factors targeted by several types get the mean of their
// adjustment factors. Changes below the relative-change threshold are
// discarded. Returns the applied adjustments.
func AdjustWeights(buckets []*AccuracyBucket, ws *WeightSet) []WeightAdjustment {
	if len(buckets) == 0 {
		logger.Warn("No accuracy data available for weight adjustment")
		return nil
	}

	// Overall accuracy per tracked type across all buckets and leagues
	performance := make(map[string]float64)
	for _, predType := range trackedTypes {
		var made, correct int
		for _, b := range buckets {
			if b.PredictionType != predType {
				continue
			}
			made += b.PredictionsMade
			correct += b.PredictionsCorrect
		}
		if made == 0 {
			continue
		}
		if made < Config.MinSamplesForLearning {
			logger.Info("Insufficient samples for", predType, made, "of", Config.MinSamplesForLearning)
			continue
		}
		performance[predType] = float64(correct) / float64(made)
	}

	if len(performance) == 0 {
		logger.Warn("No prediction types have sufficient samples for learning")
		return nil
	}

	pending := make(map[string][]pendingAdjustment)

	for _, predType := range trackedTypes {
		accuracy, ok := performance[predType]
		if !ok {
			continue
		}

		var adjustmentFactor float64
		switch {
		case accuracy > Config.AccuracyHigh:
			adjustmentFactor = 1 + Config.LearningRate
		case accuracy < Config.AccuracyLow:
			adjustmentFactor = 1 - Config.LearningRate
		default:
			continue
		}

		for _, factor := range weightMappings[predType] {
			pending[factor] = append(pending[factor], pendingAdjustment{
				factor:   adjustmentFactor,
				predType: predType,
				accuracy: accuracy,
			})
		}
	}

	var applied []WeightAdjustment

	for factorName, adjustments := range pending {
		currentWeight := ws.Get(factorName)

		var factorSum, accuracySum float64
		var types []string
		for _, adj := range adjustments {
			factorSum += adj.factor
			accuracySum += adj.accuracy
			types = append(types, adj.predType)
		}
		avgAdjustment := factorSum / float64(len(adjustments))

		newWeight := currentWeight * avgAdjustment
		newWeight = math.Max(MinWeight, math.Min(MaxWeight, newWeight))
		newWeight = math.Round(newWeight*1000) / 1000

		if math.Abs(newWeight-currentWeight)/currentWeight <= Config.MinRelativeChange {
			continue
		}

		ws.Set(factorName, newWeight)
		applied = append(applied, WeightAdjustment{
			FactorName:       factorName,
			OldWeight:        currentWeight,
			NewWeight:        newWeight,
			PredictionType:   strings.Join(types, ","),
			PerformanceScore: math.Round(accuracySum/float64(len(adjustments))*1000) / 1000,
		})
		logger.Info("Adjusted weight", factorName, currentWeight, "->", newWeight)
	}

	if len(applied) == 0 {
		logger.Info("No weight adjustments met the change threshold")
	}
	return applied
}
