package momentum

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MomentumConfig contains all configurable parameters that influence prediction outcomes
// This centralizes all magic numbers and constants for easy adjustment
type MomentumConfig struct {
	// Database, cache and report parameters
	AssetsPath string `yaml:"assetsPath"` // The base directory of assets relating to momentum
	CachePath  string `yaml:"cachePath"`  // The location in which cached downloaded data is stored
	DbPath     string `yaml:"dbPath"`     // The location of the sqlite database
	ReportPath string `yaml:"reportPath"` // Where CSV prediction reports are written

	// === General Default vars ===
	Leagues        []int `yaml:"leagues"`        // the list of league ids in which we're interested
	FixtureHorizon int   `yaml:"fixtureHorizon"` // days ahead to fetch fixtures for prediction (default: 7)
	ResultsWindow  int   `yaml:"resultsWindow"`  // days back to resolve pending predictions (default: 14)
	TeamMatchLimit int   `yaml:"teamMatchLimit"` // finished matches fetched per team, most recent first (default: 10)

	// === TEAM STATISTICS CALCULATION ===

	// Recency weighting applied to the rolling form windows, index 0 is the
	// most recent match
	RecencyWeightsL5  []float64 `yaml:"recencyWeightsL5"`  // last-5 window (default: 1.0 .. 0.6)
	RecencyWeightsL10 []float64 `yaml:"recencyWeightsL10"` // last-10 window (default: 1.0 .. 0.55)
	RecencyFloor      float64   `yaml:"recencyFloor"`      // weight beyond the table (default: 0.5)

	// Minimum usable matches before stats are considered full confidence
	LowSampleThreshold int `yaml:"lowSampleThreshold"` // (default: 3)

	// Trend detection over the last-5 goal sequences
	TrendMinValues     int     `yaml:"trendMinValues"`     // values required before a trend is called (default: 4)
	TrendImproveFactor float64 `yaml:"trendImproveFactor"` // recent/older ratio above which Improving (default: 1.15)
	TrendDeclineFactor float64 `yaml:"trendDeclineFactor"` // recent/older ratio below which Declining (default: 0.85)

	// === PREDICTION MARKETS ===

	GoalLines        []float64 `yaml:"goalLines"`        // over/under lines to price (default: 0.5 .. 9.5)
	OverFloor        float64   `yaml:"overFloor"`        // lower clamp for over percentages (default: 5, use 10 with a single line)
	OverCap          float64   `yaml:"overCap"`          // upper clamp for over percentages (default: 95)
	HalfTimeMarkets  bool      `yaml:"halfTimeMarkets"`  // emit half-time over 0.5 markets (default: true)
	PrimaryGoalLine  float64   `yaml:"primaryGoalLine"`  // the headline line used in reports and learning (default: 2.5)
	HomeAdvantageExp float64   `yaml:"homeAdvantageExp"` // flat expected-goals edge for the home side (default: 0.35)

	// === LEARNING PARAMETERS ===

	MinSamplesForLearning int     `yaml:"minSamplesForLearning"` // samples required before a type can steer weights (default: 10)
	LearningRate          float64 `yaml:"learningRate"`          // adjustment magnitude (default: 0.15)
	AccuracyHigh          float64 `yaml:"accuracyHigh"`          // accuracy above which weights are boosted (default: 0.55)
	AccuracyLow           float64 `yaml:"accuracyLow"`           // accuracy below which weights are reduced (default: 0.45)
	MinRelativeChange     float64 `yaml:"minRelativeChange"`     // relative change below which an adjustment is discarded (default: 0.01)
}

// DefaultMomentumConfig returns the default configuration with all standard values
func DefaultMomentumConfig() *MomentumConfig {
	assetsPath := os.Getenv("HOME") + "/.momentum/"
	config := &MomentumConfig{

		AssetsPath: assetsPath,
		CachePath:  assetsPath + "cache/",
		DbPath:     assetsPath + "momentum.db",
		ReportPath: assetsPath + "reports/",

		Leagues:        []int{47, 48, 108, 109},
		FixtureHorizon: 7,
		ResultsWindow:  14,
		TeamMatchLimit: 10,

		// === TEAM STATISTICS CALCULATION ===
		RecencyWeightsL5:  []float64{1.0, 0.9, 0.8, 0.7, 0.6},
		RecencyWeightsL10: []float64{1.0, 0.95, 0.90, 0.85, 0.80, 0.75, 0.70, 0.65, 0.60, 0.55},
		RecencyFloor:      0.5,

		LowSampleThreshold: 3,

		TrendMinValues:     4,
		TrendImproveFactor: 1.15,
		TrendDeclineFactor: 0.85,

		// === PREDICTION MARKETS ===
		GoalLines:        []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5, 6.5, 7.5, 8.5, 9.5},
		OverFloor:        5.0,
		OverCap:          95.0,
		HalfTimeMarkets:  true,
		PrimaryGoalLine:  2.5,
		HomeAdvantageExp: 0.35,

		// === LEARNING PARAMETERS ===
		MinSamplesForLearning: 10,
		LearningRate:          0.15,
		AccuracyHigh:          0.55,
		AccuracyLow:           0.45,
		MinRelativeChange:     0.01,
	}

	return config
}

// Global configuration instance
var Config *MomentumConfig

// init initializes the global configuration with default values
func init() {
	Config = DefaultMomentumConfig()
}

// UpdateConfig allows updating the global configuration
func UpdateConfig(newConfig *MomentumConfig) {
	Config = newConfig
}

// LoadConfigFile merges YAML overrides from the given file into the active
// configuration
func LoadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	merged := *Config
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := ValidateConfig(&merged); err != nil {
		return err
	}
	Config = &merged
	return nil
}

// === CONFIGURATION VALIDATION ===

// ValidateConfig ensures all configuration values are within reasonable ranges
func ValidateConfig(config *MomentumConfig) error {
	if len(config.RecencyWeightsL5) != 5 {
		return fmt.Errorf("RecencyWeightsL5 must hold 5 entries, got: %d", len(config.RecencyWeightsL5))
	}

	if len(config.RecencyWeightsL10) != 10 {
		return fmt.Errorf("RecencyWeightsL10 must hold 10 entries, got: %d", len(config.RecencyWeightsL10))
	}

	if len(config.GoalLines) == 0 {
		return fmt.Errorf("GoalLines must hold at least one line")
	}

	if config.OverFloor < 0 || config.OverFloor >= config.OverCap {
		return fmt.Errorf("OverFloor must be non-negative and below OverCap, got: %f", config.OverFloor)
	}

	if config.OverCap > 100 {
		return fmt.Errorf("OverCap must not exceed 100, got: %f", config.OverCap)
	}

	if config.LearningRate <= 0 || config.LearningRate >= 1 {
		return fmt.Errorf("LearningRate must be between 0 and 1 exclusive, got: %f", config.LearningRate)
	}

	if config.AccuracyLow >= config.AccuracyHigh {
		return fmt.Errorf("AccuracyLow must be below AccuracyHigh, got: %f >= %f", config.AccuracyLow, config.AccuracyHigh)
	}

	if config.MinSamplesForLearning < 1 {
		return fmt.Errorf("MinSamplesForLearning must be at least 1, got: %d", config.MinSamplesForLearning)
	}

	return nil
}

// === HELPER FUNCTIONS FOR EASY ACCESS ===

// RecencyWeightL5 returns the recency weight for index i of the last-5 window
func RecencyWeightL5(i int) float64 {
	if i < len(Config.RecencyWeightsL5) {
		return Config.RecencyWeightsL5[i]
	}
	return Config.RecencyFloor
}

// RecencyWeightL10 returns the recency weight for index i of the last-10 window
func RecencyWeightL10(i int) float64 {
	if i < len(Config.RecencyWeightsL10) {
		return Config.RecencyWeightsL10[i]
	}
	return Config.RecencyFloor
}

// GetPrimaryGoalLine returns the headline over/under line
func GetPrimaryGoalLine() float64 {
	return Config.PrimaryGoalLine
}

// SingleLinePreset narrows the market set to the headline 2.5 line with the
// tighter percentage floor
func SingleLinePreset(config *MomentumConfig) {
	config.GoalLines = []float64{2.5}
	config.OverFloor = 10.0
}
