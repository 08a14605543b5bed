package momentum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightSetDefaults(t *testing.T) {
	ws := NewWeightSet()

	assert.Equal(t, 1.0, ws.FormPoints())
	assert.Equal(t, 1.0, ws.GoalsScored())
	assert.Equal(t, 1.0, ws.GoalsConceded())
	assert.Equal(t, 1.0, ws.HomeAdvantage())
	assert.Equal(t, 1.0, ws.HTGoals())
	assert.Equal(t, 1.0, ws.TrendMultiplier())
	assert.Equal(t, 1.2, ws.RecentFormBoost())
	assert.Equal(t, 1.1, ws.HomeAwaySplit())
}

func TestWeightSetClampsOnSet(t *testing.T) {
	ws := NewWeightSet()

	ws.Set(FactorFormPoints, 5.0)
	assert.Equal(t, MaxWeight, ws.FormPoints())

	ws.Set(FactorFormPoints, 0.01)
	assert.Equal(t, MinWeight, ws.FormPoints())

	ws.Set(FactorFormPoints, 1.5)
	assert.Equal(t, 1.5, ws.FormPoints())
}

func TestWeightSetBoundsAlwaysHold(t *testing.T) {
	ws := NewWeightSet()
	for _, name := range AllFactors {
		for _, v := range []float64{-10, 0, 0.3, 1.0, 2.0, 99} {
			ws.Set(name, v)
			got := ws.Get(name)
			assert.GreaterOrEqual(t, got, MinWeight, "factor %s", name)
			assert.LessOrEqual(t, got, MaxWeight, "factor %s", name)
		}
	}
}

func TestWeightSetUnknownFactorDefaultsToOne(t *testing.T) {
	ws := NewWeightSet()
	assert.Equal(t, 1.0, ws.Get("nonsense_factor"))
}

func TestWeightSetSnapshotIsACopy(t *testing.T) {
	ws := NewWeightSet()
	snap := ws.Snapshot()
	snap[FactorFormPoints] = 99.0
	assert.Equal(t, 1.0, ws.FormPoints())
	assert.Len(t, snap, len(AllFactors))
}
