package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fairshare/internal/model"
)

func agenciesWith(served ...float64) []model.Agency {
	out := make([]model.Agency, len(served))
	for i, s := range served {
		out[i] = model.Agency{Name: string(rune('A' + i)), ServedPerWk: s}
	}
	return out
}

func TestAgencyWeightsMedianFallback(t *testing.T) {
	w := AgencyWeights(agenciesWith(120, 0, 80))
	require.Equal(t, []float64{120, 100, 80}, w) // median of {120, 80} = 100
}

func TestAgencyWeightsOddMedian(t *testing.T) {
	w := AgencyWeights(agenciesWith(10, 30, 20, -5))
	require.Equal(t, []float64{10, 30, 20, 20}, w)
}

func TestAgencyWeightsAllInvalid(t *testing.T) {
	w := AgencyWeights(agenciesWith(0, -1))
	require.Equal(t, []float64{FallbackWeight, FallbackWeight}, w)
}

func TestAgencyWeightsAllValid(t *testing.T) {
	w := AgencyWeights(agenciesWith(5, 15))
	require.Equal(t, []float64{5, 15}, w)
}

func TestAgencyWeightsStrictlyPositive(t *testing.T) {
	for _, served := range [][]float64{{0}, {0, 0}, {-3, 7}, {1, 0, 2}} {
		for _, w := range AgencyWeights(agenciesWith(served...)) {
			require.Greater(t, w, 0.0)
		}
	}
}

func TestAgencyWeightsDoesNotMutateInput(t *testing.T) {
	agencies := agenciesWith(3, 0, 1)
	_ = AgencyWeights(agencies)
	require.Equal(t, 0.0, agencies[1].ServedPerWk)
}

func TestMedianEvenAverages(t *testing.T) {
	require.Equal(t, 15.0, median([]float64{10, 20}))
	require.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
}
