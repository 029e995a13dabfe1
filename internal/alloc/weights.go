package alloc

import (
	"sort"

	"fairshare/internal/model"
)

// FallbackWeight is used when no agency in the batch reports a valid
// served-per-week figure.
const FallbackWeight = 100.0

// AgencyWeights computes the fairness weight vector: each agency's
// ServedPerWk when positive, otherwise the median of the valid values
// across the batch (FallbackWeight when none are valid). Every entry is
// strictly positive, so per-capita ratios downstream never divide by
// zero. Pure and deterministic.
func AgencyWeights(agencies []model.Agency) []float64 {
	valid := make([]float64, 0, len(agencies))
	for _, a := range agencies {
		if a.ServedPerWk > 0 {
			valid = append(valid, a.ServedPerWk)
		}
	}
	med := FallbackWeight
	if len(valid) > 0 {
		med = median(valid)
	}
	weights := make([]float64, len(agencies))
	for i, a := range agencies {
		if a.ServedPerWk > 0 {
			weights[i] = a.ServedPerWk
		} else {
			weights[i] = med
		}
	}
	return weights
}

// median returns the middle of xs, averaging the two central values for
// even counts. xs is copied before sorting.
func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
