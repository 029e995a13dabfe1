package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fairshare/internal/model"
)

func TestSummarizeBasicStats(t *testing.T) {
	agencies := []model.Agency{
		{Name: "A0", ServedPerWk: 100},
		{Name: "A1", ServedPerWk: 50},
	}
	allocation := model.Allocation{
		0: {{Donor: 0, Item: 0}, {Donor: 1, Item: 0}},
		1: {{Donor: 0, Item: 1}},
	}
	utilities := []float64{30, 10}

	s := Summarize(agencies, allocation, utilities, nil)

	require.Equal(t, 40.0, s.TotalPounds)
	require.Equal(t, 2, s.AgenciesServed)
	require.InDelta(t, 0.2, s.MinPerPerson, 1e-9)
	require.InDelta(t, 0.3, s.MaxPerPerson, 1e-9)
	require.InDelta(t, 0.25, s.AvgPerPerson, 1e-9)
	require.InDelta(t, 0.1, s.RangePerPerson, 1e-9)
	require.Equal(t, 2, s.Agencies[0].Items)
	require.Equal(t, 1, s.Agencies[1].Items)
}

func TestSummarizeEmptyAllocation(t *testing.T) {
	agencies := []model.Agency{{Name: "A", ServedPerWk: 10}}
	s := Summarize(agencies, model.Allocation{}, []float64{0}, nil)

	require.Equal(t, 0.0, s.TotalPounds)
	require.Equal(t, 0, s.AgenciesServed)
	require.Equal(t, 0.0, s.MinPerPerson)
	require.Equal(t, 0.0, s.RangePerPerson)
}

func TestSummarizeSkipsUnweightedAgenciesInBatchStats(t *testing.T) {
	// The unreported agency still gets a report row (with the median
	// weight) but stays out of min/max/avg.
	agencies := []model.Agency{
		{Name: "A0", ServedPerWk: 10},
		{Name: "A1", ServedPerWk: 0},
	}
	utilities := []float64{20, 5}
	s := Summarize(agencies, model.Allocation{0: {{Donor: 0, Item: 0}}}, utilities, nil)

	require.Equal(t, 25.0, s.TotalPounds)
	require.Equal(t, 2, s.AgenciesServed)
	require.InDelta(t, 2.0, s.MinPerPerson, 1e-9)
	require.InDelta(t, 2.0, s.MaxPerPerson, 1e-9)
	require.Equal(t, 10.0, s.Agencies[1].Weight, "median substitute")
}

func TestSummarizeCarriesMinRatios(t *testing.T) {
	agencies := []model.Agency{{Name: "A", ServedPerWk: 1}}
	ratios := map[string]float64{"produce": 0.5}
	s := Summarize(agencies, model.Allocation{}, []float64{0}, ratios)
	require.Equal(t, ratios, s.MinRatios)
}
