package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fairshare/internal/model"
)

func TestTripAllowedPartnershipRule(t *testing.T) {
	partner := model.Donor{Name: "P", Partner: true}
	open := model.Donor{Name: "O"}
	nfb := model.Agency{Name: "N", Tier: model.TierNone}
	fbe := model.Agency{Name: "E", Tier: model.TierExclusive}

	require.False(t, TripAllowed(partner, nfb, true), "partner donor must not serve non-partner agency")
	require.True(t, TripAllowed(partner, fbe, true))
	require.True(t, TripAllowed(open, nfb, true))
	require.False(t, TripAllowed(open, fbe, false), "adjacency gates everything")
}

func TestBuildFeasibilityCountsAndLookup(t *testing.T) {
	donors := []model.Donor{{Name: "P", Partner: true}, {Name: "O"}}
	agencies := []model.Agency{
		{Name: "N", Tier: model.TierNone},
		{Name: "E", Tier: model.TierExclusive},
	}
	drivers := []model.Driver{{Name: "k0"}, {Name: "k1"}}
	adj := [][]bool{
		{true, true},  // P adjacent to both
		{true, false}, // O adjacent to N only
	}

	f := BuildFeasibility(donors, agencies, drivers, adj)
	require.Equal(t, 8, f.Size())

	// P -> N blocked by partnership despite adjacency.
	require.False(t, f.At(0, 0, 0))
	require.False(t, f.PairFeasible(0, 0))
	// P -> E allowed for every driver.
	require.True(t, f.At(1, 0, 0))
	require.True(t, f.At(1, 0, 1))
	// O -> E blocked by adjacency.
	require.False(t, f.PairFeasible(1, 1))

	// 2 feasible pairs x 2 drivers
	require.Equal(t, 4, f.FeasibleTrips)
}

func TestBuildFeasibilityIdempotent(t *testing.T) {
	donors := []model.Donor{{Name: "D"}}
	agencies := []model.Agency{{Name: "A", Tier: model.TierNonExclusive}}
	drivers := []model.Driver{{Name: "k"}}
	adj := [][]bool{{true}}

	a := BuildFeasibility(donors, agencies, drivers, adj)
	b := BuildFeasibility(donors, agencies, drivers, adj)
	require.Equal(t, a, b)
}

func TestCategoryQuantities(t *testing.T) {
	donors := []model.Donor{
		{Name: "D", Items: []model.Item{
			{Weight: 30, Categories: map[string]float64{"produce": 20, "grain": 10}},
			{Weight: 5},
		}},
	}
	q := CategoryQuantities(donors)
	require.Equal(t, 20.0, q.At(0, 0, "produce"))
	require.Equal(t, 10.0, q.At(0, 0, "grain"))
	require.Equal(t, 0.0, q.At(0, 0, "dairy"))
	require.Equal(t, 0.0, q.At(0, 1, "produce"), "uncategorized item reads zero everywhere")
}
