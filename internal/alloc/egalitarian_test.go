package alloc

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fairshare/internal/model"
	"fairshare/internal/solver"
)

// stubSolver records the model it was handed and returns a canned
// solution, isolating formulation and extraction from the real solver.
type stubSolver struct {
	sol         solver.Solution
	err         error
	called      bool
	model       *solver.Model
	hadDeadline bool
}

func (s *stubSolver) Solve(ctx context.Context, m *solver.Model) (solver.Solution, error) {
	s.called = true
	s.model = m
	_, s.hadDeadline = ctx.Deadline()
	return s.sol, s.err
}

// tinyDataset: 1 donor, 1 item (10 lbs produce), 1 agency, 1 driver.
func tinyDataset() *model.Dataset {
	return &model.Dataset{
		Donors: []model.Donor{
			{Name: "D", Items: []model.Item{{Weight: 10, Categories: map[string]float64{"produce": 10}}}},
		},
		Agencies:  []model.Agency{{Name: "A", ServedPerWk: 10, Tier: model.TierExclusive}},
		Drivers:   []model.Driver{{Name: "k"}},
		Adjacency: [][]bool{{true}},
	}
}

// With one feasible pair the variable layout is trips=0, x=1, r=2,
// rf=3..9.
func tinyValues(xVal, rVal float64) []float64 {
	vals := make([]float64, 10)
	vals[0] = 1
	vals[1] = xVal
	vals[2] = rVal
	return vals
}

func TestEgalitarianExtractionThreshold(t *testing.T) {
	for _, tc := range []struct {
		xVal      float64
		wantItems int
	}{
		{xVal: 0.51, wantItems: 1},
		{xVal: 0.49, wantItems: 0},
		{xVal: 1.0, wantItems: 1},
	} {
		stub := &stubSolver{sol: solver.Solution{Status: solver.StatusOptimal, Values: tinyValues(tc.xVal, 0.7)}}
		eg := &Egalitarian{Solver: stub, TimeSteps: []int{0}, Observer: NopObserver}
		res, err := eg.Allocate(context.Background(), tinyDataset())
		require.NoError(t, err)
		require.Equal(t, solver.StatusOptimal, res.Status)
		require.Equal(t, tc.wantItems, res.Allocation.TotalItems(), "x=%v", tc.xVal)
		require.InDelta(t, 0.7, res.MinOverall, 1e-9)
	}
}

func TestEgalitarianNonOptimalReturnsEmpty(t *testing.T) {
	for _, status := range []solver.Status{solver.StatusInfeasible, solver.StatusNotSolved} {
		stub := &stubSolver{sol: solver.Solution{Status: status}}
		eg := &Egalitarian{Solver: stub, TimeSteps: []int{0}, Observer: NopObserver}
		res, err := eg.Allocate(context.Background(), tinyDataset())
		require.NoError(t, err)
		require.Equal(t, status, res.Status)
		require.Equal(t, 0, res.Allocation.TotalItems())
		require.Equal(t, []float64{0}, res.Utilities)
	}
}

func TestEgalitarianSolverError(t *testing.T) {
	boom := errors.New("boom")
	stub := &stubSolver{err: boom}
	eg := &Egalitarian{Solver: stub, TimeSteps: []int{0}, Observer: NopObserver}
	res, err := eg.Allocate(context.Background(), tinyDataset())
	require.ErrorIs(t, err, boom)
	require.Equal(t, solver.StatusNotSolved, res.Status)
}

func TestEgalitarianNilSolver(t *testing.T) {
	eg := &Egalitarian{Observer: NopObserver}
	_, err := eg.Allocate(context.Background(), tinyDataset())
	require.ErrorIs(t, err, solver.ErrBadModel)
}

func TestEgalitarianEmptyDatasetShortCircuits(t *testing.T) {
	stub := &stubSolver{}
	eg := &Egalitarian{Solver: stub, Observer: NopObserver}

	res, err := eg.Allocate(context.Background(), &model.Dataset{})
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, res.Status)
	require.False(t, stub.called)

	// Agencies but nothing to give: same short circuit, zero utilities.
	ds := &model.Dataset{Agencies: []model.Agency{{Name: "A", ServedPerWk: 1}}}
	res, err = eg.Allocate(context.Background(), ds)
	require.NoError(t, err)
	require.Equal(t, []float64{0}, res.Utilities)
	require.False(t, stub.called)
}

func TestEgalitarianLazyVariableSizing(t *testing.T) {
	// Two agencies, one reachable pair only: variables exist solely for
	// feasible combinations.
	ds := &model.Dataset{
		Donors: []model.Donor{
			{Name: "D", Items: []model.Item{
				{Weight: 10, Categories: map[string]float64{"produce": 10}},
				{Weight: 5, Categories: map[string]float64{"grain": 5}},
			}},
		},
		Agencies: []model.Agency{
			{Name: "A0", ServedPerWk: 10, Tier: model.TierExclusive},
			{Name: "A1", ServedPerWk: 10, Tier: model.TierExclusive},
		},
		Drivers:   []model.Driver{{Name: "k"}},
		Adjacency: [][]bool{{true, false}},
	}
	stub := &stubSolver{sol: solver.Solution{Status: solver.StatusOptimal, Values: make([]float64, 64)}}
	eg := &Egalitarian{Solver: stub, TimeSteps: []int{0, 1}, Observer: NopObserver}
	_, err := eg.Allocate(context.Background(), ds)
	require.NoError(t, err)

	// trips: 1 feasible (agency, donor) pair; x: 2 items x 1 feasible
	// pair; plus r and 7 per-category minima. Only assignments are
	// binary.
	require.Equal(t, 1+2+1+7, stub.model.NumVars())
	require.Equal(t, 2, stub.model.NumBinary())
}

func TestEgalitarianAppliesBudgetDeadline(t *testing.T) {
	stub := &stubSolver{sol: solver.Solution{Status: solver.StatusOptimal, Values: make([]float64, 64)}}
	eg := &Egalitarian{Solver: stub, TimeSteps: []int{0}, Budget: time.Minute, Observer: NopObserver}
	_, err := eg.Allocate(context.Background(), tinyDataset())
	require.NoError(t, err)
	require.True(t, stub.hadDeadline, "solver must see the wall-clock budget")
}

func TestEgalitarianEndToEnd(t *testing.T) {
	ds := &model.Dataset{
		Donors: []model.Donor{
			{Name: "D", Items: []model.Item{
				{Weight: 10, Categories: map[string]float64{"produce": 10}},
				{Weight: 10, Categories: map[string]float64{"produce": 10}},
			}},
		},
		Agencies: []model.Agency{
			{Name: "A0", ServedPerWk: 1, Tier: model.TierExclusive},
			{Name: "A1", ServedPerWk: 1, Tier: model.TierExclusive},
		},
		Drivers:   []model.Driver{{Name: "k", Capacity: 100}},
		Adjacency: [][]bool{{true, true}},
	}
	eg := &Egalitarian{
		Solver:    &solver.BranchBound{},
		TimeSteps: []int{0, 1},
		Budget:    30 * time.Second,
		Observer:  NopObserver,
	}
	res, err := eg.Allocate(context.Background(), ds)
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, res.Status)
	require.Equal(t, []float64{10, 10}, res.Utilities)
	require.Len(t, res.Allocation[0], 1)
	require.Len(t, res.Allocation[1], 1)
	require.InDelta(t, 10.0, res.MinOverall, 1e-6)
	require.InDelta(t, 10.0, res.MinRatios["produce"], 1e-6)
}

func TestEgalitarianMultiDriverHorizonSolves(t *testing.T) {
	// Interchangeable drivers and steps must not blow up the search:
	// with two drivers and a three-step horizon the solve has to close
	// well inside the budget and still land on a fair optimum.
	ds := &model.Dataset{
		Donors: []model.Donor{
			{Name: "D1", Items: []model.Item{
				{Weight: 10, Categories: map[string]float64{"produce": 10}},
				{Weight: 10, Categories: map[string]float64{"produce": 10}},
			}},
			{Name: "D2", Items: []model.Item{
				{Weight: 20, Categories: map[string]float64{"produce": 20}},
			}},
		},
		Agencies: []model.Agency{
			{Name: "A0", ServedPerWk: 1, Tier: model.TierExclusive},
			{Name: "A1", ServedPerWk: 1, Tier: model.TierExclusive},
		},
		Drivers: []model.Driver{
			{Name: "k0", Capacity: 100},
			{Name: "k1", Capacity: 100},
		},
		Adjacency: [][]bool{{true, true}, {true, true}},
	}
	eg := &Egalitarian{
		Solver:    &solver.BranchBound{},
		TimeSteps: []int{0, 1, 2},
		Budget:    10 * time.Second,
		Observer:  NopObserver,
	}
	start := time.Now()
	res, err := eg.Allocate(context.Background(), ds)
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, res.Status)
	require.Less(t, time.Since(start), 5*time.Second)

	// The only optima give the 20 to one agency and both 10s to the
	// other: all items placed, each exactly once, a 20/20 split.
	require.Equal(t, 3, res.Allocation.TotalItems())
	seen := map[model.ItemRef]bool{}
	for _, refs := range res.Allocation {
		for _, ref := range refs {
			require.False(t, seen[ref])
			seen[ref] = true
		}
	}
	require.Equal(t, []float64{20, 20}, res.Utilities)
	require.InDelta(t, 20.0, res.MinOverall, 1e-6)
	require.InDelta(t, 20.0, res.MinRatios["produce"], 1e-6)
}

func TestEgalitarianNormalizesNegativeZero(t *testing.T) {
	vals := tinyValues(1.0, math.Copysign(0, -1))
	for cat := 3; cat < 10; cat++ {
		vals[cat] = math.Copysign(0, -1)
	}
	stub := &stubSolver{sol: solver.Solution{Status: solver.StatusOptimal, Values: vals}}
	eg := &Egalitarian{Solver: stub, TimeSteps: []int{0}, Observer: NopObserver}
	res, err := eg.Allocate(context.Background(), tinyDataset())
	require.NoError(t, err)
	require.False(t, math.Signbit(res.MinOverall))
	for cat, v := range res.MinRatios {
		require.False(t, math.Signbit(v), "category %s", cat)
	}
}

func TestEgalitarianStarvedAgencyStillOptimal(t *testing.T) {
	// A1 cannot be reached; the max-min objective is pinned at zero but
	// the program stays feasible and the solve reports optimal.
	ds := &model.Dataset{
		Donors: []model.Donor{
			{Name: "D", Items: []model.Item{{Weight: 10, Categories: map[string]float64{"produce": 10}}}},
		},
		Agencies: []model.Agency{
			{Name: "A0", ServedPerWk: 1, Tier: model.TierExclusive},
			{Name: "A1", ServedPerWk: 1, Tier: model.TierExclusive},
		},
		Drivers:   []model.Driver{{Name: "k"}},
		Adjacency: [][]bool{{true, false}},
	}
	eg := &Egalitarian{Solver: &solver.BranchBound{}, TimeSteps: []int{0}, Budget: 30 * time.Second, Observer: NopObserver}
	res, err := eg.Allocate(context.Background(), ds)
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, res.Status)
	require.Equal(t, 0.0, res.Utilities[1])
	require.InDelta(t, 0.0, res.MinOverall, 1e-6)
	require.False(t, math.Signbit(res.MinOverall))

	seen := map[model.ItemRef]bool{}
	for _, refs := range res.Allocation {
		for _, ref := range refs {
			require.False(t, seen[ref])
			seen[ref] = true
		}
	}
}
