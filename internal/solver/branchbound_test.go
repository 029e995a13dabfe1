package solver

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

func TestSolvePureLP(t *testing.T) {
	// max 3x + 2y  s.t.  x + y <= 4, x <= 2
	m := NewModel()
	x := m.Continuous("x", 0, math.Inf(1))
	y := m.Continuous("y", 0, math.Inf(1))
	m.AddConstraint("cap", Expr{}.Plus(x, 1).Plus(y, 1), LE, 4)
	m.AddConstraint("x_cap", Expr{}.Plus(x, 1), LE, 2)
	m.Maximize(Expr{}.Plus(x, 3).Plus(y, 2))

	sol, err := (&BranchBound{}).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	require.InDelta(t, 10.0, sol.Objective, 1e-6)
	require.InDelta(t, 2.0, sol.Value(x), 1e-6)
	require.InDelta(t, 2.0, sol.Value(y), 1e-6)
}

func TestSolveKnapsack(t *testing.T) {
	// max 10a + 6b + 4c  s.t.  5a + 4b + 3c <= 10, a,b,c binary
	m := NewModel()
	a := m.Binary("a")
	b := m.Binary("b")
	c := m.Binary("c")
	m.AddConstraint("weight", Expr{}.Plus(a, 5).Plus(b, 4).Plus(c, 3), LE, 10)
	m.Maximize(Expr{}.Plus(a, 10).Plus(b, 6).Plus(c, 4))

	sol, err := (&BranchBound{}).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	require.InDelta(t, 16.0, sol.Objective, 1e-6)
	require.InDelta(t, 1.0, sol.Value(a), 1e-6)
	require.InDelta(t, 1.0, sol.Value(b), 1e-6)
	require.InDelta(t, 0.0, sol.Value(c), 1e-6)
}

func TestSolveInfeasible(t *testing.T) {
	m := NewModel()
	x := m.Binary("x")
	m.AddConstraint("impossible", Expr{}.Plus(x, 1), GE, 2)
	m.Maximize(Expr{}.Plus(x, 1))

	sol, err := (&BranchBound{}).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusInfeasible, sol.Status)
}

func TestSolveExpiredContext(t *testing.T) {
	m := NewModel()
	x := m.Binary("x")
	m.AddConstraint("c", Expr{}.Plus(x, 1), LE, 1)
	m.Maximize(Expr{}.Plus(x, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := (&BranchBound{}).Solve(ctx, m)
	require.NoError(t, err)
	require.Equal(t, StatusNotSolved, sol.Status)
}

func TestSolveNodeCap(t *testing.T) {
	m := NewModel()
	a := m.Binary("a")
	b := m.Binary("b")
	c := m.Binary("c")
	m.AddConstraint("weight", Expr{}.Plus(a, 5).Plus(b, 4).Plus(c, 3), LE, 10)
	m.Maximize(Expr{}.Plus(a, 10).Plus(b, 6).Plus(c, 4))

	sol, err := (&BranchBound{MaxNodes: 1}).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusNotSolved, sol.Status)
}

func TestSolveBadModel(t *testing.T) {
	m := NewModel()
	m.Binary("x")
	// no objective
	_, err := (&BranchBound{}).Solve(context.Background(), m)
	require.ErrorIs(t, err, ErrBadModel)

	m2 := NewModel()
	x := m2.Binary("x")
	m2.AddConstraint("empty", Expr{}, LE, 1)
	m2.Maximize(Expr{}.Plus(x, 1))
	_, err = (&BranchBound{}).Solve(context.Background(), m2)
	require.ErrorIs(t, err, ErrBadModel)
}

func TestSolveUnboundedRelaxation(t *testing.T) {
	orig := relax
	relax = func(m *Model, fixes []fixing) (float64, []float64, error) {
		return 0, nil, lp.ErrUnbounded
	}
	defer func() { relax = orig }()

	m := NewModel()
	x := m.Binary("x")
	m.AddConstraint("c", Expr{}.Plus(x, 1), LE, 1)
	m.Maximize(Expr{}.Plus(x, 1))

	_, err := (&BranchBound{}).Solve(context.Background(), m)
	require.ErrorIs(t, err, lp.ErrUnbounded)
}

func TestSolveWithinBudget(t *testing.T) {
	m := NewModel()
	x := m.Binary("x")
	m.AddConstraint("c", Expr{}.Plus(x, 1), LE, 1)
	m.Maximize(Expr{}.Plus(x, 1))

	sol, err := (&BranchBound{}).SolveWithin(context.Background(), m, 0)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	require.InDelta(t, 1.0, sol.Objective, 1e-6)
}
