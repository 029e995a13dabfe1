package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	defaultIntTol   = 1e-6
	simplexTol      = 1e-7
	defaultMaxNodes = 200000
)

// BranchBound solves binary mixed-integer programs by branch and bound
// over LP relaxations. Each relaxation is solved with gonum's simplex
// after conversion to standard form.
type BranchBound struct {
	// IntTol is the integrality tolerance; relaxation values within
	// IntTol of 0 or 1 count as integral. Zero means the default.
	IntTol float64
	// MaxNodes caps the search tree; zero means the default.
	MaxNodes int
}

// relax points to the LP relaxation solve. Swappable in tests to
// simulate solver failures.
var relax = solveRelaxation

// fixing pins a binary variable to 0 or 1 along one search branch.
type fixing struct {
	v   int
	val int
}

type node struct {
	fixes []fixing
}

// Solve runs branch and bound until the tree is exhausted or ctx
// expires. Exhausted with an incumbent means optimal; exhausted without
// one means infeasible; a deadline hit is reported as not solved even
// when an unproven incumbent exists.
func (bb *BranchBound) Solve(ctx context.Context, m *Model) (Solution, error) {
	if err := m.validate(); err != nil {
		return Solution{Status: StatusNotSolved}, err
	}
	intTol := bb.IntTol
	if intTol <= 0 {
		intTol = defaultIntTol
	}
	maxNodes := bb.MaxNodes
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}

	var (
		incumbent    []float64
		incumbentObj = math.Inf(-1)
		haveInc      bool
		explored     int
	)

	stack := []node{{}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return Solution{Status: StatusNotSolved, Objective: incumbentObj, Values: incumbent}, nil
		}
		explored++
		if explored > maxNodes {
			return Solution{Status: StatusNotSolved, Objective: incumbentObj, Values: incumbent}, nil
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		obj, vals, err := relax(m, nd.fixes)
		if err != nil {
			if errors.Is(err, lp.ErrInfeasible) {
				continue
			}
			if errors.Is(err, lp.ErrUnbounded) {
				return Solution{Status: StatusNotSolved}, fmt.Errorf("solver: relaxation unbounded: %w", err)
			}
			// Numerical trouble on one node: treat the branch as pruned
			// rather than failing the whole solve.
			continue
		}
		if haveInc && obj <= incumbentObj+intTol {
			continue // bound: relaxation cannot beat the incumbent
		}

		branchVar := mostFractional(m, vals, intTol)
		if branchVar < 0 {
			// Integral: new incumbent.
			if !haveInc || obj > incumbentObj {
				incumbent = append([]float64(nil), vals...)
				incumbentObj = obj
				haveInc = true
			}
			continue
		}

		// Depth-first, 1-branch on top so maximization incumbents
		// appear early.
		down := node{fixes: append(append([]fixing(nil), nd.fixes...), fixing{v: branchVar, val: 0})}
		up := node{fixes: append(append([]fixing(nil), nd.fixes...), fixing{v: branchVar, val: 1})}
		stack = append(stack, down, up)
	}

	if !haveInc {
		return Solution{Status: StatusInfeasible}, nil
	}
	return Solution{Status: StatusOptimal, Objective: incumbentObj, Values: incumbent}, nil
}

// mostFractional picks the binary variable farthest from integrality,
// or -1 when all binaries are integral within tol.
func mostFractional(m *Model, vals []float64, tol float64) int {
	best, bestDist := -1, tol
	for i, v := range m.vars {
		if v.Kind != Binary {
			continue
		}
		frac := vals[i] - math.Floor(vals[i])
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}

// solveRelaxation solves the LP relaxation of m with the given binary
// fixings. Returns the maximized objective and per-variable values.
func solveRelaxation(m *Model, fixes []fixing) (float64, []float64, error) {
	nVar := len(m.vars)

	// Inequality rows: model LE/GE constraints, variable bounds, fixings.
	type row struct {
		coefs map[int]float64
		rhs   float64
	}
	var ineq []row
	var eqRows []row

	addIneq := func(e Expr, sign float64, rhs float64) {
		r := row{coefs: map[int]float64{}, rhs: rhs}
		for _, t := range e {
			r.coefs[t.Var] += sign * t.Coef
		}
		ineq = append(ineq, r)
	}

	for _, c := range m.cons {
		switch c.Op {
		case LE:
			addIneq(c.Expr, 1, c.RHS)
		case GE:
			addIneq(c.Expr, -1, -c.RHS)
		case EQ:
			r := row{coefs: map[int]float64{}, rhs: c.RHS}
			for _, t := range c.Expr {
				r.coefs[t.Var] += t.Coef
			}
			eqRows = append(eqRows, r)
		}
	}
	for i, v := range m.vars {
		if !math.IsInf(v.Upper, 1) {
			ineq = append(ineq, row{coefs: map[int]float64{i: 1}, rhs: v.Upper})
		}
		// Convert treats variables as free, so the lower bound needs an
		// explicit row even when it is zero.
		ineq = append(ineq, row{coefs: map[int]float64{i: -1}, rhs: -v.Lower})
	}
	for _, f := range fixes {
		eqRows = append(eqRows, row{coefs: map[int]float64{f.v: 1}, rhs: float64(f.val)})
	}

	// Simplex minimizes; negate for maximization.
	c := make([]float64, nVar)
	for _, t := range m.obj {
		c[t.Var] -= t.Coef
	}

	g := mat.NewDense(len(ineq), nVar, nil)
	h := make([]float64, len(ineq))
	for ri, r := range ineq {
		for vi, cf := range r.coefs {
			g.Set(ri, vi, cf)
		}
		h[ri] = r.rhs
	}

	var a mat.Matrix
	var b []float64
	if len(eqRows) > 0 {
		ad := mat.NewDense(len(eqRows), nVar, nil)
		b = make([]float64, len(eqRows))
		for ri, r := range eqRows {
			for vi, cf := range r.coefs {
				ad.Set(ri, vi, cf)
			}
			b[ri] = r.rhs
		}
		a = ad
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	optF, optX, err := lp.Simplex(cStd, aStd, bStd, simplexTol, nil)
	if err != nil {
		return 0, nil, err
	}

	// Standard form splits each variable into positive and negative
	// parts: x_i = x⁺_i - x⁻_i.
	vals := make([]float64, nVar)
	for i := 0; i < nVar; i++ {
		vals[i] = optX[i] - optX[nVar+i]
	}
	return -optF, vals, nil
}

// SolveWithin wraps Solve with a wall-clock budget on top of any
// deadline already carried by ctx.
func (bb *BranchBound) SolveWithin(ctx context.Context, m *Model, budget time.Duration) (Solution, error) {
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	return bb.Solve(ctx, m)
}
