package alloc

import (
	"context"
	"fmt"
	"math"
	"time"

	"fairshare/internal/model"
	"fairshare/internal/solver"
)

// DefaultTimeSteps is the discrete scheduling horizon inherited from the
// planning workflow; slots need not be contiguous.
var DefaultTimeSteps = []int{0, 1, 2, 3, 4, 6, 7, 8, 9}

// DefaultSolveBudget bounds the wall clock spent inside the solver.
const DefaultSolveBudget = 300 * time.Second

// assignKey indexes an item-assignment indicator x[a,d,i].
type assignKey struct {
	agency, donor, item int
}

// pairKey indexes the trip allowance for an (agency, donor) pair.
type pairKey struct {
	agency, donor int
}

// Egalitarian formulates and solves the max-min fairness program:
// maximize the minimum weighted utility across agencies, plus the
// per-category minima, subject to capacity, routing, and single-use
// constraints. The solver dependency is injected so the formulation and
// extraction stay testable against a stub.
type Egalitarian struct {
	Solver          solver.Solver
	TimeSteps       []int
	CategoryWeights map[string]float64 // objective α per category; default 1.0 each
	Budget          time.Duration
	Observer        Observer
}

// Result is the outcome of one optimization run. On any status other
// than StatusOptimal the allocation is empty and utilities are all zero;
// callers must check Status before trusting the rest.
type Result struct {
	Status      solver.Status
	Allocation  model.Allocation
	Utilities   []float64
	MinOverall  float64
	MinRatios   map[string]float64
	Vars        int
	Constraints int
	Elapsed     time.Duration
}

func (e *Egalitarian) observer() Observer {
	if e.Observer == nil {
		return LogObserver
	}
	return e.Observer
}

func (e *Egalitarian) steps() []int {
	if len(e.TimeSteps) == 0 {
		return DefaultTimeSteps
	}
	return e.TimeSteps
}

func (e *Egalitarian) alpha(cat string) float64 {
	if e.CategoryWeights == nil {
		return 1.0
	}
	if w, ok := e.CategoryWeights[cat]; ok {
		return w
	}
	return 1.0
}

// Allocate builds and solves the program for ds. Degenerate input (no
// agencies, no donors, no items) short-circuits to an empty optimal
// result without invoking the solver.
func (e *Egalitarian) Allocate(ctx context.Context, ds *model.Dataset) (Result, error) {
	if e.Solver == nil {
		return Result{Status: solver.StatusNotSolved}, fmt.Errorf("egalitarian: %w", solver.ErrBadModel)
	}
	obs := e.observer()
	nAgencies := len(ds.Agencies)
	empty := Result{
		Status:     solver.StatusOptimal,
		Allocation: model.Allocation{},
		Utilities:  make([]float64, nAgencies),
		MinRatios:  map[string]float64{},
	}
	totalItems := 0
	for _, d := range ds.Donors {
		totalItems += len(d.Items)
	}
	if nAgencies == 0 || totalItems == 0 {
		return empty, nil
	}

	weights := AgencyWeights(ds.Agencies)
	qty := CategoryQuantities(ds.Donors)
	feas := BuildFeasibility(ds.Donors, ds.Agencies, ds.Drivers, ds.Adjacency)
	steps := e.steps()

	m := solver.NewModel()

	// Drivers and steps are interchangeable in the formulation, and a
	// single trip carries every item assigned to its (agency, donor)
	// pair, so per-(step, driver) trip indicators would be fully
	// symmetric. They aggregate exactly into one continuous trip
	// allowance per feasible pair: at most one trip per step for the
	// pair, and a shared budget of one trip per driver per step. An
	// integral assignment needs one trip per used pair, and any set of
	// at most steps x drivers used pairs schedules onto distinct
	// (step, driver) slots, so the projection onto assignments is
	// unchanged while only assignment indicators remain binary.
	// Infeasible pairs hold no variable at all, which is the
	// fixed-to-zero constraint in structural form.
	trips := map[pairKey]int{}
	for a := 0; a < nAgencies; a++ {
		for d := range ds.Donors {
			if !feas.PairFeasible(a, d) {
				continue
			}
			name := fmt.Sprintf("trips_a%d_d%d", a, d)
			trips[pairKey{agency: a, donor: d}] = m.Continuous(name, 0, float64(len(steps)))
		}
	}

	// Assignment indicators exist only where some trip could carry the
	// item; a pair with no feasible driver can never receive one.
	x := map[assignKey]int{}
	for a := 0; a < nAgencies; a++ {
		for d, donor := range ds.Donors {
			if !feas.PairFeasible(a, d) {
				continue
			}
			for i := range donor.Items {
				name := fmt.Sprintf("x_a%d_d%d_i%d", a, d, i)
				x[assignKey{agency: a, donor: d, item: i}] = m.Binary(name)
			}
		}
	}

	// r: minimum weighted utility; rf: per-category minima.
	r := m.Continuous("r", 0, math.Inf(1))
	rf := map[string]int{}
	for _, cat := range model.FoodCategories {
		rf[cat] = m.Continuous("r_"+cat, 0, math.Inf(1))
	}

	obj := solver.Expr{}.Plus(r, 1)
	for _, cat := range model.FoodCategories {
		obj = obj.Plus(rf[cat], e.alpha(cat))
	}
	m.Maximize(obj)

	// Constraint 1: total categorized pounds per agency cover r times
	// the agency weight.
	for a := 0; a < nAgencies; a++ {
		expr := solver.Expr{}
		for d, donor := range ds.Donors {
			for i := range donor.Items {
				vi, ok := x[assignKey{agency: a, donor: d, item: i}]
				if !ok {
					continue
				}
				total := 0.0
				for _, cat := range model.FoodCategories {
					total += qty.At(d, i, cat)
				}
				if total > 0 {
					expr = expr.Plus(vi, total)
				}
			}
		}
		expr = expr.Plus(r, -weights[a])
		m.AddConstraint(fmt.Sprintf("min_food_a%d", a), expr, solver.GE, 0)
	}

	// Constraint 2: per category, pounds per agency cover rf times the
	// agency weight.
	for a := 0; a < nAgencies; a++ {
		for _, cat := range model.FoodCategories {
			expr := solver.Expr{}
			for d, donor := range ds.Donors {
				for i := range donor.Items {
					vi, ok := x[assignKey{agency: a, donor: d, item: i}]
					if !ok {
						continue
					}
					if lbs := qty.At(d, i, cat); lbs > 0 {
						expr = expr.Plus(vi, lbs)
					}
				}
			}
			expr = expr.Plus(rf[cat], -weights[a])
			m.AddConstraint(fmt.Sprintf("min_food_a%d_%s", a, cat), expr, solver.GE, 0)
		}
	}

	// Constraint 3: each item assigned at most once.
	for d, donor := range ds.Donors {
		for i := range donor.Items {
			expr := solver.Expr{}
			for a := 0; a < nAgencies; a++ {
				if vi, ok := x[assignKey{agency: a, donor: d, item: i}]; ok {
					expr = expr.Plus(vi, 1)
				}
			}
			if len(expr) > 0 {
				m.AddConstraint(fmt.Sprintf("item_once_d%d_i%d", d, i), expr, solver.LE, 1)
			}
		}
	}

	// Constraints 4 and 5 in aggregate: every (step, driver) slot hosts
	// at most one trip, so trip allowances share a steps x drivers
	// budget. The per-pair cap of one trip per step is the variable's
	// upper bound.
	budgetExpr := solver.Expr{}
	for a := 0; a < nAgencies; a++ {
		for d := range ds.Donors {
			if vi, ok := trips[pairKey{agency: a, donor: d}]; ok {
				budgetExpr = budgetExpr.Plus(vi, 1)
			}
		}
	}
	if len(budgetExpr) > 0 {
		m.AddConstraint("trip_budget", budgetExpr, solver.LE, float64(len(steps)*len(ds.Drivers)))
	}

	// Constraint 7: an assignment needs at least one trip between the
	// donor and agency somewhere in the horizon. The coupling is loose:
	// the trip is not pinned to the step that physically carries the
	// item.
	for a := 0; a < nAgencies; a++ {
		for d, donor := range ds.Donors {
			vt, ok := trips[pairKey{agency: a, donor: d}]
			if !ok {
				continue
			}
			for i := range donor.Items {
				xi, ok := x[assignKey{agency: a, donor: d, item: i}]
				if !ok {
					continue
				}
				expr := solver.Expr{}.Plus(xi, 1).Plus(vt, -1)
				m.AddConstraint(fmt.Sprintf("item_needs_trip_a%d_d%d_i%d", a, d, i), expr, solver.LE, 0)
			}
		}
	}

	obs.Event(Event{
		Stage:         "model_built",
		Algorithm:     "egalitarian",
		Vars:          m.NumVars(),
		Constraints:   m.NumConstraints(),
		FeasibleTrips: feas.FeasibleTrips,
	})

	budget := e.Budget
	if budget <= 0 {
		budget = DefaultSolveBudget
	}
	solveCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	obs.Event(Event{Stage: "solve_started", Algorithm: "egalitarian"})
	start := time.Now()
	sol, err := e.Solver.Solve(solveCtx, m)
	elapsed := time.Since(start)
	if err != nil {
		return Result{Status: solver.StatusNotSolved, Allocation: model.Allocation{}, Utilities: make([]float64, nAgencies), Elapsed: elapsed}, fmt.Errorf("egalitarian: solve: %w", err)
	}

	res := Result{
		Status:      sol.Status,
		Allocation:  model.Allocation{},
		Utilities:   make([]float64, nAgencies),
		MinRatios:   map[string]float64{},
		Vars:        m.NumVars(),
		Constraints: m.NumConstraints(),
		Elapsed:     elapsed,
	}
	obs.Event(Event{Stage: "solve_finished", Algorithm: "egalitarian", Status: string(sol.Status), Elapsed: elapsed})
	if sol.Status != solver.StatusOptimal {
		// Explicit status plus empty allocation; never a silent wrong
		// answer.
		return res, nil
	}

	// Indicators above the 0.5 threshold are allocated; the threshold
	// tolerates solver rounding.
	for a := 0; a < nAgencies; a++ {
		for d, donor := range ds.Donors {
			for i := range donor.Items {
				vi, ok := x[assignKey{agency: a, donor: d, item: i}]
				if !ok || sol.Value(vi) <= 0.5 {
					continue
				}
				res.Allocation[a] = append(res.Allocation[a], model.ItemRef{Donor: d, Item: i})
				res.Utilities[a] += donor.Items[i].Weight
			}
		}
	}
	res.MinOverall = posZero(sol.Value(r))
	for _, cat := range model.FoodCategories {
		res.MinRatios[cat] = posZero(sol.Value(rf[cat]))
	}
	return res, nil
}

// posZero maps the LP's negative zero to plain zero so reports and JSON
// never show -0.
func posZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}
