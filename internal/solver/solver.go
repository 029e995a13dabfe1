package solver

import (
	"context"
	"errors"
	"math"
)

// Status is the definite outcome of a solve attempt. Infeasibility and
// running out of budget are statuses, not errors; errors are reserved
// for malformed models and internal failures.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusNotSolved  Status = "not_solved"
)

// ErrBadModel indicates a structurally invalid model (no objective,
// empty constraint expression, bad variable index).
var ErrBadModel = errors.New("solver: bad model")

// VarKind distinguishes continuous variables from binary indicators.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

// Variable is one decision variable in the arena. Binary variables are
// integral over [0,1]; continuous variables range over [Lower, Upper].
type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64 // math.Inf(1) for unbounded above
}

// Term is one coefficient in a sparse linear expression.
type Term struct {
	Var  int
	Coef float64
}

// Expr is a sparse linear expression over model variables.
type Expr []Term

// Plus appends a term and returns the extended expression.
func (e Expr) Plus(v int, coef float64) Expr { return append(e, Term{Var: v, Coef: coef}) }

// Op is a constraint relation.
type Op int

const (
	LE Op = iota
	GE
	EQ
)

// Constraint is a named linear constraint Expr Op RHS.
type Constraint struct {
	Name string
	Expr Expr
	Op   Op
	RHS  float64
}

// Model is a mixed-integer linear program: a variable arena, linear
// constraints, and a linear objective to maximize. Construction is
// append-only; the model is read-only once handed to a Solver.
type Model struct {
	vars []Variable
	cons []Constraint
	obj  Expr
}

func NewModel() *Model { return &Model{} }

// Binary adds a 0/1 integral variable and returns its index.
func (m *Model) Binary(name string) int {
	m.vars = append(m.vars, Variable{Name: name, Kind: Binary, Lower: 0, Upper: 1})
	return len(m.vars) - 1
}

// Continuous adds a bounded continuous variable and returns its index.
func (m *Model) Continuous(name string, lower, upper float64) int {
	m.vars = append(m.vars, Variable{Name: name, Kind: Continuous, Lower: lower, Upper: upper})
	return len(m.vars) - 1
}

// AddConstraint appends Expr Op RHS to the model.
func (m *Model) AddConstraint(name string, expr Expr, op Op, rhs float64) {
	m.cons = append(m.cons, Constraint{Name: name, Expr: expr, Op: op, RHS: rhs})
}

// Maximize sets the objective expression.
func (m *Model) Maximize(obj Expr) { m.obj = obj }

func (m *Model) NumVars() int        { return len(m.vars) }
func (m *Model) NumConstraints() int { return len(m.cons) }

// NumBinary counts the integral variables.
func (m *Model) NumBinary() int {
	n := 0
	for _, v := range m.vars {
		if v.Kind == Binary {
			n++
		}
	}
	return n
}

// Var returns the variable at index i.
func (m *Model) Var(i int) Variable { return m.vars[i] }

func (m *Model) validate() error {
	if len(m.obj) == 0 || len(m.vars) == 0 {
		return ErrBadModel
	}
	check := func(e Expr) error {
		if len(e) == 0 {
			return ErrBadModel
		}
		for _, t := range e {
			if t.Var < 0 || t.Var >= len(m.vars) {
				return ErrBadModel
			}
		}
		return nil
	}
	if err := check(m.obj); err != nil {
		return err
	}
	for _, c := range m.cons {
		if err := check(c.Expr); err != nil {
			return err
		}
	}
	for _, v := range m.vars {
		if v.Lower < 0 || v.Upper < v.Lower || math.IsNaN(v.Lower) {
			return ErrBadModel
		}
	}
	return nil
}

// Solution carries the solver verdict. Values holds one entry per model
// variable and is meaningful only when Status is StatusOptimal.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
}

// Value returns the solved value of variable i, or 0 when absent.
func (s Solution) Value(i int) float64 {
	if i < 0 || i >= len(s.Values) {
		return 0
	}
	return s.Values[i]
}

// Solver is the capability interface the allocators program against:
// solve a mixed-integer linear model, return variable assignments or a
// definite not-solved status. Implementations must honor ctx deadlines.
type Solver interface {
	Solve(ctx context.Context, m *Model) (Solution, error)
}
