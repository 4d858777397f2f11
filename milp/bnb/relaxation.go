package bnb

import (
	"errors"

	"github.com/confsched/scheduler/milp"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// ErrRelaxationInfeasible is returned by solveRelaxation when the LP
// relaxation of a node (with its current bound tightenings) admits no
// feasible point at all.
var ErrRelaxationInfeasible = errors.New("bnb: lp relaxation infeasible")

// bigMArtificial is the Big-M penalty applied to artificial variables
// introduced while converting >= and = rows to the equality form gonum's
// simplex expects. It must dominate any attainable objective value so
// artificials are always driven out of the optimal basis when a feasible
// point without them exists.
const bigMArtificial = 1e9

// relaxation is the dense tableau for one branch-and-bound node's LP
// relaxation: minimize c^T x' subject to A x' = b, x' >= 0, where x' is
// the original decision vector shifted so every variable's lower bound is
// zero (x' = x - lower) and extended with slack/surplus/artificial
// columns added while converting inequalities to equalities.
type relaxation struct {
	c        []float64
	a        *mat.Dense
	b        []float64
	shift    []float64 // per original variable, the lower bound subtracted off
	nOrig    int        // number of original (non-slack/artificial) columns
	basic    []int      // initial basic feasible column indices, one per row
}

// bounds overrides a variable's [lower, upper] range for one node; nil
// means "use the Model's declared bounds".
type bounds map[milp.VarRef][2]float64

func effectiveBounds(m *milp.Model, v milp.VarRef, bnd bounds) (lower, upper float64) {
	if b, ok := bnd[v]; ok {
		return b[0], b[1]
	}
	vv := m.Vars[v]
	return vv.Lower, vv.Upper
}

// buildRelaxation converts a Model plus a maximize-aware objective and a
// set of node-local bound tightenings into a standard-form LP ready for
// gonum's Simplex. Every original variable is shifted to have lower bound
// zero; its upper bound (if finite) becomes an explicit <= row.
func buildRelaxation(m *milp.Model, obj milp.Objective, bnd bounds) (*relaxation, error) {
	n := m.NumVars()
	shift := make([]float64, n)
	upperWidth := make([]float64, n)
	for v := 0; v < n; v++ {
		lower, upper := effectiveBounds(m, milp.VarRef(v), bnd)
		if upper < lower {
			return nil, ErrRelaxationInfeasible
		}
		shift[v] = lower
		upperWidth[v] = upper - lower
	}

	type row struct {
		coeffs map[int]float64
		op     milp.RelOp
		rhs    float64
	}
	var rows []row

	for _, cons := range m.Constraints {
		coeffs := make(map[int]float64, len(cons.Expr.Terms))
		rhs := cons.RHS - cons.Expr.Const
		for v, coef := range cons.Expr.Terms {
			coeffs[int(v)] += coef
			rhs += coef * shift[v]
		}
		rows = append(rows, row{coeffs: coeffs, op: cons.Op, rhs: rhs})
	}
	for v := 0; v < n; v++ {
		if !isFinite(upperWidth[v]) {
			continue
		}
		rows = append(rows, row{coeffs: map[int]float64{v: 1}, op: milp.LE, rhs: upperWidth[v]})
	}

	nRows := len(rows)
	extra := 0
	for _, r := range rows {
		switch r.op {
		case milp.LE:
			extra++
		case milp.GE, milp.EQ:
			extra++
			if r.op == milp.GE {
				extra++
			}
		}
	}
	totalCols := n + extra

	a := mat.NewDense(nRows, totalCols, nil)
	b := make([]float64, nRows)
	c := make([]float64, totalCols)
	basic := make([]int, nRows)

	for v, coef := range obj.Expr.Terms {
		if obj.Maximize {
			c[v] = -coef
		} else {
			c[v] = coef
		}
	}

	col := n
	for i, r := range rows {
		rhs := r.rhs
		op := r.op
		coeffs := r.coeffs
		if rhs < 0 {
			// Normalize to a non-negative RHS by negating the row; this
			// flips the inequality direction (EQ stays EQ).
			rhs = -rhs
			flipped := make(map[int]float64, len(coeffs))
			for v, coef := range coeffs {
				flipped[v] = -coef
			}
			coeffs = flipped
			switch op {
			case milp.LE:
				op = milp.GE
			case milp.GE:
				op = milp.LE
			}
		}

		for v, coef := range coeffs {
			a.Set(i, v, coef)
		}
		b[i] = rhs

		switch op {
		case milp.LE:
			a.Set(i, col, 1)
			basic[i] = col
			col++
		case milp.GE:
			a.Set(i, col, -1) // surplus
			col++
			a.Set(i, col, 1) // artificial
			c[col] = bigMArtificial
			basic[i] = col
			col++
		case milp.EQ:
			a.Set(i, col, 1) // artificial
			c[col] = bigMArtificial
			basic[i] = col
			col++
		}
	}

	return &relaxation{c: c, a: a, b: b, shift: shift, nOrig: n, basic: basic}, nil
}

// solveRelaxation solves the LP relaxation and returns the original
// (unshifted) values for the model's declared variables, plus the raw
// objective value in the Solver's original (not internally negated) sense.
func solveRelaxation(m *milp.Model, obj milp.Objective, bnd bounds) (values []float64, objective float64, err error) {
	rlx, err := buildRelaxation(m, obj, bnd)
	if err != nil {
		return nil, 0, err
	}
	evalObjective := func(values []float64) float64 {
		f := obj.Expr.Const
		for v, coef := range obj.Expr.Terms {
			f += coef * values[v]
		}
		return f
	}
	if len(rlx.b) == 0 {
		// No constraints at all: every variable sits at its lower bound.
		values = append([]float64(nil), rlx.shift...)
		return values, evalObjective(values), nil
	}

	_, optX, err := lp.Simplex(rlx.c, rlx.a, rlx.b, 0, rlx.basic)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) || errors.Is(err, lp.ErrSingular) {
			return nil, 0, ErrRelaxationInfeasible
		}
		return nil, 0, err
	}
	// An artificial column left positive at the optimum means no feasible
	// point without it exists.
	for col := rlx.nOrig; col < len(rlx.c); col++ {
		if rlx.c[col] == bigMArtificial && optX[col] > integralityTolerance {
			return nil, 0, ErrRelaxationInfeasible
		}
	}

	values = make([]float64, rlx.nOrig)
	for v := 0; v < rlx.nOrig; v++ {
		values[v] = optX[v] + rlx.shift[v]
	}
	return values, evalObjective(values), nil
}
