package milp

import "fmt"

// Min encodes sel = 0 ⇒ a <= b and sel = 1 ⇒ b <= a, via
//
//	a - b <= M*sel
//	b - a <= M*(1-sel)
//
// bigM must be strictly larger than any attainable |a-b|; an undersized
// bigM silently produces infeasibility or a wrong answer. When a and b are
// equal, both directions are feasible and the solver is free to pick
// either value for sel.
func Min(m *Model, a, b Expr, sel VarRef, bigM float64) {
	// a - b - M*sel <= 0
	m.LE(Add(a, Scale(b, -1), Term(sel, -bigM)), 0)
	// b - a + M*sel <= M
	m.LE(Add(b, Scale(a, -1), Term(sel, bigM)), bigM)
}

// Max encodes sel = 0 ⇒ a >= b and sel = 1 ⇒ b >= a. It is Min applied to
// the negated arguments, per the same selector convention.
func Max(m *Model, a, b Expr, sel VarRef, bigM float64) {
	Min(m, Scale(a, -1), Scale(b, -1), sel, bigM)
}

// Select forces out = a when sel = 0 and out = b when sel = 1, via
//
//	out <= a + M*sel        out >= a - M*sel
//	out <= b + M*(1-sel)    out >= b - M*(1-sel)
//
// Pair Select with Min/Max when the numeric extremum itself (not just a
// same/different indicator) is needed.
func Select(m *Model, a, b Expr, out VarRef, sel VarRef, bigM float64) {
	outExpr := m.VarExpr(out)

	// out - a - M*sel <= 0
	m.LE(Add(outExpr, Scale(a, -1), Term(sel, -bigM)), 0)
	// out - a + M*sel >= 0
	m.GE(Add(outExpr, Scale(a, -1), Term(sel, bigM)), 0)
	// out - b - M + M*sel <= 0  =>  out - b + M*sel <= M
	m.LE(Add(outExpr, Scale(b, -1), Term(sel, bigM)), bigM)
	// out - b + M - M*sel >= 0  =>  out - b - M*sel >= -M
	m.GE(Add(outExpr, Scale(b, -1), Term(sel, -bigM)), -bigM)
}

// GroupConstraint is one individual constraint of a disjunction group,
// normalized to the form Expr Op 0 (i.e. Expr already has any right-hand
// side folded in via its Const term).
type GroupConstraint struct {
	Expr Expr
	Op   RelOp
}

// ConstraintGroup is one AND-group G_i of a disjunction: it holds if every
// GroupConstraint in it holds.
type ConstraintGroup []GroupConstraint

// Or enforces "group i holds whenever z_i = 1" for a fresh binary z_i per
// group, by relaxing each individual constraint with bigM when z_i = 0:
//
//	expr <= 0  becomes  expr <= M*(1 - z_i)
//	expr >= 0  becomes  expr >= -M*(1 - z_i)
//	expr = 0   becomes both of the above
//
// If target is nil, it additionally requires Σ z_i >= 1 (at least one
// group holds). If target is non-nil, it requires Σ z_i = *target — the
// mechanism used by the scheduler to require "this talk's interval lies
// inside exactly one of its location's allowed windows, and no window if
// it isn't scheduled there" (target being the is_scheduled indicator).
//
// Or returns the z_i binaries it allocated, one per group, in order, so
// callers that need to read them back after solving (e.g. to know which
// window was chosen) can do so.
func Or(m *Model, groups []ConstraintGroup, target *Expr, bigM float64) []VarRef {
	zs := make([]VarRef, len(groups))
	sum := NewExpr()
	for i, group := range groups {
		z := m.NewBinary(fmt.Sprintf("or_z_%d", i))
		zs[i] = z
		sum = Add(sum, Term(z, 1))

		for _, gc := range group {
			switch gc.Op {
			case LE:
				// expr <= M*(1-z)  =>  expr + M*z <= M
				m.LE(Add(gc.Expr, Term(z, bigM)), bigM)
			case GE:
				// expr >= -M*(1-z)  =>  expr - M*z >= -M
				m.GE(Add(gc.Expr, Term(z, -bigM)), -bigM)
			case EQ:
				m.LE(Add(gc.Expr, Term(z, bigM)), bigM)
				m.GE(Add(gc.Expr, Term(z, -bigM)), -bigM)
			}
		}
	}

	if target == nil {
		m.GE(sum, 1)
	} else {
		m.EQ(Sub(sum, *target), 0)
	}

	return zs
}
