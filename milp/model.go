// Package milp provides small, reusable model-building primitives for
// expressing mixed-integer linear programs, plus the Solver interface a
// concrete branch-and-bound (or other) engine must satisfy to consume
// them.
//
// Model is a pure builder: it owns variable declarations and constraints
// but never solves anything itself. Callers construct a Model, optionally
// call the linearization helpers (Min, Max, Select, Or) to encode
// non-linear relationships, then hand the Model and an Objective to a
// Solver.
package milp

import "fmt"

// VarKind distinguishes how a variable's value may be interpreted by a
// solver: Continuous values may take any value in range, Integer values
// must be whole numbers, Binary values are Integer restricted to {0,1}.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

// VarRef identifies a decision variable declared on a Model. It is only
// meaningful in the context of the Model that produced it.
type VarRef int

// Var is a declared decision variable.
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// RelOp is the relational operator of a linear constraint.
type RelOp int

const (
	LE RelOp = iota
	GE
	EQ
)

func (op RelOp) String() string {
	switch op {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "="
	default:
		return "?"
	}
}

// Expr is a sparse linear form: Const + Σ Terms[v]*v.
type Expr struct {
	Terms map[VarRef]float64
	Const float64
}

// NewExpr returns an empty, ready-to-use expression (value zero).
func NewExpr() Expr {
	return Expr{Terms: make(map[VarRef]float64)}
}

// Term builds the single-variable expression coef*v.
func Term(v VarRef, coef float64) Expr {
	e := NewExpr()
	if coef != 0 {
		e.Terms[v] = coef
	}
	return e
}

// Lit builds the constant expression c.
func Lit(c float64) Expr {
	return Expr{Terms: map[VarRef]float64{}, Const: c}
}

// Add sums any number of expressions.
func Add(exprs ...Expr) Expr {
	out := NewExpr()
	for _, e := range exprs {
		out.Const += e.Const
		for v, c := range e.Terms {
			out.Terms[v] += c
		}
	}
	return out
}

// Scale multiplies every term and the constant of e by k.
func Scale(e Expr, k float64) Expr {
	out := NewExpr()
	out.Const = e.Const * k
	for v, c := range e.Terms {
		out.Terms[v] = c * k
	}
	return out
}

// Sub returns a - b.
func Sub(a, b Expr) Expr {
	return Add(a, Scale(b, -1))
}

// Constraint is one linear constraint Expr Op RHS, as added to a Model.
type Constraint struct {
	Name string
	Expr Expr
	Op   RelOp
	RHS  float64
}

// Model is a builder for a mixed-integer linear program: a list of
// variables and a list of constraints over them. It never solves anything;
// see the Solver interface for that.
type Model struct {
	Vars        []Var
	Constraints []Constraint
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewVar declares a continuous variable bounded in [lower, upper] and
// returns a reference to it.
func (m *Model) NewVar(name string, lower, upper float64) VarRef {
	return m.newVar(name, Continuous, lower, upper)
}

// NewInt declares an integer variable bounded in [lower, upper].
func (m *Model) NewInt(name string, lower, upper float64) VarRef {
	return m.newVar(name, Integer, lower, upper)
}

// NewBinary declares a binary (0/1) variable.
func (m *Model) NewBinary(name string) VarRef {
	return m.newVar(name, Binary, 0, 1)
}

func (m *Model) newVar(name string, kind VarKind, lower, upper float64) VarRef {
	m.Vars = append(m.Vars, Var{Name: name, Kind: kind, Lower: lower, Upper: upper})
	return VarRef(len(m.Vars) - 1)
}

// VarExpr returns the single-variable expression referencing v with
// coefficient 1; a convenience for building up larger expressions.
func (m *Model) VarExpr(v VarRef) Expr {
	return Term(v, 1)
}

// LE adds the constraint expr <= rhs.
func (m *Model) LE(expr Expr, rhs float64) {
	m.add("", expr, LE, rhs)
}

// GE adds the constraint expr >= rhs.
func (m *Model) GE(expr Expr, rhs float64) {
	m.add("", expr, GE, rhs)
}

// EQ adds the constraint expr = rhs.
func (m *Model) EQ(expr Expr, rhs float64) {
	m.add("", expr, EQ, rhs)
}

// LEN, GEN, EQN are named variants of LE/GE/EQ; the name is purely for
// diagnostics (logging, error messages) and carries no semantic weight.
func (m *Model) LEN(name string, expr Expr, rhs float64) { m.add(name, expr, LE, rhs) }
func (m *Model) GEN(name string, expr Expr, rhs float64) { m.add(name, expr, GE, rhs) }
func (m *Model) EQN(name string, expr Expr, rhs float64) { m.add(name, expr, EQ, rhs) }

func (m *Model) add(name string, expr Expr, op RelOp, rhs float64) {
	if name == "" {
		name = fmt.Sprintf("c%d", len(m.Constraints))
	}
	m.Constraints = append(m.Constraints, Constraint{Name: name, Expr: expr, Op: op, RHS: rhs})
}

// NumVars returns the number of declared variables.
func (m *Model) NumVars() int { return len(m.Vars) }

// NumConstraints returns the number of added constraints.
func (m *Model) NumConstraints() int { return len(m.Constraints) }
