package milp_test

import (
	"math/rand"
	"testing"

	"github.com/confsched/scheduler/milp"
	"github.com/confsched/scheduler/milp/bnb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bigM = 1000.0

// solveFixed pins a and b to fixed values via equality constraints, adds
// the primitive under test, and asks bnb to solve a trivial feasibility
// model (minimize 0) so we can read back what the primitive forced onto
// sel/out.
func solveFixed(t *testing.T, build func(m *milp.Model, a, b milp.VarRef) milp.VarRef) (aVal, bVal float64, out float64) {
	t.Helper()
	m := milp.NewModel()
	av := m.NewVar("a", -1e6, 1e6)
	bv := m.NewVar("b", -1e6, 1e6)
	aVal = float64(rand.Intn(201) - 100)
	bVal = float64(rand.Intn(201) - 100)
	m.EQ(m.VarExpr(av), aVal)
	m.EQ(m.VarExpr(bv), bVal)

	outVar := build(m, av, bv)

	solver := bnb.New()
	sol, err := solver.Solve(testContext(), m, milp.Objective{Expr: milp.Lit(0), Maximize: false}, milp.Options{})
	require.NoError(t, err)
	require.True(t, sol.HasIncumbent, "expected a feasible incumbent")
	return aVal, bVal, sol.Value(outVar)
}

func TestMinPropertyRandomPairs(t *testing.T) {
	for i := 0; i < 1000; i++ {
		a, b, selVal := solveFixed(t, func(m *milp.Model, av, bv milp.VarRef) milp.VarRef {
			sel := m.NewBinary("sel")
			milp.Min(m, m.VarExpr(av), m.VarExpr(bv), sel, bigM)
			return sel
		})
		if selVal < 0.5 {
			assert.LessOrEqualf(t, a, b, "sel=0 must mean a<=b (a=%v b=%v)", a, b)
		} else {
			assert.LessOrEqualf(t, b, a, "sel=1 must mean b<=a (a=%v b=%v)", a, b)
		}
	}
}

func TestMaxPropertyRandomPairs(t *testing.T) {
	for i := 0; i < 1000; i++ {
		a, b, selVal := solveFixed(t, func(m *milp.Model, av, bv milp.VarRef) milp.VarRef {
			sel := m.NewBinary("sel")
			milp.Max(m, m.VarExpr(av), m.VarExpr(bv), sel, bigM)
			return sel
		})
		if selVal < 0.5 {
			assert.GreaterOrEqualf(t, a, b, "sel=0 must mean a>=b (a=%v b=%v)", a, b)
		} else {
			assert.GreaterOrEqualf(t, b, a, "sel=1 must mean b>=a (a=%v b=%v)", a, b)
		}
	}
}

func TestSelectPicksBranch(t *testing.T) {
	for _, sel := range []float64{0, 1} {
		m := milp.NewModel()
		av := m.NewVar("a", -1e6, 1e6)
		bv := m.NewVar("b", -1e6, 1e6)
		selVar := m.NewBinary("sel")
		out := m.NewVar("out", -1e6, 1e6)
		m.EQ(m.VarExpr(av), 7)
		m.EQ(m.VarExpr(bv), -3)
		m.EQ(m.VarExpr(selVar), sel)
		milp.Select(m, m.VarExpr(av), m.VarExpr(bv), out, selVar, bigM)

		solver := bnb.New()
		sol, err := solver.Solve(testContext(), m, milp.Objective{Expr: milp.Lit(0), Maximize: false}, milp.Options{})
		require.NoError(t, err)
		require.True(t, sol.HasIncumbent)
		if sel == 0 {
			assert.InDelta(t, 7.0, sol.Value(out), 1e-4)
		} else {
			assert.InDelta(t, -3.0, sol.Value(out), 1e-4)
		}
	}
}

func TestOrRequiresAtLeastOneGroup(t *testing.T) {
	m := milp.NewModel()
	x := m.NewVar("x", 0, 10)

	groupA := milp.ConstraintGroup{{Expr: milp.Sub(m.VarExpr(x), milp.Lit(5)), Op: milp.EQ}}
	groupB := milp.ConstraintGroup{{Expr: milp.Sub(m.VarExpr(x), milp.Lit(9)), Op: milp.EQ}}
	zs := milp.Or(m, []milp.ConstraintGroup{groupA, groupB}, nil, bigM)
	require.Len(t, zs, 2)

	solver := bnb.New()
	sol, err := solver.Solve(testContext(), m, milp.Objective{Expr: m.VarExpr(x), Maximize: true}, milp.Options{})
	require.NoError(t, err)
	require.True(t, sol.HasIncumbent)
	assert.InDelta(t, 9.0, sol.Value(x), 1e-4)
	assert.True(t, sol.BoolValue(zs[1]))
}

func TestOrWithTargetLinksToExternalIndicator(t *testing.T) {
	m := milp.NewModel()
	x := m.NewVar("x", 0, 10)
	active := m.NewBinary("active")
	m.EQ(m.VarExpr(active), 0)

	group := milp.ConstraintGroup{{Expr: milp.Sub(m.VarExpr(x), milp.Lit(5)), Op: milp.EQ}}
	target := m.VarExpr(active)
	zs := milp.Or(m, []milp.ConstraintGroup{group}, &target, bigM)
	require.Len(t, zs, 1)

	solver := bnb.New()
	sol, err := solver.Solve(testContext(), m, milp.Objective{Expr: milp.Lit(0), Maximize: false}, milp.Options{})
	require.NoError(t, err)
	require.True(t, sol.HasIncumbent)
	assert.False(t, sol.BoolValue(zs[0]), "target=0 forces every group's z_i to 0")
}
