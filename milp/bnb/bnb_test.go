package bnb_test

import (
	"context"
	"testing"
	"time"

	"github.com/confsched/scheduler/milp"
	"github.com/confsched/scheduler/milp/bnb"
)

// A tiny 0/1 knapsack: pick items to maximize value under a weight cap.
// This exercises real branching (continuous relaxation is fractional)
// rather than a trivially-integral LP.
func TestSolveKnapsack(t *testing.T) {
	m := milp.NewModel()
	values := []float64{60, 100, 120}
	weights := []float64{10, 20, 30}
	capacity := 50.0

	vars := make([]milp.VarRef, len(values))
	for i := range values {
		vars[i] = m.NewBinary("item")
	}

	weightExpr := milp.NewExpr()
	objExpr := milp.NewExpr()
	for i, v := range vars {
		weightExpr = milp.Add(weightExpr, milp.Term(v, weights[i]))
		objExpr = milp.Add(objExpr, milp.Term(v, values[i]))
	}
	m.LE(weightExpr, capacity)

	solver := bnb.New(bnb.WithWorkers(2))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sol, err := solver.Solve(ctx, m, milp.Objective{Expr: objExpr, Maximize: true}, milp.Options{TimeLimit: 5 * time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != milp.StatusOptimal {
		t.Fatalf("expected StatusOptimal, got %v", sol.Status)
	}
	// Known optimum for this classic instance: items 1 and 2 (100+120=220).
	if sol.ObjectiveValue < 219.999 {
		t.Errorf("objective = %v, want >= 220", sol.ObjectiveValue)
	}
	for i, v := range vars {
		b := sol.BoolValue(v)
		if i == 0 && b {
			t.Errorf("item 0 should not be selected in the optimal solution")
		}
	}
}

func TestSolveInfeasibleModelReportsInfeasible(t *testing.T) {
	m := milp.NewModel()
	x := m.NewVar("x", 0, 10)
	m.GE(m.VarExpr(x), 8)
	m.LE(m.VarExpr(x), 3)

	solver := bnb.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sol, err := solver.Solve(ctx, m, milp.Objective{Expr: m.VarExpr(x), Maximize: true}, milp.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != milp.StatusInfeasible {
		t.Errorf("status = %v, want StatusInfeasible", sol.Status)
	}
	if sol.HasIncumbent {
		t.Error("an infeasible model must not report an incumbent")
	}
}

func TestSolveRespectsTimeLimit(t *testing.T) {
	m := milp.NewModel()
	var vars []milp.VarRef
	objExpr := milp.NewExpr()
	weightExpr := milp.NewExpr()
	for i := 0; i < 20; i++ {
		v := m.NewBinary("item")
		vars = append(vars, v)
		objExpr = milp.Add(objExpr, milp.Term(v, float64(i+1)))
		weightExpr = milp.Add(weightExpr, milp.Term(v, float64(i+1)))
	}
	m.LE(weightExpr, 100)

	solver := bnb.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sol, err := solver.Solve(ctx, m, milp.Objective{Expr: objExpr, Maximize: true}, milp.Options{TimeLimit: 1 * time.Nanosecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sol.Status != milp.StatusTimeLimit && sol.Status != milp.StatusOptimal {
		t.Errorf("status = %v, want StatusTimeLimit or StatusOptimal", sol.Status)
	}
}
