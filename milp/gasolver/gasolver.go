// Package gasolver is a heuristic milp.Solver backend for instances where
// an approximate, fast answer is preferable to waiting out
// branch-and-bound to a time limit.
//
// Grounded directly on the teacher this module was built from
// (JensRantil-meeting-scheduler), which schedules meetings with a genetic
// algorithm backed by github.com/MaxHalford/eaopt rather than an exact
// solver: a Genome's chromosome here is the full vector of decision
// variable values (rounded to each variable's declared bounds and kind),
// Evaluate scores the MILP objective minus a large penalty proportional to
// total constraint violation (the classic penalty-method MILP heuristic),
// and Crossover/Mutate reuse eaopt's built-in float operators the way the
// teacher's candidate type reused eaopt's int operators.
package gasolver

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/MaxHalford/eaopt"
	"github.com/confsched/scheduler/internal/logx"
	"github.com/confsched/scheduler/milp"
)

// DefaultGenerations is how many generations the GA runs when the caller
// hasn't requested early termination via a shorter context deadline.
// Mirrors the teacher's DefaultNGenerations.
const DefaultGenerations uint = 300

// ViolationPenalty is the per-unit-of-violation penalty subtracted from an
// infeasible candidate's score. It must dominate any attainable objective
// swing so the GA is always driven toward feasibility first.
const ViolationPenalty = 1e6

// FeasibilityTolerance is the largest total constraint violation a
// candidate may have and still be reported as a feasible incumbent.
const FeasibilityTolerance = 1e-4

// Solver is a genetic-algorithm milp.Solver backend.
type Solver struct {
	generations uint
	log         *logx.Logger
}

// Option configures a Solver.
type Option func(*Solver)

// WithGenerations overrides DefaultGenerations.
func WithGenerations(n uint) Option {
	return func(s *Solver) {
		if n > 0 {
			s.generations = n
		}
	}
}

// WithLogger attaches a logger used to report generation progress.
func WithLogger(l *logx.Logger) Option {
	return func(s *Solver) { s.log = l }
}

// New builds a genetic-algorithm Solver.
func New(opts ...Option) *Solver {
	s := &Solver{generations: DefaultGenerations, log: logx.Discard}
	for _, o := range opts {
		o(s)
	}
	return s
}

// candidate is the internal eaopt.Genome: a full assignment of values to
// every variable declared on the model being solved.
type candidate struct {
	model     *milp.Model
	objective milp.Objective
	values    []float64
}

func (c *candidate) Clone() eaopt.Genome {
	return &candidate{
		model:     c.model,
		objective: c.objective,
		values:    append([]float64(nil), c.values...),
	}
}

func (c *candidate) Crossover(genome eaopt.Genome, rng *rand.Rand) {
	other := genome.(*candidate)
	eaopt.CrossUniformFloat64(c.values, other.values, rng)
	c.clampAll()
}

func (c *candidate) Mutate(rng *rand.Rand) {
	eaopt.MutNormalFloat64(c.values, 0.3, rng)
	c.clampAll()
}

func (c *candidate) clampAll() {
	for v := range c.values {
		variable := c.model.Vars[v]
		if c.values[v] < variable.Lower {
			c.values[v] = variable.Lower
		}
		if c.values[v] > variable.Upper {
			c.values[v] = variable.Upper
		}
		if variable.Kind != milp.Continuous {
			c.values[v] = math.Round(c.values[v])
		}
	}
}

// Evaluate scores the candidate: lower is better, matching eaopt's
// Minimize convention and the teacher's own Evaluate contract. A feasible
// candidate scores the objective, negated when maximizing; an infeasible
// one is additionally penalized by its total violation.
func (c *candidate) Evaluate() (float64, error) {
	obj := c.objective.Expr.Const
	for v, coef := range c.objective.Expr.Terms {
		obj += coef * c.values[v]
	}
	if c.objective.Maximize {
		obj = -obj
	}
	return obj + ViolationPenalty*totalViolation(c.model, c.values), nil
}

// totalViolation sums how far each constraint is from being satisfied; a
// satisfied constraint contributes zero.
func totalViolation(m *milp.Model, values []float64) float64 {
	var total float64
	for _, cons := range m.Constraints {
		lhs := cons.Expr.Const
		for v, coef := range cons.Expr.Terms {
			lhs += coef * values[v]
		}
		switch cons.Op {
		case milp.LE:
			if d := lhs - cons.RHS; d > 0 {
				total += d
			}
		case milp.GE:
			if d := cons.RHS - lhs; d > 0 {
				total += d
			}
		case milp.EQ:
			total += math.Abs(lhs - cons.RHS)
		}
	}
	return total
}

func randomCandidate(m *milp.Model, objective milp.Objective, rng *rand.Rand) *candidate {
	values := make([]float64, m.NumVars())
	for v, variable := range m.Vars {
		lower, upper := variable.Lower, variable.Upper
		if !isFinite(lower) {
			lower = 0
		}
		if !isFinite(upper) {
			upper = lower + 1
		}
		values[v] = lower + rng.Float64()*(upper-lower)
		if variable.Kind != milp.Continuous {
			values[v] = math.Round(values[v])
		}
	}
	return &candidate{model: m, objective: objective, values: values}
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// Solve implements milp.Solver.
func (s *Solver) Solve(ctx context.Context, m *milp.Model, objective milp.Objective, opts milp.Options) (milp.Solution, error) {
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}

	ga, err := eaopt.NewDefaultGAConfig().NewGA()
	if err != nil {
		return milp.Solution{}, err
	}

	generations := s.generations
	ga.NGenerations = generations

	deadline, hasDeadline := ctx.Deadline()
	timedOut := false
	ga.Callback = func(g *eaopt.GA) {
		s.log.Debugf("gasolver: generation %d best score %f", g.Generations, g.HallOfFame[0].Fitness)
		if ctx.Err() != nil || (hasDeadline && time.Now().After(deadline)) {
			timedOut = true
			g.NGenerations = g.Generations
		}
	}

	err = ga.Minimize(func(rng *rand.Rand) eaopt.Genome {
		return randomCandidate(m, objective, rng)
	})
	if err != nil {
		return milp.Solution{}, err
	}

	best := ga.HallOfFame[0].Genome.(*candidate)
	violation := totalViolation(m, best.values)

	sol := milp.Solution{Values: make(map[milp.VarRef]float64, m.NumVars())}
	for v, val := range best.values {
		sol.Values[milp.VarRef(v)] = val
	}

	if violation > FeasibilityTolerance {
		sol.Status = milp.StatusInfeasible
		return sol, nil
	}

	obj := objective.Expr.Const
	for v, coef := range objective.Expr.Terms {
		obj += coef * best.values[v]
	}
	sol.ObjectiveValue = obj
	sol.HasIncumbent = true

	if timedOut {
		sol.Status = milp.StatusTimeLimit
		s.log.Warnf("gasolver: stopped early at generation %d", ga.Generations)
	} else {
		sol.Status = milp.StatusFeasible
	}
	return sol, nil
}
