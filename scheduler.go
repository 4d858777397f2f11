package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/confsched/scheduler/internal/logx"
	"github.com/confsched/scheduler/milp"
	"github.com/confsched/scheduler/milp/bnb"
)

// DefaultTimeLimit bounds the wall time a solve is allowed to take before
// the best incumbent found so far is returned instead of a proven optimum.
const DefaultTimeLimit = 15 * time.Second

// Scheduler builds and solves the conference scheduling MILP. The zero
// value is not usable; construct one with New.
type Scheduler struct {
	solver    milp.Solver
	timeLimit time.Duration
	workers   int
	bigMExtra float64
	log       *logx.Logger
}

// Config is an optional configuration applied to a Scheduler at
// construction time, the same functional-options idiom this package's
// genetic-algorithm ancestor used for its own NGenerations option.
type Config func(*Scheduler)

// WithSolver overrides the default branch-and-bound solver backend. Use
// this to plug in milp/gasolver's heuristic backend, or any other
// milp.Solver implementation.
func WithSolver(solver milp.Solver) Config {
	return func(s *Scheduler) { s.solver = solver }
}

// WithTimeLimit overrides DefaultTimeLimit.
func WithTimeLimit(d time.Duration) Config {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeLimit = d
		}
	}
}

// WithWorkers sets how many goroutines a concurrency-capable solver
// backend may use internally.
func WithWorkers(n int) Config {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger attaches a logger used to report model size and, depending on
// the chosen solver backend, solver progress.
func WithLogger(l *logx.Logger) Config {
	return func(s *Scheduler) { s.log = l }
}

// WithBigM adds extra margin on top of the Big-M constant this package
// derives automatically (T_max + D_max + 1). It never lowers the derived
// floor: an undersized Big-M silently produces infeasibility or a wrong
// answer, so this option can only make the constant larger.
func WithBigM(extra float64) Config {
	return func(s *Scheduler) {
		if extra > 0 {
			s.bigMExtra = extra
		}
	}
}

// New builds a Scheduler. With no options it uses a single-worker
// branch-and-bound solver and a 15 second time limit.
func New(opts ...Config) *Scheduler {
	s := &Scheduler{
		timeLimit: DefaultTimeLimit,
		workers:   1,
		log:       logx.Discard,
	}
	for _, o := range opts {
		o(s)
	}
	if s.solver == nil {
		s.solver = bnb.New(bnb.WithWorkers(s.workers), bnb.WithLogger(s.log))
	}
	return s
}

// SolveAssignment assigns each talk a location and a start time, and
// assigns attendees to a subset of talks, maximizing total realized
// attendee preference while lightly penalizing late finishes.
//
// talks and locations must be non-empty; allowed must have at least one
// window. The result holds exactly one ScheduledTalk per input Talk, in
// unspecified order. A non-nil *Warning means the solver's time limit
// elapsed before optimality was proven and the returned schedule is the
// best incumbent found rather than a guaranteed optimum.
func (s *Scheduler) SolveAssignment(ctx context.Context, talks []Talk, locations []Location, allowed AllowedTimes) ([]ScheduledTalk, *Warning, error) {
	if err := validateInput(talks, locations, allowed); err != nil {
		return nil, nil, err
	}

	b := newBuilder(talks, locations, allowed)
	if err := b.prepare(); err != nil {
		return nil, nil, err
	}
	b.bigM += s.bigMExtra
	b.build()

	s.log.Debugf("scheduler: assembled model with %d vars, %d constraints for %d talks, %d locations", b.model.NumVars(), b.model.NumConstraints(), len(talks), len(locations))

	opts := milp.Options{TimeLimit: s.timeLimit, Silent: true, Workers: s.workers}
	sol, err := s.solver.Solve(ctx, b.model, b.objective(), opts)
	if err != nil {
		return nil, nil, newSolverError("solver backend failed", err)
	}

	switch sol.Status {
	case milp.StatusInfeasible:
		return nil, nil, newInfeasible("no schedule satisfies every constraint")
	case milp.StatusUnbounded:
		return nil, nil, newUnbounded("solver reported an unbounded objective despite every decision variable being bounded")
	case milp.StatusTimeLimit:
		if !sol.HasIncumbent {
			return nil, nil, newSolverTimeout("time limit reached before any feasible schedule was found")
		}
		schedule := b.decode(sol)
		return schedule, &Warning{TimedOut: true, Message: "solver time limit reached; returning the best incumbent found"}, nil
	case milp.StatusOptimal, milp.StatusFeasible:
		if !sol.HasIncumbent {
			return nil, nil, newSolverError("solver reported success without a solution", nil)
		}
		return b.decode(sol), nil, nil
	default:
		return nil, nil, newSolverError(fmt.Sprintf("solver returned an undefined status %q", sol.Status), nil)
	}
}

func validateInput(talks []Talk, locations []Location, allowed AllowedTimes) error {
	if len(talks) == 0 {
		return newInvalidInput("talks must be non-empty")
	}
	if len(locations) == 0 {
		return newInvalidInput("locations must be non-empty")
	}
	if !allowed.Valid() {
		return newInvalidInput("global allowed times must have at least one well-formed window")
	}
	for i, t := range talks {
		if t.Duration < 1 {
			return newInvalidInput("talk %d (%q): duration must be >= 1, got %d", i, t.Title, t.Duration)
		}
		for _, a := range t.VisitorPreferences.Attendees() {
			v, _ := t.VisitorPreferences.Get(a)
			if v < 0 {
				return newInvalidInput("talk %d (%q): preference for %q must be >= 0, got %d", i, t.Title, a.Name, v)
			}
		}
	}
	for i, l := range locations {
		if l.Capacity < 0 {
			return newInvalidInput("location %d (%q): capacity must be >= 0, got %d", i, l.Name, l.Capacity)
		}
		if !l.AllowedTimes.Valid() {
			return newInvalidInput("location %d (%q): allowed times must have at least one well-formed window", i, l.Name)
		}
	}
	return nil
}
