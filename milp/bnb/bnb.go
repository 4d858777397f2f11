// Package bnb is the default milp.Solver backend: a branch-and-bound
// engine over a dense-simplex LP relaxation.
//
// Grounded on the shape of the jjhbw-GoMILP reference (gonum's
// optimize/convex/lp simplex for the relaxation, a branch-and-bound tree
// traversed by a pool of workers, a workers parameter controlling how many
// goroutines traverse the enumeration tree concurrently): the root
// relaxation is solved, and if any integer/binary variable is fractional
// the most-fractional one is branched on (the maxFun heuristic), producing
// two child subproblems with tightened bounds. A context deadline bounds
// wall time; on expiry the pool drains and the best incumbent found (if
// any) is returned.
package bnb

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/confsched/scheduler/internal/logx"
	"github.com/confsched/scheduler/milp"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeLimit is used when Options.TimeLimit is zero.
const DefaultTimeLimit = 15 * time.Second

// integralityTolerance is how close to a whole number a value must be to
// be considered integral.
const integralityTolerance = 1e-6

// pruneTolerance guards against pruning away a subtree whose bound is only
// infinitesimally worse than the current incumbent due to floating point
// noise.
const pruneTolerance = 1e-7

// Solver is a branch-and-bound milp.Solver.
type Solver struct {
	workers int
	log     *logx.Logger
}

// Option configures a Solver.
type Option func(*Solver)

// WithWorkers sets how many goroutines traverse the branch-and-bound tree
// concurrently. n <= 0 is treated as 1.
func WithWorkers(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger attaches a logger used to report model size, incumbent
// improvements and timeouts.
func WithLogger(l *logx.Logger) Option {
	return func(s *Solver) { s.log = l }
}

// New builds a branch-and-bound Solver with one worker by default.
func New(opts ...Option) *Solver {
	s := &Solver{workers: 1, log: logx.Discard}
	for _, o := range opts {
		o(s)
	}
	return s
}

// node is one subproblem in the enumeration tree: the root bounds plus
// whatever tightenings branching has applied so far.
type node struct {
	bnd bounds
}

// nodeQueue is a mutex-guarded LIFO work queue shared by the worker pool.
// A worker blocks in pop until either a node becomes available or every
// worker is idle with nothing left, at which point the search is over.
type nodeQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	stack  []node
	active int
}

func newNodeQueue() *nodeQueue {
	q := &nodeQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *nodeQueue) push(n node) {
	q.mu.Lock()
	q.stack = append(q.stack, n)
	q.mu.Unlock()
	q.cond.Signal()
}

func (q *nodeQueue) pop(ctx context.Context) (node, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if ctx.Err() != nil {
			return node{}, false
		}
		if len(q.stack) > 0 {
			n := q.stack[len(q.stack)-1]
			q.stack = q.stack[:len(q.stack)-1]
			q.active++
			return n, true
		}
		if q.active == 0 {
			return node{}, false
		}
		q.cond.Wait()
	}
}

func (q *nodeQueue) doneWithNode() {
	q.mu.Lock()
	q.active--
	if q.active == 0 {
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}

func (q *nodeQueue) wake() {
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}

// incumbent is the best integer-feasible solution found so far, tracked in
// the objective's native (maximize-aware) sense.
type incumbent struct {
	mu        sync.Mutex
	has       bool
	objective float64
	values    []float64
}

func (inc *incumbent) better(candidate float64, maximize bool) bool {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	if !inc.has {
		return true
	}
	if maximize {
		return candidate > inc.objective+pruneTolerance
	}
	return candidate < inc.objective-pruneTolerance
}

func (inc *incumbent) consider(candidate float64, values []float64, maximize bool) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	if inc.has {
		if maximize && candidate <= inc.objective+pruneTolerance {
			return
		}
		if !maximize && candidate >= inc.objective-pruneTolerance {
			return
		}
	}
	inc.has = true
	inc.objective = candidate
	inc.values = append([]float64(nil), values...)
}

func (inc *incumbent) snapshot() (float64, []float64, bool) {
	inc.mu.Lock()
	defer inc.mu.Unlock()
	return inc.objective, append([]float64(nil), inc.values...), inc.has
}

// prunable reports whether a relaxation bound of relaxObj can be discarded
// given the current incumbent objective.
func prunable(relaxObj, incumbentObj float64, maximize bool) bool {
	if maximize {
		return relaxObj <= incumbentObj+pruneTolerance
	}
	return relaxObj >= incumbentObj-pruneTolerance
}

// mostFractional returns the index of the integer/binary variable whose
// relaxed value is furthest from an integer (closest to x.5), or -1 if
// every such variable is already integral within tolerance.
func mostFractional(m *milp.Model, values []float64) int {
	best := -1
	bestDist := integralityTolerance
	for v, variable := range m.Vars {
		if variable.Kind == milp.Continuous {
			continue
		}
		frac := values[v] - math.Floor(values[v])
		dist := math.Min(frac, 1-frac)
		if dist > bestDist {
			bestDist = dist
			best = v
		}
	}
	return best
}

func tighten(m *milp.Model, bnd bounds, v milp.VarRef, lower, upper *float64) bounds {
	out := make(bounds, len(bnd)+1)
	for k, val := range bnd {
		out[k] = val
	}
	cur, ok := out[v]
	if !ok {
		cur = [2]float64{m.Vars[v].Lower, m.Vars[v].Upper}
	}
	if lower != nil && *lower > cur[0] {
		cur[0] = *lower
	}
	if upper != nil && *upper < cur[1] {
		cur[1] = *upper
	}
	out[v] = cur
	return out
}

// Solve implements milp.Solver.
func (s *Solver) Solve(ctx context.Context, m *milp.Model, objective milp.Objective, opts milp.Options) (milp.Solution, error) {
	timeLimit := opts.TimeLimit
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	ctx, cancel := context.WithTimeout(ctx, timeLimit)
	defer cancel()

	workers := opts.Workers
	if workers <= 0 {
		workers = s.workers
	}
	if workers <= 0 {
		workers = 1
	}

	s.log.Debugf("bnb: solving model with %d vars, %d constraints, %d workers", m.NumVars(), m.NumConstraints(), workers)

	queue := newNodeQueue()
	queue.push(node{bnd: bounds{}})
	inc := &incumbent{}

	// Wake every blocked worker as soon as the context is done so they can
	// notice cancellation instead of waiting indefinitely.
	go func() {
		<-ctx.Done()
		queue.wake()
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				n, ok := queue.pop(ctx)
				if !ok {
					return nil
				}
				s.processNode(gctx, m, objective, n, queue, inc)
				queue.doneWithNode()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return milp.Solution{}, err
	}

	objValue, values, found := inc.snapshot()
	timedOut := ctx.Err() != nil

	sol := milp.Solution{Values: make(map[milp.VarRef]float64, m.NumVars())}
	if found {
		for v := 0; v < m.NumVars(); v++ {
			sol.Values[milp.VarRef(v)] = values[v]
		}
		sol.ObjectiveValue = objValue
		sol.HasIncumbent = true
		if timedOut {
			sol.Status = milp.StatusTimeLimit
			s.log.Warnf("bnb: time limit reached, returning incumbent with objective %f", objValue)
		} else {
			sol.Status = milp.StatusOptimal
		}
		return sol, nil
	}

	if timedOut {
		sol.Status = milp.StatusTimeLimit
		return sol, nil
	}
	sol.Status = milp.StatusInfeasible
	return sol, nil
}

func (s *Solver) processNode(ctx context.Context, m *milp.Model, objective milp.Objective, n node, queue *nodeQueue, inc *incumbent) {
	if ctx.Err() != nil {
		return
	}

	values, objValue, err := solveRelaxation(m, objective, n.bnd)
	if err != nil {
		// Infeasible (or singular, treated the same) subtree: prune.
		return
	}
	if !isFinite(objValue) {
		return
	}

	if curObj, _, has := inc.snapshot(); has && prunable(objValue, curObj, objective.Maximize) {
		return
	}

	branchVar := mostFractional(m, values)
	if branchVar < 0 {
		if inc.better(objValue, objective.Maximize) {
			s.log.Infof("bnb: new incumbent with objective %f", objValue)
		}
		inc.consider(objValue, values, objective.Maximize)
		return
	}

	floor := math.Floor(values[branchVar])
	ceil := math.Ceil(values[branchVar])
	vref := milp.VarRef(branchVar)

	queue.push(node{bnd: tighten(m, n.bnd, vref, nil, &floor)})
	queue.push(node{bnd: tighten(m, n.bnd, vref, &ceil, nil)})
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
