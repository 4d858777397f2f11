package scheduler

import (
	"sort"

	"github.com/confsched/scheduler/milp"
)

// builder assembles the MILP for one SolveAssignment call. It is
// constructed fresh per call and discarded afterwards; there is no shared
// mutable state across solves.
type builder struct {
	talks     []Talk
	locations []Location
	allowed   AllowedTimes

	attendees    []Attendee
	attendeeIdx  map[Attendee]int
	slots        []TimeSlot
	tMax, dMax   int
	bigM         float64

	model *milp.Model

	// decision variables, indexed [talk][location] or [talk][attendee]
	y         [][]milp.VarRef
	isSched   [][]milp.VarRef
	x         [][]milp.VarRef
	latestEnd milp.VarRef

	// pairwise variables, upper-triangular (only j > i populated)
	startBefore [][]milp.VarRef
	minEndSel   [][]milp.VarRef
	maxStartSel [][]milp.VarRef
	minEnd      [][]milp.VarRef
	maxStart    [][]milp.VarRef
	conflicts   [][]milp.VarRef
}

func newBuilder(talks []Talk, locations []Location, allowed AllowedTimes) *builder {
	return &builder{talks: talks, locations: locations, allowed: allowed}
}

// prepare computes the derived sets (§4.3: A, S, T_max, D_max, M) and
// fails fast with Infeasible when no start slot exists at all, or when
// some talk cannot fit in any location's window regardless of placement.
func (b *builder) prepare() error {
	b.attendees = collectAttendees(b.talks)
	b.attendeeIdx = make(map[Attendee]int, len(b.attendees))
	for i, a := range b.attendees {
		b.attendeeIdx[a] = i
	}

	slotSet := make(map[TimeSlot]struct{})
	for _, loc := range b.locations {
		for _, s := range loc.AllowedTimes.StartSlots() {
			if b.allowed.Includes(s) {
				slotSet[s] = struct{}{}
			}
		}
	}
	if len(slotSet) == 0 {
		return newInfeasible("no time slot is simultaneously inside a location window and the global allowed times")
	}
	slots := make([]TimeSlot, 0, len(slotSet))
	for s := range slotSet {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	b.slots = slots
	b.tMax = int(slots[len(slots)-1])

	dMax := 0
	for _, t := range b.talks {
		if t.Duration > dMax {
			dMax = t.Duration
		}
	}
	b.dMax = dMax
	b.bigM = float64(b.tMax + dMax + 1)

	for ti, t := range b.talks {
		fits := false
		for _, loc := range b.locations {
			for _, r := range loc.AllowedTimes.Ranges {
				if r.Length() >= t.Duration {
					fits = true
					break
				}
			}
			if fits {
				break
			}
		}
		if !fits {
			return newInfeasible("talk " + itoa(ti) + " (" + t.Title + ") does not fit any location's allowed window")
		}
	}
	return nil
}

// build constructs every decision variable and constraint described in
// spec.md §4.3 / SPEC_FULL.md §4.3 over the derived sets prepare computed.
func (b *builder) build() {
	m := milp.NewModel()
	b.model = m

	T := len(b.talks)
	L := len(b.locations)
	A := len(b.attendees)
	M := b.bigM

	b.y = make([][]milp.VarRef, T)
	b.isSched = make([][]milp.VarRef, T)
	for t := 0; t < T; t++ {
		b.y[t] = make([]milp.VarRef, L)
		b.isSched[t] = make([]milp.VarRef, L)
		for l := 0; l < L; l++ {
			b.y[t][l] = m.NewVar(varName("y", t, l), 0, float64(b.tMax))
			b.isSched[t][l] = m.NewBinary(varName("is_scheduled", t, l))
		}
	}

	b.x = make([][]milp.VarRef, T)
	for t := 0; t < T; t++ {
		b.x[t] = make([]milp.VarRef, A)
		for a := 0; a < A; a++ {
			b.x[t][a] = m.NewBinary(varName("x", t, a))
		}
	}

	b.startBefore = newPairVars(T)
	b.minEndSel = newPairVars(T)
	b.maxStartSel = newPairVars(T)
	b.minEnd = newPairVars(T)
	b.maxStart = newPairVars(T)
	b.conflicts = newPairVars(T)
	for i := 0; i < T; i++ {
		for j := i + 1; j < T; j++ {
			b.startBefore[i][j] = m.NewBinary(varName("start_before", i, j))
			b.minEndSel[i][j] = m.NewBinary(varName("min_end_sel", i, j))
			b.maxStartSel[i][j] = m.NewBinary(varName("max_start_sel", i, j))
			upper := float64(b.tMax + b.dMax)
			b.minEnd[i][j] = m.NewInt(varName("min_end", i, j), 0, upper)
			b.maxStart[i][j] = m.NewInt(varName("max_start", i, j), 0, upper)
			b.conflicts[i][j] = m.NewBinary(varName("conflicts", i, j))
		}
	}

	// latest_end is bounded by T_max+D_max, not the literal T_max of
	// spec.md's variable table: constraint 10 needs headroom for a talk's
	// duration, and capping at T_max alone would make any schedule using
	// the last available start slot infeasible. See DESIGN.md.
	b.latestEnd = m.NewInt("latest_end", 0, float64(b.tMax+b.dMax))

	// Constraint 1: exactly one location per talk.
	for t := 0; t < T; t++ {
		sum := milp.NewExpr()
		for l := 0; l < L; l++ {
			sum = milp.Add(sum, m.VarExpr(b.isSched[t][l]))
		}
		m.EQ(sum, 1)
	}

	// Constraint 2: start gated by scheduled flag.
	for t := 0; t < T; t++ {
		for l := 0; l < L; l++ {
			m.LE(milp.Sub(m.VarExpr(b.y[t][l]), milp.Term(b.isSched[t][l], float64(b.tMax))), 0)
		}
	}

	for i := 0; i < T; i++ {
		startI := b.startExpr(i)
		di := float64(b.talks[i].Duration)
		for j := i + 1; j < T; j++ {
			startJ := b.startExpr(j)
			dj := float64(b.talks[j].Duration)

			// Constraint 3: pair ordering indicator. start_before[i,j] is
			// fed directly as Min's selector: 0 => start_i <= start_j,
			// 1 => start_j <= start_i (matches this package's own Min
			// contract and the "j comes first" reading of start_before).
			milp.Min(m, startI, startJ, b.startBefore[i][j], M)

			// Constraint 4: same-location non-overlap, for every
			// location, guarded so it only binds when both talks are
			// scheduled there and start_before matches the branch.
			for l := 0; l < L; l++ {
				isI := b.isSched[i][l]
				isJ := b.isSched[j][l]
				yI := m.VarExpr(b.y[i][l])
				yJ := m.VarExpr(b.y[j][l])

				// i-before-j branch, active when start_before == 0.
				lhsA := milp.Add(yI, milp.Lit(di), milp.Scale(guard(isI, M), -1))
				rhsA := milp.Add(yJ, guardDirect(b.startBefore[i][j], M), guard(isJ, M))
				m.LE(milp.Sub(lhsA, rhsA), 0)

				// j-before-i branch, active when start_before == 1.
				lhsB := milp.Add(yJ, milp.Lit(dj), milp.Scale(guard(isJ, M), -1))
				rhsB := milp.Add(yI, guard(b.startBefore[i][j], M), guard(isI, M))
				m.LE(milp.Sub(lhsB, rhsB), 0)
			}

			// Constraint 5: conflict detection.
			endI := milp.Add(startI, milp.Lit(di))
			endJ := milp.Add(startJ, milp.Lit(dj))
			milp.Min(m, endI, endJ, b.minEndSel[i][j], M)
			milp.Select(m, endI, endJ, b.minEnd[i][j], b.minEndSel[i][j], M)
			milp.Max(m, startI, startJ, b.maxStartSel[i][j], M)
			milp.Select(m, startI, startJ, b.maxStart[i][j], b.maxStartSel[i][j], M)
			overlap := milp.Sub(m.VarExpr(b.minEnd[i][j]), m.VarExpr(b.maxStart[i][j]))
			milp.Max(m, milp.Lit(0), overlap, b.conflicts[i][j], M)

			// Constraint 6: attendee single-talk-at-a-time.
			for a := 0; a < A; a++ {
				m.LE(milp.Add(m.VarExpr(b.x[i][a]), m.VarExpr(b.x[j][a]), m.VarExpr(b.conflicts[i][j])), 2)
			}
		}
	}

	// Constraint 7: speaker attends own talk.
	for t, talk := range b.talks {
		speakerIdx := b.attendeeIdx[talk.Speaker]
		m.EQ(m.VarExpr(b.x[t][speakerIdx]), 1)
	}

	// Constraint 8: location allowed-window fit, plus the recovered
	// global-window layer (see SPEC_FULL.md §4.3): a talk must fit one of
	// its chosen location's windows AND one of the global allowed-time
	// windows, each via an independent family of window selectors gated
	// by the same is_scheduled[t,l].
	for t, talk := range b.talks {
		d := float64(talk.Duration)
		for l, loc := range b.locations {
			target := m.VarExpr(b.isSched[t][l])
			yExpr := m.VarExpr(b.y[t][l])

			locGroups := make([]milp.ConstraintGroup, len(loc.AllowedTimes.Ranges))
			for r, win := range loc.AllowedTimes.Ranges {
				locGroups[r] = windowGroup(yExpr, d, win)
			}
			milp.Or(m, locGroups, &target, M)

			globalGroups := make([]milp.ConstraintGroup, len(b.allowed.Ranges))
			for r, win := range b.allowed.Ranges {
				globalGroups[r] = windowGroup(yExpr, d, win)
			}
			milp.Or(m, globalGroups, &target, M)
		}
	}

	// Constraint 9: capacity.
	for t := 0; t < T; t++ {
		for l, loc := range b.locations {
			sum := milp.NewExpr()
			for a := 0; a < A; a++ {
				sum = milp.Add(sum, m.VarExpr(b.x[t][a]))
			}
			m.LE(milp.Add(sum, milp.Term(b.isSched[t][l], M)), float64(loc.Capacity)+M)
		}
	}

	// Constraint 10: latest end.
	for t, talk := range b.talks {
		d := float64(talk.Duration)
		for l := 0; l < L; l++ {
			m.LE(milp.Sub(milp.Add(m.VarExpr(b.y[t][l]), milp.Lit(d)), m.VarExpr(b.latestEnd)), 0)
		}
	}
}

// windowGroup builds the two-constraint AND-group for "talk with duration
// d starting at yExpr fits inside win": yExpr >= win.Start and
// yExpr+d <= win.End.
func windowGroup(yExpr milp.Expr, d float64, win TimeRange) milp.ConstraintGroup {
	return milp.ConstraintGroup{
		{Expr: milp.Sub(yExpr, milp.Lit(float64(win.Start))), Op: milp.GE},
		{Expr: milp.Add(yExpr, milp.Lit(d-float64(win.End))), Op: milp.LE},
	}
}

// guard returns M*(1-v), the big-M relaxation term that vanishes when v=1
// and disables a constraint (adds M of slack) when v=0.
func guard(v milp.VarRef, M float64) milp.Expr {
	return milp.Add(milp.Lit(M), milp.Term(v, -M))
}

// guardDirect returns M*v, the mirror of guard: vanishes when v=0,
// disables the constraint when v=1.
func guardDirect(v milp.VarRef, M float64) milp.Expr {
	return milp.Term(v, M)
}

// startExpr returns Σ_l y[t,l]; gating (constraint 2) guarantees at most
// one term is nonzero, so this is the talk's effective start slot.
func (b *builder) startExpr(t int) milp.Expr {
	sum := milp.NewExpr()
	for l := range b.locations {
		sum = milp.Add(sum, b.model.VarExpr(b.y[t][l]))
	}
	return sum
}

// objective builds Σ_{t,a} pref(t,a)*x[t,a] - LatestEndWeight*latest_end.
func (b *builder) objective() milp.Objective {
	expr := milp.NewExpr()
	for t, talk := range b.talks {
		for a, attendee := range b.attendees {
			pref := talk.Preference(attendee)
			if pref == 0 {
				continue
			}
			expr = milp.Add(expr, milp.Term(b.x[t][a], pref))
		}
	}
	expr = milp.Add(expr, milp.Term(b.latestEnd, -LatestEndWeight))
	return milp.Objective{Expr: expr, Maximize: true}
}

// decode turns a solved Solution back into one ScheduledTalk per input
// Talk, per spec.md's decoding rule: tolerance-based binary readback,
// rounded integer readback.
func (b *builder) decode(sol milp.Solution) []ScheduledTalk {
	out := make([]ScheduledTalk, 0, len(b.talks))
	for t, talk := range b.talks {
		loc := 0
		for l := range b.locations {
			if sol.BoolValue(b.isSched[t][l]) {
				loc = l
				break
			}
		}
		var attendees []Attendee
		for a, attendee := range b.attendees {
			if sol.BoolValue(b.x[t][a]) {
				attendees = append(attendees, attendee)
			}
		}
		out = append(out, ScheduledTalk{
			Talk:      talk,
			TimeSlot:  TimeSlot(sol.IntValue(b.y[t][loc])),
			Location:  b.locations[loc],
			Attendees: attendees,
		})
	}
	return out
}

func newPairVars(n int) [][]milp.VarRef {
	grid := make([][]milp.VarRef, n)
	for i := range grid {
		grid[i] = make([]milp.VarRef, n)
	}
	return grid
}

func varName(prefix string, indices ...int) string {
	name := prefix
	for _, i := range indices {
		name += "_" + itoa(i)
	}
	return name
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var digits []byte
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

// collectAttendees gathers every attendee referenced by any talk (speaker
// or a listed preference), deduplicated and in first-seen order so model
// assembly is deterministic.
func collectAttendees(talks []Talk) []Attendee {
	seen := make(map[Attendee]struct{})
	var out []Attendee
	add := func(a Attendee) {
		if _, ok := seen[a]; !ok {
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	for _, t := range talks {
		add(t.Speaker)
		for _, a := range t.VisitorPreferences.Attendees() {
			add(a)
		}
	}
	return out
}
