package scheduler

// PreferenceEpsilon is the default preference weight assigned to an
// attendee who is not explicitly listed in a talk's VisitorPreferences. It
// ensures the objective still mildly prefers filling seats over leaving
// them empty. Part of the scheduling contract: changing it changes which
// schedule is optimal on ties.
const PreferenceEpsilon = 0.1

// LatestEndWeight is the objective coefficient applied to the latest
// finishing time across the whole schedule. It acts as a tiebreaker that
// compacts the schedule without dominating attendee preference.
const LatestEndWeight = 0.001

// Attendee identifies a conference attendee by name. Two Attendee values
// with the same Name are the same attendee; Attendee is comparable and
// safe to use as a map key.
type Attendee struct {
	Name string
}

// VisitorPreferences is an ordered mapping from Attendee to preference
// weight. Iteration order follows insertion order so that model assembly
// is deterministic regardless of Go's randomized map iteration. Unlisted
// attendees are not stored; their weight is a derived lookup
// (PreferenceEpsilon), not a stored default.
type VisitorPreferences struct {
	order  []Attendee
	values map[Attendee]int
}

// NewVisitorPreferences builds an empty, ready-to-use preference mapping.
func NewVisitorPreferences() *VisitorPreferences {
	return &VisitorPreferences{values: make(map[Attendee]int)}
}

// Set records a's preference weight, preserving first-insertion order on
// repeated calls for the same attendee.
func (p *VisitorPreferences) Set(a Attendee, weight int) {
	if p.values == nil {
		p.values = make(map[Attendee]int)
	}
	if _, exists := p.values[a]; !exists {
		p.order = append(p.order, a)
	}
	p.values[a] = weight
}

// Get returns a's stored preference and whether one was explicitly set.
func (p *VisitorPreferences) Get(a Attendee) (int, bool) {
	if p == nil {
		return 0, false
	}
	v, ok := p.values[a]
	return v, ok
}

// Attendees returns the attendees with an explicit preference, in
// insertion order.
func (p *VisitorPreferences) Attendees() []Attendee {
	if p == nil {
		return nil
	}
	out := make([]Attendee, len(p.order))
	copy(out, p.order)
	return out
}

// Talk is a single scheduling unit: a talk of fixed Duration (in slots)
// given by Speaker, with per-attendee preference weights.
type Talk struct {
	Title              string
	Speaker            Attendee
	Duration           int
	VisitorPreferences *VisitorPreferences
}

// Preference returns the objective weight talk t contributes for attendee
// a attending: the explicit weight if one was set, otherwise
// PreferenceEpsilon.
func (t Talk) Preference(a Attendee) float64 {
	if v, ok := t.VisitorPreferences.Get(a); ok {
		return float64(v)
	}
	return PreferenceEpsilon
}

// Location is a place that can host talks during one or more allowed time
// windows, up to a fixed attendee Capacity.
type Location struct {
	Name         string
	Capacity     int
	AllowedTimes AllowedTimes
}

// ScheduledTalk is one entry of a produced schedule: talk t begins at
// TimeSlot in Location, attended by Attendees.
type ScheduledTalk struct {
	Talk      Talk
	TimeSlot  TimeSlot
	Location  Location
	Attendees []Attendee
}

// Warning carries non-fatal degraded-result information about a solve,
// such as the solver having hit its time limit before proving optimality.
// A nil *Warning means the solve completed cleanly.
type Warning struct {
	// TimedOut is true when the solver's time limit elapsed before the
	// search finished, and the returned schedule is the best incumbent
	// found so far rather than a proven optimum.
	TimedOut bool
	// Message is a short human-readable description of the degradation.
	Message string
}
