// Package scheduler computes an optimal conference schedule.
//
// Given a set of talks (each with a speaker, a duration and per-attendee
// preference scores), a set of locations (each with a capacity and allowed
// time windows) and a global allowed-time window, Scheduler.SolveAssignment
// assigns each talk a location and a start time, and assigns attendees to a
// subset of talks, so as to maximize total realized attendee preference
// while lightly penalizing late finishes.
//
// The hard part of this package is the mixed-integer linear program (MILP)
// that encodes the scheduling problem: non-overlap within a shared location,
// temporal conflict detection between any pair of talks, per-attendee
// single-talk-at-a-time enforcement, fitting into one of several disjoint
// allowed time windows per location, and capacity bounds. The linearization
// primitives that build that model (Min, Max, Select, Or) live in the
// sibling milp package; concrete solver backends live in milp/bnb (the
// default, exact up to a time budget) and milp/gasolver (a faster
// heuristic alternative).
//
// This package constructs the model and decodes a solver's returned
// variable valuations; it does not implement a branch-and-bound engine itself, parse
// input, or render a schedule. Those are the caller's concern.
package scheduler
