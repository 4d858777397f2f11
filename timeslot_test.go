package scheduler_test

import (
	"reflect"
	"testing"

	scheduler "github.com/confsched/scheduler"
)

func TestTimeRangeIncludes(t *testing.T) {
	r := scheduler.TimeRange{Start: 2, End: 5}
	cases := map[scheduler.TimeSlot]bool{1: false, 2: true, 3: true, 4: true, 5: false, 6: false}
	for slot, want := range cases {
		if got := r.Includes(slot); got != want {
			t.Errorf("Includes(%d) = %v, want %v", slot, got, want)
		}
	}
}

func TestTimeRangeValid(t *testing.T) {
	if !(scheduler.TimeRange{Start: 0, End: 1}).Valid() {
		t.Error("[0,1) should be valid")
	}
	if (scheduler.TimeRange{Start: 1, End: 1}).Valid() {
		t.Error("[1,1) should be invalid (empty)")
	}
	if (scheduler.TimeRange{Start: 2, End: 1}).Valid() {
		t.Error("[2,1) should be invalid (inverted)")
	}
}

func TestTimeRangeLength(t *testing.T) {
	if got := (scheduler.TimeRange{Start: 2, End: 7}).Length(); got != 5 {
		t.Errorf("Length() = %d, want 5", got)
	}
	if got := (scheduler.TimeRange{Start: 7, End: 7}).Length(); got != 0 {
		t.Errorf("Length() = %d, want 0", got)
	}
}

func TestAllowedTimesStartSlotsDedupedAndSorted(t *testing.T) {
	a := scheduler.NewAllowedTimes(
		scheduler.TimeRange{Start: 2, End: 4},
		scheduler.TimeRange{Start: 3, End: 5},
	)
	got := a.StartSlots()
	want := []scheduler.TimeSlot{2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StartSlots() = %v, want %v", got, want)
	}
}

func TestAllowedTimesIncludesUnionOfRanges(t *testing.T) {
	a := scheduler.NewAllowedTimes(
		scheduler.TimeRange{Start: 0, End: 1},
		scheduler.TimeRange{Start: 5, End: 6},
	)
	if !a.Includes(0) || !a.Includes(5) {
		t.Error("expected slots inside either range to be included")
	}
	if a.Includes(2) {
		t.Error("slot 2 falls in the gap between ranges and should not be included")
	}
}

func TestAllowedTimesValidRequiresNonEmptyWellFormedRanges(t *testing.T) {
	if (scheduler.AllowedTimes{}).Valid() {
		t.Error("empty AllowedTimes should be invalid")
	}
	invalid := scheduler.NewAllowedTimes(scheduler.TimeRange{Start: 5, End: 5})
	if invalid.Valid() {
		t.Error("AllowedTimes containing an empty range should be invalid")
	}
}

func TestVisitorPreferencesOrderAndLookup(t *testing.T) {
	alice := scheduler.Attendee{Name: "alice"}
	bob := scheduler.Attendee{Name: "bob"}
	p := scheduler.NewVisitorPreferences()
	p.Set(bob, 5)
	p.Set(alice, 9)
	p.Set(bob, 7) // overwrite, must not move bob's position

	order := p.Attendees()
	want := []scheduler.Attendee{bob, alice}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("Attendees() = %v, want %v", order, want)
	}
	if v, ok := p.Get(bob); !ok || v != 7 {
		t.Errorf("Get(bob) = (%d, %v), want (7, true)", v, ok)
	}
	if _, ok := p.Get(scheduler.Attendee{Name: "carol"}); ok {
		t.Error("Get of an unset attendee should report false")
	}
}

func TestTalkPreferenceDefaultsToEpsilon(t *testing.T) {
	alice := scheduler.Attendee{Name: "alice"}
	stranger := scheduler.Attendee{Name: "stranger"}
	p := scheduler.NewVisitorPreferences()
	p.Set(alice, 3)
	talk := scheduler.Talk{Title: "T", Speaker: alice, Duration: 1, VisitorPreferences: p}

	if got := talk.Preference(alice); got != 3 {
		t.Errorf("Preference(alice) = %v, want 3", got)
	}
	if got := talk.Preference(stranger); got != scheduler.PreferenceEpsilon {
		t.Errorf("Preference(stranger) = %v, want epsilon %v", got, scheduler.PreferenceEpsilon)
	}
}
