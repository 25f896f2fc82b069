package testutil

import (
	"testing"
	"time"
)

func TestFixedClock_FrozenUntilAdvanced(t *testing.T) {
	start := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	c := NewFixedClock(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}
	if !c.Now().Equal(c.Now()) {
		t.Error("clock moved without Advance")
	}

	c.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if !c.Now().Equal(want) {
		t.Errorf("Now() after advance = %v, want %v", c.Now(), want)
	}

	abs := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	c.Set(abs)
	if !c.Now().Equal(abs) {
		t.Errorf("Now() after Set = %v, want %v", c.Now(), abs)
	}
}

func TestSeqIDs_SequentialAndPrefixed(t *testing.T) {
	g := NewSeqIDs("act")

	if got := g.NewID(); got != "act-1" {
		t.Errorf("first ID = %q, want act-1", got)
	}
	if got := g.NewID(); got != "act-2" {
		t.Errorf("second ID = %q, want act-2", got)
	}
}
