package model

import "testing"

func TestCanTransitionTable(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:    true,
		{StatusPending, StatusCancelled}:    true,
		{StatusConfirmed, StatusInProgress}: true,
		{StatusConfirmed, StatusCancelled}:  true,
		{StatusInProgress, StatusCompleted}: true,
		{StatusInProgress, StatusCancelled}: true,
	}

	// Every ordered pair not in the table above must be rejected,
	// including same-state pairs and everything out of a terminal state.
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	if CanTransition("parked", StatusConfirmed) {
		t.Error("unknown source status must not transition")
	}
	if CanTransition(StatusPending, "parked") {
		t.Error("unknown target status must not transition")
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusCompleted: true,
		StatusCancelled: true,
	}
	for _, s := range Statuses() {
		if got := s.IsTerminal(); got != terminal[s] {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, got, terminal[s])
		}
	}
	if Status("parked").IsTerminal() {
		t.Error("unknown status must not report terminal")
	}
}

func TestIsValid(t *testing.T) {
	for _, s := range Statuses() {
		if !s.IsValid() {
			t.Errorf("%s.IsValid() = false", s)
		}
	}
	if Status("").IsValid() {
		t.Error("empty status must not be valid")
	}
}
