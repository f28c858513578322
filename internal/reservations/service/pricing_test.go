package service

import (
	"testing"
	"time"
)

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{
			name: "partial overlap",
			s1:   day(2026, 2, 10), e1: day(2026, 2, 13),
			s2: day(2026, 2, 12), e2: day(2026, 2, 14),
			want: true,
		},
		{
			name: "contained window",
			s1:   day(2026, 2, 10), e1: day(2026, 2, 20),
			s2: day(2026, 2, 12), e2: day(2026, 2, 14),
			want: true,
		},
		{
			name: "identical windows",
			s1:   day(2026, 2, 10), e1: day(2026, 2, 13),
			s2: day(2026, 2, 10), e2: day(2026, 2, 13),
			want: true,
		},
		{
			name: "adjacent, first ends when second starts",
			s1:   day(2026, 2, 10), e1: day(2026, 2, 12),
			s2: day(2026, 2, 12), e2: day(2026, 2, 14),
			want: false,
		},
		{
			name: "disjoint",
			s1:   day(2026, 2, 10), e1: day(2026, 2, 12),
			s2: day(2026, 2, 20), e2: day(2026, 2, 22),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.s1, tt.e1, tt.s2, tt.e2); got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tt.s2, tt.e2, tt.s1, tt.e1); got != tt.want {
				t.Errorf("Overlaps (swapped) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDayUTC(t *testing.T) {
	in := time.Date(2026, 2, 10, 23, 59, 59, 999, time.FixedZone("CET", 3600))
	got := dayUTC(in)
	want := day(2026, 2, 10)
	if !got.Equal(want) {
		t.Errorf("dayUTC = %v, want %v", got, want)
	}
}

func TestDurationDays(t *testing.T) {
	if got := durationDays(day(2026, 2, 10), day(2026, 2, 13)); got != 3 {
		t.Errorf("durationDays = %d, want 3", got)
	}
	if got := durationDays(day(2026, 2, 10), day(2026, 2, 11)); got != 1 {
		t.Errorf("durationDays = %d, want 1", got)
	}
	// Spans a DST change in local time; UTC day math is unaffected.
	if got := durationDays(day(2026, 3, 28), day(2026, 3, 30)); got != 2 {
		t.Errorf("durationDays = %d, want 2", got)
	}
}
