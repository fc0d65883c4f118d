package interval

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2024, time.January, 1, hour, min, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     time.Time
		want                           bool
	}{
		{"back to back does not overlap", at(10, 0), at(11, 0), at(11, 0), at(12, 0), false},
		{"one minute overlap", at(10, 0), at(11, 0), at(10, 59), at(12, 0), true},
		{"candidate fully inside", at(10, 0), at(11, 0), at(10, 30), at(10, 45), true},
		{"existing fully inside", at(10, 30), at(10, 45), at(10, 0), at(11, 0), true},
		{"identical intervals", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
		{"candidate before", at(10, 0), at(11, 0), at(8, 0), at(10, 0), false},
		{"candidate after", at(10, 0), at(11, 0), at(12, 0), at(13, 0), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Fatalf("Overlaps(%v, %v, %v, %v) = %v, want %v", tc.aStart, tc.aEnd, tc.bStart, tc.bEnd, got, tc.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Fatalf("Overlaps is not symmetric for %s", tc.name)
			}
		})
	}
}

func TestConflicts(t *testing.T) {
	existing := []Reservation{
		{ID: "r1", RoomID: "room-1", Start: at(10, 0), End: at(11, 0)},
		{ID: "r2", RoomID: "room-2", Start: at(10, 0), End: at(11, 0)},
		{ID: "r3", RoomID: "room-1", Start: at(12, 0), End: at(13, 0)},
	}

	t.Run("other rooms are ignored", func(t *testing.T) {
		got := Conflicts(existing, "room-1", at(10, 30), at(10, 45), "")
		if len(got) != 1 || got[0].ID != "r1" {
			t.Fatalf("expected only r1 to conflict, got %+v", got)
		}
	})

	t.Run("self exclusion for updates", func(t *testing.T) {
		got := Conflicts(existing, "room-1", at(10, 30), at(10, 45), "r1")
		if len(got) != 0 {
			t.Fatalf("expected no conflicts when excluding self, got %+v", got)
		}
	})

	t.Run("adjacent intervals are free", func(t *testing.T) {
		got := Conflicts(existing, "room-1", at(11, 0), at(12, 0), "")
		if len(got) != 0 {
			t.Fatalf("expected adjacent interval to be free, got %+v", got)
		}
	})
}

func TestConflictsRandomizedDisjointness(t *testing.T) {
	// Deterministic pseudo-random walk over a day: any pair of intervals the
	// checker reports as non-conflicting must be disjoint under the half-open
	// definition.
	seed := uint64(20240101)
	next := func(n int) int {
		seed = seed*6364136223846793005 + 1442695040888963407
		return int(seed>>33) % n
	}

	var admitted []Reservation
	for i := 0; i < 200; i++ {
		startMin := next(22 * 60)
		length := 15 + next(120)
		start := at(0, 0).Add(time.Duration(startMin) * time.Minute)
		end := start.Add(time.Duration(length) * time.Minute)

		if len(Conflicts(admitted, "room-1", start, end, "")) == 0 {
			admitted = append(admitted, Reservation{ID: time.Duration(i).String(), RoomID: "room-1", Start: start, End: end})
		}
	}

	for i := 0; i < len(admitted); i++ {
		for j := i + 1; j < len(admitted); j++ {
			a, b := admitted[i], admitted[j]
			if Overlaps(a.Start, a.End, b.Start, b.End) {
				t.Fatalf("admitted overlapping pair: [%v,%v) and [%v,%v)", a.Start, a.End, b.Start, b.End)
			}
		}
	}
}
