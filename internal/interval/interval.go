package interval

import "time"

// Reservation is the minimal view of a booked interval needed for conflict
// detection. The booking service converts its richer model into this form.
type Reservation struct {
	ID     string
	RoomID string
	Start  time.Time
	End    time.Time
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. A reservation ending exactly when another begins
// does not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Conflicts returns the existing reservations in the same room whose interval
// overlaps the candidate window. excludeID skips the reservation being edited
// so an update never conflicts with itself.
func Conflicts(existing []Reservation, roomID string, start, end time.Time, excludeID string) []Reservation {
	var conflicts []Reservation
	for _, r := range existing {
		if r.RoomID != roomID {
			continue
		}
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if Overlaps(r.Start, r.End, start, end) {
			conflicts = append(conflicts, r)
		}
	}
	return conflicts
}
