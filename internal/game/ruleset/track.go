package ruleset

import "errors"

// Track maps "points spent" to a derived value. It is ordered and
// monotonically non-decreasing.
type Track []int

// Len returns the number of entries.
func (t Track) Len() int { return len(t) }

// MaxPoints returns the highest valid points index.
func (t Track) MaxPoints() int { return len(t) - 1 }

// At returns the value for points.
//
// Precondition: 0 <= points <= t.MaxPoints(); callers clamp first.
func (t Track) At(points int) int { return t[points] }

// Clamp bounds points to [0, MaxPoints].
//
// Precondition: t is non-empty.
func (t Track) Clamp(points int) int {
	if points < 0 {
		return 0
	}
	if points > t.MaxPoints() {
		return t.MaxPoints()
	}
	return points
}

// Index returns the first points index whose value equals v, or -1.
func (t Track) Index(v int) int {
	for i, x := range t {
		if x == v {
			return i
		}
	}
	return -1
}

// Contains reports whether v is a track entry.
func (t Track) Contains(v int) bool { return t.Index(v) >= 0 }

// Min returns the first entry.
func (t Track) Min() int { return t[0] }

// Max returns the last entry.
func (t Track) Max() int { return t[len(t)-1] }

// Validate checks that the track is non-empty and non-decreasing.
func (t Track) Validate() error {
	if len(t) == 0 {
		return errors.New("track must not be empty")
	}
	for i := 1; i < len(t); i++ {
		if t[i] < t[i-1] {
			return errors.New("track must be non-decreasing")
		}
	}
	return nil
}
