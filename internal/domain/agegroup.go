package domain

import "time"

// Age bounds accepted for an age group.
const (
	MinAgeFloor   = 0
	MaxAgeCeiling = 110
)

// AgeGroup is a closed age range used to gate eligibility. Groups are created
// and deleted but never mutated in place.
type AgeGroup struct {
	ID        string
	MinAge    int
	MaxAge    int
	CreatedAt time.Time
}

// NewAgeGroup creates an age group after validating its range.
func NewAgeGroup(id string, minAge, maxAge int) (AgeGroup, error) {
	if err := ValidateAgeRange(minAge, maxAge); err != nil {
		return AgeGroup{}, err
	}
	return AgeGroup{
		ID:        id,
		MinAge:    minAge,
		MaxAge:    maxAge,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Contains reports whether age lies in [MinAge, MaxAge].
func (g AgeGroup) Contains(age int) bool {
	return g.MinAge <= age && age <= g.MaxAge
}

// Overlaps reports whether the group intersects [minAge, maxAge].
func (g AgeGroup) Overlaps(minAge, maxAge int) bool {
	return RangesOverlap(g.MinAge, g.MaxAge, minAge, maxAge)
}

// RangesOverlap reports whether two closed ranges intersect.
func RangesOverlap(min1, max1, min2, max2 int) bool {
	return min1 <= max2 && max1 >= min2
}

// ValidateAgeRange checks the bounds of a candidate age group.
func ValidateAgeRange(minAge, maxAge int) error {
	switch {
	case minAge < MinAgeFloor || minAge >= MaxAgeCeiling:
		return &ValidationError{Field: "min_age", Reason: "must be in [0, 110)"}
	case maxAge <= MinAgeFloor || maxAge > MaxAgeCeiling:
		return &ValidationError{Field: "max_age", Reason: "must be in (0, 110]"}
	case minAge >= maxAge:
		return &ValidationError{Field: "min_age", Reason: "must be less than max_age"}
	}
	return nil
}
