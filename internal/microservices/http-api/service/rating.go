package service

import "math"

// RoundRating rounds a mean score to the nearest integer with halves away
// from zero, so 4.5 becomes 5. A nil mean (no reviews) stays nil.
func RoundRating(avg *float64) *int {
	if avg == nil {
		return nil
	}
	r := int(math.Round(*avg))
	return &r
}
