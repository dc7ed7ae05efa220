package domain

import "strconv"

// ValidateRawListing checks the minimum shape a record needs before it is
// worth summarizing. A record with no title and no description would only
// produce an empty field dump, so it is rejected up front. Missing optional
// fields are not errors; they become sentinel metadata later.
func ValidateRawListing(l RawListing) error {
	if l.Title == "" && l.Description == "" {
		return NewValidationError("title", "", ErrInvalidListing)
	}
	if l.Rating < 0 || l.Rating > 5 {
		return NewValidationError("rate", strconv.FormatFloat(l.Rating, 'g', -1, 64), ErrInvalidListing)
	}
	if l.ReviewsCount < 0 {
		return NewValidationError("reviews_count", strconv.Itoa(l.ReviewsCount), ErrInvalidListing)
	}
	return nil
}
