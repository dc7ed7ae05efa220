package domain

import (
	"errors"
	"testing"
)

func TestValidateRawListing(t *testing.T) {
	tests := []struct {
		name    string
		listing RawListing
		wantErr bool
	}{
		{"valid", RawListing{Title: "Lodge", Rating: 4.5}, false},
		{"description only", RawListing{Description: "A villa"}, false},
		{"no text at all", RawListing{ID: 1}, true},
		{"rating out of range", RawListing{Title: "Lodge", Rating: 6}, true},
		{"negative reviews", RawListing{Title: "Lodge", ReviewsCount: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRawListing(tt.listing)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidListing) {
				t.Errorf("error should wrap ErrInvalidListing, got %v", err)
			}
		})
	}
}
