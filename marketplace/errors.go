package marketplace

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation wraps malformed or missing input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound also covers resources that exist but belong to someone else.
	ErrNotFound = errors.New("not found")
	// ErrSelfReferral is returned when an owner tries to share their own listing.
	ErrSelfReferral = errors.New("self-referral not allowed")
	// ErrAlreadyConverted is returned when a prospect's sale was already confirmed.
	ErrAlreadyConverted = errors.New("prospect already converted")
	// ErrProspectRejected is returned when confirming a lead the seller declined.
	ErrProspectRejected = errors.New("prospect was rejected")
	// ErrListingNotActive is returned when a listing is sold and takes no new shares or sales.
	ErrListingNotActive = errors.New("listing is not active")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
