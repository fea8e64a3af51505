package domain

import (
	"strings"

	"github.com/zeebo/errs"
)

var (
	// ErrUnauthorized is returned when the request carries no valid session.
	ErrUnauthorized = errs.Class("unauthorized")
	// ErrForbidden is returned when the actor lacks the role or ownership required.
	ErrForbidden = errs.Class("forbidden")
	// ErrValidation is returned for missing or invalid input.
	ErrValidation = errs.Class("validation")
	// ErrNotFound is returned when an id does not resolve.
	ErrNotFound = errs.Class("not found")
	// ErrInternal wraps storage and persistence failures.
	ErrInternal = errs.Class("internal")
)

// Kind reports which class of the taxonomy err belongs to. Unclassified
// errors are internal.
func Kind(err error) *errs.Class {
	for _, class := range []*errs.Class{&ErrUnauthorized, &ErrForbidden, &ErrValidation, &ErrNotFound} {
		if class.Has(err) {
			return class
		}
	}
	return &ErrInternal
}

// Message returns the text that is safe to show to a caller.
func Message(err error) string {
	class := Kind(err)
	if class == &ErrInternal {
		return "something went wrong"
	}
	return strings.TrimPrefix(err.Error(), string(*class)+": ")
}
