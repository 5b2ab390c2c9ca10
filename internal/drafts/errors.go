package drafts

import (
	"errors"
	"net/http"
)

// Domain errors for draft and verification operations.
var (
	ErrNotFound        = errors.New("draft not found")
	ErrDuplicate       = errors.New("draft already exists")
	ErrNoActiveDraft   = errors.New("message has no active draft")
	ErrAlreadyVerified = errors.New("draft already verified")
	ErrNotGenerated    = errors.New("only generated drafts are verified")
)

// MapHTTPStatus maps draft domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoActiveDraft) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrAlreadyVerified) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNotGenerated) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
