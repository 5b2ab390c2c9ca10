package approvals

import (
	"errors"
	"net/http"

	"github.com/parleyhq/parley/internal/drafts"
	"github.com/parleyhq/parley/internal/messages"
)

// Domain errors for approval ledger operations. Validation failures carry
// a specific reason so the operator can correct the action; conflicts mean
// the message was already resolved by someone else and a refresh is needed.
var (
	ErrNotFound        = errors.New("approval not found")
	ErrAlreadyDecided  = errors.New("draft already has a decision")
	ErrValidation      = errors.New("invalid approval action")
	ErrEditTextMissing = errors.New("edit action requires edited text")
	ErrReasonMissing   = errors.New("escalate action requires a reason")
	ErrDraftMismatch   = errors.New("draft does not belong to message")
	ErrNotAwaiting     = errors.New("message is not awaiting approval")
)

// MapHTTPStatus maps approval domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrAlreadyDecided) || errors.Is(err, messages.ErrStateConflict) {
		return http.StatusConflict
	}
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrEditTextMissing),
		errors.Is(err, ErrReasonMissing),
		errors.Is(err, ErrDraftMismatch),
		errors.Is(err, ErrNotAwaiting):
		return http.StatusBadRequest
	case errors.Is(err, messages.ErrNotFound), errors.Is(err, drafts.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
