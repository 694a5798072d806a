package domain

import "errors"

// Policy failures surfaced to callers. None of them is retried.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrUserNotFound      = errors.New("user not found")
	ErrForbidden         = errors.New("forbidden")
	ErrEntityNotFound    = errors.New("entity not found")
	ErrRequestNotFound   = errors.New("deletion request not found")
	ErrInvalidState      = errors.New("deletion request is not pending")
	ErrInvalidDecision   = errors.New("decision must be approved or rejected")
	ErrLastItemProtected = errors.New("cannot delete the last item of a checklist")
)
