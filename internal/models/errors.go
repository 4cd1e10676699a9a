package models

import "errors"

// ErrorKind classifies failures reported by the reconciliation subsystem.
type ErrorKind string

const (
	KindUnauthorized       ErrorKind = "unauthorized"
	KindNotWorkspaceMember ErrorKind = "not_workspace_member"
	KindAlreadyMember      ErrorKind = "already_member"
	KindAlreadyPending     ErrorKind = "already_pending"
	KindNotFound           ErrorKind = "not_found"
	KindAlreadyResolved    ErrorKind = "already_resolved"
	KindForbidden          ErrorKind = "forbidden"
	KindStoreUnavailable   ErrorKind = "store_unavailable"
	KindInvalid            ErrorKind = "invalid"
	KindUnknown            ErrorKind = "unknown"
)

// Domain errors. Callers classify with errors.Is or KindOf.
var (
	ErrUnauthorized       = errors.New("requester lacks the required role")
	ErrNotWorkspaceMember = errors.New("user is not a member of the board's workspace")
	ErrAlreadyMember      = errors.New("user is already a member")
	ErrAlreadyPending     = errors.New("user already has a pending invitation")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyResolved    = errors.New("invitation is no longer pending")
	ErrForbidden          = errors.New("action not permitted for this user")
	ErrStoreUnavailable   = errors.New("store unavailable")

	ErrInvalidRole          = errors.New("role must be admin or member")
	ErrInvalidContainerType = errors.New("container type must be board or workspace")
	ErrInvalidStatus        = errors.New("invalid invitation status")
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrUnauthorized, KindUnauthorized},
	{ErrNotWorkspaceMember, KindNotWorkspaceMember},
	{ErrAlreadyMember, KindAlreadyMember},
	{ErrAlreadyPending, KindAlreadyPending},
	{ErrNotFound, KindNotFound},
	{ErrAlreadyResolved, KindAlreadyResolved},
	{ErrForbidden, KindForbidden},
	{ErrStoreUnavailable, KindStoreUnavailable},
	{ErrInvalidRole, KindInvalid},
	{ErrInvalidContainerType, KindInvalid},
	{ErrInvalidStatus, KindInvalid},
	{ErrWorkspaceNameRequired, KindInvalid},
	{ErrWorkspaceNameTooLong, KindInvalid},
	{ErrBoardTitleRequired, KindInvalid},
	{ErrBoardTitleTooLong, KindInvalid},
	{ErrListTitleRequired, KindInvalid},
	{ErrCardTitleRequired, KindInvalid},
	{ErrUsernameRequired, KindInvalid},
	{ErrUsernameInvalid, KindInvalid},
	{ErrEmailInvalid, KindInvalid},
	{ErrPasswordTooShort, KindInvalid},
}

// FieldError ties a validation failure to the input field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

func fieldError(field string, err error) error {
	return &FieldError{Field: field, Err: err}
}

// KindOf returns the kind of the first domain error found in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// Retryable reports whether the caller may retry the failed operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
