package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
	ErrEmptyIdentifier    = fmt.Errorf("identifier is empty")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrGroupNotFound      = fmt.Errorf("group not found")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrNotGroupMember     = fmt.Errorf("user is not a member of the group")
	ErrNotGroupAdmin      = fmt.Errorf("user is not an admin of the group")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidContent     = fmt.Errorf("message content is invalid")
	ErrStore              = fmt.Errorf("storage operation failed")
	ErrConnectionGone     = fmt.Errorf("connection is no longer registered")
)

// MapToHTTPStatus translates domain sentinels into HTTP status codes.
// REST handlers call this in one place instead of switching on errors
// inside business logic.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case goerrors.Is(err, ErrUserNotFound), goerrors.Is(err, ErrGroupNotFound):
		return http.StatusNotFound
	case goerrors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case goerrors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case goerrors.Is(err, ErrNotGroupMember), goerrors.Is(err, ErrNotGroupAdmin):
		return http.StatusForbidden
	case goerrors.Is(err, ErrEmptyIdentifier),
		goerrors.Is(err, ErrInvalidPassword),
		goerrors.Is(err, ErrInvalidContent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
