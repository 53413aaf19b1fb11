package credentials

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeUserNotFound         = "USER_NOT_FOUND"
	textCodeUserAlreadyActivated = "USER_ALREADY_ACTIVATED"
	textCodeActivationFailed     = "ACTIVATION_FAILED"
	textCodeMismatchedPassword   = "MISMATCHED_PASSWORD"
	textCodeGroupNotFound        = "GROUP_NOT_FOUND"
)

// ErrUserNotFound is returned when the referenced account does not exist.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUserAlreadyActivated is returned when activating an active account.
var ErrUserAlreadyActivated = goerrors.New("user is already activated", goerrors.CategoryConflict).
	WithTextCode(textCodeUserAlreadyActivated).
	WithCode(goerrors.CodeConflict)

// ErrActivationFailed is returned when the activation code does not match.
var ErrActivationFailed = goerrors.New("account activation failed", goerrors.CategoryValidation).
	WithTextCode(textCodeActivationFailed).
	WithCode(goerrors.CodeBadRequest)

// ErrThrottled is returned once a client exhausted its attempts.
var ErrThrottled = goerrors.New("too many attempts", goerrors.CategoryRateLimit).
	WithTextCode(goerrors.TextCodeTooManyAttempts).
	WithCode(goerrors.CodeTooManyRequests)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode(textCodeMismatchedPassword).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords.
var ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrGroupNotFound is returned when the default group is missing.
var ErrGroupNotFound = goerrors.New("group not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeGroupNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnauthenticated is returned by account handlers without a signed in user.
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

func surfaceError(err error, message string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}
