// Package common defines the error taxonomy shared by the store, the auth
// service and the transport. Callers should use errors.Is to match these
// values; the transport uses AsError to turn any error into a stable
// kind/message pair.
package common

import "errors"

// Kind classifies a failure for callers. Kinds are stable and safe to expose.
type Kind string

const (
	KindValidation              Kind = "validation_error"
	KindDuplicateEmail          Kind = "duplicate_email"
	KindInvalidCredentials      Kind = "invalid_credentials"
	KindOAuthOnlyAccount        Kind = "oauth_only_account"
	KindEmailNotVerified        Kind = "email_not_verified"
	KindInvalidOrExpiredToken   Kind = "invalid_or_expired_token"
	KindAlreadyVerified         Kind = "already_verified"
	KindNotFound                Kind = "not_found"
	KindOAuthVerificationFailed Kind = "oauth_verification_failed"
	KindInvalidToken            Kind = "invalid_token"
	KindMissingToken            Kind = "missing_token"
	KindInternal                Kind = "internal_error"
)

// Error is a classified failure with a caller-safe message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error of the same kind, so a validation
// error with a custom message still matches ErrValidation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	// Service-level errors.
	ErrValidation              = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrDuplicateEmail          = &Error{Kind: KindDuplicateEmail, Message: "email is already in use"}
	ErrInvalidCredentials      = &Error{Kind: KindInvalidCredentials, Message: "invalid email or password"}
	ErrOAuthOnlyAccount        = &Error{Kind: KindOAuthOnlyAccount, Message: "this account was registered with Google, please sign in with Google"}
	ErrEmailNotVerified        = &Error{Kind: KindEmailNotVerified, Message: "please verify your email before signing in, check your inbox"}
	ErrInvalidOrExpiredToken   = &Error{Kind: KindInvalidOrExpiredToken, Message: "token is invalid or has expired"}
	ErrAlreadyVerified         = &Error{Kind: KindAlreadyVerified, Message: "email is already verified"}
	ErrUserNotFound            = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrOAuthVerificationFailed = &Error{Kind: KindOAuthVerificationFailed, Message: "google authentication failed"}
	ErrInvalidToken            = &Error{Kind: KindInvalidToken, Message: "invalid token"}
	ErrMissingToken            = &Error{Kind: KindMissingToken, Message: "token not found"}
	ErrInternal                = &Error{Kind: KindInternal, Message: "internal server error"}
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrVersionConflict = errors.New("version conflict")
)

// Validation returns a validation error carrying a specific message.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// AsError extracts the classified error from err. Anything unclassified is
// reported as ErrInternal so driver or network details never reach a caller.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal
}
