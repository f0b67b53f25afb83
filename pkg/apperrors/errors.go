// Package apperrors defines sentinel errors shared across the service and
// handler layers. Handlers map these onto HTTP status codes in one place;
// executor failures never surface here, they are reported in-band in the
// dispatch response body.
package apperrors

import "errors"

var (
	// ErrNotFound indicates the requested resource does not exist. The
	// proxy endpoints return the same generic message whether the tenant,
	// connector, or share link is the missing piece.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation, e.g. a duplicate
	// connector name within an organization.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates a malformed or incomplete request.
	ErrValidation = errors.New("validation failed")

	// ErrAuthRequired indicates a missing or invalid platform token.
	ErrAuthRequired = errors.New("authentication required")

	// ErrForbidden indicates a valid request the caller may not perform.
	ErrForbidden = errors.New("forbidden")

	// ErrLinkExpired indicates a shared link past its expiry timestamp.
	ErrLinkExpired = errors.New("shared link expired")

	// ErrUsageLimitExceeded indicates a shared link at its max_uses cap.
	ErrUsageLimitExceeded = errors.New("usage limit exceeded")

	// ErrMethodNotAllowed indicates an HTTP verb outside the connector's
	// allowed operations.
	ErrMethodNotAllowed = errors.New("operation not allowed for this connector")

	// ErrTypeMismatch indicates the proxy path type does not match the
	// resolved connector's type.
	ErrTypeMismatch = errors.New("proxy type does not match connector type")

	// ErrUnsupportedType indicates a connector type with no registered
	// executor.
	ErrUnsupportedType = errors.New("unsupported connector type")

	// ErrCredentialsKeyMismatch indicates stored credentials that cannot be
	// decrypted with the current encryption key.
	ErrCredentialsKeyMismatch = errors.New("connector credentials were encrypted with a different key")
)
