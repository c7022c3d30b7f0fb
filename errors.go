package gateway

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeUnknownProvider  = "UNKNOWN_AUTH_PROVIDER"
	textCodeInvalidSettings  = "INVALID_SETTINGS_DOCUMENT"
	textCodeNoToken          = "NO_TOKEN"
	textCodeTokenRejected    = "TOKEN_REJECTED"
	textCodeBadCredentials   = "BAD_CREDENTIALS"
	textCodeDuplicateRoute   = "DUPLICATE_ROUTE"
	textCodeInvalidEnvelope  = "INVALID_PLUGIN_ENVELOPE"
	textCodeUnsupportedOp    = "UNSUPPORTED_PROVIDER_OPERATION"
	textCodeStateKeyNotFound = "STATE_KEY_NOT_FOUND"
)

// ErrUnknownAuthProvider is returned when the settings document selects
// a provider mnemonic no constructor is registered for. This is a
// configuration error, surfaced at bootstrap, not deep in rendering.
var ErrUnknownAuthProvider = goerrors.New("unknown auth provider", goerrors.CategoryValidation).
	WithTextCode(textCodeUnknownProvider).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidSettings is returned when the settings document cannot be
// fetched or is not a JSON object.
var ErrInvalidSettings = goerrors.New("invalid settings document", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidSettings).
	WithCode(goerrors.CodeBadRequest)

// ErrNoToken is returned by VerifyLogIn when no token is stored.
var ErrNoToken = goerrors.New("no stored token", goerrors.CategoryAuth).
	WithTextCode(textCodeNoToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenRejected is returned when the backend rejects a stored token.
var ErrTokenRejected = goerrors.New("token rejected by backend", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenRejected).
	WithCode(goerrors.CodeUnauthorized)

// ErrBadCredentials is returned by LogIn for rejected credentials. It
// deliberately carries no parsed backend detail.
var ErrBadCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeBadCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateRoute is logged when a plugin registers a link that is
// already taken. The registration is a no-op.
var ErrDuplicateRoute = goerrors.New("duplicate plugin route", goerrors.CategoryConflict).
	WithTextCode(textCodeDuplicateRoute).
	WithCode(goerrors.CodeConflict)

// ErrInvalidEnvelope is logged for plugin messages outside the plugin
// API namespace. The message is dropped, never dispatched.
var ErrInvalidEnvelope = goerrors.New("invalid plugin message envelope", goerrors.CategoryBadInput).
	WithTextCode(textCodeInvalidEnvelope).
	WithCode(goerrors.CodeBadRequest)

// ErrUnsupportedOperation is returned by providers for capabilities
// they do not implement.
var ErrUnsupportedOperation = goerrors.New("operation not supported by provider", goerrors.CategoryOperation).
	WithTextCode(textCodeUnsupportedOp).
	WithCode(goerrors.CodeBadRequest)

// ErrStateKeyNotFound is returned by StateStore implementations for
// missing keys.
var ErrStateKeyNotFound = goerrors.New("state key not found", goerrors.CategoryNotFound).
	WithTextCode(textCodeStateKeyNotFound).
	WithCode(goerrors.CodeNotFound)

// enrich copies a sentinel, attaches call-site metadata, and keeps the
// sentinel in the unwrap chain so errors.Is still matches it.
func enrich(base *goerrors.Error, meta map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Source = base
	return clone.WithMetadata(meta)
}

// IsConfigError reports whether err belongs to the configuration error
// taxonomy (fatal to its bootstrap step, never fatal to the process).
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnknownAuthProvider) || errors.Is(err, ErrInvalidSettings)
}

// IsAuthFailure reports whether err is a locally recoverable
// authentication failure (bad credentials or rejected token).
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrBadCredentials) ||
		errors.Is(err, ErrTokenRejected) ||
		errors.Is(err, ErrNoToken)
}
