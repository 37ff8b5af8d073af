// Package errors defines the static error taxonomy for the credential
// provider. Components wrap these sentinels with fmt.Errorf("%w: ...") so the
// orchestrator can classify failures with errors.Is without parsing messages.
package errors

import (
	"errors"
	"os"
)

// OsExit is a variable for testing, so we can mock os.Exit.
var OsExit = os.Exit

// Authentication errors (OIDC authenticator).
var (
	// ErrAuthenticationTimeout indicates no authorization code or device
	// approval arrived within the allowed window.
	ErrAuthenticationTimeout = errors.New("authentication timed out")
	// ErrAuthenticationTampering indicates the OAuth state returned by the
	// browser did not match the value we sent. The flow must abort.
	ErrAuthenticationTampering = errors.New("authentication state mismatch")
	// ErrAuthenticationDenied indicates the user or provider rejected the
	// authorization request.
	ErrAuthenticationDenied = errors.New("authentication denied")
	// ErrProviderUnreachable indicates a network failure talking to the
	// identity provider's endpoints.
	ErrProviderUnreachable = errors.New("identity provider unreachable")
	// ErrInvalidToken indicates the ID token failed claim validation
	// (issuer, audience, nonce, or expiry).
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrPortInUse indicates the loopback callback port is held by another
	// authentication flow on this machine.
	ErrPortInUse = errors.New("callback port already in use")
)

// Federation errors.
var (
	// ErrFederationRejected indicates the token was rejected by the AWS
	// trust relationship. Not retryable without re-authentication.
	ErrFederationRejected = errors.New("federation rejected identity token")
	// ErrFederationUnavailable indicates a transient STS/Cognito failure.
	ErrFederationUnavailable = errors.New("federation service unavailable")
)

// Quota errors.
var (
	// ErrQuotaExceeded indicates a block-mode quota decision denied access.
	ErrQuotaExceeded = errors.New("usage quota exceeded")
	// ErrQuotaUnavailable indicates the quota service could not be reached;
	// the configured fail mode decides whether this blocks issuance.
	ErrQuotaUnavailable = errors.New("quota service unavailable")
)

// Storage and configuration errors.
var (
	// ErrCredentialStore indicates a cache backend operation failed.
	ErrCredentialStore = errors.New("credential store error")
	// ErrCacheCorruption indicates a cached record failed validation. Never
	// surfaced to the user; treated as a cache miss.
	ErrCacheCorruption = errors.New("cached credentials corrupt")
	// ErrCredentialsNotFound indicates no cached record exists for a profile.
	ErrCredentialsNotFound = errors.New("credentials not found")
	// ErrNotSupported indicates the operation is not supported by a backend.
	ErrNotSupported = errors.New("operation not supported")
	// ErrInvalidProviderConfig indicates a malformed or incomplete profile.
	ErrInvalidProviderConfig = errors.New("invalid provider configuration")
	// ErrProfileNotFound indicates the requested profile is not configured.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrConfigNotFound indicates the configuration file is missing.
	ErrConfigNotFound = errors.New("configuration file not found")
)

// exitCoder wraps an error and specifies an exit code.
type exitCoder struct {
	cause error
	code  int
}

func (e *exitCoder) Error() string { return e.cause.Error() }

func (e *exitCoder) Unwrap() error { return e.cause }

// ExitCode returns the exit code.
func (e *exitCoder) ExitCode() int { return e.code }

// WithExitCode attaches an exit code to an error. The code can be retrieved
// later using GetExitCode.
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &exitCoder{cause: err, code: code}
}

// GetExitCode extracts the exit code from an error chain. Returns 0 for nil,
// the attached code if one was set with WithExitCode, otherwise 1.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return 1
}
