// Package types defines the shared contracts between the OIDC authenticator,
// the federation exchangers, the credential stores, and the orchestrator.
package types

import (
	"context"
)

// Authenticator obtains a validated identity token from the OIDC provider,
// driving whatever user interaction the flow requires (browser or device code).
type Authenticator interface {
	// Authenticate runs the full flow and returns a validated token set.
	Authenticate(ctx context.Context) (*IdentityToken, error)
}

// Exchanger turns a validated identity token into temporary AWS credentials.
type Exchanger interface {
	// Exchange performs the federation call for the token's identity.
	Exchange(ctx context.Context, token *IdentityToken) (*AWSCredentials, error)
}

// CredentialStore persists cached credential records keyed by profile alias.
// Implementations must treat unreadable or corrupt records as absent rather
// than failing: a cache problem must never block credential issuance.
type CredentialStore interface {
	// Store persists the record for the given alias.
	Store(alias string, record *CachedCredentials) error

	// Retrieve returns the record for the given alias, or
	// ErrCredentialsNotFound when no usable record exists.
	Retrieve(alias string) (*CachedCredentials, error)

	// Delete removes the record for the given alias. Deleting an absent
	// record is not an error.
	Delete(alias string) error

	// List returns the aliases with stored records.
	List() ([]string, error)
}

// QuotaChecker evaluates whether the authenticated user may receive
// credentials under the tenant's usage policy.
type QuotaChecker interface {
	// Check evaluates the quota decision for the token's identity.
	Check(ctx context.Context, token *IdentityToken) (*QuotaDecision, error)
}
