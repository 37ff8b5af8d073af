package types

import (
	"time"
)

// ExpiryBuffer is subtracted from a credential's lifetime when deciding
// whether a cached record is still usable. Credentials that expire within
// this window are treated as already expired so that a long-running API call
// never starts with credentials about to lapse.
const ExpiryBuffer = 30 * time.Second

// AWSCredentials holds a temporary AWS credential set. Expiration is stored
// as RFC 3339 so the record round-trips through JSON unchanged.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty"`
	Region          string `json:"region,omitempty"`
	Expiration      string `json:"expiration,omitempty"`
}

// IsExpired returns true if the credentials are expired or expire within
// ExpiryBuffer. Credentials with an unparseable expiration are expired.
func (c *AWSCredentials) IsExpired() bool {
	exp, err := c.GetExpiration()
	if err != nil {
		return true
	}
	if exp == nil {
		return false
	}
	return time.Now().Add(ExpiryBuffer).After(*exp)
}

// GetExpiration parses the expiration timestamp. A nil time with nil error
// means the credentials carry no expiration.
func (c *AWSCredentials) GetExpiration() (*time.Time, error) {
	if c.Expiration == "" {
		return nil, nil
	}
	exp, err := time.Parse(time.RFC3339, c.Expiration)
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// IdentityToken is the validated result of an OIDC authentication flow.
type IdentityToken struct {
	// IDToken is the raw signed JWT. Persisted for the monitoring side
	// channel and for Cognito federation logins.
	IDToken string `json:"id_token"`

	// AccessToken authorizes calls to the quota API.
	AccessToken string `json:"access_token,omitempty"`

	// ExpiresAt is when the ID token itself expires.
	ExpiresAt time.Time `json:"expires_at"`

	Claims TokenClaims `json:"claims"`
}

// IsValid reports whether the ID token is still usable with the given margin.
func (t *IdentityToken) IsValid(margin time.Duration) bool {
	if t == nil || t.IDToken == "" {
		return false
	}
	return time.Now().Add(margin).Before(t.ExpiresAt)
}

// TokenClaims carries the identity claims the provider attaches to the token.
type TokenClaims struct {
	Subject  string   `json:"sub"`
	Email    string   `json:"email,omitempty"`
	Issuer   string   `json:"iss"`
	Audience string   `json:"aud"`
	// Groups is the union of the provider's group-style claims, deduplicated
	// in first-seen order.
	Groups []string `json:"groups,omitempty"`
}

// UserID returns the best stable identifier for the principal: email when
// present, otherwise the subject claim.
func (c *TokenClaims) UserID() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Subject
}

// CachedCredentials is the record a CredentialStore persists per profile.
type CachedCredentials struct {
	Credentials *AWSCredentials `json:"credentials"`

	// IDToken is kept alongside the AWS credentials so monitoring tooling
	// can attribute usage without forcing a re-authentication.
	IDToken string `json:"id_token,omitempty"`

	// AccessToken authorizes quota re-checks while credentials are cached.
	AccessToken string `json:"access_token,omitempty"`

	// TokenExpiresAt is the ID token's own expiry.
	TokenExpiresAt time.Time `json:"token_expires_at,omitempty"`

	// LastQuotaCheck throttles quota re-evaluation on cache hits.
	LastQuotaCheck time.Time `json:"last_quota_check,omitempty"`
}

// IsValid reports whether the record holds a complete, non-expired credential
// set. Every credential this tool issues is temporary, so a record missing
// any of the three key components is truncated or tampered with.
func (r *CachedCredentials) IsValid() bool {
	if r == nil || r.Credentials == nil {
		return false
	}
	c := r.Credentials
	if c.AccessKeyID == "" || c.SecretAccessKey == "" || c.SessionToken == "" {
		return false
	}
	return !c.IsExpired()
}

// ProcessCredentials is the JSON document emitted on stdout for the AWS CLI
// credential_process contract.
type ProcessCredentials struct {
	Version         int    `json:"Version"`
	AccessKeyID     string `json:"AccessKeyId"`
	SecretAccessKey string `json:"SecretAccessKey"`
	SessionToken    string `json:"SessionToken,omitempty"`
	Expiration      string `json:"Expiration,omitempty"`
}

// ProcessOutputVersion is the credential_process protocol version.
const ProcessOutputVersion = 1

// ToProcessCredentials converts to the credential_process output form.
func (c *AWSCredentials) ToProcessCredentials() *ProcessCredentials {
	return &ProcessCredentials{
		Version:         ProcessOutputVersion,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
		Expiration:      c.Expiration,
	}
}

// Quota decision reasons returned by the quota service or synthesized locally.
const (
	ReasonWithinQuota     = "within_quota"
	ReasonMonthlyExceeded = "monthly_exceeded"
	ReasonDailyExceeded   = "daily_exceeded"
	ReasonCostExceeded    = "cost_exceeded"
	ReasonNoPolicy        = "no_policy"
	ReasonUnblocked       = "unblocked"
	ReasonCheckFailed     = "check_failed"
)

// QuotaDecision is the outcome of a quota evaluation.
type QuotaDecision struct {
	// Allowed is the final verdict after enforcement mode and fail mode are
	// applied.
	Allowed bool `json:"allowed"`

	// Reason is one of the Reason* constants.
	Reason string `json:"reason"`

	// Message is a human-readable explanation for denied or warned requests.
	Message string `json:"message,omitempty"`

	// Warnings lists threshold notices (80%, 90%) that never block issuance.
	Warnings []string `json:"warnings,omitempty"`

	// UsagePercent is consumption against the binding limit, when known.
	UsagePercent float64 `json:"usage_percent,omitempty"`
}
