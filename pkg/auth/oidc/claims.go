package oidc

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
)

// groupClaimNames are the claims providers use for group membership. The
// union of all present claims becomes the token's group list.
var groupClaimNames = []string{"groups", "cognito:groups", "custom:department"}

// tokenValidation is what parseIDToken checks against the raw JWT.
type tokenValidation struct {
	Issuer   string
	Audience string
	// Nonce must match the value sent in the authorization request. Empty
	// skips the check (device flow has no nonce).
	Nonce string
}

// ParseIdentityToken re-parses a previously validated raw ID token, checking
// only that it is well formed and unexpired. Used when rehydrating a token
// from the credential cache.
func ParseIdentityToken(raw string) (*types.IdentityToken, error) {
	return parseIDToken(raw, tokenValidation{})
}

// parseIDToken decodes the ID token and validates its claims. The signature
// is not verified here: the token was received directly from the provider's
// token endpoint over TLS, and AWS re-verifies the signature during
// federation. Claim validation still catches substituted or stale tokens.
func parseIDToken(raw string, v tokenValidation) (*types.IdentityToken, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: malformed ID token: %v", errUtils.ErrInvalidToken, err)
	}

	issuer, err := claims.GetIssuer()
	if err != nil || issuer == "" {
		return nil, fmt.Errorf("%w: missing issuer claim", errUtils.ErrInvalidToken)
	}
	if v.Issuer != "" && issuer != v.Issuer {
		return nil, fmt.Errorf("%w: issuer %q does not match expected %q", errUtils.ErrInvalidToken, issuer, v.Issuer)
	}

	audiences, err := claims.GetAudience()
	if err != nil {
		return nil, fmt.Errorf("%w: missing audience claim", errUtils.ErrInvalidToken)
	}
	if v.Audience != "" && !containsAudience(audiences, v.Audience) {
		return nil, fmt.Errorf("%w: token not issued for this client", errUtils.ErrInvalidToken)
	}

	expiresAt, err := claims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return nil, fmt.Errorf("%w: missing expiration claim", errUtils.ErrInvalidToken)
	}
	if time.Now().After(expiresAt.Time) {
		return nil, fmt.Errorf("%w: token already expired", errUtils.ErrInvalidToken)
	}

	if v.Nonce != "" {
		nonce, _ := claims["nonce"].(string)
		if nonce != v.Nonce {
			return nil, fmt.Errorf("%w: nonce mismatch", errUtils.ErrAuthenticationTampering)
		}
	}

	subject, _ := claims.GetSubject()
	email, _ := claims["email"].(string)

	token := &types.IdentityToken{
		IDToken:   raw,
		ExpiresAt: expiresAt.Time,
		Claims: types.TokenClaims{
			Subject:  subject,
			Email:    email,
			Issuer:   issuer,
			Audience: firstAudience(audiences),
			Groups:   extractGroups(claims),
		},
	}
	return token, nil
}

func containsAudience(audiences jwt.ClaimStrings, want string) bool {
	for _, aud := range audiences {
		if aud == want {
			return true
		}
	}
	return false
}

func firstAudience(audiences jwt.ClaimStrings) string {
	if len(audiences) > 0 {
		return audiences[0]
	}
	return ""
}

// extractGroups unions every group-style claim, deduplicated in first-seen
// order so policy resolution stays deterministic.
func extractGroups(claims jwt.MapClaims) []string {
	var groups []string
	seen := map[string]bool{}
	for _, name := range groupClaimNames {
		value, ok := claims[name]
		if !ok {
			continue
		}
		for _, group := range toStringSlice(value) {
			if group == "" || seen[group] {
				continue
			}
			seen[group] = true
			groups = append(groups, group)
		}
	}
	return groups
}

func toStringSlice(value any) []string {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
