// Package quota enforces per-user token budgets. Policies and usage come
// from the quota service; resolution and the allow/deny decision happen here
// so the CLI behaves identically whichever backend serves the numbers.
package quota

import "time"

// EnforcementMode decides whether an exceeded quota blocks issuance or only
// logs a warning.
type EnforcementMode string

const (
	// ModeAlert logs exceeded quotas but never blocks.
	ModeAlert EnforcementMode = "alert"
	// ModeBlock denies credential issuance on exceeded quotas.
	ModeBlock EnforcementMode = "block"
)

// PolicyScope is the level a policy binds at.
type PolicyScope string

const (
	ScopeUser    PolicyScope = "user"
	ScopeGroup   PolicyScope = "group"
	ScopeDefault PolicyScope = "default"
)

// Policy is one quota policy row. Zero limits mean the dimension is
// unlimited.
type Policy struct {
	Scope   PolicyScope `json:"scope"`
	Subject string      `json:"subject,omitempty"`

	MonthlyTokenLimit int64   `json:"monthly_token_limit,omitempty"`
	DailyTokenLimit   int64   `json:"daily_token_limit,omitempty"`
	MonthlyCostLimit  float64 `json:"monthly_cost_limit,omitempty"`

	EnforcementMode EnforcementMode `json:"enforcement_mode,omitempty"`
}

// Usage is the consumption counters the quota service tracks per user.
type Usage struct {
	MonthlyTokens int64   `json:"monthly_tokens"`
	DailyTokens   int64   `json:"daily_tokens"`
	MonthlyCost   float64 `json:"monthly_cost"`
}

// Override is a temporary administrative unblock for a user.
type Override struct {
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// InEffect reports whether the override applies at the given time.
func (o *Override) InEffect(now time.Time) bool {
	if o == nil || !o.Active {
		return false
	}
	return o.ExpiresAt.IsZero() || now.Before(o.ExpiresAt)
}

// ResolvePolicy picks the binding policy for a user: an exact user policy
// wins; otherwise the most restrictive of the user's group policies;
// otherwise the default policy; otherwise nil (unlimited).
func ResolvePolicy(userID string, groups []string, policies []Policy) *Policy {
	for i := range policies {
		p := &policies[i]
		if p.Scope == ScopeUser && p.Subject == userID {
			return p
		}
	}

	var binding *Policy
	groupSet := map[string]bool{}
	for _, g := range groups {
		groupSet[g] = true
	}
	for i := range policies {
		p := &policies[i]
		if p.Scope != ScopeGroup || !groupSet[p.Subject] {
			continue
		}
		if binding == nil || moreRestrictive(p, binding) {
			binding = p
		}
	}
	if binding != nil {
		return binding
	}

	for i := range policies {
		if policies[i].Scope == ScopeDefault {
			return &policies[i]
		}
	}
	return nil
}

// moreRestrictive compares two group policies by their monthly token limit,
// then daily, then cost. A zero (unlimited) limit is the least restrictive.
func moreRestrictive(a, b *Policy) bool {
	if c := compareLimit(a.MonthlyTokenLimit, b.MonthlyTokenLimit); c != 0 {
		return c < 0
	}
	if c := compareLimit(a.DailyTokenLimit, b.DailyTokenLimit); c != 0 {
		return c < 0
	}
	return compareLimit(int64(a.MonthlyCostLimit*100), int64(b.MonthlyCostLimit*100)) < 0
}

func compareLimit(a, b int64) int {
	switch {
	case a == b:
		return 0
	case a == 0:
		return 1
	case b == 0:
		return -1
	case a < b:
		return -1
	default:
		return 1
	}
}
