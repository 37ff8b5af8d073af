package quota

import (
	"fmt"
	"time"

	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
)

// Warning thresholds as a fraction of the binding limit.
const (
	warnThreshold     = 0.80
	criticalThreshold = 0.90
)

// Evaluate applies the binding policy to the user's usage and produces the
// final decision. Warnings never block; only an exceeded limit under
// ModeBlock denies issuance, and an in-effect override trumps everything.
func Evaluate(policy *Policy, usage *Usage, override *Override, now time.Time) *types.QuotaDecision {
	if override.InEffect(now) {
		return &types.QuotaDecision{Allowed: true, Reason: types.ReasonUnblocked}
	}

	if policy == nil {
		return &types.QuotaDecision{Allowed: true, Reason: types.ReasonNoPolicy}
	}
	if usage == nil {
		usage = &Usage{}
	}

	if reason, message, percent := exceededLimit(policy, usage); reason != "" {
		allowed := policy.EnforcementMode != ModeBlock
		return &types.QuotaDecision{
			Allowed:      allowed,
			Reason:       reason,
			Message:      message,
			UsagePercent: percent,
		}
	}

	decision := &types.QuotaDecision{Allowed: true, Reason: types.ReasonWithinQuota}
	decision.Warnings, decision.UsagePercent = collectWarnings(policy, usage)
	return decision
}

// exceededLimit checks the dimensions in severity order: monthly tokens,
// daily tokens, then cost.
func exceededLimit(policy *Policy, usage *Usage) (reason, message string, percent float64) {
	if policy.MonthlyTokenLimit > 0 && usage.MonthlyTokens >= policy.MonthlyTokenLimit {
		return types.ReasonMonthlyExceeded,
			fmt.Sprintf("monthly token quota exhausted (%d of %d)", usage.MonthlyTokens, policy.MonthlyTokenLimit),
			percentOf(usage.MonthlyTokens, policy.MonthlyTokenLimit)
	}
	if policy.DailyTokenLimit > 0 && usage.DailyTokens >= policy.DailyTokenLimit {
		return types.ReasonDailyExceeded,
			fmt.Sprintf("daily token quota exhausted (%d of %d)", usage.DailyTokens, policy.DailyTokenLimit),
			percentOf(usage.DailyTokens, policy.DailyTokenLimit)
	}
	if policy.MonthlyCostLimit > 0 && usage.MonthlyCost >= policy.MonthlyCostLimit {
		return types.ReasonCostExceeded,
			fmt.Sprintf("monthly cost quota exhausted ($%.2f of $%.2f)", usage.MonthlyCost, policy.MonthlyCostLimit),
			usage.MonthlyCost / policy.MonthlyCostLimit * 100
	}
	return "", "", 0
}

// collectWarnings emits 80%/90% notices for each limited dimension and
// returns the highest usage fraction seen.
func collectWarnings(policy *Policy, usage *Usage) ([]string, float64) {
	var warnings []string
	var maxPercent float64

	check := func(name string, used, limit float64) {
		if limit <= 0 {
			return
		}
		fraction := used / limit
		percent := fraction * 100
		if percent > maxPercent {
			maxPercent = percent
		}
		switch {
		case fraction >= criticalThreshold:
			warnings = append(warnings, fmt.Sprintf("%s usage critical: %.0f%% of quota", name, percent))
		case fraction >= warnThreshold:
			warnings = append(warnings, fmt.Sprintf("%s usage at %.0f%% of quota", name, percent))
		}
	}

	check("monthly token", float64(usage.MonthlyTokens), float64(policy.MonthlyTokenLimit))
	check("daily token", float64(usage.DailyTokens), float64(policy.DailyTokenLimit))
	check("monthly cost", usage.MonthlyCost, policy.MonthlyCostLimit)

	return warnings, maxPercent
}

func percentOf(used, limit int64) float64 {
	if limit == 0 {
		return 0
	}
	return float64(used) / float64(limit) * 100
}
