package quota

import (
	"context"
	"fmt"
	"net/http"
	"time"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/logger"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

// statusFetcher lets tests substitute the HTTP client.
type statusFetcher interface {
	FetchStatus(ctx context.Context, token *types.IdentityToken) (*Status, error)
}

// Checker evaluates the quota gate for a profile. A nil Checker (quota not
// configured) allows everything.
type Checker struct {
	client   statusFetcher
	failMode schema.QuotaFailMode
	timeout  time.Duration
	now      func() time.Time
}

// NewChecker creates a checker from the profile's quota configuration.
// Returns nil when no endpoint is configured.
func NewChecker(cfg schema.QuotaConfig) *Checker {
	if cfg.Endpoint == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Checker{
		client:   NewClient(cfg.Endpoint, &http.Client{Timeout: timeout}),
		failMode: cfg.FailMode,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Check fetches the user's quota status and evaluates it. When the service
// cannot be reached, the configured fail mode decides: open allows with a
// warning, closed denies.
func (c *Checker) Check(ctx context.Context, token *types.IdentityToken) (*types.QuotaDecision, error) {
	if c == nil {
		return &types.QuotaDecision{Allowed: true, Reason: types.ReasonNoPolicy}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, err := c.client.FetchStatus(ctx, token)
	if err != nil {
		if c.failMode == schema.FailClosed {
			decision := &types.QuotaDecision{
				Allowed: false,
				Reason:  types.ReasonCheckFailed,
				Message: "quota service unreachable and fail_mode is closed",
			}
			return decision, fmt.Errorf("%w: %v", errUtils.ErrQuotaUnavailable, err)
		}
		logger.Warn("Quota check failed, allowing by fail-open policy", "error", err)
		return &types.QuotaDecision{Allowed: true, Reason: types.ReasonCheckFailed}, nil
	}

	decision := Evaluate(
		ResolvePolicy(token.Claims.UserID(), token.Claims.Groups, status.Policies),
		status.Usage,
		status.Override,
		c.now(),
	)

	for _, warning := range decision.Warnings {
		logger.Warn("Quota warning", "user", token.Claims.UserID(), "warning", warning)
	}
	if !decision.Allowed {
		return decision, fmt.Errorf("%w: %s", errUtils.ErrQuotaExceeded, decision.Message)
	}
	if decision.Reason == types.ReasonMonthlyExceeded || decision.Reason == types.ReasonDailyExceeded ||
		decision.Reason == types.ReasonCostExceeded {
		// Alert mode: exceeded but not blocking.
		logger.Warn("Quota exceeded (alert mode)", "user", token.Claims.UserID(), "reason", decision.Reason, "message", decision.Message)
	}
	return decision, nil
}
