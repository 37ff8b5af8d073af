// Package provider orchestrates the credential flow the AWS CLI invokes via
// credential_process: check the cache, authenticate if needed, exchange the
// token for AWS credentials, gate on quota, and emit the JSON document.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/credentials"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/federation"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/oidc"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/logger"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/quota"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

const (
	// peerWaitTimeout bounds how long a second invocation waits for a
	// concurrent flow on the callback port to finish.
	peerWaitTimeout = 60 * time.Second
	peerPollEvery   = 500 * time.Millisecond

	// monitoringTokenMargin is the minimum remaining ID token validity for
	// the monitoring side channel to reuse a cached token.
	monitoringTokenMargin = 10 * time.Minute
)

// Provider runs the credential flow for one profile.
type Provider struct {
	profile       *schema.Profile
	store         types.CredentialStore
	authenticator types.Authenticator
	exchanger     types.Exchanger
	checker       types.QuotaChecker

	now      func() time.Time
	portBusy func(int) bool
	waitMax  time.Duration
	waitPoll time.Duration
}

// New wires a provider for the profile.
func New(profile *schema.Profile) (*Provider, error) {
	store, err := credentials.NewCredentialStore(profile)
	if err != nil {
		return nil, err
	}
	authenticator, err := oidc.New(profile)
	if err != nil {
		return nil, err
	}
	exchanger, err := federation.NewExchanger(profile)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		profile:       profile,
		store:         store,
		authenticator: authenticator,
		exchanger:     exchanger,
		now:           time.Now,
		portBusy:      oidc.PortBusy,
		waitMax:       peerWaitTimeout,
		waitPoll:      peerPollEvery,
	}
	if checker := quota.NewChecker(profile.Quota); checker != nil {
		p.checker = checker
	}
	return p, nil
}

// Credentials returns valid AWS credentials for the profile, from cache when
// possible, re-authenticating when not.
func (p *Provider) Credentials(ctx context.Context) (*types.AWSCredentials, error) {
	record, err := p.store.Retrieve(p.profile.Name)
	if err != nil && !errors.Is(err, errUtils.ErrCredentialsNotFound) {
		logger.Debug("Cache read failed, treating as miss", "error", err)
	}

	if record.IsValid() {
		return p.useCached(ctx, record)
	}

	// A concurrent invocation may already be driving the browser flow.
	if p.portBusy(p.profile.RedirectPort) {
		if record := p.waitForPeer(ctx); record != nil {
			return record.Credentials, nil
		}
		return nil, fmt.Errorf("%w: another authentication is in progress on port %d",
			errUtils.ErrPortInUse, p.profile.RedirectPort)
	}

	// Reuse a still-valid cached ID token to skip the browser entirely.
	if record != nil && record.IDToken != "" {
		if token, err := oidc.ParseIdentityToken(record.IDToken); err == nil {
			token.AccessToken = record.AccessToken
			creds, err := p.issue(ctx, token)
			if err == nil {
				return creds, nil
			}
			if !errors.Is(err, errUtils.ErrFederationRejected) {
				return nil, err
			}
			logger.Debug("Cached token rejected by federation, re-authenticating")
		}
	}

	token, err := p.authenticator.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return p.issue(ctx, token)
}

// useCached re-checks quota for a valid cached record.
func (p *Provider) useCached(ctx context.Context, record *types.CachedCredentials) (*types.AWSCredentials, error) {
	if !p.needsQuotaRecheck(record) {
		logger.Debug("Using cached credentials", "profile", p.profile.Name)
		return record.Credentials, nil
	}

	token := p.tokenFromRecord(record)
	if token == nil {
		// No usable token for a re-check; the cached credentials stay valid
		// until the next full authentication.
		logger.Debug("No token for quota re-check, using cached credentials")
		return record.Credentials, nil
	}

	decision, err := p.checker.Check(ctx, token)
	if err != nil {
		if errors.Is(err, errUtils.ErrQuotaExceeded) {
			// Revoke local access immediately: the cached credentials would
			// otherwise outlive the block.
			if delErr := p.store.Delete(p.profile.Name); delErr != nil {
				logger.Debug("Cache clear failed", "error", delErr)
			}
			return nil, errUtils.WithExitCode(err, 4)
		}
		return nil, err
	}

	record.LastQuotaCheck = p.now()
	if err := p.store.Store(p.profile.Name, record); err != nil {
		logger.Debug("Recording quota check time failed", "error", err)
	}
	logger.Debug("Using cached credentials", "profile", p.profile.Name, "quota", decision.Reason)
	return record.Credentials, nil
}

// issue runs the quota gate and federation exchange for a fresh token, then
// caches and returns the credentials.
func (p *Provider) issue(ctx context.Context, token *types.IdentityToken) (*types.AWSCredentials, error) {
	if p.checker != nil {
		if _, err := p.checker.Check(ctx, token); err != nil {
			if errors.Is(err, errUtils.ErrQuotaExceeded) {
				return nil, errUtils.WithExitCode(err, 4)
			}
			return nil, err
		}
	}

	creds, err := p.exchanger.Exchange(ctx, token)
	if err != nil {
		return nil, err
	}

	record := &types.CachedCredentials{
		Credentials:    creds,
		IDToken:        token.IDToken,
		AccessToken:    token.AccessToken,
		TokenExpiresAt: token.ExpiresAt,
		LastQuotaCheck: p.now(),
	}
	if err := p.store.Store(p.profile.Name, record); err != nil {
		// A cache failure must not block issuance.
		logger.Warn("Caching credentials failed", "error", err)
	}
	return creds, nil
}

// needsQuotaRecheck applies the re-check throttle: zero interval means every
// invocation, otherwise once the interval has elapsed.
func (p *Provider) needsQuotaRecheck(record *types.CachedCredentials) bool {
	if p.checker == nil {
		return false
	}
	interval := p.profile.Quota.RecheckInterval
	if interval <= 0 {
		return true
	}
	return p.now().Sub(record.LastQuotaCheck) >= interval
}

// tokenFromRecord rebuilds an identity token from the cached record, or nil
// when the cached ID token is missing or expired.
func (p *Provider) tokenFromRecord(record *types.CachedCredentials) *types.IdentityToken {
	if record.IDToken == "" {
		return nil
	}
	token, err := oidc.ParseIdentityToken(record.IDToken)
	if err != nil {
		return nil
	}
	token.AccessToken = record.AccessToken
	return token
}

// waitForPeer polls the cache while another invocation finishes its flow.
func (p *Provider) waitForPeer(ctx context.Context) *types.CachedCredentials {
	logger.Debug("Authentication already in progress, waiting", "port", p.profile.RedirectPort)
	deadline := p.now().Add(p.waitMax)
	ticker := time.NewTicker(p.waitPoll)
	defer ticker.Stop()

	for p.now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		record, err := p.store.Retrieve(p.profile.Name)
		if err == nil && record.IsValid() {
			logger.Debug("Peer authentication completed, using its credentials")
			return record
		}
		if !p.portBusy(p.profile.RedirectPort) {
			// Peer gave up without caching anything.
			return nil
		}
	}
	return nil
}

// MonitoringToken returns an ID token for the telemetry side channel,
// reusing the cached token while it has at least monitoringTokenMargin of
// validity left and re-authenticating otherwise.
func (p *Provider) MonitoringToken(ctx context.Context) (string, error) {
	record, err := p.store.Retrieve(p.profile.Name)
	if err == nil && record.IDToken != "" {
		if token, parseErr := oidc.ParseIdentityToken(record.IDToken); parseErr == nil {
			if token.IsValid(monitoringTokenMargin) {
				return record.IDToken, nil
			}
		}
	}

	token, err := p.authenticator.Authenticate(ctx)
	if err != nil {
		return "", err
	}
	if _, err := p.issue(ctx, token); err != nil {
		return "", err
	}
	return token.IDToken, nil
}

// ClearCache removes the profile's cached credentials.
func (p *Provider) ClearCache() error {
	return p.store.Delete(p.profile.Name)
}

// Identity describes the cached principal for display.
type Identity struct {
	Profile    string    `json:"profile"`
	UserID     string    `json:"user_id,omitempty"`
	Groups     []string  `json:"groups,omitempty"`
	Expiration time.Time `json:"expiration,omitempty"`
	Cached     bool      `json:"cached"`
}

// Whoami reports the cached identity without triggering authentication.
func (p *Provider) Whoami() (*Identity, error) {
	identity := &Identity{Profile: p.profile.Name}

	record, err := p.store.Retrieve(p.profile.Name)
	if err != nil {
		if errors.Is(err, errUtils.ErrCredentialsNotFound) {
			return identity, nil
		}
		return nil, err
	}

	identity.Cached = record.IsValid()
	if exp, err := record.Credentials.GetExpiration(); err == nil && exp != nil {
		identity.Expiration = *exp
	}
	if token, err := oidc.ParseIdentityToken(record.IDToken); err == nil {
		identity.UserID = token.Claims.UserID()
		identity.Groups = token.Claims.Groups
	}
	return identity, nil
}

// EmitProcess writes the credential_process JSON document.
func EmitProcess(w io.Writer, creds *types.AWSCredentials) error {
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(creds.ToProcessCredentials()); err != nil {
		return fmt.Errorf("encoding credential output: %w", err)
	}
	return nil
}
