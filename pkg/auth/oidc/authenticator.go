package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/browser"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/logger"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

const (
	// oauthScopes requested on every flow. Group claims ride on the profile
	// scope for the providers we support.
	oauthScopes = "openid email profile"

	// browserFlowTimeout bounds how long we wait for the user to finish the
	// browser interaction.
	browserFlowTimeout = 5 * time.Minute

	requestTimeout = 30 * time.Second
)

// Authenticator runs the OIDC flow for a profile.
type Authenticator struct {
	profile   *schema.Profile
	endpoints *Endpoints
	client    *http.Client

	// openURL is swappable in tests.
	openURL func(string) error
}

// New creates an authenticator for the profile.
func New(profile *schema.Profile) (*Authenticator, error) {
	endpoints, err := EndpointsFor(profile)
	if err != nil {
		return nil, err
	}
	return &Authenticator{
		profile:   profile,
		endpoints: endpoints,
		client:    &http.Client{Timeout: requestTimeout},
		openURL:   browser.OpenURL,
	}, nil
}

// Authenticate runs the configured flow and returns a validated token.
func (a *Authenticator) Authenticate(ctx context.Context) (*types.IdentityToken, error) {
	if a.profile.DeviceFlow {
		if !a.endpoints.SupportsDeviceFlow() {
			return nil, fmt.Errorf("%w: provider %q does not support the device flow",
				errUtils.ErrInvalidProviderConfig, a.profile.ProviderType)
		}
		return a.authenticateDevice(ctx)
	}
	return a.authenticateBrowser(ctx)
}

// authenticateBrowser runs authorization code + PKCE through the loopback
// redirect. The callback port is bound before the browser opens so the
// redirect cannot race the server.
func (a *Authenticator) authenticateBrowser(ctx context.Context) (*types.IdentityToken, error) {
	pkce, err := generatePKCE()
	if err != nil {
		return nil, err
	}
	state, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}
	nonce, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	server, err := newCallbackServer(a.profile.RedirectPort, state)
	if err != nil {
		return nil, err
	}
	defer server.Close()

	authURL := a.buildAuthorizationURL(server.RedirectURI(), state, nonce, pkce.Challenge)
	logger.Debug("Opening browser for authentication", "provider", a.profile.ProviderDomain)
	if err := a.openURL(authURL); err != nil {
		logger.Debug("Browser open failed", "error", err)
		fmt.Fprintf(os.Stderr, "Open this URL to sign in:\n\n  %s\n\n", authURL)
	}

	code, err := server.WaitForCode(ctx, browserFlowTimeout)
	if err != nil {
		return nil, err
	}

	tokens, err := a.exchangeCode(ctx, code, server.RedirectURI(), pkce.Verifier)
	if err != nil {
		return nil, err
	}

	token, err := parseIDToken(tokens.IDToken, tokenValidation{
		Issuer:   a.endpoints.Issuer,
		Audience: a.profile.ClientID,
		Nonce:    nonce,
	})
	if err != nil {
		return nil, err
	}
	token.AccessToken = tokens.AccessToken
	return token, nil
}

func (a *Authenticator) buildAuthorizationURL(redirectURI, state, nonce, challenge string) string {
	params := url.Values{
		"client_id":             {a.profile.ClientID},
		"response_type":         {"code"},
		"scope":                 {oauthScopes},
		"redirect_uri":          {redirectURI},
		"state":                 {state},
		"nonce":                 {nonce},
		"code_challenge":        {challenge},
		"code_challenge_method": {"S256"},
	}
	return a.endpoints.Authorization + "?" + params.Encode()
}

// tokenResponse is the token endpoint's success document.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// oauthError is the token endpoint's failure document (RFC 6749 §5.2).
type oauthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (a *Authenticator) exchangeCode(ctx context.Context, code, redirectURI, verifier string) (*tokenResponse, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {a.profile.ClientID},
		"code_verifier": {verifier},
	}

	body, status, err := a.postForm(ctx, a.endpoints.Token, form)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		var oe oauthError
		if json.Unmarshal(body, &oe) == nil && oe.Code != "" {
			return nil, fmt.Errorf("%w: %s: %s", errUtils.ErrAuthenticationDenied, oe.Code, oe.Description)
		}
		return nil, fmt.Errorf("%w: token endpoint returned HTTP %d", errUtils.ErrProviderUnreachable, status)
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("%w: malformed token response: %v", errUtils.ErrProviderUnreachable, err)
	}
	if tokens.IDToken == "" {
		return nil, fmt.Errorf("%w: token response carried no ID token", errUtils.ErrInvalidToken)
	}
	return &tokens, nil
}

func (a *Authenticator) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errUtils.ErrProviderUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading response: %v", errUtils.ErrProviderUnreachable, err)
	}
	return body, resp.StatusCode, nil
}
