package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/logger"
)

// deviceAuthResponse is the device authorization endpoint's document (RFC 8628).
type deviceAuthResponse struct {
	DeviceCode              string `json:"device_code"`
	UserCode                string `json:"user_code"`
	VerificationURI         string `json:"verification_uri"`
	VerificationURIComplete string `json:"verification_uri_complete"`
	ExpiresIn               int    `json:"expires_in"`
	Interval                int    `json:"interval"`
}

// authenticateDevice runs the device-code flow: request a user code, show it,
// and poll the token endpoint until the user approves or the code expires.
func (a *Authenticator) authenticateDevice(ctx context.Context) (*types.IdentityToken, error) {
	auth, err := a.startDeviceAuthorization(ctx)
	if err != nil {
		return nil, err
	}

	verificationURL := auth.VerificationURIComplete
	if verificationURL == "" {
		verificationURL = auth.VerificationURI
	}
	if err := a.openURL(verificationURL); err != nil {
		logger.Debug("Browser open failed", "error", err)
	}
	fmt.Fprintf(os.Stderr, "To sign in, visit:\n\n  %s\n\nand enter code: %s\n\n",
		auth.VerificationURI, auth.UserCode)

	return a.pollDeviceToken(ctx, auth)
}

func (a *Authenticator) startDeviceAuthorization(ctx context.Context) (*deviceAuthResponse, error) {
	form := url.Values{
		"client_id": {a.profile.ClientID},
		"scope":     {oauthScopes},
	}
	body, status, err := a.postForm(ctx, a.endpoints.DeviceAuth, form)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: device authorization returned HTTP %d", errUtils.ErrProviderUnreachable, status)
	}

	var auth deviceAuthResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("%w: malformed device authorization response: %v", errUtils.ErrProviderUnreachable, err)
	}
	if auth.DeviceCode == "" || auth.UserCode == "" {
		return nil, fmt.Errorf("%w: incomplete device authorization response", errUtils.ErrProviderUnreachable)
	}
	if auth.Interval <= 0 {
		auth.Interval = 5
	}
	if auth.ExpiresIn <= 0 {
		auth.ExpiresIn = 300
	}
	return &auth, nil
}

func (a *Authenticator) pollDeviceToken(ctx context.Context, auth *deviceAuthResponse) (*types.IdentityToken, error) {
	deadline := time.Now().Add(time.Duration(auth.ExpiresIn) * time.Second)
	interval := time.Duration(auth.Interval) * time.Second

	form := url.Values{
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		"device_code": {auth.DeviceCode},
		"client_id":   {a.profile.ClientID},
	}

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", errUtils.ErrAuthenticationTimeout, ctx.Err())
		case <-time.After(interval):
		}

		body, status, err := a.postForm(ctx, a.endpoints.Token, form)
		if err != nil {
			return nil, err
		}

		if status == http.StatusOK {
			var tokens tokenResponse
			if err := json.Unmarshal(body, &tokens); err != nil {
				return nil, fmt.Errorf("%w: malformed token response: %v", errUtils.ErrProviderUnreachable, err)
			}
			if tokens.IDToken == "" {
				return nil, fmt.Errorf("%w: token response carried no ID token", errUtils.ErrInvalidToken)
			}
			token, err := parseIDToken(tokens.IDToken, tokenValidation{
				Issuer:   a.endpoints.Issuer,
				Audience: a.profile.ClientID,
			})
			if err != nil {
				return nil, err
			}
			token.AccessToken = tokens.AccessToken
			return token, nil
		}

		var oe oauthError
		if err := json.Unmarshal(body, &oe); err != nil {
			return nil, fmt.Errorf("%w: token endpoint returned HTTP %d", errUtils.ErrProviderUnreachable, status)
		}

		switch oe.Code {
		case "authorization_pending":
			continue
		case "slow_down":
			interval += 5 * time.Second
			continue
		case "expired_token":
			return nil, fmt.Errorf("%w: device code expired before approval", errUtils.ErrAuthenticationTimeout)
		case "access_denied":
			return nil, fmt.Errorf("%w: request was declined", errUtils.ErrAuthenticationDenied)
		default:
			return nil, fmt.Errorf("%w: %s: %s", errUtils.ErrAuthenticationDenied, oe.Code, oe.Description)
		}
	}

	return nil, fmt.Errorf("%w: device code expired before approval", errUtils.ErrAuthenticationTimeout)
}
