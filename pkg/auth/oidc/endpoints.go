// Package oidc implements the OIDC authentication flows: authorization code
// with PKCE through a loopback redirect, and the device-code fallback for
// environments without a browser.
package oidc

import (
	"fmt"
	"strings"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

// Endpoints holds the provider URLs a flow needs. The paths differ per
// provider family; the issuer is what the ID token's iss claim must match.
type Endpoints struct {
	Authorization string
	Token         string
	DeviceAuth    string
	Issuer        string
}

// EndpointsFor builds the endpoint set for a profile's provider family.
func EndpointsFor(profile *schema.Profile) (*Endpoints, error) {
	domain := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(profile.ProviderDomain, "https://"), "http://"), "/")
	if domain == "" {
		return nil, fmt.Errorf("%w: empty provider_domain", errUtils.ErrInvalidProviderConfig)
	}
	base := "https://" + domain

	switch profile.ProviderType {
	case schema.ProviderOkta:
		return &Endpoints{
			Authorization: base + "/oauth2/v1/authorize",
			Token:         base + "/oauth2/v1/token",
			DeviceAuth:    base + "/oauth2/v1/device/authorize",
			Issuer:        base,
		}, nil
	case schema.ProviderAuth0:
		return &Endpoints{
			Authorization: base + "/authorize",
			Token:         base + "/oauth/token",
			DeviceAuth:    base + "/oauth/device/code",
			Issuer:        base + "/",
		}, nil
	case schema.ProviderAzure:
		// Domain carries the tenant segment, e.g. login.microsoftonline.com/{tenant}.
		return &Endpoints{
			Authorization: base + "/oauth2/v2.0/authorize",
			Token:         base + "/oauth2/v2.0/token",
			DeviceAuth:    base + "/oauth2/v2.0/devicecode",
			Issuer:        base + "/v2.0",
		}, nil
	case schema.ProviderCognito:
		endpoints := &Endpoints{
			Authorization: base + "/oauth2/authorize",
			Token:         base + "/oauth2/token",
			// Cognito hosted UI has no device authorization endpoint.
			DeviceAuth: "",
			Issuer:     base,
		}
		// Tokens from a Cognito user pool carry the pool issuer, not the
		// hosted UI domain.
		if profile.CognitoUserPoolID != "" && profile.AWSRegion != "" {
			endpoints.Issuer = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s",
				profile.AWSRegion, profile.CognitoUserPoolID)
		}
		return endpoints, nil
	default:
		// Unrecognized domains get the generic OIDC layout Okta popularized.
		return &Endpoints{
			Authorization: base + "/oauth2/v1/authorize",
			Token:         base + "/oauth2/v1/token",
			DeviceAuth:    base + "/oauth2/v1/device/authorize",
			Issuer:        base,
		}, nil
	}
}

// SupportsDeviceFlow reports whether the provider family offers a device
// authorization endpoint.
func (e *Endpoints) SupportsDeviceFlow() bool {
	return e.DeviceAuth != ""
}
