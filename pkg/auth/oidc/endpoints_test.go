package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

func TestEndpointsFor(t *testing.T) {
	tests := []struct {
		name          string
		profile       schema.Profile
		authorization string
		token         string
		issuer        string
		deviceFlow    bool
	}{
		{
			name:          "okta",
			profile:       schema.Profile{ProviderDomain: "corp.okta.com", ProviderType: schema.ProviderOkta},
			authorization: "https://corp.okta.com/oauth2/v1/authorize",
			token:         "https://corp.okta.com/oauth2/v1/token",
			issuer:        "https://corp.okta.com",
			deviceFlow:    true,
		},
		{
			name:          "auth0",
			profile:       schema.Profile{ProviderDomain: "corp.us.auth0.com", ProviderType: schema.ProviderAuth0},
			authorization: "https://corp.us.auth0.com/authorize",
			token:         "https://corp.us.auth0.com/oauth/token",
			issuer:        "https://corp.us.auth0.com/",
			deviceFlow:    true,
		},
		{
			name:          "azure",
			profile:       schema.Profile{ProviderDomain: "login.microsoftonline.com/tenant-id", ProviderType: schema.ProviderAzure},
			authorization: "https://login.microsoftonline.com/tenant-id/oauth2/v2.0/authorize",
			token:         "https://login.microsoftonline.com/tenant-id/oauth2/v2.0/token",
			issuer:        "https://login.microsoftonline.com/tenant-id/v2.0",
			deviceFlow:    true,
		},
		{
			name:          "cognito hosted ui",
			profile:       schema.Profile{ProviderDomain: "auth.corp.amazoncognito.com", ProviderType: schema.ProviderCognito},
			authorization: "https://auth.corp.amazoncognito.com/oauth2/authorize",
			token:         "https://auth.corp.amazoncognito.com/oauth2/token",
			issuer:        "https://auth.corp.amazoncognito.com",
			deviceFlow:    false,
		},
		{
			name: "cognito with user pool issuer",
			profile: schema.Profile{
				ProviderDomain:    "auth.corp.amazoncognito.com",
				ProviderType:      schema.ProviderCognito,
				CognitoUserPoolID: "us-east-1_AbCdEf",
				AWSRegion:         "us-east-1",
			},
			authorization: "https://auth.corp.amazoncognito.com/oauth2/authorize",
			token:         "https://auth.corp.amazoncognito.com/oauth2/token",
			issuer:        "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_AbCdEf",
			deviceFlow:    false,
		},
		{
			name:          "generic provider",
			profile:       schema.Profile{ProviderDomain: "idp.internal.example.com", ProviderType: schema.ProviderAuto},
			authorization: "https://idp.internal.example.com/oauth2/v1/authorize",
			token:         "https://idp.internal.example.com/oauth2/v1/token",
			issuer:        "https://idp.internal.example.com",
			deviceFlow:    true,
		},
		{
			name:          "scheme and trailing slash stripped",
			profile:       schema.Profile{ProviderDomain: "https://corp.okta.com/", ProviderType: schema.ProviderOkta},
			authorization: "https://corp.okta.com/oauth2/v1/authorize",
			token:         "https://corp.okta.com/oauth2/v1/token",
			issuer:        "https://corp.okta.com",
			deviceFlow:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoints, err := EndpointsFor(&tt.profile)
			require.NoError(t, err)
			assert.Equal(t, tt.authorization, endpoints.Authorization)
			assert.Equal(t, tt.token, endpoints.Token)
			assert.Equal(t, tt.issuer, endpoints.Issuer)
			assert.Equal(t, tt.deviceFlow, endpoints.SupportsDeviceFlow())
		})
	}
}

func TestEndpointsFor_EmptyDomain(t *testing.T) {
	_, err := EndpointsFor(&schema.Profile{})
	assert.Error(t, err)
}
