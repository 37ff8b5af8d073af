// Package federation exchanges validated identity tokens for temporary AWS
// credentials, either directly against STS or through a Cognito Identity Pool.
package federation

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

// NewExchanger creates the exchanger selected by the profile's federation type.
func NewExchanger(profile *schema.Profile) (types.Exchanger, error) {
	switch profile.FederationType {
	case schema.FederationDirectSTS:
		return newDirectSTSExchanger(profile)
	case schema.FederationCognito:
		return newCognitoExchanger(profile)
	default:
		return nil, fmt.Errorf("%w: unknown federation_type %q",
			errUtils.ErrInvalidProviderConfig, profile.FederationType)
	}
}

// rejectionCodes are API error codes meaning the token itself was refused.
// Retrying without a fresh authentication cannot succeed.
var rejectionCodes = map[string]bool{
	"InvalidIdentityToken":      true,
	"ExpiredTokenException":     true,
	"AccessDenied":              true,
	"AccessDeniedException":     true,
	"InvalidParameterException": true,
	"NotAuthorizedException":    true,
	"ValidationError":           true,
	"ResourceNotFoundException": true,
}

// classifyError maps an AWS API failure onto the federation error taxonomy.
func classifyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if rejectionCodes[apiErr.ErrorCode()] {
			return fmt.Errorf("%w: %s: %s", errUtils.ErrFederationRejected,
				apiErr.ErrorCode(), apiErr.ErrorMessage())
		}
		return fmt.Errorf("%w: %s: %s", errUtils.ErrFederationUnavailable,
			apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("%w: %v", errUtils.ErrFederationUnavailable, err)
}

// retryable reports whether the exchange should be attempted again.
func retryable(err error) bool {
	return !errors.Is(err, errUtils.ErrFederationRejected)
}
