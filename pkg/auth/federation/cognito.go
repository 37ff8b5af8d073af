package federation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/logger"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/retry"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

// cognitoAPI is the Cognito Identity surface the exchanger uses.
type cognitoAPI interface {
	GetId(ctx context.Context, params *cognitoidentity.GetIdInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetIdOutput, error)
	GetCredentialsForIdentity(ctx context.Context, params *cognitoidentity.GetCredentialsForIdentityInput, optFns ...func(*cognitoidentity.Options)) (*cognitoidentity.GetCredentialsForIdentityOutput, error)
}

// cognitoExchanger trades the ID token through a Cognito Identity Pool:
// GetId resolves the federated identity, GetCredentialsForIdentity issues
// role credentials for it. The pool's enhanced flow decides the role from
// the token's claims.
type cognitoExchanger struct {
	profile  *schema.Profile
	client   cognitoAPI
	loginKey string
}

func newCognitoExchanger(profile *schema.Profile) (*cognitoExchanger, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(profile.AWSRegion),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", errUtils.ErrFederationUnavailable, err)
	}
	return &cognitoExchanger{
		profile:  profile,
		client:   cognitoidentity.NewFromConfig(cfg),
		loginKey: loginKeyFor(profile),
	}, nil
}

// loginKeyFor picks the Logins map key the identity pool expects: the user
// pool issuer host/path for Cognito user pools, otherwise the bare provider
// domain registered with the pool.
func loginKeyFor(profile *schema.Profile) string {
	if profile.CognitoUserPoolID != "" && profile.AWSRegion != "" {
		return fmt.Sprintf("cognito-idp.%s.amazonaws.com/%s", profile.AWSRegion, profile.CognitoUserPoolID)
	}
	domain := strings.TrimPrefix(strings.TrimPrefix(profile.ProviderDomain, "https://"), "http://")
	return strings.TrimSuffix(domain, "/")
}

// Exchange resolves the identity and issues credentials for it.
func (e *cognitoExchanger) Exchange(ctx context.Context, token *types.IdentityToken) (*types.AWSCredentials, error) {
	logins := map[string]string{e.loginKey: token.IDToken}

	var identityID string
	retryCfg := retry.DefaultConfig()
	err := retry.WithPredicate(ctx, &retryCfg, func() error {
		result, callErr := e.client.GetId(ctx, &cognitoidentity.GetIdInput{
			IdentityPoolId: aws.String(e.profile.IdentityPoolID),
			Logins:         logins,
		})
		if callErr != nil {
			return classifyError(callErr)
		}
		identityID = aws.ToString(result.IdentityId)
		return nil
	}, retryable)
	if err != nil {
		return nil, err
	}
	if identityID == "" {
		return nil, fmt.Errorf("%w: identity pool returned no identity", errUtils.ErrFederationUnavailable)
	}

	var creds *cognitoidentity.GetCredentialsForIdentityOutput
	err = retry.WithPredicate(ctx, &retryCfg, func() error {
		var callErr error
		creds, callErr = e.client.GetCredentialsForIdentity(ctx, &cognitoidentity.GetCredentialsForIdentityInput{
			IdentityId: aws.String(identityID),
			Logins:     logins,
		})
		if callErr != nil {
			return classifyError(callErr)
		}
		return nil
	}, retryable)
	if err != nil {
		return nil, err
	}

	if creds.Credentials == nil || creds.Credentials.AccessKeyId == nil {
		return nil, fmt.Errorf("%w: identity pool returned no credentials", errUtils.ErrFederationUnavailable)
	}

	expiration := ""
	if creds.Credentials.Expiration != nil {
		expiration = creds.Credentials.Expiration.UTC().Format(time.RFC3339)
	}
	logger.Debug("Obtained identity pool credentials",
		"identityId", identityID, "expiration", expiration)

	return &types.AWSCredentials{
		AccessKeyID:     aws.ToString(creds.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(creds.Credentials.SecretKey),
		SessionToken:    aws.ToString(creds.Credentials.SessionToken),
		Region:          e.profile.AWSRegion,
		Expiration:      expiration,
	}, nil
}
