package federation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/config"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/logger"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/retry"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

// stsAPI is the STS surface the exchanger uses.
type stsAPI interface {
	AssumeRoleWithWebIdentity(ctx context.Context, params *sts.AssumeRoleWithWebIdentityInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleWithWebIdentityOutput, error)
}

// directSTSExchanger calls AssumeRoleWithWebIdentity with the ID token. The
// call is unsigned: the token is the only credential, and the role's trust
// policy decides whether the issuer and audience are acceptable.
type directSTSExchanger struct {
	profile  *schema.Profile
	client   stsAPI
	duration time.Duration
}

func newDirectSTSExchanger(profile *schema.Profile) (*directSTSExchanger, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(profile.AWSRegion),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", errUtils.ErrFederationUnavailable, err)
	}
	return &directSTSExchanger{
		profile:  profile,
		client:   sts.NewFromConfig(cfg),
		duration: config.SessionDuration(profile),
	}, nil
}

// Exchange assumes the configured role with the web identity token.
func (e *directSTSExchanger) Exchange(ctx context.Context, token *types.IdentityToken) (*types.AWSCredentials, error) {
	input := &sts.AssumeRoleWithWebIdentityInput{
		RoleArn:          aws.String(e.profile.RoleARN),
		RoleSessionName:  aws.String(sessionName(token)),
		WebIdentityToken: aws.String(token.IDToken),
		DurationSeconds:  aws.Int32(int32(e.duration.Seconds())),
	}

	var result *sts.AssumeRoleWithWebIdentityOutput
	retryCfg := retry.DefaultConfig()
	err := retry.WithPredicate(ctx, &retryCfg, func() error {
		var callErr error
		result, callErr = e.client.AssumeRoleWithWebIdentity(ctx, input)
		if callErr != nil {
			return classifyError(callErr)
		}
		return nil
	}, retryable)
	if err != nil {
		return nil, err
	}

	if result.Credentials == nil {
		return nil, fmt.Errorf("%w: STS returned no credentials", errUtils.ErrFederationUnavailable)
	}

	expiration := ""
	if result.Credentials.Expiration != nil {
		expiration = result.Credentials.Expiration.UTC().Format(time.RFC3339)
	}
	logger.Debug("Assumed role with web identity",
		"role", e.profile.RoleARN, "session", sessionName(token), "expiration", expiration)

	return &types.AWSCredentials{
		AccessKeyID:     aws.ToString(result.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(result.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(result.Credentials.SessionToken),
		Region:          e.profile.AWSRegion,
		Expiration:      expiration,
	}, nil
}

// maxSessionNameLength is the STS limit for RoleSessionName.
const maxSessionNameLength = 64

// sessionName derives the role session name from the user's identity so
// CloudTrail attributes API activity to the person, not the tool.
func sessionName(token *types.IdentityToken) string {
	name := sanitizeSessionName(token.Claims.UserID())
	if name == "" {
		name = "ccwb-session"
	}
	if len(name) > maxSessionNameLength {
		name = name[:maxSessionNameLength]
	}
	return name
}

// sanitizeSessionName keeps only the characters STS allows: alphanumerics
// and =,.@-
func sanitizeSessionName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '=' || r == ',' || r == '.' || r == '@' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
