package federation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	ststypes "github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

type fakeSTS struct {
	calls  int
	inputs []*sts.AssumeRoleWithWebIdentityInput
	// errs are returned in order; once exhausted, output is returned.
	errs   []error
	output *sts.AssumeRoleWithWebIdentityOutput
}

func (f *fakeSTS) AssumeRoleWithWebIdentity(ctx context.Context, params *sts.AssumeRoleWithWebIdentityInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleWithWebIdentityOutput, error) {
	f.calls++
	f.inputs = append(f.inputs, params)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.output, nil
}

func stsOutput(exp time.Time) *sts.AssumeRoleWithWebIdentityOutput {
	return &sts.AssumeRoleWithWebIdentityOutput{
		Credentials: &ststypes.Credentials{
			AccessKeyId:     aws.String("ASIAEXAMPLE"),
			SecretAccessKey: aws.String("secret"),
			SessionToken:    aws.String("session"),
			Expiration:      aws.Time(exp),
		},
	}
}

func stsProfile() *schema.Profile {
	return &schema.Profile{
		Name:           "ClaudeCode",
		AWSRegion:      "us-east-1",
		FederationType: schema.FederationDirectSTS,
		RoleARN:        "arn:aws:iam::123456789012:role/bedrock-access",
	}
}

func webToken(email string) *types.IdentityToken {
	return &types.IdentityToken{
		IDToken:   "raw-id-token",
		ExpiresAt: time.Now().Add(time.Hour),
		Claims:    types.TokenClaims{Subject: "sub-123", Email: email},
	}
}

func TestDirectSTSExchange(t *testing.T) {
	exp := time.Now().Add(4 * time.Hour).UTC().Truncate(time.Second)
	fake := &fakeSTS{output: stsOutput(exp)}
	exchanger := &directSTSExchanger{profile: stsProfile(), client: fake, duration: 4 * time.Hour}

	creds, err := exchanger.Exchange(context.Background(), webToken("dev@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ASIAEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "secret", creds.SecretAccessKey)
	assert.Equal(t, "session", creds.SessionToken)
	assert.Equal(t, "us-east-1", creds.Region)
	assert.Equal(t, exp.Format(time.RFC3339), creds.Expiration)

	require.Len(t, fake.inputs, 1)
	input := fake.inputs[0]
	assert.Equal(t, "arn:aws:iam::123456789012:role/bedrock-access", aws.ToString(input.RoleArn))
	assert.Equal(t, "dev@example.com", aws.ToString(input.RoleSessionName))
	assert.Equal(t, "raw-id-token", aws.ToString(input.WebIdentityToken))
	assert.Equal(t, int32(4*3600), aws.ToInt32(input.DurationSeconds))
}

func TestDirectSTSExchange_RejectionNotRetried(t *testing.T) {
	fake := &fakeSTS{errs: []error{
		&smithy.GenericAPIError{Code: "InvalidIdentityToken", Message: "token rejected"},
	}}
	exchanger := &directSTSExchanger{profile: stsProfile(), client: fake, duration: time.Hour}

	_, err := exchanger.Exchange(context.Background(), webToken("dev@example.com"))
	assert.ErrorIs(t, err, errUtils.ErrFederationRejected)
	assert.Equal(t, 1, fake.calls)
}

func TestDirectSTSExchange_TransientRetried(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	fake := &fakeSTS{
		errs:   []error{&smithy.GenericAPIError{Code: "ServiceUnavailable", Message: "try later"}},
		output: stsOutput(exp),
	}
	exchanger := &directSTSExchanger{profile: stsProfile(), client: fake, duration: time.Hour}

	creds, err := exchanger.Exchange(context.Background(), webToken("dev@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "ASIAEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, 2, fake.calls)
}

func TestSessionName(t *testing.T) {
	assert.Equal(t, "dev@example.com", sessionName(webToken("dev@example.com")))
	assert.Equal(t, "sub-123", sessionName(webToken("")))

	spaced := webToken("first last@example.com")
	assert.Equal(t, "first-last@example.com", sessionName(spaced))

	long := webToken(string(make([]byte, 100)))
	assert.LessOrEqual(t, len(sessionName(long)), maxSessionNameLength)
}

func TestClassifyError(t *testing.T) {
	rejected := classifyError(&smithy.GenericAPIError{Code: "NotAuthorizedException", Message: "no"})
	assert.ErrorIs(t, rejected, errUtils.ErrFederationRejected)
	assert.False(t, retryable(rejected))

	transient := classifyError(&smithy.GenericAPIError{Code: "Throttling", Message: "slow down"})
	assert.ErrorIs(t, transient, errUtils.ErrFederationUnavailable)
	assert.True(t, retryable(transient))

	network := classifyError(errors.New("dial tcp: connection refused"))
	assert.ErrorIs(t, network, errUtils.ErrFederationUnavailable)
	assert.True(t, retryable(network))
}

func TestNewExchanger_UnknownType(t *testing.T) {
	_, err := NewExchanger(&schema.Profile{FederationType: "saml"})
	assert.ErrorIs(t, err, errUtils.ErrInvalidProviderConfig)
}
