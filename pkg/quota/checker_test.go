package quota

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/schema"
)

func quotaToken() *types.IdentityToken {
	return &types.IdentityToken{
		IDToken:     "id-token",
		AccessToken: "access-token",
		ExpiresAt:   time.Now().Add(time.Hour),
		Claims: types.TokenClaims{
			Subject: "sub-1",
			Email:   "dev@example.com",
			Groups:  []string{"engineering"},
		},
	}
}

type fakeFetcher struct {
	status *Status
	err    error
}

func (f *fakeFetcher) FetchStatus(ctx context.Context, token *types.IdentityToken) (*Status, error) {
	return f.status, f.err
}

func newTestChecker(fetcher statusFetcher, failMode schema.QuotaFailMode) *Checker {
	return &Checker{client: fetcher, failMode: failMode, timeout: time.Second, now: time.Now}
}

func TestChecker_NilAllows(t *testing.T) {
	var checker *Checker
	decision, err := checker.Check(context.Background(), quotaToken())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestNewChecker_DisabledWithoutEndpoint(t *testing.T) {
	assert.Nil(t, NewChecker(schema.QuotaConfig{}))
	assert.NotNil(t, NewChecker(schema.QuotaConfig{Endpoint: "https://quota.example.com/check"}))
}

func TestChecker_Allows(t *testing.T) {
	checker := newTestChecker(&fakeFetcher{status: &Status{
		Policies: []Policy{{Scope: ScopeDefault, MonthlyTokenLimit: 1000, EnforcementMode: ModeBlock}},
		Usage:    &Usage{MonthlyTokens: 100},
	}}, schema.FailOpen)

	decision, err := checker.Check(context.Background(), quotaToken())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, types.ReasonWithinQuota, decision.Reason)
}

func TestChecker_BlocksExceeded(t *testing.T) {
	checker := newTestChecker(&fakeFetcher{status: &Status{
		Policies: []Policy{{Scope: ScopeDefault, MonthlyTokenLimit: 1000, EnforcementMode: ModeBlock}},
		Usage:    &Usage{MonthlyTokens: 1000},
	}}, schema.FailOpen)

	decision, err := checker.Check(context.Background(), quotaToken())
	assert.ErrorIs(t, err, errUtils.ErrQuotaExceeded)
	assert.False(t, decision.Allowed)
	assert.Equal(t, types.ReasonMonthlyExceeded, decision.Reason)
}

func TestChecker_AlertModeAllowsExceeded(t *testing.T) {
	checker := newTestChecker(&fakeFetcher{status: &Status{
		Policies: []Policy{{Scope: ScopeDefault, MonthlyTokenLimit: 1000, EnforcementMode: ModeAlert}},
		Usage:    &Usage{MonthlyTokens: 5000},
	}}, schema.FailOpen)

	decision, err := checker.Check(context.Background(), quotaToken())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, types.ReasonMonthlyExceeded, decision.Reason)
}

func TestChecker_FailOpen(t *testing.T) {
	checker := newTestChecker(&fakeFetcher{err: errors.New("connection refused")}, schema.FailOpen)

	decision, err := checker.Check(context.Background(), quotaToken())
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, types.ReasonCheckFailed, decision.Reason)
}

func TestChecker_FailClosed(t *testing.T) {
	checker := newTestChecker(&fakeFetcher{err: errors.New("connection refused")}, schema.FailClosed)

	decision, err := checker.Check(context.Background(), quotaToken())
	assert.ErrorIs(t, err, errUtils.ErrQuotaUnavailable)
	assert.False(t, decision.Allowed)
	assert.Equal(t, types.ReasonCheckFailed, decision.Reason)
}

func TestClient_FetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(Status{
			Policies: []Policy{{Scope: ScopeDefault, MonthlyTokenLimit: 1000}},
			Usage:    &Usage{MonthlyTokens: 42},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	status, err := client.FetchStatus(context.Background(), quotaToken())
	require.NoError(t, err)
	require.Len(t, status.Policies, 1)
	assert.Equal(t, int64(42), status.Usage.MonthlyTokens)
}

func TestClient_FetchStatus_TokenIsOnlyIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The service must resolve identity from the bearer token alone;
		// the request itself carries no claims the client could forge.
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Empty(t, body)
		assert.Empty(t, r.URL.RawQuery)
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(Status{})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	_, err := client.FetchStatus(context.Background(), quotaToken())
	require.NoError(t, err)
}

func TestClient_FetchStatus_NoAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent without an access token")
	}))
	defer server.Close()

	token := quotaToken()
	token.AccessToken = ""
	client := NewClient(server.URL, server.Client())
	_, err := client.FetchStatus(context.Background(), token)
	assert.ErrorIs(t, err, errUtils.ErrQuotaUnavailable)
}

func TestClient_FetchStatus_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	_, err := client.FetchStatus(context.Background(), quotaToken())
	assert.ErrorIs(t, err, errUtils.ErrQuotaUnavailable)
}

func TestClient_FetchStatus_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1/check", &http.Client{Timeout: time.Second})
	_, err := client.FetchStatus(context.Background(), quotaToken())
	assert.ErrorIs(t, err, errUtils.ErrQuotaUnavailable)
}
