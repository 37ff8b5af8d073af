package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/auth/types"
)

// Status is the quota service's view of a user: the applicable policies,
// current usage, and any administrative override.
type Status struct {
	Policies []Policy  `json:"policies"`
	Usage    *Usage    `json:"usage,omitempty"`
	Override *Override `json:"override,omitempty"`
}

// Client fetches quota status over HTTPS, authorizing with the user's OIDC
// access token.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a quota API client.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// FetchStatus retrieves the user's quota status. The bearer token is the only
// identity the service sees: it resolves the user and groups from the token's
// own claims, so the request body carries nothing for a caller to forge.
func (c *Client) FetchStatus(ctx context.Context, token *types.IdentityToken) (*Status, error) {
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token to authorize the check", errUtils.ErrQuotaUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", errUtils.ErrQuotaUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUtils.ErrQuotaUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", errUtils.ErrQuotaUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: quota service returned HTTP %d", errUtils.ErrQuotaUnavailable, resp.StatusCode)
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", errUtils.ErrQuotaUnavailable, err)
	}
	return &status, nil
}
