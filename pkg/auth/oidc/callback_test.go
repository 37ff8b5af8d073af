package oidc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
)

func startTestCallbackServer(t *testing.T, state string) *callbackServer {
	t.Helper()
	// Port 0 lets the OS pick a free port; RedirectURI reflects the real one.
	server, err := newCallbackServer(0, state)
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })
	return server
}

func redirect(t *testing.T, server *callbackServer, params url.Values) *http.Response {
	t.Helper()
	resp, err := http.Get(server.RedirectURI() + "?" + params.Encode())
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestCallbackServer_DeliversCode(t *testing.T) {
	server := startTestCallbackServer(t, "state-1")

	resp := redirect(t, server, url.Values{"code": {"auth-code"}, "state": {"state-1"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code, err := server.WaitForCode(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "auth-code", code)
}

func TestCallbackServer_StateMismatch(t *testing.T) {
	server := startTestCallbackServer(t, "state-1")

	resp := redirect(t, server, url.Values{"code": {"auth-code"}, "state": {"forged"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err := server.WaitForCode(context.Background(), time.Second)
	assert.ErrorIs(t, err, errUtils.ErrAuthenticationTampering)
}

func TestCallbackServer_ProviderError(t *testing.T) {
	server := startTestCallbackServer(t, "state-1")

	redirect(t, server, url.Values{
		"error":             {"access_denied"},
		"error_description": {"User rejected the request"},
	})

	_, err := server.WaitForCode(context.Background(), time.Second)
	assert.ErrorIs(t, err, errUtils.ErrAuthenticationDenied)
	assert.Contains(t, err.Error(), "User rejected the request")
}

func TestCallbackServer_MissingCode(t *testing.T) {
	server := startTestCallbackServer(t, "state-1")

	redirect(t, server, url.Values{"state": {"state-1"}})

	_, err := server.WaitForCode(context.Background(), time.Second)
	assert.ErrorIs(t, err, errUtils.ErrAuthenticationDenied)
}

func TestCallbackServer_Timeout(t *testing.T) {
	server := startTestCallbackServer(t, "state-1")

	_, err := server.WaitForCode(context.Background(), 50*time.Millisecond)
	assert.ErrorIs(t, err, errUtils.ErrAuthenticationTimeout)
}

func TestCallbackServer_PortInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	port := listener.Addr().(*net.TCPAddr).Port

	_, err = newCallbackServer(port, "state")
	assert.ErrorIs(t, err, errUtils.ErrPortInUse)
	assert.True(t, PortBusy(port))
}

func TestCallbackServer_FirstResultWins(t *testing.T) {
	server := startTestCallbackServer(t, "state-1")

	redirect(t, server, url.Values{"code": {"first"}, "state": {"state-1"}})
	redirect(t, server, url.Values{"code": {"second"}, "state": {"state-1"}})

	code, err := server.WaitForCode(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", code)
}

func TestCallbackServer_RedirectURI(t *testing.T) {
	server := startTestCallbackServer(t, "s")
	port := server.listener.Addr().(*net.TCPAddr).Port
	assert.Equal(t, fmt.Sprintf("http://localhost:%d/callback", port), server.RedirectURI())
}
