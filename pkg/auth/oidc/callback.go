package oidc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	errUtils "github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/errors"
	"github.com/aws-solutions-library-samples/guidance-for-claude-code-with-amazon-bedrock/pkg/logger"
)

// CallbackPath is the loopback redirect path registered with the provider.
const CallbackPath = "/callback"

const successPage = `<!DOCTYPE html>
<html>
<head><title>Authentication Complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h2>Authentication complete</h2>
<p>You can close this window and return to your terminal.</p>
</body>
</html>`

const failurePage = `<!DOCTYPE html>
<html>
<head><title>Authentication Failed</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4em;">
<h2>Authentication failed</h2>
<p>%s</p>
<p>Return to your terminal for details.</p>
</body>
</html>`

// callbackResult is what the redirect handler captures from the provider.
type callbackResult struct {
	code string
	err  error
}

// callbackServer is a single-use loopback HTTP server that receives the
// authorization code redirect. The port is fixed (registered with the
// provider), so a bind failure means another invocation is mid-flow.
type callbackServer struct {
	listener net.Listener
	server   *http.Server
	state    string
	results  chan callbackResult
}

// newCallbackServer binds the loopback port. Returns ErrPortInUse when the
// port is held by a concurrent authentication flow.
func newCallbackServer(port int, state string) (*callbackServer, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("%w: port %d: %v", errUtils.ErrPortInUse, port, err)
	}

	s := &callbackServer{
		listener: listener,
		state:    state,
		results:  make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, s.handleCallback)
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Debug("Callback server stopped", "error", err)
		}
	}()

	return s, nil
}

// RedirectURI returns the redirect URI matching the bound port.
func (s *callbackServer) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d%s", s.listener.Addr().(*net.TCPAddr).Port, CallbackPath)
}

func (s *callbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		description := query.Get("error_description")
		if description == "" {
			description = errCode
		}
		s.fail(w, fmt.Errorf("%w: %s", errUtils.ErrAuthenticationDenied, description))
		return
	}

	if query.Get("state") != s.state {
		s.fail(w, errUtils.ErrAuthenticationTampering)
		return
	}

	code := query.Get("code")
	if code == "" {
		s.fail(w, fmt.Errorf("%w: redirect carried no authorization code", errUtils.ErrAuthenticationDenied))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, successPage)
	s.deliver(callbackResult{code: code})
}

func (s *callbackServer) fail(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, failurePage, err.Error())
	s.deliver(callbackResult{err: err})
}

func (s *callbackServer) deliver(result callbackResult) {
	select {
	case s.results <- result:
	default:
		// A result was already delivered; ignore duplicate redirects.
	}
}

// WaitForCode blocks until the redirect arrives, the timeout lapses, or the
// context is cancelled.
func (s *callbackServer) WaitForCode(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-s.results:
		if result.err != nil {
			return "", result.err
		}
		return result.code, nil
	case <-timer.C:
		return "", fmt.Errorf("%w: no response within %s", errUtils.ErrAuthenticationTimeout, timeout)
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %v", errUtils.ErrAuthenticationTimeout, ctx.Err())
	}
}

// Close shuts the server down and releases the port.
func (s *callbackServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// PortBusy reports whether the loopback port is currently bound by another
// process, without holding it.
func PortBusy(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return true
	}
	listener.Close()
	return false
}
