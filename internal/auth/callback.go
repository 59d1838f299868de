package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Legacy authorization-code flow. Custom Connections use the
// client-credentials grant; this path exists for standard Xero apps
// that require user consent in a browser.

const (
	// defaultRedirectURI is where the local callback listener accepts
	// the authorization code.
	defaultRedirectURI = "http://localhost:8742/callback"

	// callbackTimeout bounds the wait for the browser redirect.
	callbackTimeout = 300 * time.Second
)

// AuthorizationURL builds the user-facing consent URL and a fresh CSRF
// state token. Pass nil scopes for DefaultScopes.
func (s *Session) AuthorizationURL(scopes []string) (string, string, error) {
	if !s.IsConfigured() {
		return "", "", errors.New("xero credentials not configured")
	}

	state, err := randomState()
	if err != nil {
		return "", "", err
	}

	s.state = state

	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	params := url.Values{
		"response_type": {"code"},
		"client_id":     {s.clientID},
		"redirect_uri":  {s.redirectURI},
		"scope":         {strings.Join(scopes, " ")},
		"state":         {state},
	}

	return authorizeURL + "?" + params.Encode(), state, nil
}

// ExchangeCode trades an authorization code for tokens, verifies the
// CSRF state when both sides carry one, and persists the result.
func (s *Session) ExchangeCode(ctx context.Context, code, state string) (*TokenSet, error) {
	if state != "" && s.state != "" && state != s.state {
		return nil, errors.New("state mismatch, possible CSRF attack")
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {s.redirectURI},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
	}

	resp, err := s.postToken(ctx, form)
	if err != nil {
		return nil, err
	}

	tokens := s.tokenSetFrom(resp)

	tokens.Tenants = s.discoverTenants(ctx, tokens.AccessToken)
	if len(tokens.Tenants) > 0 {
		tokens.TenantID = tokens.Tenants[0].TenantID
	}

	if err := s.store.Save(tokens); err != nil {
		return nil, fmt.Errorf("persisting tokens: %w", err)
	}

	return tokens, nil
}

// WaitForCallback runs a localhost listener on the redirect port and
// returns the first authorization code delivered to it. The listener is
// torn down on every exit path: code received, OAuth error, timeout, or
// context cancellation.
func (s *Session) WaitForCallback(ctx context.Context) (string, error) {
	u, err := url.Parse(s.redirectURI)
	if err != nil {
		return "", fmt.Errorf("parsing redirect URI: %w", err)
	}

	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "80")
	}

	type callbackResult struct {
		code string
		err  error
	}

	// Buffered so a late handler never blocks after the wait gave up.
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(u.Path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if errMsg := q.Get("error"); errMsg != "" {
			writeCallbackPage(w, "Authentication Failed", "Error: "+errMsg)
			select {
			case results <- callbackResult{err: fmt.Errorf("oauth error: %s", errMsg)}:
			default:
			}

			return
		}

		code := q.Get("code")
		if code == "" {
			writeCallbackPage(w, "Error", "No authorization code received")
			select {
			case results <- callbackResult{err: errors.New("no authorization code received")}:
			default:
			}

			return
		}

		if state := q.Get("state"); state != s.state {
			writeCallbackPage(w, "Error", "Security check failed")
			select {
			case results <- callbackResult{err: errors.New("state mismatch")}:
			default:
			}

			return
		}

		writeCallbackPage(w, "Success!", "You can close this window.")
		select {
		case results <- callbackResult{code: code}:
		default:
		}
	})

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("starting callback listener: %w", err)
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		_ = server.Serve(listener)
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	ctx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()

	select {
	case r := <-results:
		return r.code, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for oauth callback: %w", ctx.Err())
	}
}

func writeCallbackPage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, "<html><body><h1>%s</h1><p>%s</p></body></html>", title, body)
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
