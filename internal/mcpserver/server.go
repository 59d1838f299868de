// Package mcpserver registers MCP tools that expose the Xero
// integration. It adapts the auth and xero packages to the MCP SDK's
// tool handler interface and owns the per-profile session cache.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/alexjbarnes/xero-mcp/internal/auth"
	"github.com/alexjbarnes/xero-mcp/internal/profile"
	"github.com/alexjbarnes/xero-mcp/internal/secrets"
	"github.com/alexjbarnes/xero-mcp/internal/xero"
)

// StoreFactory builds the token store for one profile. Chosen at
// startup from the token-store configuration.
type StoreFactory func(p profile.Profile) auth.TokenStore

// Options assembles a Server.
type Options struct {
	Registry *profile.Registry
	Resolver *secrets.Resolver
	Stores   StoreFactory
	Logger   *slog.Logger

	// HTTPClient and the URL fields override external endpoints in
	// tests.
	HTTPClient        *http.Client
	TokenURL          string
	ConnectionsURL    string
	AccountingBaseURL string
	PayrollBaseURL    string

	// MinInterval passes through to the API client throttle; negative
	// disables it (tests).
	MinInterval time.Duration
}

// Server carries the shared state behind the MCP tools: the profile
// registry, the credential resolver, and lazily built per-profile
// sessions and API clients. Sessions are cached until their
// credentials change.
type Server struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*auth.Session
	clients  map[string]*xero.Client
}

// New creates a Server over the given options.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		opts:     opts,
		sessions: make(map[string]*auth.Session),
		clients:  make(map[string]*xero.Client),
	}
}

// resolveProfile maps an optional tool argument to a registry profile,
// defaulting to the active one.
func (s *Server) resolveProfile(name string) (profile.Profile, error) {
	p, ok := s.opts.Registry.Resolve(name)
	if !ok {
		return profile.Profile{}, fmt.Errorf("unknown profile %q, valid profiles: %v",
			name, s.opts.Registry.Names())
	}

	return p, nil
}

// session returns the cached session for a profile, building it on
// first use with credentials resolved at that moment.
func (s *Server) session(ctx context.Context, name string) (*auth.Session, error) {
	p, err := s.resolveProfile(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[p.Name]; ok {
		return sess, nil
	}

	sess := auth.NewSession(auth.SessionConfig{
		Profile:        p,
		ClientID:       s.opts.Resolver.ClientID(ctx, p.KeychainPrefix, ""),
		ClientSecret:   s.opts.Resolver.ClientSecret(ctx, p.KeychainPrefix, ""),
		Store:          s.opts.Stores(p),
		HTTPClient:     s.opts.HTTPClient,
		TokenURL:       s.opts.TokenURL,
		ConnectionsURL: s.opts.ConnectionsURL,
		Logger:         s.opts.Logger,
	})

	s.sessions[p.Name] = sess

	return sess, nil
}

// client returns the cached API client for a profile, building it over
// the profile's session on first use.
func (s *Server) client(ctx context.Context, name string) (*xero.Client, error) {
	sess, err := s.session(ctx, name)
	if err != nil {
		return nil, err
	}

	p := sess.Profile()

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[p.Name]; ok {
		return c, nil
	}

	c := xero.NewClient(xero.ClientConfig{
		Tokens:            sess,
		HTTPClient:        s.opts.HTTPClient,
		AccountingBaseURL: s.opts.AccountingBaseURL,
		PayrollBaseURL:    s.opts.PayrollBaseURL,
		MinInterval:       s.opts.MinInterval,
		Logger:            s.opts.Logger,
	})

	s.clients[p.Name] = c

	return c, nil
}

// invalidate drops the cached session and client for a profile so the
// next use re-resolves credentials. Called after credential changes.
func (s *Server) invalidate(profileName string) {
	s.mu.Lock()
	delete(s.sessions, profileName)
	delete(s.clients, profileName)
	s.mu.Unlock()
}
