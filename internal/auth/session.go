package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	xerrors "github.com/alexjbarnes/xero-mcp/internal/errors"
	"github.com/alexjbarnes/xero-mcp/internal/profile"
)

// Xero OAuth endpoints.
const (
	TokenURL       = "https://identity.xero.com/connect/token"
	ConnectionsURL = "https://api.xero.com/connections"
	authorizeURL   = "https://login.xero.com/identity/connect/authorize"
)

const (
	// httpClientTimeout bounds every token-endpoint and connections call
	// when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxAuthResponseBytes caps response body reads. Token and
	// connection payloads are small JSON documents.
	maxAuthResponseBytes = 1024 * 1024
)

// DefaultScopes are requested by the legacy authorization-code flow.
// Client-credentials connections carry their scopes on the Xero app
// configuration instead.
var DefaultScopes = []string{
	"openid",
	"profile",
	"email",
	"accounting.transactions",
	"accounting.contacts",
	"accounting.settings.read",
	"offline_access",
}

// AuthError reports a token-endpoint rejection (bad credentials,
// revoked connection). It carries the response body for diagnosis and
// is never retried.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("token endpoint rejected grant (%d): %s", e.StatusCode, e.Body)
}

// SessionConfig assembles a Session. ClientID and ClientSecret must be
// pre-resolved (see secrets.Resolver); empty values leave the session
// unconfigured rather than failing construction.
type SessionConfig struct {
	Profile      profile.Profile
	ClientID     string
	ClientSecret string
	Store        TokenStore

	// HTTPClient overrides the default 30s-timeout client.
	HTTPClient *http.Client

	// TokenURL and ConnectionsURL override the Xero endpoints in tests.
	TokenURL       string
	ConnectionsURL string

	// ShortCodes overrides DefaultShortCodes for tenant aliasing.
	ShortCodes map[string]string

	// RedirectURI is used only by the legacy authorization-code flow.
	RedirectURI string

	Logger *slog.Logger
}

// Session owns the OAuth token lifecycle for one profile: the
// client-credentials flow, the refresh/re-auth decision, and tenant
// discovery. It gives no mutual exclusion across concurrent callers;
// simultaneous re-authentication is an accepted race where the last
// persisted token wins.
type Session struct {
	profile      profile.Profile
	clientID     string
	clientSecret string
	store        TokenStore

	httpClient     *http.Client
	tokenURL       string
	connectionsURL string
	shortCodes     map[string]string
	redirectURI    string
	logger         *slog.Logger

	// now is swappable in tests for expiry arithmetic.
	now func() time.Time

	// state carries the CSRF token between AuthorizationURL and
	// ExchangeCode in the legacy flow.
	state string
}

// NewSession creates a session from the given configuration.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{
		profile:        cfg.Profile,
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		store:          cfg.Store,
		httpClient:     cfg.HTTPClient,
		tokenURL:       cfg.TokenURL,
		connectionsURL: cfg.ConnectionsURL,
		shortCodes:     cfg.ShortCodes,
		redirectURI:    cfg.RedirectURI,
		logger:         cfg.Logger,
		now:            time.Now,
	}

	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: httpClientTimeout}
	}

	if s.tokenURL == "" {
		s.tokenURL = TokenURL
	}

	if s.connectionsURL == "" {
		s.connectionsURL = ConnectionsURL
	}

	if s.shortCodes == nil {
		s.shortCodes = DefaultShortCodes
	}

	if s.redirectURI == "" {
		s.redirectURI = defaultRedirectURI
	}

	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	return s
}

// Profile returns the credential profile this session serves.
func (s *Session) Profile() profile.Profile { return s.profile }

// IsConfigured reports whether both client ID and secret resolved to
// non-empty values.
func (s *Session) IsConfigured() bool {
	return s.clientID != "" && s.clientSecret != ""
}

// tokenResponse is the token endpoint's JSON payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// AuthenticateClientCredentials runs the client-credentials grant for
// this profile's Custom Connection, discovers tenants, and persists the
// resulting token set, overwriting any previously stored token.
func (s *Session) AuthenticateClientCredentials(ctx context.Context) (*TokenSet, error) {
	if !s.IsConfigured() {
		return nil, xerrors.ErrNotConfigured
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
	}

	resp, err := s.postToken(ctx, form)
	if err != nil {
		return nil, err
	}

	tokens := s.tokenSetFrom(resp)

	// Tenant discovery failure is not an authentication failure: a
	// connection with no visible tenants still holds a valid token.
	tokens.Tenants = s.discoverTenants(ctx, tokens.AccessToken)
	if len(tokens.Tenants) > 0 {
		tokens.TenantID = tokens.Tenants[0].TenantID
	}

	if err := s.store.Save(tokens); err != nil {
		return nil, fmt.Errorf("persisting tokens: %w", err)
	}

	s.logger.Info("authenticated with xero",
		slog.String("profile", s.profile.Name),
		slog.Int("tenants", len(tokens.Tenants)),
	)

	return tokens, nil
}

// refreshTokens exchanges the current refresh token for a new token
// set. An AuthError here means the stored token is poisoned (revoked or
// stale refresh token), so it is deleted before the error surfaces.
func (s *Session) refreshTokens(ctx context.Context, current *TokenSet) (*TokenSet, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {current.RefreshToken},
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
	}

	resp, err := s.postToken(ctx, form)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			_ = s.store.Delete()
		}

		return nil, err
	}

	tokens := s.tokenSetFrom(resp)

	// Tenant bindings survive a refresh; only the credentials rotate.
	tokens.TenantID = current.TenantID
	tokens.Tenants = current.Tenants

	if err := s.store.Save(tokens); err != nil {
		return nil, fmt.Errorf("persisting tokens: %w", err)
	}

	return tokens, nil
}

// GetValidTokens returns a usable token set, re-authenticating once if
// the stored one is expired. Returns nil when no token is stored or
// re-authentication fails; failures never propagate past this boundary.
func (s *Session) GetValidTokens(ctx context.Context) *TokenSet {
	tokens := s.store.Load()
	if tokens == nil {
		return nil
	}

	if !tokens.IsExpired(s.now()) {
		return tokens
	}

	var (
		fresh *TokenSet
		err   error
	)

	// A missing refresh token signals "re-authenticate from scratch";
	// client-credentials connections typically have none.
	if tokens.RefreshToken != "" {
		fresh, err = s.refreshTokens(ctx, tokens)
	} else {
		fresh, err = s.AuthenticateClientCredentials(ctx)
	}

	if err != nil {
		s.logger.Warn("re-authentication failed",
			slog.String("profile", s.profile.Name),
			slog.String("error", err.Error()),
		)

		return nil
	}

	return fresh
}

// Disconnect removes the stored tokens for this profile.
func (s *Session) Disconnect() error {
	return s.store.Delete()
}

// TenantInfo is one entry of a tenant listing.
type TenantInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	ShortCode string `json:"short_code,omitempty"`
	Active    bool   `json:"active"`
}

// ListTenants returns the stored tenant list annotated with the active
// flag, or an empty list when unauthenticated.
func (s *Session) ListTenants() []TenantInfo {
	tokens := s.store.Load()
	if tokens == nil {
		return nil
	}

	infos := make([]TenantInfo, 0, len(tokens.Tenants))

	for _, t := range tokens.Tenants {
		infos = append(infos, TenantInfo{
			ID:        t.TenantID,
			Name:      t.TenantName,
			Type:      t.TenantType,
			ShortCode: t.ShortCode,
			Active:    t.TenantID == tokens.TenantID,
		})
	}

	return infos
}

// SetActiveTenant switches the stored active tenant by ID or short code.
func (s *Session) SetActiveTenant(idOrCode string) bool {
	return s.store.SetActiveTenant(idOrCode)
}

// Status summarises the session for status tools.
func (s *Session) Status() map[string]any {
	if !s.IsConfigured() {
		return map[string]any{
			"connected":  false,
			"configured": false,
			"message":    "Xero credentials not configured for profile " + s.profile.Name + ".",
		}
	}

	tokens := s.store.Load()
	if tokens == nil {
		return map[string]any{
			"connected":  false,
			"configured": true,
			"message":    "Not connected to Xero. Use xero_connect to authenticate.",
		}
	}

	expired := tokens.IsExpired(s.now())

	tenantName := "Unknown"
	if active := tokens.ActiveTenant(); active != nil {
		tenantName = active.TenantName
	}

	msg := "Connected to Xero (" + tenantName + ")"
	if expired {
		msg += " (token expired, will refresh)"
	}

	status := map[string]any{
		"connected":    true,
		"configured":   true,
		"expired":      expired,
		"tenant_id":    tokens.TenantID,
		"tenant_name":  tenantName,
		"tenant_count": len(tokens.Tenants),
		"scopes":       tokens.Scope,
		"message":      msg,
	}

	return status
}

// postToken sends a form-encoded grant request to the token endpoint.
func (s *Session) postToken(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}

	return &tr, nil
}

// tokenSetFrom converts a token-endpoint payload to a TokenSet with an
// absolute expiry.
func (s *Session) tokenSetFrom(resp *tokenResponse) *TokenSet {
	return &TokenSet{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    s.now().Unix() + resp.ExpiresIn,
		TokenType:    resp.TokenType,
		Scope:        strings.Fields(resp.Scope),
	}
}

// connection is one entry of the connections endpoint payload.
type connection struct {
	TenantID   string `json:"tenantId"`
	TenantName string `json:"tenantName"`
	TenantType string `json:"tenantType"`
}

// discoverTenants lists the organisations reachable under the given
// access token, in the order the API returns them. Any failure reads as
// "no tenants"; it never fails the surrounding authentication.
func (s *Session) discoverTenants(ctx context.Context, accessToken string) []Tenant {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.connectionsURL, nil)
	if err != nil {
		return nil
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAuthResponseBytes))
	if err != nil {
		return nil
	}

	var connections []connection
	if err := json.Unmarshal(body, &connections); err != nil {
		return nil
	}

	tenants := make([]Tenant, 0, len(connections))

	for _, c := range connections {
		name := c.TenantName
		if name == "" {
			name = "Unknown"
		}

		tenantType := c.TenantType
		if tenantType == "" {
			tenantType = "ORGANISATION"
		}

		tenants = append(tenants, Tenant{
			TenantID:   c.TenantID,
			TenantName: name,
			TenantType: tenantType,
			ShortCode:  s.shortCodes[name],
		})
	}

	return tenants
}
