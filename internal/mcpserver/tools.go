package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/alexjbarnes/xero-mcp/internal/auth"
	"github.com/alexjbarnes/xero-mcp/internal/profile"
	"github.com/alexjbarnes/xero-mcp/internal/secrets"
)

// RegisterTools adds all Xero tools to the given MCP server.
func RegisterTools(server *mcp.Server, s *Server) {
	registerAuthTools(server, s)
	registerContactTools(server, s)
	registerQuoteTools(server, s)
	registerInvoiceTools(server, s)
	registerPurchaseOrderTools(server, s)
	registerPayrollTools(server, s)
}

func registerAuthTools(server *mcp.Server, s *Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_auth_status",
		Description: "Check the Xero connection status for a profile: configured, connected, active tenant, token expiry.",
	}, s.authStatusHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_connect",
		Description: "Authenticate a profile with Xero using its Custom Connection credentials and discover its tenants.",
	}, s.connectHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_connect_all",
		Description: "Authenticate every configured profile with Xero concurrently. Unconfigured profiles are skipped.",
	}, s.connectAllHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_disconnect",
		Description: "Remove the stored Xero tokens for a profile. Credentials are kept; reconnect with xero_connect.",
	}, s.disconnectHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_list_tenants",
		Description: "List the Xero organisations (tenants) available to a profile, with the active one marked.",
	}, s.listTenantsHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_set_tenant",
		Description: "Switch a profile's active Xero tenant by tenant ID or short code.",
	}, s.setTenantHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_list_profiles",
		Description: "List the configured credential profiles, with the active one marked and a configured flag per profile.",
	}, s.listProfilesHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_set_profile",
		Description: "Switch the active credential profile used by tools that do not name one.",
	}, s.setProfileHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_set_credential",
		Description: "Store a Xero client credential (client_id or client_secret) for a profile in the OS secret store.",
	}, s.setCredentialHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_delete_credential",
		Description: "Delete a stored Xero client credential (client_id or client_secret) for a profile.",
	}, s.deleteCredentialHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_list_credentials",
		Description: "Show which credentials are present in the secret store for each profile. Never returns secret values.",
	}, s.listCredentialsHandler())

	mcp.AddTool(server, &mcp.Tool{
		Name:        "xero_delete_tokens",
		Description: "Delete the stored token record for a profile directly, without needing configured credentials.",
	}, s.deleteTokensHandler())
}

// --- Input types ---
// The MCP SDK infers JSON schema from these struct types via jsonschema tags.

// ProfileInput selects a profile, defaulting to the active one.
type ProfileInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// SetTenantInput holds parameters for xero_set_tenant.
type SetTenantInput struct {
	Tenant  string `json:"tenant" jsonschema:"required,tenant ID or short code"`
	Profile string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
}

// SetProfileInput holds parameters for xero_set_profile.
type SetProfileInput struct {
	Profile string `json:"profile" jsonschema:"required,profile name to activate"`
}

// CredentialInput holds parameters for xero_set_credential.
type CredentialInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
	Kind    string `json:"kind" jsonschema:"required,credential kind: client_id or client_secret"`
	Value   string `json:"value" jsonschema:"required,credential value to store"`
}

// DeleteCredentialInput holds parameters for xero_delete_credential.
type DeleteCredentialInput struct {
	Profile string `json:"profile,omitempty" jsonschema:"profile name, defaults to the active profile"`
	Kind    string `json:"kind" jsonschema:"required,credential kind: client_id or client_secret"`
}

// --- Output types ---

// StatusResult reports the connection state of one profile.
type StatusResult struct {
	Profile string         `json:"profile"`
	Status  map[string]any `json:"status"`
}

// ConnectResult reports a successful authentication.
type ConnectResult struct {
	Profile     string `json:"profile"`
	TenantID    string `json:"tenant_id,omitempty"`
	TenantName  string `json:"tenant_name,omitempty"`
	TenantCount int    `json:"tenant_count"`
	ExpiresAt   int64  `json:"expires_at"`
	Message     string `json:"message"`
}

// ConnectAllResult reports the per-profile outcome of xero_connect_all.
type ConnectAllResult struct {
	Results map[string]string `json:"results"`
}

// TenantsResult lists a profile's tenants.
type TenantsResult struct {
	Profile string            `json:"profile"`
	Tenants []auth.TenantInfo `json:"tenants"`
}

// ProfilesResult lists the registry's profiles.
type ProfilesResult struct {
	Profiles []profile.Info `json:"profiles"`
}

// CredentialStatus reports which credentials exist for one profile.
type CredentialStatus struct {
	Profile         string `json:"profile"`
	HasClientID     bool   `json:"has_client_id"`
	HasClientSecret bool   `json:"has_client_secret"`
}

// CredentialsResult lists credential presence per profile.
type CredentialsResult struct {
	Credentials []CredentialStatus `json:"credentials"`
}

// MessageResult is a plain confirmation message.
type MessageResult struct {
	Message string `json:"message"`
}

// --- Handlers ---

func (s *Server) authStatusHandler() mcp.ToolHandlerFor[ProfileInput, *StatusResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProfileInput) (*mcp.CallToolResult, *StatusResult, error) {
		sess, err := s.session(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		result := &StatusResult{
			Profile: sess.Profile().Name,
			Status:  sess.Status(),
		}

		return textResult(result), result, nil
	}
}

func (s *Server) connectHandler() mcp.ToolHandlerFor[ProfileInput, *ConnectResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProfileInput) (*mcp.CallToolResult, *ConnectResult, error) {
		sess, err := s.session(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		tokens, err := sess.AuthenticateClientCredentials(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting profile %s: %w", sess.Profile().Name, err)
		}

		result := &ConnectResult{
			Profile:     sess.Profile().Name,
			TenantID:    tokens.TenantID,
			TenantCount: len(tokens.Tenants),
			ExpiresAt:   tokens.ExpiresAt,
			Message:     "Connected to Xero",
		}

		if active := tokens.ActiveTenant(); active != nil {
			result.TenantName = active.TenantName
			result.Message = "Connected to Xero (" + active.TenantName + ")"
		}

		return textResult(result), result, nil
	}
}

func (s *Server) connectAllHandler() mcp.ToolHandlerFor[struct{}, *ConnectAllResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, *ConnectAllResult, error) {
		result := &ConnectAllResult{Results: make(map[string]string)}

		var (
			mu sync.Mutex
			g  errgroup.Group
		)

		for _, name := range s.opts.Registry.Names() {
			sess, err := s.session(ctx, name)
			if err != nil {
				mu.Lock()
				result.Results[name] = "error: " + err.Error()
				mu.Unlock()

				continue
			}

			if !sess.IsConfigured() {
				mu.Lock()
				result.Results[name] = "skipped: credentials not configured"
				mu.Unlock()

				continue
			}

			g.Go(func() error {
				outcome := "connected"

				tokens, err := sess.AuthenticateClientCredentials(ctx)
				switch {
				case err != nil:
					outcome = "error: " + err.Error()
				case tokens.ActiveTenant() != nil:
					outcome = "connected to " + tokens.ActiveTenant().TenantName
				}

				mu.Lock()
				result.Results[sess.Profile().Name] = outcome
				mu.Unlock()

				return nil
			})
		}

		_ = g.Wait()

		return textResult(result), result, nil
	}
}

func (s *Server) disconnectHandler() mcp.ToolHandlerFor[ProfileInput, *MessageResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProfileInput) (*mcp.CallToolResult, *MessageResult, error) {
		sess, err := s.session(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		if err := sess.Disconnect(); err != nil {
			return nil, nil, fmt.Errorf("removing tokens: %w", err)
		}

		result := &MessageResult{Message: "Disconnected profile " + sess.Profile().Name + " from Xero"}

		return textResult(result), result, nil
	}
}

func (s *Server) listTenantsHandler() mcp.ToolHandlerFor[ProfileInput, *TenantsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProfileInput) (*mcp.CallToolResult, *TenantsResult, error) {
		sess, err := s.session(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		result := &TenantsResult{
			Profile: sess.Profile().Name,
			Tenants: sess.ListTenants(),
		}

		return textResult(result), result, nil
	}
}

func (s *Server) setTenantHandler() mcp.ToolHandlerFor[SetTenantInput, *MessageResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SetTenantInput) (*mcp.CallToolResult, *MessageResult, error) {
		sess, err := s.session(ctx, input.Profile)
		if err != nil {
			return nil, nil, err
		}

		if !sess.SetActiveTenant(input.Tenant) {
			return nil, nil, fmt.Errorf("tenant %q not found for profile %s; use xero_list_tenants",
				input.Tenant, sess.Profile().Name)
		}

		result := &MessageResult{Message: "Active tenant switched to " + input.Tenant}

		return textResult(result), result, nil
	}
}

func (s *Server) listProfilesHandler() mcp.ToolHandlerFor[struct{}, *ProfilesResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, *ProfilesResult, error) {
		result := &ProfilesResult{
			Profiles: s.opts.Registry.List(func(p profile.Profile) bool {
				return s.opts.Resolver.Configured(ctx, p.KeychainPrefix)
			}),
		}

		return textResult(result), result, nil
	}
}

func (s *Server) setProfileHandler() mcp.ToolHandlerFor[SetProfileInput, *MessageResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input SetProfileInput) (*mcp.CallToolResult, *MessageResult, error) {
		if !s.opts.Registry.SetActive(input.Profile) {
			return nil, nil, fmt.Errorf("unknown profile %q, valid profiles: %v",
				input.Profile, s.opts.Registry.Names())
		}

		result := &MessageResult{Message: "Active profile switched to " + s.opts.Registry.Active().Name}

		return textResult(result), result, nil
	}
}

// credentialService maps a credential kind to its secret-store service
// name for a profile.
func credentialService(kind, keychainPrefix string) (string, error) {
	switch kind {
	case "client_id":
		return secrets.ClientIDService(keychainPrefix), nil
	case "client_secret":
		return secrets.ClientSecretService(keychainPrefix), nil
	default:
		return "", fmt.Errorf("unknown credential kind %q, expected client_id or client_secret", kind)
	}
}

func (s *Server) setCredentialHandler() mcp.ToolHandlerFor[CredentialInput, *MessageResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CredentialInput) (*mcp.CallToolResult, *MessageResult, error) {
		p, err := s.resolveProfile(input.Profile)
		if err != nil {
			return nil, nil, err
		}

		if input.Value == "" {
			return nil, nil, fmt.Errorf("credential value must not be empty")
		}

		service, err := credentialService(input.Kind, p.KeychainPrefix)
		if err != nil {
			return nil, nil, err
		}

		if err := s.opts.Resolver.Backend().Store(ctx, service, secrets.Account, input.Value); err != nil {
			return nil, nil, fmt.Errorf("storing credential: %w", err)
		}

		// The cached session captured the old credentials.
		s.invalidate(p.Name)

		result := &MessageResult{Message: "Stored " + input.Kind + " for profile " + p.Name}

		return textResult(result), result, nil
	}
}

func (s *Server) deleteCredentialHandler() mcp.ToolHandlerFor[DeleteCredentialInput, *MessageResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DeleteCredentialInput) (*mcp.CallToolResult, *MessageResult, error) {
		p, err := s.resolveProfile(input.Profile)
		if err != nil {
			return nil, nil, err
		}

		service, err := credentialService(input.Kind, p.KeychainPrefix)
		if err != nil {
			return nil, nil, err
		}

		if err := s.opts.Resolver.Backend().Delete(ctx, service, secrets.Account); err != nil {
			return nil, nil, fmt.Errorf("deleting credential: %w", err)
		}

		s.invalidate(p.Name)

		result := &MessageResult{Message: "Deleted " + input.Kind + " for profile " + p.Name}

		return textResult(result), result, nil
	}
}

func (s *Server) listCredentialsHandler() mcp.ToolHandlerFor[struct{}, *CredentialsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, *CredentialsResult, error) {
		backend := s.opts.Resolver.Backend()

		result := &CredentialsResult{}

		for _, name := range s.opts.Registry.Names() {
			p, _ := s.opts.Registry.Get(name)

			status := CredentialStatus{Profile: p.Name}

			if v, err := backend.Lookup(ctx, secrets.ClientIDService(p.KeychainPrefix), secrets.Account); err == nil && v != "" {
				status.HasClientID = true
			}

			if v, err := backend.Lookup(ctx, secrets.ClientSecretService(p.KeychainPrefix), secrets.Account); err == nil && v != "" {
				status.HasClientSecret = true
			}

			result.Credentials = append(result.Credentials, status)
		}

		return textResult(result), result, nil
	}
}

func (s *Server) deleteTokensHandler() mcp.ToolHandlerFor[ProfileInput, *MessageResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input ProfileInput) (*mcp.CallToolResult, *MessageResult, error) {
		p, err := s.resolveProfile(input.Profile)
		if err != nil {
			return nil, nil, err
		}

		if err := s.opts.Stores(p).Delete(); err != nil {
			return nil, nil, fmt.Errorf("deleting tokens: %w", err)
		}

		result := &MessageResult{Message: "Deleted stored tokens for profile " + p.Name}

		return textResult(result), result, nil
	}
}

// textResult builds a CallToolResult with JSON text content from any value.
// This provides the unstructured content alongside the structured output
// that the SDK populates automatically.
func textResult(v interface{}) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("error marshaling result: %v", err)}},
			IsError: true,
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
