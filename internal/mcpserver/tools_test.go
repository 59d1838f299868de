package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexjbarnes/xero-mcp/internal/auth"
	"github.com/alexjbarnes/xero-mcp/internal/profile"
	"github.com/alexjbarnes/xero-mcp/internal/secrets"
)

// memoryBackend is an in-memory secrets.Backend for tool tests.
type memoryBackend struct {
	entries map[string]string
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{entries: make(map[string]string)}
}

func (m *memoryBackend) Lookup(_ context.Context, service, account string) (string, error) {
	v, ok := m.entries[service+"/"+account]
	if !ok {
		return "", secrets.ErrNotFound
	}

	return v, nil
}

func (m *memoryBackend) Store(_ context.Context, service, account, value string) error {
	m.entries[service+"/"+account] = value
	return nil
}

func (m *memoryBackend) Delete(_ context.Context, service, account string) error {
	delete(m.entries, service+"/"+account)
	return nil
}

func (m *memoryBackend) Available() bool { return true }

// fixture wires a complete server against fake Xero endpoints: identity,
// connections, and the accounting API.
type fixture struct {
	session *mcp.ClientSession
	backend *memoryBackend
}

// testSetup registers the tools on an MCP server backed by fake Xero
// endpoints and returns a connected client session. Only the SP profile
// has credentials.
func testSetup(t *testing.T) *fixture {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/connect/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "test-access",
			"expires_in": 1800,
			"token_type": "Bearer",
			"scope": "accounting.transactions accounting.contacts"
		}`))
	})

	mux.HandleFunc("/connections", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"tenantId": "t1", "tenantName": "SimpleMotion.Projects", "tenantType": "ORGANISATION"},
			{"tenantId": "t2", "tenantName": "SimpleMotion", "tenantType": "ORGANISATION"}
		]`))
	})

	mux.HandleFunc("/api.xro/2.0/Contacts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Contacts": [{"ContactID": "c-1", "Name": "Acme"}]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	registry, err := profile.NewRegistry(profile.DefaultProfiles(), "SP")
	require.NoError(t, err)

	backend := newMemoryBackend()
	require.NoError(t, backend.Store(t.Context(), secrets.ClientIDService("SP"), secrets.Account, "sp-id"))
	require.NoError(t, backend.Store(t.Context(), secrets.ClientSecretService("SP"), secrets.Account, "sp-secret"))

	db, err := auth.OpenBoltWithIdentity(filepath.Join(t.TempDir(), "tokens.db"), "test-host/1000:tester")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := New(Options{
		Registry:          registry,
		Resolver:          secrets.NewResolver(backend),
		Stores:            func(p profile.Profile) auth.TokenStore { return db.ForProfile(p.Name) },
		HTTPClient:        srv.Client(),
		TokenURL:          srv.URL + "/connect/token",
		ConnectionsURL:    srv.URL + "/connections",
		AccountingBaseURL: srv.URL + "/api.xro/2.0",
		PayrollBaseURL:    srv.URL + "/payroll.xro/1.0",
		MinInterval:       -1,
	})

	server := mcp.NewServer(
		&mcp.Implementation{Name: "xero-mcp-test", Version: "test"},
		nil,
	)
	RegisterTools(server, s)

	ctx := context.Background()
	t1, t2 := mcp.NewInMemoryTransports()
	_, err = server.Connect(ctx, t1, nil)
	require.NoError(t, err)

	client := mcp.NewClient(
		&mcp.Implementation{Name: "test-client", Version: "test"},
		nil,
	)
	session, err := client.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	return &fixture{session: session, backend: backend}
}

// callTool is a helper that calls a tool and returns the result.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)

	return result
}

// extractJSON unmarshals the first text content from a CallToolResult.
func extractJSON(t *testing.T, result *mcp.CallToolResult, dest interface{}) {
	t.Helper()

	require.NotEmpty(t, result.Content, "result has no content")
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "first content is not TextContent")
	require.NoError(t, json.Unmarshal([]byte(tc.Text), dest))
}

func TestListProfiles(t *testing.T) {
	f := testSetup(t)

	result := callTool(t, f.session, "xero_list_profiles", nil)
	require.False(t, result.IsError)

	var out ProfilesResult
	extractJSON(t, result, &out)

	require.Len(t, out.Profiles, 2)
	assert.Equal(t, profile.Info{Name: "SP", Active: true, Configured: true}, out.Profiles[0])
	assert.Equal(t, profile.Info{Name: "SM", Active: false, Configured: false}, out.Profiles[1])
}

func TestSetProfile(t *testing.T) {
	f := testSetup(t)

	result := callTool(t, f.session, "xero_set_profile", map[string]interface{}{"profile": "SM"})
	require.False(t, result.IsError)

	var profiles ProfilesResult
	extractJSON(t, callTool(t, f.session, "xero_list_profiles", nil), &profiles)
	assert.True(t, profiles.Profiles[1].Active)

	bad := callTool(t, f.session, "xero_set_profile", map[string]interface{}{"profile": "XX"})
	assert.True(t, bad.IsError)
}

func TestConnectAndStatus(t *testing.T) {
	f := testSetup(t)

	status := callTool(t, f.session, "xero_auth_status", nil)

	var before StatusResult
	extractJSON(t, status, &before)
	assert.Equal(t, false, before.Status["connected"])
	assert.Equal(t, true, before.Status["configured"])

	result := callTool(t, f.session, "xero_connect", nil)
	require.False(t, result.IsError)

	var connected ConnectResult
	extractJSON(t, result, &connected)
	assert.Equal(t, "SP", connected.Profile)
	assert.Equal(t, "t1", connected.TenantID)
	assert.Equal(t, "SimpleMotion.Projects", connected.TenantName)
	assert.Equal(t, 2, connected.TenantCount)

	var after StatusResult
	extractJSON(t, callTool(t, f.session, "xero_auth_status", nil), &after)
	assert.Equal(t, true, after.Status["connected"])
}

func TestConnectUnconfiguredProfile(t *testing.T) {
	f := testSetup(t)

	result := callTool(t, f.session, "xero_connect", map[string]interface{}{"profile": "SM"})
	assert.True(t, result.IsError)
}

func TestConnectAll(t *testing.T) {
	f := testSetup(t)

	result := callTool(t, f.session, "xero_connect_all", nil)
	require.False(t, result.IsError)

	var out ConnectAllResult
	extractJSON(t, result, &out)

	assert.Equal(t, "connected to SimpleMotion.Projects", out.Results["SP"])
	assert.Equal(t, "skipped: credentials not configured", out.Results["SM"])
}

func TestTenantSwitching(t *testing.T) {
	f := testSetup(t)

	callTool(t, f.session, "xero_connect", nil)

	var tenants TenantsResult
	extractJSON(t, callTool(t, f.session, "xero_list_tenants", nil), &tenants)
	require.Len(t, tenants.Tenants, 2)
	assert.True(t, tenants.Tenants[0].Active)

	result := callTool(t, f.session, "xero_set_tenant", map[string]interface{}{"tenant": "SM"})
	require.False(t, result.IsError)

	extractJSON(t, callTool(t, f.session, "xero_list_tenants", nil), &tenants)
	assert.False(t, tenants.Tenants[0].Active)
	assert.True(t, tenants.Tenants[1].Active)

	bad := callTool(t, f.session, "xero_set_tenant", map[string]interface{}{"tenant": "nope"})
	assert.True(t, bad.IsError)
}

func TestDisconnect(t *testing.T) {
	f := testSetup(t)

	callTool(t, f.session, "xero_connect", nil)

	result := callTool(t, f.session, "xero_disconnect", nil)
	require.False(t, result.IsError)

	var status StatusResult
	extractJSON(t, callTool(t, f.session, "xero_auth_status", nil), &status)
	assert.Equal(t, false, status.Status["connected"])
}

func TestCredentialLifecycle(t *testing.T) {
	f := testSetup(t)

	result := callTool(t, f.session, "xero_set_credential", map[string]interface{}{
		"profile": "SM",
		"kind":    "client_id",
		"value":   "sm-id",
	})
	require.False(t, result.IsError)

	var creds CredentialsResult
	extractJSON(t, callTool(t, f.session, "xero_list_credentials", nil), &creds)
	require.Len(t, creds.Credentials, 2)
	assert.True(t, creds.Credentials[1].HasClientID)
	assert.False(t, creds.Credentials[1].HasClientSecret)

	result = callTool(t, f.session, "xero_delete_credential", map[string]interface{}{
		"profile": "SM",
		"kind":    "client_id",
	})
	require.False(t, result.IsError)

	extractJSON(t, callTool(t, f.session, "xero_list_credentials", nil), &creds)
	assert.False(t, creds.Credentials[1].HasClientID)

	bad := callTool(t, f.session, "xero_set_credential", map[string]interface{}{
		"kind":  "password",
		"value": "x",
	})
	assert.True(t, bad.IsError)
}

func TestSetCredentialRefreshesSession(t *testing.T) {
	f := testSetup(t)

	// SM starts unconfigured; the failed connect caches that session.
	bad := callTool(t, f.session, "xero_connect", map[string]interface{}{"profile": "SM"})
	require.True(t, bad.IsError)

	for kind, value := range map[string]string{"client_id": "sm-id", "client_secret": "sm-secret"} {
		res := callTool(t, f.session, "xero_set_credential", map[string]interface{}{
			"profile": "SM", "kind": kind, "value": value,
		})
		require.False(t, res.IsError)
	}

	result := callTool(t, f.session, "xero_connect", map[string]interface{}{"profile": "SM"})
	assert.False(t, result.IsError, "new credentials must be picked up without a restart")
}

func TestDeleteTokens(t *testing.T) {
	f := testSetup(t)

	callTool(t, f.session, "xero_connect", nil)

	result := callTool(t, f.session, "xero_delete_tokens", map[string]interface{}{"profile": "SP"})
	require.False(t, result.IsError)

	var status StatusResult
	extractJSON(t, callTool(t, f.session, "xero_auth_status", nil), &status)
	assert.Equal(t, false, status.Status["connected"])
}

func TestListContactsTool(t *testing.T) {
	f := testSetup(t)

	callTool(t, f.session, "xero_connect", nil)

	result := callTool(t, f.session, "xero_list_contacts", map[string]interface{}{"search": "acme"})
	require.False(t, result.IsError)

	var out ListResult
	extractJSON(t, result, &out)
	assert.Equal(t, 1, out.Count)
}

func TestAPIToolUnauthenticated(t *testing.T) {
	f := testSetup(t)

	result := callTool(t, f.session, "xero_list_contacts", nil)
	assert.True(t, result.IsError)
}
