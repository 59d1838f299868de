package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSetIsExpired(t *testing.T) {
	expiresAt := int64(10_000)
	tokens := &TokenSet{AccessToken: "tok", ExpiresAt: expiresAt}

	tests := []struct {
		name    string
		now     int64
		expired bool
	}{
		{"well before expiry", expiresAt - 3600, false},
		{"just outside buffer", expiresAt - 61, false},
		{"exactly at buffer boundary", expiresAt - 60, true},
		{"inside buffer", expiresAt - 30, true},
		{"at expiry", expiresAt, true},
		{"after expiry", expiresAt + 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tokens.IsExpired(time.Unix(tt.now, 0)))
		})
	}
}

func TestTokenSetActiveTenant(t *testing.T) {
	tokens := &TokenSet{
		TenantID: "t2",
		Tenants: []Tenant{
			{TenantID: "t1", TenantName: "First"},
			{TenantID: "t2", TenantName: "Second"},
		},
	}

	active := tokens.ActiveTenant()
	require.NotNil(t, active)
	assert.Equal(t, "Second", active.TenantName)

	tokens.TenantID = "missing"
	assert.Nil(t, tokens.ActiveTenant())

	empty := &TokenSet{}
	assert.Nil(t, empty.ActiveTenant())
}

func TestTokenSetResolveTenant(t *testing.T) {
	tokens := &TokenSet{
		Tenants: []Tenant{
			{TenantID: "t1", TenantName: "SimpleMotion.Projects", ShortCode: "SP"},
			{TenantID: "t2", TenantName: "SimpleMotion", ShortCode: "SM"},
		},
	}

	tests := []struct {
		name     string
		input    string
		wantID   string
		wantOK   bool
	}{
		{"exact tenant ID", "t2", "t2", true},
		{"short code", "SP", "t1", true},
		{"short code case-insensitive", "sm", "t2", true},
		{"unknown", "nope", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tokens.ResolveTenant(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestSealRoundTrip(t *testing.T) {
	key := deriveSealKey("host-a/1000:alice")

	plaintext := []byte(`{"access_token":"secret"}`)

	sealed, err := seal(key, plaintext)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "secret")

	opened, err := open(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)

	// A different identity derives a different key and cannot open.
	otherKey := deriveSealKey("host-b/1000:alice")
	_, err = open(otherKey, sealed)
	assert.Error(t, err)

	// Truncated records fail cleanly.
	_, err = open(key, sealed[:8])
	assert.Error(t, err)
}
