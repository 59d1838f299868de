// Package auth implements the Xero OAuth2 token lifecycle: the
// client-credentials flow, token refresh, tenant discovery, and secure
// per-profile token persistence.
package auth

import (
	"strings"
	"time"
)

// expiryBuffer is subtracted from the token's expiry when checking
// validity. A token within this window of real expiry is treated as
// expired so in-flight requests never carry a token that lapses
// mid-call.
const expiryBuffer = 60 * time.Second

// DefaultShortCodes maps known tenant display names to their
// user-friendly short codes. Tenants with unrecognised names get no
// short code.
var DefaultShortCodes = map[string]string{
	"SimpleMotion.Projects": "SP",
	"SimpleMotion":          "SM",
}

// Tenant is one Xero organisation (or practice) reachable under an
// authenticated connection. Immutable once constructed.
type Tenant struct {
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
	TenantType string `json:"tenant_type"` // ORGANISATION or PRACTICE
	ShortCode  string `json:"short_code,omitempty"`
}

// TokenSet is the persisted OAuth token record for one profile. It is
// replaced wholesale on every authentication or refresh; only TenantID
// mutates in place, on tenant switch.
type TokenSet struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresAt    int64    `json:"expires_at"` // wall-clock epoch seconds
	TokenType    string   `json:"token_type"`
	Scope        []string `json:"scope"`
	TenantID     string   `json:"tenant_id,omitempty"`
	Tenants      []Tenant `json:"tenants,omitempty"`
}

// IsExpired reports whether the access token is unusable at the given
// instant, applying the safety buffer.
func (t *TokenSet) IsExpired(now time.Time) bool {
	return now.Unix() >= t.ExpiresAt-int64(expiryBuffer.Seconds())
}

// ActiveTenant returns the tenant matching TenantID, or nil when the
// tenant list is empty or the ID references nothing in it.
func (t *TokenSet) ActiveTenant() *Tenant {
	if t.TenantID == "" {
		return nil
	}

	for i := range t.Tenants {
		if t.Tenants[i].TenantID == t.TenantID {
			return &t.Tenants[i]
		}
	}

	return nil
}

// ResolveTenant maps a tenant ID or short code to a tenant ID from the
// embedded tenant list. Exact ID matches win over short codes; short
// codes compare case-insensitively.
func (t *TokenSet) ResolveTenant(idOrCode string) (string, bool) {
	for i := range t.Tenants {
		if t.Tenants[i].TenantID == idOrCode {
			return t.Tenants[i].TenantID, true
		}
	}

	for i := range t.Tenants {
		code := t.Tenants[i].ShortCode
		if code != "" && strings.EqualFold(code, idOrCode) {
			return t.Tenants[i].TenantID, true
		}
	}

	return "", false
}
