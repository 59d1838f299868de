package auth

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationURL(t *testing.T) {
	sess, _ := newTestSession(t, newFakeIdentity())

	authURL, state, err := sess.AuthorizationURL(nil)
	require.NoError(t, err)
	require.NotEmpty(t, state)

	u, err := url.Parse(authURL)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, state, q.Get("state"))
	assert.Contains(t, q.Get("scope"), "offline_access")

	// Each call issues a fresh state token.
	_, state2, err := sess.AuthorizationURL(nil)
	require.NoError(t, err)
	assert.NotEqual(t, state, state2)
}

func TestAuthorizationURLUnconfigured(t *testing.T) {
	sess, _ := newTestSession(t, newFakeIdentity())
	sess.clientID = ""

	_, _, err := sess.AuthorizationURL(nil)
	assert.Error(t, err)
}

func TestExchangeCodeStateMismatch(t *testing.T) {
	fake := newFakeIdentity()
	sess, _ := newTestSession(t, fake)

	_, _, err := sess.AuthorizationURL(nil)
	require.NoError(t, err)

	_, err = sess.ExchangeCode(t.Context(), "code", "wrong-state")
	assert.ErrorContains(t, err, "state mismatch")
	assert.Zero(t, fake.tokenCalls())
}

func TestExchangeCode(t *testing.T) {
	fake := newFakeIdentity()
	fake.refreshToken = "refresh-1"

	sess, store := newTestSession(t, fake)

	_, state, err := sess.AuthorizationURL(nil)
	require.NoError(t, err)

	tokens, err := sess.ExchangeCode(t.Context(), "auth-code", state)
	require.NoError(t, err)

	assert.Equal(t, "authorization_code", fake.lastGrant())
	assert.Equal(t, "refresh-1", tokens.RefreshToken)
	assert.Equal(t, "t1", tokens.TenantID)
	require.NotNil(t, store.Load())
}
