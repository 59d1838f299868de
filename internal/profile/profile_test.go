package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		r, err := NewRegistry(DefaultProfiles(), "")
		require.NoError(t, err)

		assert.Equal(t, []string{"SP", "SM"}, r.Names())
		assert.Equal(t, "SP", r.Active().Name)
	})

	t.Run("normalizes names and prefixes", func(t *testing.T) {
		r, err := NewRegistry([]Profile{{Name: " sp "}}, "sp")
		require.NoError(t, err)

		p := r.Active()
		assert.Equal(t, "SP", p.Name)
		assert.Equal(t, "SP", p.KeychainPrefix)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := NewRegistry([]Profile{{Name: "SP"}, {Name: "sp"}}, "SP")
		assert.ErrorContains(t, err, "duplicate")
	})

	t.Run("rejects empty set", func(t *testing.T) {
		_, err := NewRegistry(nil, "")
		assert.Error(t, err)
	})

	t.Run("rejects unknown default", func(t *testing.T) {
		_, err := NewRegistry(DefaultProfiles(), "XX")
		assert.ErrorContains(t, err, "XX")
	})
}

func TestRegistrySetActive(t *testing.T) {
	r, err := NewRegistry(DefaultProfiles(), "SP")
	require.NoError(t, err)

	assert.True(t, r.SetActive("sm"))
	assert.Equal(t, "SM", r.Active().Name)

	// Unknown names leave the active profile untouched.
	assert.False(t, r.SetActive("XX"))
	assert.Equal(t, "SM", r.Active().Name)
}

func TestRegistryResolve(t *testing.T) {
	r, err := NewRegistry(DefaultProfiles(), "SM")
	require.NoError(t, err)

	p, ok := r.Resolve("")
	assert.True(t, ok)
	assert.Equal(t, "SM", p.Name)

	p, ok = r.Resolve("sp")
	assert.True(t, ok)
	assert.Equal(t, "SP", p.Name)

	_, ok = r.Resolve("XX")
	assert.False(t, ok)
}

func TestRegistryList(t *testing.T) {
	r, err := NewRegistry(DefaultProfiles(), "SP")
	require.NoError(t, err)

	infos := r.List(func(p Profile) bool { return p.Name == "SM" })
	require.Len(t, infos, 2)

	assert.Equal(t, Info{Name: "SP", Active: true, Configured: false}, infos[0])
	assert.Equal(t, Info{Name: "SM", Active: false, Configured: true}, infos[1])

	// Nil probe leaves configured false.
	infos = r.List(nil)
	assert.False(t, infos[0].Configured)
}
