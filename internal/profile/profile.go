// Package profile holds the process-wide table of named Xero credential
// profiles. Each profile maps to one Custom Connection app and one token
// record; one profile is active at a time and is used as the default by
// tools that do not name a profile explicitly.
package profile

import (
	"fmt"
	"strings"
	"sync"
)

// Profile identifies one credential/tenant context.
type Profile struct {
	// Name is the short profile identifier, always upper-case (e.g. "SP").
	Name string `yaml:"name"`

	// KeychainPrefix prefixes the secure-storage service names for this
	// profile's credentials and token record. Defaults to Name.
	KeychainPrefix string `yaml:"keychain_prefix"`
}

// Info is one entry of a registry listing.
type Info struct {
	Name       string `json:"name"`
	Active     bool   `json:"active"`
	Configured bool   `json:"configured"`
}

// DefaultProfiles are the built-in credential profiles used when no
// profiles file is configured.
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: "SP", KeychainPrefix: "SP"}, // SimpleMotion.Projects
		{Name: "SM", KeychainPrefix: "SM"}, // SimpleMotion
	}
}

// Registry is the fixed set of profiles plus the currently active one.
// The profile set is read-only after construction; only the active
// pointer mutates. The active selection is process-local and resets to
// the default on every start.
type Registry struct {
	mu       sync.RWMutex
	profiles []Profile
	active   string
}

// NewRegistry builds a registry from the given profiles with the named
// default active. Profile names are upper-cased and must be unique.
func NewRegistry(profiles []Profile, defaultActive string) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("at least one profile is required")
	}

	seen := make(map[string]struct{}, len(profiles))
	normalized := make([]Profile, 0, len(profiles))

	for _, p := range profiles {
		p.Name = strings.ToUpper(strings.TrimSpace(p.Name))
		if p.Name == "" {
			return nil, fmt.Errorf("profile with empty name")
		}

		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}

		if p.KeychainPrefix == "" {
			p.KeychainPrefix = p.Name
		}

		seen[p.Name] = struct{}{}
		normalized = append(normalized, p)
	}

	active := strings.ToUpper(strings.TrimSpace(defaultActive))
	if active == "" {
		active = normalized[0].Name
	}

	if _, ok := seen[active]; !ok {
		return nil, fmt.Errorf("default profile %q not in profile set", defaultActive)
	}

	return &Registry{profiles: normalized, active: active}, nil
}

// Get returns the profile with the given name (case-insensitive).
func (r *Registry) Get(name string) (Profile, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))

	for _, p := range r.profiles {
		if p.Name == name {
			return p, true
		}
	}

	return Profile{}, false
}

// Active returns the currently active profile.
func (r *Registry) Active() Profile {
	r.mu.RLock()
	active := r.active
	r.mu.RUnlock()

	p, _ := r.Get(active)

	return p
}

// SetActive switches the active profile. Returns false without mutating
// state when the name is unknown.
func (r *Registry) SetActive(name string) bool {
	p, ok := r.Get(name)
	if !ok {
		return false
	}

	r.mu.Lock()
	r.active = p.Name
	r.mu.Unlock()

	return true
}

// Resolve returns the named profile, or the active profile when name is
// empty. The second return is false when a non-empty name is unknown.
func (r *Registry) Resolve(name string) (Profile, bool) {
	if strings.TrimSpace(name) == "" {
		return r.Active(), true
	}

	return r.Get(name)
}

// Names returns all profile names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		names = append(names, p.Name)
	}

	return names
}

// List returns an Info entry per profile. The configured flag is
// computed by the given callback, typically a credential-resolver probe.
func (r *Registry) List(configured func(Profile) bool) []Info {
	active := r.Active().Name

	infos := make([]Info, 0, len(r.profiles))

	for _, p := range r.profiles {
		info := Info{Name: p.Name, Active: p.Name == active}
		if configured != nil {
			info.Configured = configured(p)
		}

		infos = append(infos, info)
	}

	return infos
}
