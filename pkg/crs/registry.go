// pkg/crs/registry.go - Explicit registry of CRS profiles
package crs

import (
	"fmt"
	"sort"
	"strings"
)

// Registry resolves (authority, identifier) pairs to profiles. It is built once and
// passed to whatever needs CRS resolution; it is safe for concurrent reads.
type Registry struct {
	profiles map[CoordinateReferenceSystem]Profile
}

// NewRegistry creates a registry holding the given profiles. Later duplicates win.
func NewRegistry(profiles ...Profile) *Registry {
	r := &Registry{profiles: make(map[CoordinateReferenceSystem]Profile, len(profiles))}
	for _, p := range profiles {
		if p == nil {
			continue
		}
		r.profiles[key(p.CRS())] = p
	}
	return r
}

// DefaultRegistry holds the geodetic, spherical Mercator and ellipsoidal Mercator profiles
func DefaultRegistry() *Registry {
	return NewRegistry(NewGlobalGeodetic(), NewSphericalMercator(), NewEllipsoidalMercator())
}

// Lookup finds a profile by authority (any case) and identifier
func (r *Registry) Lookup(authority string, identifier int) (Profile, error) {
	return r.Resolve(New(authority, identifier))
}

// Resolve finds the profile for a CRS identity
func (r *Registry) Resolve(c CoordinateReferenceSystem) (Profile, error) {
	if p, ok := r.profiles[key(c)]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCRS, c)
}

// Profiles returns every registered profile ordered by authority then identifier
func (r *Registry) Profiles() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].CRS(), out[j].CRS()
		if a.Authority != b.Authority {
			return a.Authority < b.Authority
		}
		return a.Identifier < b.Identifier
	})
	return out
}

// Len returns the number of registered profiles
func (r *Registry) Len() int {
	return len(r.profiles)
}

func key(c CoordinateReferenceSystem) CoordinateReferenceSystem {
	return CoordinateReferenceSystem{Authority: strings.ToUpper(c.Authority), Identifier: c.Identifier}
}
