// Package catalog defines the closed set of permission identifiers recognised
// by the authorization engine. The catalog is fixed at build time; roles may
// only reference permissions registered here.
package catalog

import (
	"errors"
	"sort"
	"strings"
)

// Permission is an opaque, case-sensitive capability identifier in canonical
// dotted form, e.g. "roles.edit" or "inventory.view".
type Permission string

// ErrUnknownPermission indicates an identifier outside the catalog.
var ErrUnknownPermission = errors.New("catalog: unknown permission")

// String returns the raw identifier.
func (p Permission) String() string { return string(p) }

// Definition pairs a permission with its human-readable description.
type Definition struct {
	Permission  Permission `json:"permission"`
	Description string     `json:"description"`
}

// Normalize rewrites a raw identifier into canonical form. Legacy call sites
// used a colon separator ("inventory:view"); the dotted form is canonical.
// Case is preserved: identifiers are case-sensitive, and "Users.View" is as
// unknown to the catalog as any other stranger.
func Normalize(raw string) Permission {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ":", ".")
	return Permission(s)
}

// Parse normalizes raw and validates it against the catalog.
func Parse(raw string) (Permission, error) {
	p := Normalize(raw)
	if !IsKnown(p) {
		return "", ErrUnknownPermission
	}
	return p, nil
}

// IsKnown reports whether the permission is a catalog member.
func IsKnown(p Permission) bool {
	_, ok := registry[p]
	return ok
}

// Describe returns the human-readable description for a permission, or the
// empty string when the permission is not in the catalog.
func Describe(p Permission) string {
	return registry[p]
}

// All returns every catalog definition ordered by identifier.
func All() []Definition {
	defs := make([]Definition, 0, len(registry))
	for p, desc := range registry {
		defs = append(defs, Definition{Permission: p, Description: desc})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Permission < defs[j].Permission })
	return defs
}
