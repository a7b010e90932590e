package scope

import "strings"

// Wildcard is the scope that grants unconditional access. Only the admin
// role carries it.
const Wildcard = "*"

// Role identifies a platform role. The set of roles is closed; use
// [ParseRole] to normalize free-form role strings from tokens or records.
type Role string

const (
	// RoleAdmin is the operator role. Its scope set is the wildcard.
	RoleAdmin Role = "admin"
	// RoleUser is the baseline authenticated-customer role.
	RoleUser Role = "user"
)

// baseline is the scope set for RoleUser and for any role the catalog does
// not recognize. The list mirrors the platform's resource routes.
var baseline = []string{
	"auth:refresh",
	"profile:read",
	"profile:write",
	"restaurants:read",
	"restaurants:write",
	"menu-items:read",
	"menu-items:write",
	"orders:read",
	"orders:write",
	"carts:read",
	"carts:write",
	"customers:read",
	"customers:write",
	"deliveries:read",
	"deliveries:write",
	"alteracoes-perfil:read",
	"alteracoes-perfil:write",
}

var catalog = map[Role][]string{
	RoleAdmin: {Wildcard},
	RoleUser:  baseline,
}

// ParseRole normalizes a free-form role string to a catalog [Role].
// Matching is case-insensitive and ignores surrounding whitespace.
// Unknown or empty input resolves to [RoleUser].
func ParseRole(role string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleUser:
		return RoleUser
	default:
		return RoleUser
	}
}

// ScopesFor returns the scope set for the given role string. The result is
// de-duplicated and freshly allocated; callers may keep or mutate it.
func ScopesFor(role string) []string {
	scopes := catalog[ParseRole(role)]

	out := make([]string, 0, len(scopes))
	seen := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// HasScope reports whether the scope set grants the required scope.
// The wildcard short-circuits; otherwise membership is exact.
func HasScope(scopes []string, required string) bool {
	for _, s := range scopes {
		if s == Wildcard || s == required {
			return true
		}
	}
	return false
}

// HasRole reports whether the role string resolves to any of the allowed
// roles. An empty allow list means admin-only, matching the platform's
// route defaults.
func HasRole(role string, allowed ...Role) bool {
	if len(allowed) == 0 {
		allowed = []Role{RoleAdmin}
	}
	current := ParseRole(role)
	for _, a := range allowed {
		if current == a {
			return true
		}
	}
	return false
}
