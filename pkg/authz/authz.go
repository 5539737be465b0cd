// Package authz implements capability checks for the management plane.
//
// Authorization is a pure function over (caller roles, required permission
// code): roles map to sets of permission codes, and a code matches either
// exactly or through a trailing wildcard segment ("config:*" grants every
// "config:..." code). There is no policy engine and no I/O on the check path.
package authz

import "strings"

// Permission codes understood by the administrative API.
const (
	PermConfigRead      = "config:read"
	PermAppWrite        = "config:app:write"
	PermItemWrite       = "config:item:write"
	PermPublishWrite    = "config:publish:write"
	PermPublishRollback = "config:publish:rollback"
)

// Built-in roles. Operators may extend the mapping via SetRolePermissions
// before the server starts serving.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleViewer   = "viewer"
)

var rolePermissions = map[string][]string{
	RoleAdmin: {"*"},
	RoleOperator: {
		PermConfigRead,
		PermItemWrite,
		PermPublishWrite,
		PermPublishRollback,
	},
	RoleViewer: {PermConfigRead},
}

// SetRolePermissions replaces the permission codes granted to a role.
// Not safe for concurrent use with Allow; call during startup only.
func SetRolePermissions(role string, perms []string) {
	rolePermissions[role] = perms
}

// Allow reports whether any of the caller's roles grants the required
// permission code. Unknown roles grant nothing.
func Allow(roles []string, required string) bool {
	if required == "" {
		return false
	}
	for _, role := range roles {
		for _, granted := range rolePermissions[role] {
			if match(granted, required) {
				return true
			}
		}
	}
	return false
}

// match compares a granted code against a required one. A granted code may
// end in "*" to cover a whole prefix, e.g. "config:*" or bare "*".
func match(granted, required string) bool {
	if granted == "*" || granted == required {
		return true
	}
	if strings.HasSuffix(granted, ":*") {
		return strings.HasPrefix(required, granted[:len(granted)-1])
	}
	return false
}
