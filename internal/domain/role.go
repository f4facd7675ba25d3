package domain

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles a connection can be registered with.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
	RoleSuperAdmin
)

// Roles lists every role in declaration order.
var Roles = []Role{RoleUser, RoleAdmin, RoleSuperAdmin}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "super-admin"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// IsAdmin reports whether the role belongs to the admin class (admin or super-admin).
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin, RoleSuperAdmin:
		return true
	case RoleUser:
		return false
	default:
		return false
	}
}

func (r Role) Valid() bool {
	return r >= RoleUser && r <= RoleSuperAdmin
}

// ParseRole converts the wire form ("user", "admin", "super-admin") into a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	case "super-admin", "super_admin", "superadmin":
		return RoleSuperAdmin, nil
	default:
		return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidIdentity, s)
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: unknown role %d", ErrInvalidIdentity, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
