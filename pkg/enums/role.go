package enums

import "slices"

// Role is the coarse permission carried in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var roles = []Role{RoleCustomer, RoleAdmin}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool { return slices.Contains(roles, r) }

func ParseRole(value string) (Role, error) {
	return parseFrom(roles, "role", value)
}
