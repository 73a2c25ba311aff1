// Copyright (c) 2026 IP Platform. All rights reserved.

package sec

// # Principal Classes

// PrincipalClass identifies which identity table a token subject belongs to.
//
// The platform has three disjoint principal populations sharing one token
// format. Authorization decisions switch on this tag plus [Role] — never on
// a type hierarchy.
type PrincipalClass string

const (
	// Ordinary registered members and analyst applicants.
	ClassUser PrincipalClass = "USER"

	// Approved (or in-review) patent analysts.
	ClassAnalyst PrincipalClass = "ANALYST"

	// Seeded administrators. Cannot self-register.
	ClassAdmin PrincipalClass = "ADMIN"
)

// Valid reports whether the class is one of the three known populations.
func (c PrincipalClass) Valid() bool {
	switch c {
	case ClassUser, ClassAnalyst, ClassAdmin:
		return true
	}
	return false
}

// # Roles

// Role represents the authorization level granted to a principal.
type Role string

const (
	// Unrestricted system access, analyst review rights
	RoleAdmin Role = "ROLE_ADMIN"

	// Can manage IP assets and access analyst tooling
	RoleAnalyst Role = "ROLE_ANALYST"

	// Default role for standard registered users
	RoleUser Role = "ROLE_USER"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r Role) AtLeast(target Role) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r Role) level() int {

	// Linear scale (10-30) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 30
	case RoleAnalyst:
		return 20
	case RoleUser:
		return 10
	default:
		return 0
	}
}
