package domain

import "strings"

// Role represents a member's role within a school. The set is closed:
// persisted rows only ever carry one of the three canonical values.
type Role string

const (
	RoleTenantAdmin Role = "tenant_admin"
	RoleTeacher     Role = "teacher"
	RoleStudent     Role = "student"
)

// legacyRoleSynonyms maps role spellings accepted at the API boundary
// onto canonical values. Persisted data never contains these.
var legacyRoleSynonyms = map[string]Role{
	"admin":      RoleTenantAdmin,
	"owner":      RoleTenantAdmin,
	"instructor": RoleTeacher,
	"pupil":      RoleStudent,
}

// ParseRole normalizes a wire-level role string to a canonical Role.
// Accepts legacy synonyms; comparison is case-insensitive.
func ParseRole(s string) (Role, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch Role(v) {
	case RoleTenantAdmin, RoleTeacher, RoleStudent:
		return Role(v), true
	}
	if r, ok := legacyRoleSynonyms[v]; ok {
		return r, true
	}
	return "", false
}

// IsValid returns true if the role is a known canonical value.
func (r Role) IsValid() bool {
	switch r {
	case RoleTenantAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// CanInvite returns true if members holding this role may issue
// invitation codes for their school.
func (r Role) CanInvite() bool {
	return r == RoleTenantAdmin || r == RoleTeacher
}

// Grantable returns true if this role may be granted through an
// invitation. Administrative roles are only ever created by school
// registration itself.
func (r Role) Grantable() bool {
	return r == RoleTeacher || r == RoleStudent
}
