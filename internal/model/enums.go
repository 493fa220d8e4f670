package model

import "strings"

type Role string

const (
	RoleStudent Role = "student"
	RoleSponsor Role = "sponsor"
)

// roleAliases maps accepted client spellings to their stored role.
var roleAliases = map[string]Role{
	"student":        RoleStudent,
	"sponsor":        RoleSponsor,
	"projectsponsor": RoleSponsor,
}

// ParseRole normalises a client supplied role. The legacy spelling
// "projectSponsor" is accepted and stored as "sponsor".
func ParseRole(s string) (Role, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

func (r Role) ProfileTable() string {
	switch r {
	case RoleSponsor:
		return "sponsor_profiles"
	default:
		return "student_profiles"
	}
}
