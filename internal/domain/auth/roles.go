package auth

const (
	RoleEmployee  = "employee"
	RoleHOD       = "hod"
	RolePrincipal = "principal"
	RoleHR        = "hr"
)

var Roles = []string{RoleEmployee, RoleHOD, RolePrincipal, RoleHR}

func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
