package auth

import (
	"context"
	"slices"
)

const (
	PermLeaveRead     = "leave.read"
	PermLeaveWrite    = "leave.write"
	PermLeaveApprove  = "leave.approve"
	PermCCLRead       = "ccl.read"
	PermCCLWrite      = "ccl.write"
	PermCCLApprove    = "ccl.approve"
	PermFacultyRead   = "faculty.read"
	PermFacultyImport = "faculty.import"
	PermBalanceRead   = "balance.read"
	PermBalanceWrite  = "balance.write"
	PermAuditRead     = "audit.read"
)

var AllPermissions = []string{
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermCCLRead,
	PermCCLWrite,
	PermCCLApprove,
	PermFacultyRead,
	PermFacultyImport,
	PermBalanceRead,
	PermBalanceWrite,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermLeaveRead,
		PermLeaveWrite,
		PermCCLRead,
		PermCCLWrite,
		PermFacultyRead,
		PermBalanceRead,
	},
	RoleHOD: {
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermCCLRead,
		PermCCLWrite,
		PermCCLApprove,
		PermFacultyRead,
		PermBalanceRead,
	},
	RolePrincipal: {
		PermLeaveRead,
		PermLeaveApprove,
		PermCCLRead,
		PermCCLApprove,
		PermFacultyRead,
		PermBalanceRead,
		PermAuditRead,
	},
	RoleHR: {
		PermLeaveRead,
		PermLeaveApprove,
		PermCCLRead,
		PermCCLApprove,
		PermFacultyRead,
		PermFacultyImport,
		PermBalanceRead,
		PermBalanceWrite,
		PermAuditRead,
	},
}

// StaticPermissions answers permission checks from RolePermissions. Roles are carried in
// the bearer token, so the role name doubles as the role id.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	return slices.Contains(RolePermissions[role], permission), nil
}
