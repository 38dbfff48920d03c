// Package approval holds what the leave and CCL workflows share: the acting user,
// the per-campus choice of terminal approver and the error taxonomy.
package approval

import (
	"strings"

	"facultyleave/internal/domain/auth"
)

// Actor is the authenticated user performing an operation. It is always passed
// explicitly; nothing in the workflow reads identity from ambient state.
type Actor struct {
	UserID     string `json:"userId"`
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Campus     string `json:"campus"`
}

func ActorFromClaims(c auth.Claims) Actor {
	return Actor{
		UserID:     c.UserID,
		EmployeeID: c.EmployeeID,
		Name:       c.Name,
		Role:       c.Role,
		Department: c.Department,
		Campus:     c.Campus,
	}
}

// IsHODOf reports whether a is the head of department for the given department and campus.
func (a Actor) IsHODOf(department, campus string) bool {
	return a.Role == auth.RoleHOD &&
		strings.EqualFold(a.Department, department) &&
		strings.EqualFold(a.Campus, campus)
}

func (a Actor) SameCampus(campus string) bool {
	return strings.EqualFold(a.Campus, campus)
}

func (a Actor) Owns(employeeID string) bool {
	return a.EmployeeID != "" && a.EmployeeID == employeeID
}

// TransitionObserver is told about every committed status change.
type TransitionObserver interface {
	ObserveTransition(entity, from, to string)
}
