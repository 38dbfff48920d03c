package ccl

import (
	"time"

	"facultyleave/internal/domain/calendar"
)

const (
	StatusPending   = "Pending"
	StatusForwarded = "Forwarded to Principal"
	StatusApproved  = "Approved"
	StatusRejected  = "Rejected"
)

// WorkRequest asks for compensatory credit for work done on a given day.
type WorkRequest struct {
	ID                    string        `json:"id"`
	EmployeeID            string        `json:"employeeId"`
	EmployeeName          string        `json:"employeeName,omitempty"`
	Department            string        `json:"department"`
	Campus                string        `json:"campus"`
	Date                  calendar.Date `json:"date"`
	AssignedTo            string        `json:"assignedTo"`
	Reason                string        `json:"reason"`
	Status                string        `json:"status"`
	HODRemarks            string        `json:"hodRemarks,omitempty"`
	PrincipalRemarks      string        `json:"principalRemarks,omitempty"`
	HODApprovalDate       *time.Time    `json:"hodApprovalDate,omitempty"`
	PrincipalApprovalDate *time.Time    `json:"principalApprovalDate,omitempty"`
	FinalApproverRole     string        `json:"finalApproverRole,omitempty"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
	Version               int           `json:"version"`
}

func (r WorkRequest) clone() WorkRequest {
	out := r
	if r.HODApprovalDate != nil {
		t := *r.HODApprovalDate
		out.HODApprovalDate = &t
	}
	if r.PrincipalApprovalDate != nil {
		t := *r.PrincipalApprovalDate
		out.PrincipalApprovalDate = &t
	}
	return out
}

type Submission struct {
	Date       calendar.Date `json:"date"`
	AssignedTo string        `json:"assignedTo"`
	Reason     string        `json:"reason"`
}

type ListFilter struct {
	EmployeeID string
	Department string
	Campus     string
	Status     string
	Limit      int
	Offset     int
}

type ListResult struct {
	Items []WorkRequest `json:"items"`
	Total int           `json:"total"`
}

type Action struct {
	Remarks   string `json:"remarks"`
	Version   int    `json:"version,omitempty"`
	RequestID string `json:"-"`
}
