package leave

import (
	"time"

	"facultyleave/internal/domain/calendar"
)

type LeaveType string

const (
	TypeCL  LeaveType = "CL"
	TypeCCL LeaveType = "CCL"
	TypeOD  LeaveType = "OD"
)

type Session string

const (
	SessionMorning   Session = "morning"
	SessionAfternoon Session = "afternoon"
)

const (
	StatusPending   = "Pending"
	StatusForwarded = "Forwarded by HOD"
	StatusApproved  = "Approved"
	StatusRejected  = "Rejected"
)

type PeriodAssignment struct {
	PeriodNumber      int    `json:"periodNumber"`
	SubstituteFaculty string `json:"substituteFaculty"`
	AssignedClass     string `json:"assignedClass"`
}

// DaySchedule holds the substitutes for one calendar day, sorted by period number.
type DaySchedule struct {
	Date    calendar.Date      `json:"date"`
	Periods []PeriodAssignment `json:"periods"`
}

type LeaveRequest struct {
	ID                          string         `json:"id"`
	EmployeeID                  string         `json:"employeeId"`
	EmployeeName                string         `json:"employeeName,omitempty"`
	Department                  string         `json:"department"`
	Campus                      string         `json:"campus"`
	LeaveType                   LeaveType      `json:"leaveType"`
	IsHalfDay                   bool           `json:"isHalfDay"`
	Session                     Session        `json:"session,omitempty"`
	StartDate                   calendar.Date  `json:"startDate"`
	EndDate                     calendar.Date  `json:"endDate"`
	NumberOfDays                float64        `json:"numberOfDays"`
	Reason                      string         `json:"reason"`
	AlternateSchedule           []DaySchedule  `json:"alternateSchedule"`
	Status                      string         `json:"status"`
	HODRemarks                  string         `json:"hodRemarks,omitempty"`
	PrincipalRemarks            string         `json:"principalRemarks,omitempty"`
	HODApprovalDate             *time.Time     `json:"hodApprovalDate,omitempty"`
	PrincipalApprovalDate       *time.Time     `json:"principalApprovalDate,omitempty"`
	ApprovedStartDate           *calendar.Date `json:"approvedStartDate,omitempty"`
	ApprovedEndDate             *calendar.Date `json:"approvedEndDate,omitempty"`
	ApprovedNumberOfDays        *float64       `json:"approvedNumberOfDays,omitempty"`
	PrincipalModificationReason string         `json:"principalModificationReason,omitempty"`
	IsModifiedByPrincipal       bool           `json:"isModifiedByPrincipal"`
	FinalApproverRole           string         `json:"finalApproverRole,omitempty"`
	CreatedAt                   time.Time      `json:"createdAt"`
	UpdatedAt                   time.Time      `json:"updatedAt"`
	Version                     int            `json:"version"`
}

// EffectiveDays is what the ledger moves: the approved count when the dates were
// modified, the requested count otherwise.
func (r LeaveRequest) EffectiveDays() float64 {
	if r.ApprovedNumberOfDays != nil {
		return *r.ApprovedNumberOfDays
	}
	return r.NumberOfDays
}

// Clone deep-copies the request so transitions never alias the caller's schedule.
func (r LeaveRequest) Clone() LeaveRequest {
	out := r
	out.AlternateSchedule = cloneSchedule(r.AlternateSchedule)
	if r.HODApprovalDate != nil {
		t := *r.HODApprovalDate
		out.HODApprovalDate = &t
	}
	if r.PrincipalApprovalDate != nil {
		t := *r.PrincipalApprovalDate
		out.PrincipalApprovalDate = &t
	}
	if r.ApprovedStartDate != nil {
		out.ApprovedStartDate = calendar.Ptr(*r.ApprovedStartDate)
	}
	if r.ApprovedEndDate != nil {
		out.ApprovedEndDate = calendar.Ptr(*r.ApprovedEndDate)
	}
	if r.ApprovedNumberOfDays != nil {
		d := *r.ApprovedNumberOfDays
		out.ApprovedNumberOfDays = &d
	}
	return out
}

func cloneSchedule(in []DaySchedule) []DaySchedule {
	if in == nil {
		return nil
	}
	out := make([]DaySchedule, len(in))
	for i, day := range in {
		out[i] = DaySchedule{Date: day.Date, Periods: append([]PeriodAssignment{}, day.Periods...)}
	}
	return out
}

// BasicDetails is step one of the leave form.
type BasicDetails struct {
	LeaveType LeaveType     `json:"leaveType"`
	IsHalfDay bool          `json:"isHalfDay"`
	Session   Session       `json:"session,omitempty"`
	StartDate calendar.Date `json:"startDate"`
	EndDate   calendar.Date `json:"endDate"`
	Reason    string        `json:"reason"`
}

// Draft is a complete client-side form: basic details plus the schedule the employee
// assembled. Submit replays it through a Builder.
type Draft struct {
	BasicDetails
	AlternateSchedule []DaySchedule `json:"alternateSchedule"`
}

type Preview struct {
	NumberOfDays float64       `json:"numberOfDays"`
	Days         []DaySchedule `json:"days"`
	Periods      []int         `json:"assignablePeriods"`
}

type ListFilter struct {
	EmployeeID string
	Department string
	Campus     string
	Status     string
	LeaveType  LeaveType
	Limit      int
	Offset     int
}

type ListResult struct {
	Items []LeaveRequest `json:"items"`
	Total int            `json:"total"`
}

// Action carries what an approver sends with a transition.
type Action struct {
	Remarks                     string        `json:"remarks"`
	Version                     int           `json:"version,omitempty"`
	ApprovedStartDate           calendar.Date `json:"approvedStartDate"`
	ApprovedEndDate             calendar.Date `json:"approvedEndDate"`
	PrincipalModificationReason string        `json:"principalModificationReason"`
	RequestID                   string        `json:"-"`
}
