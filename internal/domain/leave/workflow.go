package leave

import (
	"fmt"
	"strings"
	"time"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/calendar"
)

// Workflow is the approval state machine. Its methods never modify the request they are
// given; on success they return the next version of it.
//
// Checks run in a fixed order: terminal status, then who is acting, then whether the
// current status allows the move.
type Workflow struct {
	Approvers approval.ApproverConfig
	Now       func() time.Time
}

func NewWorkflow(approvers approval.ApproverConfig, now func() time.Time) Workflow {
	if now == nil {
		now = time.Now
	}
	return Workflow{Approvers: approvers, Now: now}
}

func (w Workflow) now() time.Time {
	if w.Now == nil {
		return time.Now().UTC()
	}
	return w.Now().UTC()
}

func isTerminal(status string) bool {
	return status == StatusApproved || status == StatusRejected
}

func invalidState(action, status string) error {
	return fmt.Errorf("%w: cannot %s a request that is %s", approval.ErrInvalidState, action, status)
}

func unauthorized(reason string) error {
	return fmt.Errorf("%w: %s", approval.ErrAuthorization, reason)
}

// Open sets the starting status of a newly filed request. Requests filed by an HOD start
// Forwarded by HOD with the canned remark.
func (w Workflow) Open(req LeaveRequest, filer approval.Actor) LeaveRequest {
	out := req.Clone()
	out.Status = StatusPending
	if filer.Role == auth.RoleHOD {
		now := w.now()
		out.Status = StatusForwarded
		out.HODRemarks = w.Approvers.ForwardRemarks(req.Campus)
		out.HODApprovalDate = &now
	}
	return out
}

// Forward moves Pending to Forwarded by HOD. Only the requester's HOD may do it.
func (w Workflow) Forward(req LeaveRequest, actor approval.Actor, remarks string) (LeaveRequest, error) {
	if isTerminal(req.Status) {
		return req, invalidState("forward", req.Status)
	}
	if actor.Owns(req.EmployeeID) {
		return req, unauthorized("cannot act on your own request")
	}
	if !actor.IsHODOf(req.Department, req.Campus) {
		return req, unauthorized("only the HOD of the requester's department can forward")
	}
	if req.Status != StatusPending {
		return req, invalidState("forward", req.Status)
	}

	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		remarks = w.Approvers.ForwardRemarks(req.Campus)
	}
	now := w.now()
	out := req.Clone()
	out.Status = StatusForwarded
	out.HODRemarks = remarks
	out.HODApprovalDate = &now
	out.UpdatedAt = now
	return out, nil
}

// Reject closes a Pending request (HOD) or a Forwarded by HOD request (terminal approver).
func (w Workflow) Reject(req LeaveRequest, actor approval.Actor, remarks string) (LeaveRequest, error) {
	if isTerminal(req.Status) {
		return req, invalidState("reject", req.Status)
	}
	if actor.Owns(req.EmployeeID) {
		return req, unauthorized("cannot act on your own request")
	}
	switch req.Status {
	case StatusPending:
		if !actor.IsHODOf(req.Department, req.Campus) {
			return req, unauthorized("only the HOD of the requester's department can reject a pending request")
		}
	case StatusForwarded:
		if !w.Approvers.IsTerminalApprover(actor, req.Campus) {
			return req, unauthorized("only the campus " + w.Approvers.TerminalRole(req.Campus) + " can reject a forwarded request")
		}
	default:
		return req, invalidState("reject", req.Status)
	}

	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return req, approval.Invalid("remarks", "are required to reject")
	}
	now := w.now()
	out := req.Clone()
	out.Status = StatusRejected
	if req.Status == StatusPending {
		out.HODRemarks = remarks
		out.HODApprovalDate = &now
	} else {
		out.PrincipalRemarks = remarks
		out.PrincipalApprovalDate = &now
		out.FinalApproverRole = actor.Role
	}
	out.UpdatedAt = now
	return out, nil
}

// Decision is the terminal approver's input. Zero approved dates mean "as requested".
type Decision struct {
	Remarks            string
	ApprovedStartDate  calendar.Date
	ApprovedEndDate    calendar.Date
	ModificationReason string
}

// Approve finalizes a Forwarded by HOD request, optionally narrowing its dates.
func (w Workflow) Approve(req LeaveRequest, actor approval.Actor, dec Decision) (LeaveRequest, error) {
	if isTerminal(req.Status) {
		return req, invalidState("approve", req.Status)
	}
	if actor.Owns(req.EmployeeID) {
		return req, unauthorized("cannot act on your own request")
	}
	if !w.Approvers.IsTerminalApprover(actor, req.Campus) {
		return req, unauthorized("only the campus " + w.Approvers.TerminalRole(req.Campus) + " can approve")
	}
	if req.Status != StatusForwarded {
		return req, invalidState("approve", req.Status)
	}

	out := req.Clone()
	if err := applyModification(&out, dec); err != nil {
		return req, err
	}

	remarks := strings.TrimSpace(dec.Remarks)
	if remarks == "" {
		remarks = approval.RemarksApproved
	}
	now := w.now()
	out.Status = StatusApproved
	out.PrincipalRemarks = remarks
	out.PrincipalApprovalDate = &now
	out.FinalApproverRole = actor.Role
	out.UpdatedAt = now
	return out, nil
}

// applyModification recomputes the approved range when the approver changed the dates.
// The approved range must sit inside the requested one, since substitutes were only
// arranged for those days.
func applyModification(out *LeaveRequest, dec Decision) error {
	if dec.ApprovedStartDate.IsZero() && dec.ApprovedEndDate.IsZero() {
		return nil
	}
	start, end := dec.ApprovedStartDate, dec.ApprovedEndDate
	if start.IsZero() {
		start = out.StartDate
	}
	if end.IsZero() {
		end = out.EndDate
	}
	if start == out.StartDate && end == out.EndDate {
		return nil
	}

	var issues approval.Issues
	if end.Before(start) {
		issues.Add("approvedEndDate", "must be on or after approvedStartDate")
	}
	if start.Before(out.StartDate) || end.After(out.EndDate) {
		issues.Add("approvedStartDate", fmt.Sprintf("approved range must fall within %s to %s", out.StartDate, out.EndDate))
	}
	issues.Required("principalModificationReason", dec.ModificationReason)
	if err := issues.Err(); err != nil {
		return err
	}

	days, err := CalculateDays(start, end, out.IsHalfDay)
	if err != nil {
		return err
	}
	out.ApprovedStartDate = calendar.Ptr(start)
	out.ApprovedEndDate = calendar.Ptr(end)
	out.ApprovedNumberOfDays = &days
	out.PrincipalModificationReason = strings.TrimSpace(dec.ModificationReason)
	out.IsModifiedByPrincipal = true
	return nil
}

// RejectApproved is the administrative override that withdraws an approved request.
func (w Workflow) RejectApproved(req LeaveRequest, actor approval.Actor, remarks string) (LeaveRequest, error) {
	if req.Status == StatusRejected {
		return req, invalidState("reject", req.Status)
	}
	if actor.Owns(req.EmployeeID) {
		return req, unauthorized("cannot act on your own request")
	}
	if !w.Approvers.IsTerminalApprover(actor, req.Campus) {
		return req, unauthorized("only the campus " + w.Approvers.TerminalRole(req.Campus) + " can withdraw an approval")
	}
	if req.Status != StatusApproved {
		return req, invalidState("withdraw the approval of", req.Status)
	}
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return req, approval.Invalid("remarks", "are required to reject an approved request")
	}

	now := w.now()
	out := req.Clone()
	out.Status = StatusRejected
	out.PrincipalRemarks = remarks
	out.PrincipalApprovalDate = &now
	out.FinalApproverRole = actor.Role
	out.UpdatedAt = now
	return out, nil
}
