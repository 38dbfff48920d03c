package ccl

import (
	"fmt"
	"strings"
	"time"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/auth"
)

// Workflow mirrors the leave state machine without dates to modify:
// Pending -> Forwarded to Principal -> Approved | Rejected.
type Workflow struct {
	Approvers approval.ApproverConfig
	Now       func() time.Time
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
	return fmt.Errorf("%w: cannot %s a CCL work request that is %s", approval.ErrInvalidState, action, status)
}

func unauthorized(reason string) error {
	return fmt.Errorf("%w: %s", approval.ErrAuthorization, reason)
}

// Open sets the starting status of a newly filed request. Requests filed by an HOD start
// Forwarded to Principal with the canned remark.
func (w Workflow) Open(req WorkRequest, filer approval.Actor) WorkRequest {
	out := req.clone()
	out.Status = StatusPending
	if filer.Role == auth.RoleHOD {
		now := w.now()
		out.Status = StatusForwarded
		out.HODRemarks = w.Approvers.ForwardRemarks(req.Campus)
		out.HODApprovalDate = &now
	}
	return out
}

func (w Workflow) Forward(req WorkRequest, actor approval.Actor, remarks string) (WorkRequest, error) {
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
	out := req.clone()
	out.Status = StatusForwarded
	out.HODRemarks = remarks
	out.HODApprovalDate = &now
	out.UpdatedAt = now
	return out, nil
}

func (w Workflow) Reject(req WorkRequest, actor approval.Actor, remarks string) (WorkRequest, error) {
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
	out := req.clone()
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

func (w Workflow) Approve(req WorkRequest, actor approval.Actor, remarks string) (WorkRequest, error) {
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

	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		remarks = approval.RemarksApproved
	}
	now := w.now()
	out := req.clone()
	out.Status = StatusApproved
	out.PrincipalRemarks = remarks
	out.PrincipalApprovalDate = &now
	out.FinalApproverRole = actor.Role
	out.UpdatedAt = now
	return out, nil
}
