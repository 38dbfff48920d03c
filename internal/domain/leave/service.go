package leave

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/audit"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/balance"
)

type Service struct {
	Store        StoreAPI
	Balances     BalanceSource
	Roster       Roster
	Availability AvailabilityChecker
	Workflow     Workflow
	Limits       Limits
	Now          func() time.Time
	Institution  string
	Observer     approval.TransitionObserver
}

func NewService(store StoreAPI, balances BalanceSource, roster Roster, availability AvailabilityChecker, workflow Workflow, limits Limits) *Service {
	return &Service{
		Store:        store,
		Balances:     balances,
		Roster:       roster,
		Availability: availability,
		Workflow:     workflow,
		Limits:       limits,
		Now:          time.Now,
	}
}

func (s *Service) builder(actor approval.Actor) *Builder {
	return NewBuilder(actor, s.Roster, s.Balances, s.Availability, s.Now, s.Limits)
}

// Preview runs step one of the form and returns the empty schedule the employee fills in.
func (s *Service) Preview(ctx context.Context, actor approval.Actor, details BasicDetails) (Preview, error) {
	b := s.builder(actor)
	if err := b.SetBasicDetails(details); err != nil {
		return Preview{}, err
	}
	if err := b.Next(ctx); err != nil {
		return Preview{}, err
	}
	d := b.Details()
	return Preview{
		NumberOfDays: b.NumberOfDays(),
		Days:         b.Schedule(),
		Periods:      AssignablePeriods(d.IsHalfDay, d.Session),
	}, nil
}

// Submit replays a complete draft through a Builder, so the server applies exactly the
// checks the form does, and stores the resulting request.
func (s *Service) Submit(ctx context.Context, actor approval.Actor, draft Draft) (LeaveRequest, error) {
	b := s.builder(actor)
	if err := b.SetBasicDetails(draft.BasicDetails); err != nil {
		return LeaveRequest{}, err
	}
	if err := b.Next(ctx); err != nil {
		return LeaveRequest{}, err
	}

	days := b.Schedule()
	if len(draft.AlternateSchedule) > len(days) {
		return LeaveRequest{}, approval.Invalid("alternateSchedule", fmt.Sprintf("has %d days, the leave covers %d", len(draft.AlternateSchedule), len(days)))
	}
	for i, day := range draft.AlternateSchedule {
		if !day.Date.IsZero() && day.Date != days[i].Date {
			return LeaveRequest{}, approval.Invalid("alternateSchedule", fmt.Sprintf("day %d is %s, expected %s", i, day.Date, days[i].Date))
		}
		for _, p := range day.Periods {
			if err := b.AddPeriod(ctx, i, p.PeriodNumber, p.SubstituteFaculty, p.AssignedClass); err != nil {
				return LeaveRequest{}, err
			}
		}
	}

	req, err := b.Submit()
	if err != nil {
		return LeaveRequest{}, err
	}
	req = s.Workflow.Open(req, actor)
	if err := s.Store.CreateRequest(ctx, req); err != nil {
		return LeaveRequest{}, approval.Transport("submit leave request", err)
	}
	slog.Info("leave request submitted", "id", req.ID, "employee", req.EmployeeID, "type", req.LeaveType, "days", req.NumberOfDays, "status", req.Status)
	s.observe("", req.Status)
	return req, nil
}

// canView lets requesters see their own requests, HODs their department and the
// principal or HR their campus.
func canView(actor approval.Actor, req LeaveRequest) bool {
	switch {
	case actor.Owns(req.EmployeeID):
		return true
	case actor.Role == auth.RoleHOD:
		return actor.IsHODOf(req.Department, req.Campus)
	case actor.Role == auth.RolePrincipal, actor.Role == auth.RoleHR:
		return actor.SameCampus(req.Campus)
	}
	return false
}

func (s *Service) Get(ctx context.Context, actor approval.Actor, id string) (LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return LeaveRequest{}, approval.Transport("get leave request", err)
	}
	if !canView(actor, req) {
		return LeaveRequest{}, unauthorized("cannot view this request")
	}
	return req, nil
}

// List scopes the filter to what the actor may see. mine restricts any role to its own requests.
func (s *Service) List(ctx context.Context, actor approval.Actor, filter ListFilter, mine bool) (ListResult, error) {
	switch {
	case mine || actor.Role == auth.RoleEmployee:
		filter.EmployeeID = actor.EmployeeID
		filter.Department, filter.Campus = "", ""
	case actor.Role == auth.RoleHOD:
		filter.Department = actor.Department
		filter.Campus = actor.Campus
	case actor.Role == auth.RolePrincipal, actor.Role == auth.RoleHR:
		filter.Campus = actor.Campus
	default:
		return ListResult{}, unauthorized("unknown role")
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	res, err := s.Store.ListRequests(ctx, filter)
	if err != nil {
		return ListResult{}, approval.Transport("list leave requests", err)
	}
	return res, nil
}

func (s *Service) Forward(ctx context.Context, actor approval.Actor, id string, act Action) (LeaveRequest, error) {
	return s.transition(ctx, actor, id, act, func(req LeaveRequest) (LeaveRequest, *balance.Movement, error) {
		out, err := s.Workflow.Forward(req, actor, act.Remarks)
		return out, nil, err
	})
}

func (s *Service) Reject(ctx context.Context, actor approval.Actor, id string, act Action) (LeaveRequest, error) {
	return s.transition(ctx, actor, id, act, func(req LeaveRequest) (LeaveRequest, *balance.Movement, error) {
		out, err := s.Workflow.Reject(req, actor, act.Remarks)
		return out, nil, err
	})
}

// Approve finalizes the request and debits the effective days exactly once.
func (s *Service) Approve(ctx context.Context, actor approval.Actor, id string, act Action) (LeaveRequest, error) {
	return s.transition(ctx, actor, id, act, func(req LeaveRequest) (LeaveRequest, *balance.Movement, error) {
		out, err := s.Workflow.Approve(req, actor, Decision{
			Remarks:            act.Remarks,
			ApprovedStartDate:  act.ApprovedStartDate,
			ApprovedEndDate:    act.ApprovedEndDate,
			ModificationReason: act.PrincipalModificationReason,
		})
		if err != nil {
			return out, nil, err
		}
		m := balance.Debit(out.EmployeeID, out.LeaveType.Account(), out.EffectiveDays(), out.ID, DebitKey(out.ID))
		m.ActorID = actor.EmployeeID
		m.Reason = fmt.Sprintf("%s leave approved", out.LeaveType)
		return out, &m, nil
	})
}

// RejectApproved withdraws an approval and credits back what the approval debited.
func (s *Service) RejectApproved(ctx context.Context, actor approval.Actor, id string, act Action) (LeaveRequest, error) {
	return s.transition(ctx, actor, id, act, func(req LeaveRequest) (LeaveRequest, *balance.Movement, error) {
		out, err := s.Workflow.RejectApproved(req, actor, act.Remarks)
		if err != nil {
			return out, nil, err
		}
		m := balance.Credit(out.EmployeeID, out.LeaveType.Account(), req.EffectiveDays(), out.ID, ReversalKey(out.ID))
		m.Kind = balance.KindReversal
		m.ActorID = actor.EmployeeID
		m.Reason = "approval withdrawn: " + out.PrincipalRemarks
		return out, &m, nil
	})
}

func DebitKey(id string) string    { return "leave-" + id + "-debit" }
func ReversalKey(id string) string { return "leave-" + id + "-reversal" }

type stepFunc func(req LeaveRequest) (LeaveRequest, *balance.Movement, error)

func (s *Service) transition(ctx context.Context, actor approval.Actor, id string, act Action, step stepFunc) (LeaveRequest, error) {
	before, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return LeaveRequest{}, approval.Transport("get leave request", err)
	}
	if act.Version != 0 && act.Version != before.Version {
		return LeaveRequest{}, fmt.Errorf("%w: version %d is stale, current is %d", approval.ErrConflict, act.Version, before.Version)
	}
	after, movement, err := step(before)
	if err != nil {
		return LeaveRequest{}, err
	}

	remarks := after.PrincipalRemarks
	if before.Status == StatusPending {
		remarks = after.HODRemarks
	}
	saved, err := s.Store.SaveTransition(ctx, Transition{
		Before:    before,
		After:     after,
		Actor:     actor,
		Remarks:   remarks,
		RequestID: act.RequestID,
		Movement:  movement,
	})
	if err != nil {
		return LeaveRequest{}, approval.Transport("update leave status", err)
	}
	slog.Info("leave request transition", "id", id, "from", before.Status, "to", saved.Status, "actor", actor.EmployeeID, "role", actor.Role)
	s.observe(before.Status, saved.Status)
	return saved, nil
}

func (s *Service) observe(from, to string) {
	if s.Observer != nil {
		s.Observer.ObserveTransition(audit.EntityLeave, from, to)
	}
}

func (s *Service) History(ctx context.Context, actor approval.Actor, id string) ([]audit.Entry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.Store.History(ctx, id)
	if err != nil {
		return nil, approval.Transport("leave history", err)
	}
	return entries, nil
}

// Letter renders the approval letter for an approved request the actor can see.
func (s *Service) Letter(ctx context.Context, actor approval.Actor, id string, w io.Writer) error {
	req, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return RenderLetter(w, s.Institution, req)
}
