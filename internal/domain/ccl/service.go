package ccl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/audit"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/balance"
	"facultyleave/internal/domain/calendar"
)

const DefaultCreditDays = 1.0

type Service struct {
	Store      StoreAPI
	Workflow   Workflow
	CreditDays float64
	Now        func() time.Time
	Observer   approval.TransitionObserver
}

func NewService(store StoreAPI, approvers approval.ApproverConfig, creditDays float64) *Service {
	if creditDays <= 0 {
		creditDays = DefaultCreditDays
	}
	return &Service{
		Store:      store,
		Workflow:   Workflow{Approvers: approvers, Now: time.Now},
		CreditDays: creditDays,
		Now:        time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Submit records a new work request. The work must already have happened.
func (s *Service) Submit(ctx context.Context, actor approval.Actor, sub Submission) (WorkRequest, error) {
	sub.AssignedTo = strings.TrimSpace(sub.AssignedTo)
	sub.Reason = strings.TrimSpace(sub.Reason)

	var issues approval.Issues
	if sub.Date.IsZero() {
		issues.Add("date", "is required")
	} else if sub.Date.After(calendar.Today(s.now())) {
		issues.Add("date", "cannot be in the future")
	}
	issues.Required("assignedTo", sub.AssignedTo)
	issues.Required("reason", sub.Reason)
	if err := issues.Err(); err != nil {
		return WorkRequest{}, err
	}

	now := s.now().UTC()
	req := WorkRequest{
		ID:           uuid.NewString(),
		EmployeeID:   actor.EmployeeID,
		EmployeeName: actor.Name,
		Department:   actor.Department,
		Campus:       actor.Campus,
		Date:         sub.Date,
		AssignedTo:   sub.AssignedTo,
		Reason:       sub.Reason,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
	req = s.Workflow.Open(req, actor)
	if err := s.Store.Create(ctx, req); err != nil {
		return WorkRequest{}, approval.Transport("submit ccl work request", err)
	}
	slog.Info("ccl work request submitted", "id", req.ID, "employee", req.EmployeeID, "date", req.Date.String(), "status", req.Status)
	s.observe("", req.Status)
	return req, nil
}

func canView(actor approval.Actor, req WorkRequest) bool {
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

func (s *Service) Get(ctx context.Context, actor approval.Actor, id string) (WorkRequest, error) {
	req, err := s.Store.Get(ctx, id)
	if err != nil {
		return WorkRequest{}, approval.Transport("get ccl work request", err)
	}
	if !canView(actor, req) {
		return WorkRequest{}, unauthorized("cannot view this request")
	}
	return req, nil
}

func (s *Service) List(ctx context.Context, actor approval.Actor, filter ListFilter, mine bool) (ListResult, error) {
	switch {
	case mine || actor.Role == auth.RoleEmployee:
		filter.EmployeeID = actor.EmployeeID
		filter.Department, filter.Campus = "", ""
	case actor.Role == auth.RoleHOD:
		filter.Department, filter.Campus = actor.Department, actor.Campus
	case actor.Role == auth.RolePrincipal, actor.Role == auth.RoleHR:
		filter.Campus = actor.Campus
	default:
		return ListResult{}, unauthorized("unknown role")
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	res, err := s.Store.List(ctx, filter)
	if err != nil {
		return ListResult{}, approval.Transport("list ccl work requests", err)
	}
	return res, nil
}

func (s *Service) Forward(ctx context.Context, actor approval.Actor, id string, act Action) (WorkRequest, error) {
	return s.transition(ctx, actor, id, act, func(req WorkRequest) (WorkRequest, *balance.Movement, error) {
		out, err := s.Workflow.Forward(req, actor, act.Remarks)
		return out, nil, err
	})
}

func (s *Service) Reject(ctx context.Context, actor approval.Actor, id string, act Action) (WorkRequest, error) {
	return s.transition(ctx, actor, id, act, func(req WorkRequest) (WorkRequest, *balance.Movement, error) {
		out, err := s.Workflow.Reject(req, actor, act.Remarks)
		return out, nil, err
	})
}

// Approve finalizes the request and credits the CCL balance once.
func (s *Service) Approve(ctx context.Context, actor approval.Actor, id string, act Action) (WorkRequest, error) {
	return s.transition(ctx, actor, id, act, func(req WorkRequest) (WorkRequest, *balance.Movement, error) {
		out, err := s.Workflow.Approve(req, actor, act.Remarks)
		if err != nil {
			return out, nil, err
		}
		m := balance.Credit(out.EmployeeID, balance.AccountCCL, s.CreditDays, out.ID, CreditKey(out.ID))
		m.ActorID = actor.EmployeeID
		m.Reason = "CCL work on " + out.Date.String()
		return out, &m, nil
	})
}

func CreditKey(id string) string { return "ccl-" + id + "-credit" }

func (s *Service) transition(ctx context.Context, actor approval.Actor, id string, act Action, step func(WorkRequest) (WorkRequest, *balance.Movement, error)) (WorkRequest, error) {
	before, err := s.Store.Get(ctx, id)
	if err != nil {
		return WorkRequest{}, approval.Transport("get ccl work request", err)
	}
	if act.Version != 0 && act.Version != before.Version {
		return WorkRequest{}, fmt.Errorf("%w: version %d is stale, current is %d", approval.ErrConflict, act.Version, before.Version)
	}
	after, movement, err := step(before)
	if err != nil {
		return WorkRequest{}, err
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
		return WorkRequest{}, approval.Transport("update ccl status", err)
	}
	slog.Info("ccl work request transition", "id", id, "from", before.Status, "to", saved.Status, "actor", actor.EmployeeID, "role", actor.Role)
	s.observe(before.Status, saved.Status)
	return saved, nil
}

func (s *Service) observe(from, to string) {
	if s.Observer != nil {
		s.Observer.ObserveTransition(audit.EntityCCL, from, to)
	}
}

func (s *Service) History(ctx context.Context, actor approval.Actor, id string) ([]audit.Entry, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	entries, err := s.Store.History(ctx, id)
	if err != nil {
		return nil, approval.Transport("ccl history", err)
	}
	return entries, nil
}
