package balancehandler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/balance"
	"facultyleave/internal/domain/faculty"
	"facultyleave/internal/transport/http/api"
	"facultyleave/internal/transport/http/middleware"
	"facultyleave/internal/transport/http/shared"
)

// Service is the part of balance.Service the handlers use.
type Service interface {
	GetLeaveBalance(ctx context.Context, employeeID string) (balance.Balance, error)
	History(ctx context.Context, employeeID string, limit, offset int) ([]balance.Entry, error)
	Set(ctx context.Context, actor approval.Actor, employeeID string, leave, ccl decimal.Decimal, reason string) (balance.Balance, error)
}

// Directory resolves an employee's campus before reading or editing someone else's counters.
type Directory interface {
	Get(ctx context.Context, id string) (faculty.Faculty, error)
}

type Handler struct {
	Service   Service
	Directory Directory
	Perms     middleware.PermissionStore
}

func NewHandler(service Service, directory Directory, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Directory: directory, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/balances", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermBalanceRead, h.Perms)).Get("/me", h.handleMine)
		r.With(middleware.RequirePermission(auth.PermBalanceRead, h.Perms)).Get("/{employeeID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermBalanceRead, h.Perms)).Get("/{employeeID}/history", h.handleHistory)
		r.With(middleware.RequirePermission(auth.PermBalanceWrite, h.Perms)).Put("/{employeeID}", h.handleSet)
	})
}

// authorizeRead lets everyone see their own counters and the principal or HR anyone on
// their campus.
func (h *Handler) authorizeRead(ctx context.Context, user approval.Actor, employeeID string) error {
	if user.Owns(employeeID) {
		return nil
	}
	if user.Role != auth.RolePrincipal && user.Role != auth.RoleHR {
		return fmt.Errorf("%w: principal or hr role required", approval.ErrAuthorization)
	}
	return h.sameCampus(ctx, user, employeeID)
}

func (h *Handler) sameCampus(ctx context.Context, user approval.Actor, employeeID string) error {
	f, err := h.Directory.Get(ctx, employeeID)
	if err != nil {
		return err
	}
	if !user.SameCampus(f.Campus) {
		return fmt.Errorf("%w: employee belongs to another campus", approval.ErrAuthorization)
	}
	return nil
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	b, err := h.Service.GetLeaveBalance(r.Context(), user.EmployeeID)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, b, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	if err := h.authorizeRead(r.Context(), user, employeeID); err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	b, err := h.Service.GetLeaveBalance(r.Context(), employeeID)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, b, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	if err := h.authorizeRead(r.Context(), user, employeeID); err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	page := shared.ParsePagination(r, 50, 200)
	entries, err := h.Service.History(r.Context(), employeeID, page.Limit, page.Offset)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	if entries == nil {
		entries = []balance.Entry{}
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

type setPayload struct {
	LeaveBalance *decimal.Decimal `json:"leaveBalance"`
	CCLBalance   *decimal.Decimal `json:"cclBalance"`
	Reason       string           `json:"reason"`
}

func (h *Handler) handleSet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload setPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	if payload.LeaveBalance == nil {
		validator.Add("leaveBalance", "is required")
	}
	if payload.CCLBalance == nil {
		validator.Add("cclBalance", "is required")
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	if err := h.sameCampus(r.Context(), user, employeeID); err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	b, err := h.Service.Set(r.Context(), user, employeeID, *payload.LeaveBalance, *payload.CCLBalance, payload.Reason)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, b, middleware.GetRequestID(r.Context()))
}
