package cclhandler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/ccl"
	"facultyleave/internal/transport/http/api"
	"facultyleave/internal/transport/http/middleware"
	"facultyleave/internal/transport/http/shared"
)

type Handler struct {
	Service *ccl.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *ccl.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ccl/requests", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermCCLWrite, h.Perms)).Post("/", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermCCLRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermCCLRead, h.Perms)).Get("/{requestID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermCCLRead, h.Perms)).Get("/{requestID}/history", h.handleHistory)
		r.With(middleware.RequirePermission(auth.PermCCLApprove, h.Perms)).Post("/{requestID}/forward", h.handleForward)
		r.With(middleware.RequirePermission(auth.PermCCLApprove, h.Perms)).Post("/{requestID}/reject", h.handleReject)
		r.With(middleware.RequirePermission(auth.PermCCLApprove, h.Perms)).Post("/{requestID}/approve", h.handleApprove)
	})
}

var statuses = []string{ccl.StatusPending, ccl.StatusForwarded, ccl.StatusApproved, ccl.StatusRejected}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload ccl.Submission
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	req, err := h.Service.Submit(r.Context(), user, payload)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	query := r.URL.Query()
	validator := shared.NewValidator()
	status := validator.Enum("status", query.Get("status"), statuses, "unknown status")
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	mine, _ := strconv.ParseBool(query.Get("mine"))
	res, err := h.Service.List(r.Context(), user, ccl.ListFilter{Status: status, Limit: page.Limit, Offset: page.Offset}, mine)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	shared.SetTotal(w, res.Total)
	api.Success(w, res, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	req, err := h.Service.Get(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	entries, err := h.Service.History(r.Context(), user, chi.URLParam(r, "requestID"))
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleForward(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, h.Service.Forward)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, h.Service.Reject)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, h.Service.Approve)
}

type transitionFunc func(ctx context.Context, actor approval.Actor, id string, act ccl.Action) (ccl.WorkRequest, error)

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var act ccl.Action
	if err := shared.DecodeJSON(r, &act); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if act.Version == 0 {
		if v, err := strconv.Atoi(strings.Trim(r.Header.Get("If-Match"), `" `)); err == nil {
			act.Version = v
		}
	}
	act.RequestID = reqID

	out, err := fn(r.Context(), user, chi.URLParam(r, "requestID"), act)
	if err != nil {
		shared.FailDomain(w, reqID, err)
		return
	}
	api.Success(w, out, reqID)
}
