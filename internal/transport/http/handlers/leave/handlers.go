package leavehandler

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/leave"
	"facultyleave/internal/transport/http/api"
	"facultyleave/internal/transport/http/middleware"
	"facultyleave/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *leave.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave/requests", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/preview", h.handlePreview)
		r.With(middleware.RequirePermission(auth.PermLeaveWrite, h.Perms)).Post("/", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/{requestID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/{requestID}/history", h.handleHistory)
		r.With(middleware.RequirePermission(auth.PermLeaveRead, h.Perms)).Get("/{requestID}/letter", h.handleLetter)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/{requestID}/forward", h.handleForward)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/{requestID}/reject", h.handleReject)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/{requestID}/approve", h.handleApprove)
		r.With(middleware.RequirePermission(auth.PermLeaveApprove, h.Perms)).Post("/{requestID}/reject-approved", h.handleRejectApproved)
	})
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload leave.BasicDetails
	if err := shared.DecodeLeavePayload(r.Body, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	preview, err := h.Service.Preview(r.Context(), user, payload)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, preview, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload leave.Draft
	if err := shared.DecodeLeavePayload(r.Body, &payload); err != nil {
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
	leaveType := leave.LeaveType(strings.ToUpper(strings.TrimSpace(query.Get("leaveType"))))
	validator := shared.NewValidator()
	if leaveType != "" && !leave.ValidLeaveType(leaveType) {
		validator.Add("leaveType", "must be CL, CCL or OD")
	}
	status := validator.Enum("status", query.Get("status"), statuses, "unknown status")
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	mine, _ := strconv.ParseBool(query.Get("mine"))
	res, err := h.Service.List(r.Context(), user, leave.ListFilter{
		Status:    status,
		LeaveType: leaveType,
		Limit:     page.Limit,
		Offset:    page.Offset,
	}, mine)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	shared.SetTotal(w, res.Total)
	api.Success(w, res, middleware.GetRequestID(r.Context()))
}

var statuses = []string{leave.StatusPending, leave.StatusForwarded, leave.StatusApproved, leave.StatusRejected}

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

func (h *Handler) handleLetter(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	id := chi.URLParam(r, "requestID")
	var buf bytes.Buffer
	if err := h.Service.Letter(r.Context(), user, id, &buf); err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Attachment(w, "application/pdf", "leave-"+id+".pdf", buf.Bytes())
}

type transitionFunc func(ctx context.Context, actor approval.Actor, id string, act leave.Action) (leave.LeaveRequest, error)

func (h *Handler) handleForward(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, h.Service.Forward)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, h.Service.Reject)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, h.Service.Approve)
}

func (h *Handler) handleRejectApproved(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, h.Service.RejectApproved)
}

// handleAction decodes the optional action body. The expected version comes from the body
// or, failing that, from an If-Match header.
func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var act leave.Action
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
