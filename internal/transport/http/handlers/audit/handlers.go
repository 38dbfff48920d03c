package audithandler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/audit"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/transport/http/api"
	"facultyleave/internal/transport/http/middleware"
	"facultyleave/internal/transport/http/shared"
)

const exportLimit = 10000

type Service interface {
	Count(ctx context.Context, filter audit.Filter) (int, error)
	List(ctx context.Context, filter audit.Filter, limit, offset int) ([]audit.Entry, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
}

func NewHandler(service Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/transitions", h.handleListTransitions)
		r.With(middleware.RequirePermission(auth.PermAuditRead, h.Perms)).Get("/transitions/export", h.handleExportTransitions)
	})
}

// filterFromQuery pins the feed to the caller's campus.
func filterFromQuery(r *http.Request, user approval.Actor) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{
		Campus:     user.Campus,
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorID:    q.Get("actorId"),
	}
}

func (h *Handler) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	filter := filterFromQuery(r, user)
	if filter.EntityType != "" && filter.EntityType != audit.EntityLeave && filter.EntityType != audit.EntityCCL {
		validator := shared.NewValidator()
		validator.Add("entityType", "must be leave_request or ccl_work_request")
		validator.Reject(w, middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 100, 500)
	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
	}
	entries, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		slog.Error("audit list failed", "err", err)
		api.Fail(w, http.StatusServiceUnavailable, "backend_unavailable", "failed to list transitions", middleware.GetRequestID(r.Context()))
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}

	shared.SetTotal(w, total)
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportTransitions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	entries, err := h.Service.List(r.Context(), filterFromQuery(r, user), exportLimit, 0)
	if err != nil {
		slog.Error("audit export failed", "err", err)
		api.Fail(w, http.StatusServiceUnavailable, "backend_unavailable", "failed to export transitions", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=transitions.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "entity_type", "entity_id", "campus", "actor_id", "actor_role", "from_status", "to_status", "remarks", "request_id", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, e := range entries {
		row := []string{e.ID, e.EntityType, e.EntityID, e.Campus, e.ActorID, e.ActorRole, e.FromStatus, e.ToStatus, e.Remarks, e.RequestID, e.CreatedAt.UTC().Format(time.RFC3339)}
		if err := writer.Write(row); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
