package facultyhandler

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/faculty"
	"facultyleave/internal/transport/http/api"
	"facultyleave/internal/transport/http/middleware"
	"facultyleave/internal/transport/http/shared"
)

const maxRosterBytes = 8 * 1024 * 1024

type Handler struct {
	Service *faculty.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *faculty.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/faculty", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermFacultyRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermFacultyImport, h.Perms)).Post("/import", h.handleImport)
		r.With(middleware.RequirePermission(auth.PermFacultyRead, h.Perms)).Get("/{facultyID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermFacultyRead, h.Perms)).Get("/{facultyID}/availability", h.handleAvailability)
	})
}

// handleList defaults to the caller's campus, which is what the substitute pickers show.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	campus := strings.TrimSpace(r.URL.Query().Get("campus"))
	if campus == "" {
		campus = user.Campus
	}
	list, err := h.Service.List(r.Context(), campus)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUser(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	f, err := h.Service.Get(r.Context(), chi.URLParam(r, "facultyID"))
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, f, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUser(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	date, err := shared.QueryDate(r, "date")
	if err != nil || date.IsZero() {
		validator.Add("date", "must be a valid date in YYYY-MM-DD format")
	}
	periods, err := shared.QueryInts(r, "periods")
	if err != nil {
		validator.Add("periods", "must be a comma separated list of period numbers")
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	out, err := h.Service.Availability(r.Context(), chi.URLParam(r, "facultyID"), date, periods)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

// handleImport accepts the workbook either as the "file" part of a multipart form or as
// the raw request body.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUser(r.Context()); !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxRosterBytes); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid multipart payload", middleware.GetRequestID(r.Context()))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "file is required", middleware.GetRequestID(r.Context()))
			return
		}
		defer file.Close()
		body = file
	}

	res, err := h.Service.ImportRoster(r.Context(), body)
	if err != nil {
		shared.FailDomain(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, res, middleware.GetRequestID(r.Context()))
}
