package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/transport/http/api"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{approval.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
	{approval.ErrFacultyUnavailable, http.StatusBadRequest, "faculty_unavailable"},
	{approval.ErrDuplicatePeriod, http.StatusBadRequest, "duplicate_period"},
	{approval.ErrIncompleteDay, http.StatusBadRequest, "incomplete_day"},
	{approval.ErrIncompleteSchedule, http.StatusBadRequest, "incomplete_schedule"},
	{approval.ErrAuthorization, http.StatusForbidden, "forbidden"},
	{approval.ErrNotFound, http.StatusNotFound, "not_found"},
	{approval.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{approval.ErrConflict, http.StatusConflict, "conflict"},
	{approval.ErrTransport, http.StatusServiceUnavailable, "backend_unavailable"},
}

// FailDomain writes the envelope for an error returned by a domain service.
func FailDomain(w http.ResponseWriter, requestID string, err error) {
	var verr *approval.ValidationError
	if errors.As(err, &verr) {
		issues := make([]ValidationIssue, 0, len(verr.Issues))
		for _, issue := range verr.Issues {
			issues = append(issues, ValidationIssue{Field: issue.Field, Reason: issue.Reason})
		}
		FailValidation(w, requestID, issues)
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			if m.status >= 500 {
				slog.Error("backend failure", "err", err, "requestId", requestID)
				api.Fail(w, m.status, m.code, "service temporarily unavailable, try again", requestID)
				return
			}
			api.Fail(w, m.status, m.code, err.Error(), requestID)
			return
		}
	}
	if errors.Is(err, approval.ErrValidation) {
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
		return
	}
	slog.Error("unhandled error", "err", err, "requestId", requestID)
	api.Fail(w, http.StatusInternalServerError, "internal_error", "internal error", requestID)
}
