package approval

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrFacultyUnavailable  = errors.New("substitute faculty unavailable")
	ErrDuplicatePeriod     = errors.New("period already assigned for this day")
	ErrIncompleteDay       = errors.New("no periods assigned for the current day")
	ErrIncompleteSchedule  = errors.New("alternate schedule incomplete")
	ErrAuthorization       = errors.New("not authorized for this transition")
	ErrInvalidState        = errors.New("transition not allowed from current status")
	ErrConflict            = errors.New("request was modified concurrently")
	ErrTransport           = errors.New("backend unavailable")
	ErrNotFound            = errors.New("not found")
)

type FieldIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists the offending fields. errors.Is(err, ErrValidation) holds.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Reason)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a single-field validation error.
func Invalid(field, reason string) error {
	return &ValidationError{Issues: []FieldIssue{{Field: field, Reason: reason}}}
}

// Issues collects field problems before deciding whether to fail.
type Issues struct {
	list []FieldIssue
}

func (v *Issues) Add(field, reason string) {
	v.list = append(v.list, FieldIssue{Field: field, Reason: reason})
}

func (v *Issues) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "is required")
	}
}

func (v *Issues) Err() error {
	if len(v.list) == 0 {
		return nil
	}
	out := make([]FieldIssue, len(v.list))
	copy(out, v.list)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return &ValidationError{Issues: out}
}

var domainErrors = []error{
	ErrValidation, ErrInsufficientBalance, ErrFacultyUnavailable, ErrDuplicatePeriod,
	ErrIncompleteDay, ErrIncompleteSchedule, ErrAuthorization, ErrInvalidState,
	ErrConflict, ErrTransport, ErrNotFound,
}

// IsDomain reports whether err already belongs to the taxonomy above.
func IsDomain(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Transport wraps a backend failure so callers can match ErrTransport. Errors that are
// already classified pass through untouched.
func Transport(op string, err error) error {
	if err == nil || IsDomain(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}
