package leave

import (
	"slices"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/balance"
	"facultyleave/internal/domain/calendar"
)

const (
	FirstPeriod         = 1
	LastPeriod          = 7
	LastMorningPeriod   = 4
	DefaultBackdateDays = 35
	DefaultMaxSpanDays  = 365
	halfDay             = 0.5
)

// Limits bounds the requested range relative to today and to the start date.
type Limits struct {
	BackdateDays int
	MaxSpanDays  int
}

func DefaultLimits() Limits {
	return Limits{BackdateDays: DefaultBackdateDays, MaxSpanDays: DefaultMaxSpanDays}
}

// CalculateDays counts the inclusive calendar days from start to end, or 0.5 for a half day.
func CalculateDays(start, end calendar.Date, isHalfDay bool) (float64, error) {
	if isHalfDay {
		return halfDay, nil
	}
	if end.Before(start) {
		return 0, approval.Invalid("endDate", "must be on or after startDate")
	}
	return float64(end.DaysSince(start) + 1), nil
}

func ValidLeaveType(t LeaveType) bool {
	return t == TypeCL || t == TypeCCL || t == TypeOD
}

func ValidSession(s Session) bool {
	return s == SessionMorning || s == SessionAfternoon
}

// Account is the balance a leave type draws from. CL and OD share the leave balance.
func (t LeaveType) Account() balance.Account {
	if t == TypeCCL {
		return balance.AccountCCL
	}
	return balance.AccountLeave
}

// ChecksBalance reports whether the builder must verify the balance before scheduling.
func (t LeaveType) ChecksBalance() bool {
	return t == TypeCL || t == TypeCCL
}

// AssignablePeriods lists the periods a substitute can cover.
func AssignablePeriods(isHalfDay bool, session Session) []int {
	lo, hi := FirstPeriod, LastPeriod
	if isHalfDay {
		switch session {
		case SessionMorning:
			hi = LastMorningPeriod
		case SessionAfternoon:
			lo = LastMorningPeriod + 1
		}
	}
	out := make([]int, 0, hi-lo+1)
	for p := lo; p <= hi; p++ {
		out = append(out, p)
	}
	return out
}

func periodAllowed(isHalfDay bool, session Session, period int) bool {
	return slices.Contains(AssignablePeriods(isHalfDay, session), period)
}

// scheduleDays returns the calendar days a schedule must cover.
func scheduleDays(d BasicDetails) []calendar.Date {
	if d.IsHalfDay {
		return []calendar.Date{d.StartDate}
	}
	return calendar.Range(d.StartDate, d.EndDate)
}
