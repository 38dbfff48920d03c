package leave

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/balance"
	"facultyleave/internal/domain/calendar"
	"facultyleave/internal/domain/faculty"
)

type BalanceSource interface {
	GetLeaveBalance(ctx context.Context, employeeID string) (balance.Balance, error)
	HasSufficient(b balance.Balance, acct balance.Account, days float64) bool
}

type Roster interface {
	List(ctx context.Context, campus string) ([]faculty.Faculty, error)
}

type AvailabilityChecker interface {
	CheckFacultyAvailability(ctx context.Context, facultyID string, date calendar.Date, periods []int) (bool, error)
}

type Step int

const (
	StepDetails Step = iota + 1
	StepSchedule
)

// Builder assembles a leave request the way the two-step form does. Every method that
// fails leaves the draft exactly as it was.
type Builder struct {
	actor        approval.Actor
	roster       Roster
	balances     BalanceSource
	availability AvailabilityChecker
	now          func() time.Time
	limits       Limits

	details    BasicDetails
	hasDetails bool
	step       Step
	days       float64
	schedule   []DaySchedule
	current    int
	campus     map[string]faculty.Faculty
}

func NewBuilder(actor approval.Actor, roster Roster, balances BalanceSource, availability AvailabilityChecker, now func() time.Time, limits Limits) *Builder {
	if now == nil {
		now = time.Now
	}
	if limits.BackdateDays <= 0 {
		limits.BackdateDays = DefaultBackdateDays
	}
	if limits.MaxSpanDays <= 0 {
		limits.MaxSpanDays = DefaultMaxSpanDays
	}
	return &Builder{
		actor:        actor,
		roster:       roster,
		balances:     balances,
		availability: availability,
		now:          now,
		limits:       limits,
		step:         StepDetails,
	}
}

func (b *Builder) Step() Step { return b.step }

func (b *Builder) Details() BasicDetails { return b.details }

func (b *Builder) NumberOfDays() float64 { return b.days }

func (b *Builder) CurrentDay() int { return b.current }

func (b *Builder) Schedule() []DaySchedule { return cloneSchedule(b.schedule) }

// SetBasicDetails validates step one. Accepting new details sends the form back to step
// one and drops any schedule built for the previous details.
func (b *Builder) SetBasicDetails(d BasicDetails) error {
	d.Reason = strings.TrimSpace(d.Reason)
	d.LeaveType = LeaveType(strings.ToUpper(strings.TrimSpace(string(d.LeaveType))))
	d.Session = Session(strings.ToLower(strings.TrimSpace(string(d.Session))))
	if d.IsHalfDay && d.EndDate.IsZero() {
		d.EndDate = d.StartDate
	}
	if !d.IsHalfDay {
		d.Session = ""
	}

	var issues approval.Issues
	switch {
	case d.LeaveType == "":
		issues.Add("leaveType", "is required")
	case !ValidLeaveType(d.LeaveType):
		issues.Add("leaveType", fmt.Sprintf("must be one of %s, %s, %s", TypeCL, TypeCCL, TypeOD))
	}
	if d.StartDate.IsZero() {
		issues.Add("startDate", "is required")
	}
	if d.IsHalfDay {
		switch {
		case d.Session == "":
			issues.Add("session", "is required for a half day")
		case !ValidSession(d.Session):
			issues.Add("session", "must be morning or afternoon")
		}
		if !d.StartDate.IsZero() && d.EndDate != d.StartDate {
			issues.Add("endDate", "must equal startDate for a half day")
		}
	} else if d.EndDate.IsZero() {
		issues.Add("endDate", "is required")
	}
	issues.Required("reason", d.Reason)

	if !d.StartDate.IsZero() && !d.EndDate.IsZero() {
		today := calendar.Today(b.now())
		if d.EndDate.Before(d.StartDate) {
			issues.Add("endDate", "must be on or after startDate")
		}
		if d.StartDate.Before(today.AddDays(-b.limits.BackdateDays)) {
			issues.Add("startDate", fmt.Sprintf("must be within the last %d days", b.limits.BackdateDays))
		}
		if d.EndDate.After(d.StartDate.AddDays(b.limits.MaxSpanDays)) {
			issues.Add("endDate", fmt.Sprintf("must be within %d days of startDate", b.limits.MaxSpanDays))
		}
	}
	if err := issues.Err(); err != nil {
		return err
	}

	b.details = d
	b.hasDetails = true
	b.step = StepDetails
	b.days = 0
	b.schedule = nil
	b.current = 0
	return nil
}

// Next moves from basic details to scheduling: checks the balance, computes the day
// count and lays out one empty day per calendar day.
func (b *Builder) Next(ctx context.Context) error {
	if !b.hasDetails {
		return approval.Invalid("leaveType", "basic details must be set first")
	}
	d := b.details
	days, err := CalculateDays(d.StartDate, d.EndDate, d.IsHalfDay)
	if err != nil {
		return err
	}

	if d.LeaveType.ChecksBalance() {
		if b.balances == nil {
			return approval.Transport("get leave balance", fmt.Errorf("no balance source configured"))
		}
		bal, err := b.balances.GetLeaveBalance(ctx, b.actor.EmployeeID)
		if err != nil {
			return approval.Transport("get leave balance", err)
		}
		if !b.balances.HasSufficient(bal, d.LeaveType.Account(), days) {
			return fmt.Errorf("%w: %s needs %s day(s), %s available", approval.ErrInsufficientBalance,
				d.LeaveType, formatDays(days), bal.Available(d.LeaveType.Account()).String())
		}
	}

	dates := scheduleDays(d)
	schedule := make([]DaySchedule, len(dates))
	for i, date := range dates {
		schedule[i] = DaySchedule{Date: date, Periods: []PeriodAssignment{}}
	}

	b.days = days
	b.schedule = schedule
	b.current = 0
	b.step = StepSchedule
	return nil
}

// AddPeriod assigns a substitute to one period of one day after checking the roster
// and the substitute's availability.
func (b *Builder) AddPeriod(ctx context.Context, dayIndex, periodNumber int, substituteID, assignedClass string) error {
	if b.step != StepSchedule {
		return approval.Invalid("alternateSchedule", "scheduling has not started")
	}
	substituteID = strings.TrimSpace(substituteID)
	assignedClass = strings.TrimSpace(assignedClass)

	var issues approval.Issues
	if periodNumber == 0 {
		issues.Add("periodNumber", "is required")
	}
	issues.Required("substituteFaculty", substituteID)
	issues.Required("assignedClass", assignedClass)
	if dayIndex < 0 || dayIndex >= len(b.schedule) {
		issues.Add("dayIndex", fmt.Sprintf("must be between 0 and %d", len(b.schedule)-1))
	}
	if periodNumber != 0 && !periodAllowed(b.details.IsHalfDay, b.details.Session, periodNumber) {
		allowed := AssignablePeriods(b.details.IsHalfDay, b.details.Session)
		issues.Add("periodNumber", fmt.Sprintf("must be between %d and %d", allowed[0], allowed[len(allowed)-1]))
	}
	if substituteID != "" && substituteID == b.actor.EmployeeID {
		issues.Add("substituteFaculty", "cannot be the requester")
	}
	if err := issues.Err(); err != nil {
		return err
	}

	day := b.schedule[dayIndex]
	for _, p := range day.Periods {
		if p.PeriodNumber == periodNumber {
			return fmt.Errorf("%w: period %d on %s", approval.ErrDuplicatePeriod, periodNumber, day.Date)
		}
	}

	if err := b.checkRoster(ctx, substituteID); err != nil {
		return err
	}
	if b.availability == nil {
		return approval.Transport("check faculty availability", fmt.Errorf("no availability checker configured"))
	}
	ok, err := b.availability.CheckFacultyAvailability(ctx, substituteID, day.Date, []int{periodNumber})
	if err != nil {
		return approval.Transport("check faculty availability", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s for period %d on %s", approval.ErrFacultyUnavailable, substituteID, periodNumber, day.Date)
	}

	periods := append(append([]PeriodAssignment(nil), day.Periods...), PeriodAssignment{
		PeriodNumber:      periodNumber,
		SubstituteFaculty: substituteID,
		AssignedClass:     assignedClass,
	})
	sort.Slice(periods, func(i, j int) bool { return periods[i].PeriodNumber < periods[j].PeriodNumber })
	b.schedule[dayIndex].Periods = periods
	return nil
}

func (b *Builder) checkRoster(ctx context.Context, substituteID string) error {
	if b.campus == nil {
		if b.roster == nil {
			return approval.Transport("get faculty list", fmt.Errorf("no roster configured"))
		}
		list, err := b.roster.List(ctx, b.actor.Campus)
		if err != nil {
			return approval.Transport("get faculty list", err)
		}
		byID := make(map[string]faculty.Faculty, len(list))
		for _, f := range list {
			byID[f.ID] = f
		}
		b.campus = byID
	}
	if _, ok := b.campus[substituteID]; !ok {
		return approval.Invalid("substituteFaculty", "must belong to the requester's campus")
	}
	return nil
}

// RemovePeriod drops a period assignment. Removing an absent period is not an error.
func (b *Builder) RemovePeriod(dayIndex, periodNumber int) error {
	if b.step != StepSchedule {
		return approval.Invalid("alternateSchedule", "scheduling has not started")
	}
	if dayIndex < 0 || dayIndex >= len(b.schedule) {
		return approval.Invalid("dayIndex", fmt.Sprintf("must be between 0 and %d", len(b.schedule)-1))
	}
	day := b.schedule[dayIndex]
	kept := make([]PeriodAssignment, 0, len(day.Periods))
	for _, p := range day.Periods {
		if p.PeriodNumber != periodNumber {
			kept = append(kept, p)
		}
	}
	b.schedule[dayIndex].Periods = kept
	return nil
}

// AdvanceDay moves focus to the next day once the current one has at least one period.
func (b *Builder) AdvanceDay() error {
	if b.step != StepSchedule {
		return approval.Invalid("alternateSchedule", "scheduling has not started")
	}
	day := b.schedule[b.current]
	if len(day.Periods) == 0 {
		return fmt.Errorf("%w: %s", approval.ErrIncompleteDay, day.Date)
	}
	if b.current < len(b.schedule)-1 {
		b.current++
	}
	return nil
}

// Submit produces the Pending request. The builder itself is left as is.
func (b *Builder) Submit() (LeaveRequest, error) {
	if b.step != StepSchedule {
		return LeaveRequest{}, fmt.Errorf("%w: scheduling has not started", approval.ErrIncompleteSchedule)
	}
	var missing []string
	for _, day := range b.schedule {
		if len(day.Periods) == 0 {
			missing = append(missing, day.Date.String())
		}
	}
	if len(missing) > 0 {
		return LeaveRequest{}, fmt.Errorf("%w: no periods for %s", approval.ErrIncompleteSchedule, strings.Join(missing, ", "))
	}

	now := b.now().UTC()
	d := b.details
	return LeaveRequest{
		ID:                uuid.NewString(),
		EmployeeID:        b.actor.EmployeeID,
		EmployeeName:      b.actor.Name,
		Department:        b.actor.Department,
		Campus:            b.actor.Campus,
		LeaveType:         d.LeaveType,
		IsHalfDay:         d.IsHalfDay,
		Session:           d.Session,
		StartDate:         d.StartDate,
		EndDate:           d.EndDate,
		NumberOfDays:      b.days,
		Reason:            d.Reason,
		AlternateSchedule: cloneSchedule(b.schedule),
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
		Version:           1,
	}, nil
}

func formatDays(days float64) string {
	if days == float64(int(days)) {
		return fmt.Sprintf("%d", int(days))
	}
	return fmt.Sprintf("%.1f", days)
}
