package leave

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/audit"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/balance"
	"facultyleave/internal/domain/calendar"
	"facultyleave/internal/domain/faculty"
)

var fixedNow = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

var (
	employee = approval.Actor{EmployeeID: "e1", Name: "Asha", Role: auth.RoleEmployee, Department: "CSE", Campus: "main"}
	hod      = approval.Actor{EmployeeID: "h1", Name: "Ravi", Role: auth.RoleHOD, Department: "CSE", Campus: "main"}
	otherHOD = approval.Actor{EmployeeID: "h2", Role: auth.RoleHOD, Department: "ECE", Campus: "main"}
	farHOD   = approval.Actor{EmployeeID: "h3", Role: auth.RoleHOD, Department: "CSE", Campus: "north"}
	princ    = approval.Actor{EmployeeID: "p1", Role: auth.RolePrincipal, Campus: "main"}
	hrAdmin  = approval.Actor{EmployeeID: "r1", Role: auth.RoleHR, Campus: "main"}
)

type fakeBalances struct {
	bal   balance.Balance
	err   error
	calls int
}

func (f *fakeBalances) GetLeaveBalance(_ context.Context, employeeID string) (balance.Balance, error) {
	f.calls++
	out := f.bal
	out.EmployeeID = employeeID
	return out, f.err
}

func (f *fakeBalances) HasSufficient(b balance.Balance, acct balance.Account, days float64) bool {
	return b.Covers(acct, days)
}

func balances(leave, ccl string) *fakeBalances {
	return &fakeBalances{bal: balance.Balance{
		LeaveBalance: decimal.RequireFromString(leave),
		CCLBalance:   decimal.RequireFromString(ccl),
	}}
}

type fakeRoster struct {
	list []faculty.Faculty
	err  error
}

func (f fakeRoster) List(_ context.Context, campus string) ([]faculty.Faculty, error) {
	return f.list, f.err
}

var campusRoster = fakeRoster{list: []faculty.Faculty{
	{ID: "e1", Name: "Asha", Department: "CSE", Campus: "main"},
	{ID: "s1", Name: "Kiran", Department: "CSE", Campus: "main"},
	{ID: "s2", Name: "Meena", Department: "ECE", Campus: "main"},
	{ID: "busy", Name: "Vikram", Department: "CSE", Campus: "main"},
}}

type availabilityCall struct {
	facultyID string
	date      calendar.Date
	periods   []int
}

type fakeAvailability struct {
	calls []availabilityCall
	err   error
}

func (f *fakeAvailability) CheckFacultyAvailability(_ context.Context, facultyID string, date calendar.Date, periods []int) (bool, error) {
	f.calls = append(f.calls, availabilityCall{facultyID, date, periods})
	if f.err != nil {
		return false, f.err
	}
	return facultyID != "busy", nil
}

func newTestBuilder(actor approval.Actor, bal *fakeBalances, avail *fakeAvailability) *Builder {
	if avail == nil {
		avail = &fakeAvailability{}
	}
	return NewBuilder(actor, campusRoster, bal, avail, clock, DefaultLimits())
}

// memStore keeps requests in memory and enforces the version check the pgx store does.
type memStore struct {
	requests    map[string]LeaveRequest
	transitions []Transition
	history     []audit.Entry
	createErr   error
	saveErr     error
}

func newMemStore(reqs ...LeaveRequest) *memStore {
	m := &memStore{requests: map[string]LeaveRequest{}}
	for _, r := range reqs {
		m.requests[r.ID] = r
	}
	return m
}

func (m *memStore) CreateRequest(_ context.Context, req LeaveRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.requests[req.ID] = req.Clone()
	return nil
}

func (m *memStore) GetRequest(_ context.Context, id string) (LeaveRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return LeaveRequest{}, approval.ErrNotFound
	}
	return req.Clone(), nil
}

func (m *memStore) ListRequests(_ context.Context, filter ListFilter) (ListResult, error) {
	var items []LeaveRequest
	for _, r := range m.requests {
		if filter.EmployeeID != "" && r.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Department != "" && r.Department != filter.Department {
			continue
		}
		if filter.Campus != "" && r.Campus != filter.Campus {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		items = append(items, r)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return ListResult{Items: items, Total: len(items)}, nil
}

func (m *memStore) SaveTransition(_ context.Context, t Transition) (LeaveRequest, error) {
	if m.saveErr != nil {
		return LeaveRequest{}, m.saveErr
	}
	current, ok := m.requests[t.After.ID]
	if !ok {
		return LeaveRequest{}, approval.ErrNotFound
	}
	if current.Version != t.Before.Version {
		return LeaveRequest{}, approval.ErrConflict
	}
	saved := t.After.Clone()
	saved.Version = current.Version + 1
	m.requests[saved.ID] = saved
	m.transitions = append(m.transitions, t)
	m.history = append(m.history, audit.Entry{
		EntityType: audit.EntityLeave, EntityID: saved.ID, ActorID: t.Actor.EmployeeID,
		FromStatus: t.Before.Status, ToStatus: t.After.Status, Remarks: t.Remarks,
	})
	return saved, nil
}

func (m *memStore) History(_ context.Context, id string) ([]audit.Entry, error) {
	var out []audit.Entry
	for _, e := range m.history {
		if e.EntityID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

// pendingRequest is a three-day CL request from employee e1, as submitted.
func pendingRequest() LeaveRequest {
	start := calendar.MustParse("2024-06-03")
	var schedule []DaySchedule
	for _, d := range calendar.Range(start, start.AddDays(2)) {
		schedule = append(schedule, DaySchedule{Date: d, Periods: []PeriodAssignment{{PeriodNumber: 1, SubstituteFaculty: "s1", AssignedClass: "II-A"}}})
	}
	return LeaveRequest{
		ID:                "req-1",
		EmployeeID:        "e1",
		Department:        "CSE",
		Campus:            "main",
		LeaveType:         TypeCL,
		StartDate:         start,
		EndDate:           start.AddDays(2),
		NumberOfDays:      3,
		Reason:            "family function",
		AlternateSchedule: schedule,
		Status:            StatusPending,
		Version:           1,
	}
}

func withStatus(req LeaveRequest, status string) LeaveRequest {
	req.Status = status
	return req
}
