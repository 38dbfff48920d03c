package leavehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/audit"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/balance"
	"facultyleave/internal/domain/calendar"
	"facultyleave/internal/domain/faculty"
	"facultyleave/internal/domain/leave"
	"facultyleave/internal/transport/http/api"
	"facultyleave/internal/transport/http/middleware"
)

const testSecret = "leave-handler-secret"

var now = time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)

type memStore struct {
	mu        sync.Mutex
	requests  map[string]leave.LeaveRequest
	history   map[string][]audit.Entry
	movements []balance.Movement
}

func newMemStore() *memStore {
	return &memStore{requests: map[string]leave.LeaveRequest{}, history: map[string][]audit.Entry{}}
}

func (m *memStore) CreateRequest(_ context.Context, req leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[req.ID] = req.Clone()
	m.history[req.ID] = append(m.history[req.ID], audit.Entry{EntityID: req.ID, ActorID: req.EmployeeID, ToStatus: req.Status})
	return nil
}

func (m *memStore) GetRequest(_ context.Context, id string) (leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return leave.LeaveRequest{}, approval.ErrNotFound
	}
	return req.Clone(), nil
}

func (m *memStore) ListRequests(_ context.Context, f leave.ListFilter) (leave.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := leave.ListResult{Items: []leave.LeaveRequest{}}
	for _, req := range m.requests {
		if f.EmployeeID != "" && req.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Department != "" && req.Department != f.Department {
			continue
		}
		if f.Campus != "" && req.Campus != f.Campus {
			continue
		}
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		out.Items = append(out.Items, req.Clone())
	}
	out.Total = len(out.Items)
	return out, nil
}

func (m *memStore) SaveTransition(_ context.Context, t leave.Transition) (leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requests[t.After.ID].Version != t.Before.Version {
		return leave.LeaveRequest{}, approval.ErrConflict
	}
	saved := t.After.Clone()
	saved.Version = t.Before.Version + 1
	m.requests[saved.ID] = saved
	if t.Movement != nil {
		m.movements = append(m.movements, *t.Movement)
	}
	m.history[saved.ID] = append(m.history[saved.ID], audit.Entry{
		EntityID: saved.ID, ActorID: t.Actor.EmployeeID, ActorRole: t.Actor.Role,
		FromStatus: t.Before.Status, ToStatus: saved.Status, Remarks: t.Remarks,
	})
	return saved.Clone(), nil
}

func (m *memStore) History(_ context.Context, id string) ([]audit.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Entry(nil), m.history[id]...), nil
}

type fixedBalances struct{ leave, ccl decimal.Decimal }

func (f fixedBalances) GetLeaveBalance(_ context.Context, id string) (balance.Balance, error) {
	return balance.Balance{EmployeeID: id, LeaveBalance: f.leave, CCLBalance: f.ccl}, nil
}

func (fixedBalances) HasSufficient(b balance.Balance, acct balance.Account, days float64) bool {
	return b.Covers(acct, days)
}

type roster []faculty.Faculty

func (r roster) List(context.Context, string) ([]faculty.Faculty, error) { return r, nil }

type alwaysAvailable struct{}

func (alwaysAvailable) CheckFacultyAvailability(context.Context, string, calendar.Date, []int) (bool, error) {
	return true, nil
}

func newRouter(t *testing.T, store *memStore, leaveDays int64) http.Handler {
	t.Helper()
	approvers, err := approval.ParseApproverConfig(auth.RolePrincipal, "")
	if err != nil {
		t.Fatalf("approvers: %v", err)
	}
	clock := func() time.Time { return now }
	svc := leave.NewService(store,
		fixedBalances{leave: decimal.NewFromInt(leaveDays), ccl: decimal.Zero},
		roster{{ID: "e1", Campus: "main"}, {ID: "s1", Campus: "main"}, {ID: "s2", Campus: "main"}},
		alwaysAvailable{},
		leave.NewWorkflow(approvers, clock),
		leave.DefaultLimits(),
	)
	svc.Now = clock
	svc.Institution = "Govt. Polytechnic"

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Auth(testSecret))
	r.Route("/api/v1", NewHandler(svc, auth.StaticPermissions{}).RegisterRoutes)
	return r
}

func token(t *testing.T, employeeID, role, department string) string {
	t.Helper()
	tok, err := auth.GenerateToken(testSecret, auth.Claims{UserID: "u-" + employeeID, EmployeeID: employeeID, Name: employeeID, Role: role, Department: department, Campus: "main"}, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

func do(t *testing.T, h http.Handler, method, path, tok string, body any) (*httptest.ResponseRecorder, api.Envelope, json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch v := body.(type) {
		case string:
			buf.WriteString(v)
		default:
			if err := json.NewEncoder(&buf).Encode(v); err != nil {
				t.Fatalf("encode: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var raw struct {
		api.Envelope
		Data json.RawMessage `json:"data"`
	}
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
			t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, raw.Envelope, raw.Data
}

const legacyDraft = `{
  "type": "CL",
  "fromDate": "2024-06-03",
  "toDate": "2024-06-04",
  "reason": "family function",
  "alternateSchedule": [
    {"date": "2024-06-03", "periods": [{"periodNumber": 2, "substituteFaculty": "s1", "assignedClass": "II-A"}]},
    {"periods": [{"periodNumber": 6, "substituteFaculty": "s2", "assignedClass": "III-C"}]}
  ]
}`

func TestLeaveJourney(t *testing.T) {
	store := newMemStore()
	h := newRouter(t, store, 10)
	employee := token(t, "e1", auth.RoleEmployee, "CSE")
	hod := token(t, "h1", auth.RoleHOD, "CSE")
	principal := token(t, "p1", auth.RolePrincipal, "")

	rec, _, data := do(t, h, http.MethodPost, "/api/v1/leave/requests/preview", employee, `{"leave_type":"CL","fromDate":"2024-06-03","toDate":"2024-06-04","reason":"x"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var preview leave.Preview
	if err := json.Unmarshal(data, &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if preview.NumberOfDays != 2 || len(preview.Days) != 2 || len(preview.Periods) != 7 {
		t.Fatalf("unexpected preview %+v", preview)
	}

	rec, _, data = do(t, h, http.MethodPost, "/api/v1/leave/requests", employee, legacyDraft)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	var created leave.LeaveRequest
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.Status != leave.StatusPending || created.NumberOfDays != 2 || created.Version != 1 {
		t.Fatalf("unexpected created request %+v", created)
	}
	base := "/api/v1/leave/requests/" + created.ID

	rec, env, _ := do(t, h, http.MethodPost, base+"/forward", employee, nil)
	if rec.Code != http.StatusForbidden || env.Error.Code != "forbidden" {
		t.Fatalf("employee forward: expected 403, got %d", rec.Code)
	}

	rec, _, data = do(t, h, http.MethodPost, base+"/forward", hod, map[string]any{"version": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("forward: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var forwarded leave.LeaveRequest
	_ = json.Unmarshal(data, &forwarded)
	if forwarded.Status != leave.StatusForwarded || forwarded.HODRemarks != approval.RemarksForwardedToPrincipal {
		t.Fatalf("unexpected forwarded request %+v", forwarded)
	}

	rec, env, _ = do(t, h, http.MethodPost, base+"/approve", principal, map[string]any{"version": 1})
	if rec.Code != http.StatusConflict || env.Error.Code != "conflict" {
		t.Fatalf("stale approve: expected 409 conflict, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _, data = do(t, h, http.MethodPost, base+"/approve", principal, map[string]any{
		"version":                     2,
		"approvedStartDate":           "2024-06-04",
		"approvedEndDate":             "2024-06-04",
		"principalModificationReason": "exam duty on the 3rd",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var approved leave.LeaveRequest
	_ = json.Unmarshal(data, &approved)
	if approved.Status != leave.StatusApproved || !approved.IsModifiedByPrincipal || approved.EffectiveDays() != 1 {
		t.Fatalf("unexpected approved request %+v", approved)
	}
	if len(store.movements) != 1 || !store.movements[0].Delta.Equal(decimal.NewFromInt(-1)) {
		t.Fatalf("expected one debit of 1 day, got %+v", store.movements)
	}

	rec, env, _ = do(t, h, http.MethodPost, base+"/approve", principal, nil)
	if rec.Code != http.StatusConflict || env.Error.Code != "invalid_state" {
		t.Fatalf("second approve: expected 409 invalid_state, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _, data = do(t, h, http.MethodGet, base+"/history", employee, nil)
	var history []audit.Entry
	_ = json.Unmarshal(data, &history)
	if rec.Code != http.StatusOK || len(history) != 3 {
		t.Fatalf("history: expected 3 entries, got %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, base+"/letter", nil)
	req.Header.Set("Authorization", "Bearer "+employee)
	letter := httptest.NewRecorder()
	h.ServeHTTP(letter, req)
	if letter.Code != http.StatusOK || letter.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("letter: expected pdf, got %d %s", letter.Code, letter.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(letter.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("letter body is not a pdf")
	}
}

func TestSubmitErrors(t *testing.T) {
	employee := token(t, "e1", auth.RoleEmployee, "CSE")

	poor := newRouter(t, newMemStore(), 1)
	rec, env, _ := do(t, poor, http.MethodPost, "/api/v1/leave/requests", employee, legacyDraft)
	if rec.Code != http.StatusUnprocessableEntity || env.Error.Code != "insufficient_balance" {
		t.Fatalf("expected 422 insufficient_balance, got %d %s", rec.Code, rec.Body.String())
	}

	h := newRouter(t, newMemStore(), 10)
	rec, env, _ = do(t, h, http.MethodPost, "/api/v1/leave/requests", employee, `{"type":"XL","fromDate":"2024-06-03","toDate":"2024-06-03"}`)
	if rec.Code != http.StatusBadRequest || env.Error.Code != "validation_error" {
		t.Fatalf("expected 400 validation_error, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env, _ = do(t, h, http.MethodPost, "/api/v1/leave/requests", employee, `{"type":"CL","fromDate":"2024-06-03","toDate":"2024-06-03","reason":"x","alternateSchedule":[]}`)
	if rec.Code != http.StatusBadRequest || env.Error.Code != "incomplete_schedule" {
		t.Fatalf("expected 400 incomplete_schedule, got %d %s", rec.Code, rec.Body.String())
	}

	rec, env, _ = do(t, h, http.MethodPost, "/api/v1/leave/requests", employee, `{not json`)
	if rec.Code != http.StatusBadRequest || env.Error.Code != "invalid_payload" {
		t.Fatalf("expected 400 invalid_payload, got %d", rec.Code)
	}

	rec, _, _ = do(t, h, http.MethodPost, "/api/v1/leave/requests", "", legacyDraft)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestListAndGetScoping(t *testing.T) {
	store := newMemStore()
	h := newRouter(t, store, 10)
	employee := token(t, "e1", auth.RoleEmployee, "CSE")
	otherHOD := token(t, "h2", auth.RoleHOD, "ECE")

	rec, _, data := do(t, h, http.MethodPost, "/api/v1/leave/requests", employee, legacyDraft)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	var created leave.LeaveRequest
	_ = json.Unmarshal(data, &created)

	rec, _, data = do(t, h, http.MethodGet, "/api/v1/leave/requests?status=pending", employee, nil)
	var list leave.ListResult
	_ = json.Unmarshal(data, &list)
	if rec.Code != http.StatusOK || list.Total != 1 {
		t.Fatalf("expected own request listed, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _, data = do(t, h, http.MethodGet, "/api/v1/leave/requests", otherHOD, nil)
	list = leave.ListResult{}
	_ = json.Unmarshal(data, &list)
	if rec.Code != http.StatusOK || list.Total != 0 {
		t.Fatalf("expected other department to see nothing, got %s", rec.Body.String())
	}

	rec, _, _ = do(t, h, http.MethodGet, "/api/v1/leave/requests/"+created.ID, otherHOD, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for other department, got %d", rec.Code)
	}

	rec, _, _ = do(t, h, http.MethodPost, "/api/v1/leave/requests/"+created.ID+"/forward", otherHOD, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 forwarding another department, got %d", rec.Code)
	}

	rec, _, _ = do(t, h, http.MethodGet, "/api/v1/leave/requests/missing", employee, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec, env, _ := do(t, h, http.MethodGet, "/api/v1/leave/requests?leaveType=XL", employee, nil)
	if rec.Code != http.StatusBadRequest || env.Error.Code != "validation_error" {
		t.Fatalf("expected 400 for unknown leave type filter, got %d", rec.Code)
	}
}

func TestRejectRequiresRemarksOverHTTP(t *testing.T) {
	store := newMemStore()
	h := newRouter(t, store, 10)
	employee := token(t, "e1", auth.RoleEmployee, "CSE")
	hod := token(t, "h1", auth.RoleHOD, "CSE")

	_, _, data := do(t, h, http.MethodPost, "/api/v1/leave/requests", employee, legacyDraft)
	var created leave.LeaveRequest
	_ = json.Unmarshal(data, &created)

	rec, env, _ := do(t, h, http.MethodPost, "/api/v1/leave/requests/"+created.ID+"/reject", hod, map[string]any{"remarks": " "})
	if rec.Code != http.StatusBadRequest || env.Error.Code != "validation_error" {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/leave/requests/"+created.ID+"/reject", bytes.NewBufferString(`{"remarks":"exam week"}`))
	req.Header.Set("Authorization", "Bearer "+hod)
	req.Header.Set("If-Match", `"1"`)
	out := httptest.NewRecorder()
	h.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", out.Code, out.Body.String())
	}
	if store.requests[created.ID].Status != leave.StatusRejected {
		t.Fatalf("expected rejected, got %s", store.requests[created.ID].Status)
	}
}
