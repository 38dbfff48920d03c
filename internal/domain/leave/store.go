package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/audit"
	"facultyleave/internal/domain/auth"
	"facultyleave/internal/domain/balance"
	"facultyleave/internal/domain/calendar"
	"facultyleave/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const requestColumns = `
  id::text, employee_id, employee_name, department, campus, leave_type, is_half_day, session,
  start_date, end_date, number_of_days::float8, reason, status, hod_remarks, principal_remarks,
  hod_approval_date, principal_approval_date, approved_start_date, approved_end_date,
  approved_number_of_days::float8, principal_modification_reason, is_modified_by_principal,
  final_approver_role, created_at, updated_at, version`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var r LeaveRequest
	var leaveType, session string
	var start, end time.Time
	var approvedStart, approvedEnd *time.Time
	if err := row.Scan(
		&r.ID, &r.EmployeeID, &r.EmployeeName, &r.Department, &r.Campus, &leaveType, &r.IsHalfDay, &session,
		&start, &end, &r.NumberOfDays, &r.Reason, &r.Status, &r.HODRemarks, &r.PrincipalRemarks,
		&r.HODApprovalDate, &r.PrincipalApprovalDate, &approvedStart, &approvedEnd,
		&r.ApprovedNumberOfDays, &r.PrincipalModificationReason, &r.IsModifiedByPrincipal,
		&r.FinalApproverRole, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	); err != nil {
		return LeaveRequest{}, err
	}
	r.LeaveType = LeaveType(leaveType)
	r.Session = Session(session)
	r.StartDate = calendar.FromTime(start)
	r.EndDate = calendar.FromTime(end)
	if approvedStart != nil {
		r.ApprovedStartDate = calendar.Ptr(calendar.FromTime(*approvedStart))
	}
	if approvedEnd != nil {
		r.ApprovedEndDate = calendar.Ptr(calendar.FromTime(*approvedEnd))
	}
	return r, nil
}

func dateArg(d *calendar.Date) any {
	if d == nil {
		return nil
	}
	return d.Time()
}

// CreateRequest stores a submitted request with its schedule and the opening history line.
func (s *Store) CreateRequest(ctx context.Context, req LeaveRequest) error {
	return querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		if _, err := q.Exec(ctx, `
      INSERT INTO leave_requests (id, employee_id, employee_name, department, campus, leave_type, is_half_day, session,
        start_date, end_date, number_of_days, reason, status, hod_remarks, hod_approval_date, created_at, updated_at, version)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
    `, req.ID, req.EmployeeID, req.EmployeeName, req.Department, req.Campus, string(req.LeaveType), req.IsHalfDay,
			string(req.Session), req.StartDate.Time(), req.EndDate.Time(), req.NumberOfDays, req.Reason, req.Status,
			req.HODRemarks, req.HODApprovalDate, req.CreatedAt, req.UpdatedAt, req.Version); err != nil {
			return err
		}
		for _, day := range req.AlternateSchedule {
			for _, p := range day.Periods {
				if _, err := q.Exec(ctx, `
          INSERT INTO leave_schedule_periods (leave_request_id, day_date, period_number, substitute_id, assigned_class)
          VALUES ($1,$2,$3,$4,$5)
        `, req.ID, day.Date.Time(), p.PeriodNumber, p.SubstituteFaculty, p.AssignedClass); err != nil {
					return err
				}
			}
		}
		role := auth.RoleEmployee
		if req.Status == StatusForwarded {
			role = auth.RoleHOD
		}
		return audit.New(q).Record(ctx, audit.Entry{
			EntityType: audit.EntityLeave,
			EntityID:   req.ID,
			Campus:     req.Campus,
			ActorID:    req.EmployeeID,
			ActorRole:  role,
			ToStatus:   req.Status,
			Remarks:    req.Reason,
		})
	})
}

func (s *Store) GetRequest(ctx context.Context, id string) (LeaveRequest, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, `SELECT `+requestColumns+` FROM leave_requests WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, approval.ErrNotFound
	}
	if err != nil {
		return LeaveRequest{}, err
	}
	out := []LeaveRequest{req}
	if err := s.loadSchedules(ctx, out); err != nil {
		return LeaveRequest{}, err
	}
	return out[0], nil
}

func buildListQuery(prefix string, filter ListFilter) (string, []any) {
	query := prefix + " FROM leave_requests WHERE 1=1"
	var args []any
	add := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}
	if filter.EmployeeID != "" {
		add(" AND employee_id = $%d", filter.EmployeeID)
	}
	if filter.Department != "" {
		add(" AND lower(department) = lower($%d)", filter.Department)
	}
	if filter.Campus != "" {
		add(" AND lower(campus) = lower($%d)", filter.Campus)
	}
	if filter.Status != "" {
		add(" AND status = $%d", filter.Status)
	}
	if filter.LeaveType != "" {
		add(" AND leave_type = $%d", string(filter.LeaveType))
	}
	return query, args
}

func (s *Store) ListRequests(ctx context.Context, filter ListFilter) (ListResult, error) {
	countQuery, countArgs := buildListQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return ListResult{}, err
	}

	query, args := buildListQuery("SELECT "+requestColumns, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	items := []LeaveRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return ListResult{}, err
		}
		items = append(items, req)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, err
	}
	if err := s.loadSchedules(ctx, items); err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// loadSchedules rebuilds one DaySchedule per requested day and fills in the periods.
func (s *Store) loadSchedules(ctx context.Context, reqs []LeaveRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	ids := make([]string, len(reqs))
	index := make(map[string]int, len(reqs))
	for i := range reqs {
		ids[i] = reqs[i].ID
		index[reqs[i].ID] = i
		days := scheduleDays(BasicDetails{IsHalfDay: reqs[i].IsHalfDay, StartDate: reqs[i].StartDate, EndDate: reqs[i].EndDate})
		reqs[i].AlternateSchedule = make([]DaySchedule, len(days))
		for d, date := range days {
			reqs[i].AlternateSchedule[d] = DaySchedule{Date: date, Periods: []PeriodAssignment{}}
		}
	}

	rows, err := s.DB.Query(ctx, `
    SELECT leave_request_id::text, day_date, period_number, substitute_id, assigned_class
    FROM leave_schedule_periods
    WHERE leave_request_id::text = ANY($1)
    ORDER BY leave_request_id, day_date, period_number
  `, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var day time.Time
		var p PeriodAssignment
		if err := rows.Scan(&id, &day, &p.PeriodNumber, &p.SubstituteFaculty, &p.AssignedClass); err != nil {
			return err
		}
		req := &reqs[index[id]]
		date := calendar.FromTime(day)
		for d := range req.AlternateSchedule {
			if req.AlternateSchedule[d].Date == date {
				req.AlternateSchedule[d].Periods = append(req.AlternateSchedule[d].Periods, p)
				break
			}
		}
	}
	return rows.Err()
}

// UpdateStatus writes the workflow fields of req if the stored version still equals
// expectedVersion, and bumps the version.
func (s *Store) UpdateStatus(ctx context.Context, req LeaveRequest, expectedVersion int) (LeaveRequest, error) {
	err := s.DB.QueryRow(ctx, `
    UPDATE leave_requests
    SET status = $3, hod_remarks = $4, principal_remarks = $5, hod_approval_date = $6, principal_approval_date = $7,
        approved_start_date = $8, approved_end_date = $9, approved_number_of_days = $10,
        principal_modification_reason = $11, is_modified_by_principal = $12, final_approver_role = $13,
        updated_at = $14, version = version + 1
    WHERE id::text = $1 AND version = $2
    RETURNING version
  `, req.ID, expectedVersion, req.Status, req.HODRemarks, req.PrincipalRemarks, req.HODApprovalDate, req.PrincipalApprovalDate,
		dateArg(req.ApprovedStartDate), dateArg(req.ApprovedEndDate), req.ApprovedNumberOfDays,
		req.PrincipalModificationReason, req.IsModifiedByPrincipal, req.FinalApproverRole, req.UpdatedAt,
	).Scan(&req.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leave_requests WHERE id::text = $1)`, req.ID).Scan(&exists); err != nil {
			return LeaveRequest{}, err
		}
		if !exists {
			return LeaveRequest{}, approval.ErrNotFound
		}
		return LeaveRequest{}, approval.ErrConflict
	}
	if err != nil {
		return LeaveRequest{}, err
	}
	return req, nil
}

func (s *Store) SaveTransition(ctx context.Context, t Transition) (LeaveRequest, error) {
	var saved LeaveRequest
	err := querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		var err error
		saved, err = NewStore(q).UpdateStatus(ctx, t.After, t.Before.Version)
		if err != nil {
			return err
		}
		if t.Movement != nil {
			if err := balance.NewService(balance.NewStore(q)).Move(ctx, *t.Movement); err != nil {
				return err
			}
		}
		return audit.New(q).Record(ctx, audit.Entry{
			EntityType: audit.EntityLeave,
			EntityID:   t.After.ID,
			Campus:     t.After.Campus,
			ActorID:    t.Actor.EmployeeID,
			ActorRole:  t.Actor.Role,
			FromStatus: t.Before.Status,
			ToStatus:   t.After.Status,
			Remarks:    t.Remarks,
			RequestID:  t.RequestID,
		})
	})
	return saved, err
}

func (s *Store) History(ctx context.Context, id string) ([]audit.Entry, error) {
	return audit.New(s.DB).List(ctx, audit.Filter{EntityType: audit.EntityLeave, EntityID: id}, 200, 0)
}
