package ccl

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

const columns = `
  id::text, employee_id, employee_name, department, campus, work_date, assigned_to, reason, status,
  hod_remarks, principal_remarks, hod_approval_date, principal_approval_date, final_approver_role,
  created_at, updated_at, version`

func scan(row pgx.Row) (WorkRequest, error) {
	var r WorkRequest
	var day time.Time
	if err := row.Scan(&r.ID, &r.EmployeeID, &r.EmployeeName, &r.Department, &r.Campus, &day, &r.AssignedTo, &r.Reason, &r.Status,
		&r.HODRemarks, &r.PrincipalRemarks, &r.HODApprovalDate, &r.PrincipalApprovalDate, &r.FinalApproverRole,
		&r.CreatedAt, &r.UpdatedAt, &r.Version); err != nil {
		return WorkRequest{}, err
	}
	r.Date = calendar.FromTime(day)
	return r, nil
}

func (s *Store) Create(ctx context.Context, req WorkRequest) error {
	return querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		if _, err := q.Exec(ctx, `
      INSERT INTO ccl_work_requests (id, employee_id, employee_name, department, campus, work_date, assigned_to, reason, status,
        hod_remarks, hod_approval_date, created_at, updated_at, version)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    `, req.ID, req.EmployeeID, req.EmployeeName, req.Department, req.Campus, req.Date.Time(), req.AssignedTo, req.Reason,
			req.Status, req.HODRemarks, req.HODApprovalDate, req.CreatedAt, req.UpdatedAt, req.Version); err != nil {
			return err
		}
		role := auth.RoleEmployee
		if req.Status == StatusForwarded {
			role = auth.RoleHOD
		}
		return audit.New(q).Record(ctx, audit.Entry{
			EntityType: audit.EntityCCL,
			EntityID:   req.ID,
			Campus:     req.Campus,
			ActorID:    req.EmployeeID,
			ActorRole:  role,
			ToStatus:   req.Status,
			Remarks:    req.Reason,
		})
	})
}

func (s *Store) Get(ctx context.Context, id string) (WorkRequest, error) {
	r, err := scan(s.DB.QueryRow(ctx, `SELECT `+columns+` FROM ccl_work_requests WHERE id::text = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return WorkRequest{}, approval.ErrNotFound
	}
	return r, err
}

func buildListQuery(prefix string, filter ListFilter) (string, []any) {
	query := prefix + " FROM ccl_work_requests WHERE 1=1"
	var args []any
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		query += fmt.Sprintf(" AND lower(department) = lower($%d)", len(args))
	}
	if filter.Campus != "" {
		args = append(args, filter.Campus)
		query += fmt.Sprintf(" AND lower(campus) = lower($%d)", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	return query, args
}

func (s *Store) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	countQuery, countArgs := buildListQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return ListResult{}, err
	}
	query, args := buildListQuery("SELECT "+columns, filter)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	items := []WorkRequest{}
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return ListResult{}, err
		}
		items = append(items, r)
	}
	return ListResult{Items: items, Total: total}, rows.Err()
}

func (s *Store) updateStatus(ctx context.Context, q querier.Querier, req WorkRequest, expectedVersion int) (WorkRequest, error) {
	err := q.QueryRow(ctx, `
    UPDATE ccl_work_requests
    SET status = $3, hod_remarks = $4, principal_remarks = $5, hod_approval_date = $6, principal_approval_date = $7,
        final_approver_role = $8, updated_at = $9, version = version + 1
    WHERE id::text = $1 AND version = $2
    RETURNING version
  `, req.ID, expectedVersion, req.Status, req.HODRemarks, req.PrincipalRemarks, req.HODApprovalDate, req.PrincipalApprovalDate,
		req.FinalApproverRole, req.UpdatedAt).Scan(&req.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return WorkRequest{}, approval.ErrConflict
	}
	if err != nil {
		return WorkRequest{}, err
	}
	return req, nil
}

func (s *Store) SaveTransition(ctx context.Context, t Transition) (WorkRequest, error) {
	var saved WorkRequest
	err := querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		var err error
		if saved, err = s.updateStatus(ctx, q, t.After, t.Before.Version); err != nil {
			return err
		}
		if t.Movement != nil {
			if err := balance.NewService(balance.NewStore(q)).Move(ctx, *t.Movement); err != nil {
				return err
			}
		}
		return audit.New(q).Record(ctx, audit.Entry{
			EntityType: audit.EntityCCL,
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
	return audit.New(s.DB).List(ctx, audit.Filter{EntityType: audit.EntityCCL, EntityID: id}, 200, 0)
}
