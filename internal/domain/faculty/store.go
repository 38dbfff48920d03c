package faculty

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/calendar"
	"facultyleave/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) ListByCampus(ctx context.Context, campus string) ([]Faculty, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, department, campus, role, updated_at
    FROM faculty
    WHERE lower(campus) = lower($1)
    ORDER BY department, name
  `, campus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Faculty
	for rows.Next() {
		var f Faculty
		if err := rows.Scan(&f.ID, &f.Name, &f.Department, &f.Campus, &f.Role, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id string) (Faculty, error) {
	var f Faculty
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, department, campus, role, updated_at
    FROM faculty
    WHERE id = $1
  `, id).Scan(&f.ID, &f.Name, &f.Department, &f.Campus, &f.Role, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Faculty{}, approval.ErrNotFound
	}
	return f, err
}

func (s *Store) Upsert(ctx context.Context, rows []Faculty) error {
	return querier.WithTx(ctx, s.DB, func(q querier.Querier) error {
		for _, f := range rows {
			if _, err := q.Exec(ctx, `
        INSERT INTO faculty (id, name, department, campus, role)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO UPDATE
        SET name = EXCLUDED.name, department = EXCLUDED.department, campus = EXCLUDED.campus,
            role = EXCLUDED.role, updated_at = now()
      `, f.ID, f.Name, f.Department, f.Campus, f.Role); err != nil {
				return err
			}
		}
		return nil
	})
}

// OnLeave reports whether the faculty has a live (not rejected) leave covering date.
func (s *Store) OnLeave(ctx context.Context, facultyID string, date calendar.Date) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM leave_requests
    WHERE employee_id = $1 AND status <> 'Rejected'
      AND COALESCE(approved_start_date, start_date) <= $2
      AND COALESCE(approved_end_date, end_date) >= $2
  `, facultyID, date.Time()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// BusyPeriods returns which of periods the faculty already covers as a substitute on date.
// Schedule days outside a narrowed approval no longer count.
func (s *Store) BusyPeriods(ctx context.Context, facultyID string, date calendar.Date, periods []int) ([]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT p.period_number
    FROM leave_schedule_periods p
    JOIN leave_requests r ON r.id = p.leave_request_id
    WHERE p.substitute_id = $1 AND p.day_date = $2 AND p.period_number = ANY($3)
      AND r.status <> 'Rejected'
      AND p.day_date BETWEEN COALESCE(r.approved_start_date, r.start_date) AND COALESCE(r.approved_end_date, r.end_date)
    ORDER BY p.period_number
  `, facultyID, date.Time(), periods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
