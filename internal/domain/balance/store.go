package balance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// Get returns zero counters for employees without a balance row.
func (s *Store) Get(ctx context.Context, employeeID string) (Balance, error) {
	out := Balance{EmployeeID: employeeID, LeaveBalance: decimal.Zero, CCLBalance: decimal.Zero}
	var leaveRaw, cclRaw string
	err := s.DB.QueryRow(ctx, `
    SELECT leave_balance::text, ccl_balance::text, updated_at
    FROM leave_balances
    WHERE employee_id = $1
  `, employeeID).Scan(&leaveRaw, &cclRaw, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return out, nil
	}
	if err != nil {
		return Balance{}, err
	}
	if out.LeaveBalance, err = decimal.NewFromString(leaveRaw); err != nil {
		return Balance{}, err
	}
	if out.CCLBalance, err = decimal.NewFromString(cclRaw); err != nil {
		return Balance{}, err
	}
	return out, nil
}

func column(acct Account) (string, error) {
	switch acct {
	case AccountLeave:
		return "leave_balance", nil
	case AccountCCL:
		return "ccl_balance", nil
	}
	return "", fmt.Errorf("unknown balance account %q", acct)
}

// Apply records m and moves the counter. A movement whose key was already recorded is
// skipped. A debit that would drive the counter negative fails with ErrInsufficientBalance.
func (s *Store) Apply(ctx context.Context, m Movement) error {
	col, err := column(m.Account)
	if err != nil {
		return err
	}
	if m.IdempotencyKey == "" {
		m.IdempotencyKey = uuid.NewString()
	}

	tag, err := s.DB.Exec(ctx, `
    INSERT INTO balance_transactions (id, employee_id, account, delta, kind, reference_id, reason, actor_id, idempotency_key)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (idempotency_key) DO NOTHING
  `, uuid.NewString(), m.EmployeeID, string(m.Account), m.Delta.String(), m.Kind, m.ReferenceID, m.Reason, m.ActorID, m.IdempotencyKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	if m.Delta.IsNegative() {
		tag, err := s.DB.Exec(ctx, `
      UPDATE leave_balances
      SET `+col+` = `+col+` + $2, updated_at = now()
      WHERE employee_id = $1 AND `+col+` + $2 >= 0
    `, m.EmployeeID, m.Delta.String())
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return approval.ErrInsufficientBalance
		}
		return nil
	}

	_, err = s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, `+col+`)
    VALUES ($1, $2)
    ON CONFLICT (employee_id) DO UPDATE SET `+col+` = leave_balances.`+col+` + EXCLUDED.`+col+`, updated_at = now()
  `, m.EmployeeID, m.Delta.String())
	return err
}

// History lists the ledger lines of an employee, newest first.
func (s *Store) History(ctx context.Context, employeeID string, limit, offset int) ([]Entry, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, account, delta::text, kind, reference_id, reason, actor_id, created_at
    FROM balance_transactions
    WHERE employee_id = $1
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, employeeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var account, delta string
		if err := rows.Scan(&e.ID, &account, &delta, &e.Kind, &e.ReferenceID, &e.Reason, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Account = Account(account)
		if e.Delta, err = decimal.NewFromString(delta); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
