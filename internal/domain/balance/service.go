package balance

import (
	"context"

	"github.com/shopspring/decimal"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/platform/querier"
)

type Service struct {
	Store *Store
}

func NewService(store *Store) *Service {
	return &Service{Store: store}
}

// GetLeaveBalance is the balance lookup the leave builder consults before scheduling.
func (s *Service) GetLeaveBalance(ctx context.Context, employeeID string) (Balance, error) {
	b, err := s.Store.Get(ctx, employeeID)
	if err != nil {
		return Balance{}, approval.Transport("get leave balance", err)
	}
	return b, nil
}

// HasSufficient reports whether b can cover days of the given account.
func (s *Service) HasSufficient(b Balance, acct Account, days float64) bool {
	return b.Covers(acct, days)
}

func (s *Service) Debit(ctx context.Context, m Movement) error {
	if !m.Delta.IsNegative() {
		return approval.Invalid("delta", "a debit must be negative")
	}
	if err := s.Store.Apply(ctx, m); err != nil {
		return approval.Transport("debit balance", err)
	}
	return nil
}

func (s *Service) Credit(ctx context.Context, m Movement) error {
	if !m.Delta.IsPositive() {
		return approval.Invalid("delta", "a credit must be positive")
	}
	if err := s.Store.Apply(ctx, m); err != nil {
		return approval.Transport("credit balance", err)
	}
	return nil
}

// Move applies m as a debit or a credit depending on the sign of its delta.
func (s *Service) Move(ctx context.Context, m Movement) error {
	if m.Delta.IsNegative() {
		return s.Debit(ctx, m)
	}
	return s.Credit(ctx, m)
}

func (s *Service) History(ctx context.Context, employeeID string, limit, offset int) ([]Entry, error) {
	entries, err := s.Store.History(ctx, employeeID, limit, offset)
	if err != nil {
		return nil, approval.Transport("balance history", err)
	}
	return entries, nil
}

// Set moves both counters to the given values through adjust movements, keeping the ledger
// the single source of every change.
func (s *Service) Set(ctx context.Context, actor approval.Actor, employeeID string, leave, ccl decimal.Decimal, reason string) (Balance, error) {
	var issues approval.Issues
	issues.Required("employeeId", employeeID)
	issues.Required("reason", reason)
	if leave.IsNegative() {
		issues.Add("leaveBalance", "must not be negative")
	}
	if ccl.IsNegative() {
		issues.Add("cclBalance", "must not be negative")
	}
	if err := issues.Err(); err != nil {
		return Balance{}, err
	}

	var out Balance
	err := querier.WithTx(ctx, s.Store.DB, func(q querier.Querier) error {
		tx := NewStore(q)
		current, err := tx.Get(ctx, employeeID)
		if err != nil {
			return err
		}
		for acct, target := range map[Account]decimal.Decimal{AccountLeave: leave, AccountCCL: ccl} {
			delta := target.Sub(current.Available(acct))
			if delta.IsZero() {
				continue
			}
			if err := tx.Apply(ctx, Movement{
				EmployeeID: employeeID,
				Account:    acct,
				Delta:      delta,
				Kind:       KindAdjust,
				Reason:     reason,
				ActorID:    actor.EmployeeID,
			}); err != nil {
				return err
			}
		}
		out, err = tx.Get(ctx, employeeID)
		return err
	})
	if err != nil {
		return Balance{}, approval.Transport("set balance", err)
	}
	return out, nil
}
