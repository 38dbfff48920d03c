package balance

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Account string

const (
	AccountLeave Account = "leave"
	AccountCCL   Account = "ccl"
)

const (
	KindDebit    = "debit"
	KindCredit   = "credit"
	KindReversal = "reversal"
	KindAdjust   = "adjust"
)

// Balance holds the CL and CCL counters of one employee.
type Balance struct {
	EmployeeID   string
	LeaveBalance decimal.Decimal
	CCLBalance   decimal.Decimal
	UpdatedAt    time.Time
}

func (b Balance) Available(acct Account) decimal.Decimal {
	if acct == AccountCCL {
		return b.CCLBalance
	}
	return b.LeaveBalance
}

// Covers reports whether days can be taken from acct without going negative.
func (b Balance) Covers(acct Account, days float64) bool {
	return decimal.NewFromFloat(days).LessThanOrEqual(b.Available(acct))
}

func (b Balance) MarshalJSON() ([]byte, error) {
	out := struct {
		EmployeeID   string      `json:"employeeId"`
		LeaveBalance json.Number `json:"leaveBalance"`
		CCLBalance   json.Number `json:"cclBalance"`
		UpdatedAt    *time.Time  `json:"updatedAt,omitempty"`
	}{
		EmployeeID:   b.EmployeeID,
		LeaveBalance: json.Number(b.LeaveBalance.String()),
		CCLBalance:   json.Number(b.CCLBalance.String()),
	}
	if !b.UpdatedAt.IsZero() {
		out.UpdatedAt = &b.UpdatedAt
	}
	return json.Marshal(out)
}

// Movement is one ledger line. IdempotencyKey makes each movement apply at most once.
type Movement struct {
	EmployeeID     string
	Account        Account
	Delta          decimal.Decimal
	Kind           string
	ReferenceID    string
	Reason         string
	ActorID        string
	IdempotencyKey string
}

func Debit(employeeID string, acct Account, days float64, referenceID, key string) Movement {
	return Movement{
		EmployeeID:     employeeID,
		Account:        acct,
		Delta:          decimal.NewFromFloat(days).Neg(),
		Kind:           KindDebit,
		ReferenceID:    referenceID,
		IdempotencyKey: key,
	}
}

func Credit(employeeID string, acct Account, days float64, referenceID, key string) Movement {
	return Movement{
		EmployeeID:     employeeID,
		Account:        acct,
		Delta:          decimal.NewFromFloat(days),
		Kind:           KindCredit,
		ReferenceID:    referenceID,
		IdempotencyKey: key,
	}
}

type Entry struct {
	ID          string          `json:"id"`
	Account     Account         `json:"account"`
	Delta       decimal.Decimal `json:"delta"`
	Kind        string          `json:"kind"`
	ReferenceID string          `json:"referenceId,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	ActorID     string          `json:"actorId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}
