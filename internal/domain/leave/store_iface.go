package leave

import (
	"context"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/audit"
	"facultyleave/internal/domain/balance"
)

// Transition is one committed state change: the new row, the history line and an
// optional ledger movement are written together or not at all.
type Transition struct {
	Before    LeaveRequest
	After     LeaveRequest
	Actor     approval.Actor
	Remarks   string
	RequestID string
	Movement  *balance.Movement
}

type StoreAPI interface {
	CreateRequest(ctx context.Context, req LeaveRequest) error
	GetRequest(ctx context.Context, id string) (LeaveRequest, error)
	ListRequests(ctx context.Context, filter ListFilter) (ListResult, error)
	SaveTransition(ctx context.Context, t Transition) (LeaveRequest, error)
	History(ctx context.Context, id string) ([]audit.Entry, error)
}
