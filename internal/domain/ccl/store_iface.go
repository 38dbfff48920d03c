package ccl

import (
	"context"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/audit"
	"facultyleave/internal/domain/balance"
)

type Transition struct {
	Before    WorkRequest
	After     WorkRequest
	Actor     approval.Actor
	Remarks   string
	RequestID string
	Movement  *balance.Movement
}

type StoreAPI interface {
	Create(ctx context.Context, req WorkRequest) error
	Get(ctx context.Context, id string) (WorkRequest, error)
	List(ctx context.Context, filter ListFilter) (ListResult, error)
	SaveTransition(ctx context.Context, t Transition) (WorkRequest, error)
	History(ctx context.Context, id string) ([]audit.Entry, error)
}
