package faculty

import (
	"context"
	"time"

	"facultyleave/internal/domain/calendar"
)

type StoreAPI interface {
	ListByCampus(ctx context.Context, campus string) ([]Faculty, error)
	Get(ctx context.Context, id string) (Faculty, error)
	Upsert(ctx context.Context, rows []Faculty) error
	OnLeave(ctx context.Context, facultyID string, date calendar.Date) (bool, error)
	BusyPeriods(ctx context.Context, facultyID string, date calendar.Date, periods []int) ([]int, error)
}

// Cache is the optional read-through cache for campus rosters.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
