// Package audit keeps the transition history of leave and CCL requests.
package audit

import (
	"context"
	"fmt"
	"time"

	"facultyleave/internal/platform/querier"
)

const (
	EntityLeave = "leave_request"
	EntityCCL   = "ccl_work_request"
)

type Entry struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Campus     string    `json:"campus"`
	ActorID    string    `json:"actorId"`
	ActorRole  string    `json:"actorRole"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Remarks    string    `json:"remarks,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Filter narrows the feed. An empty Campus matches every campus; the HTTP feed always sets it.
type Filter struct {
	Campus     string
	EntityType string
	EntityID   string
	ActorID    string
}

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

// Record appends one transition. Pass a transaction-bound Service to keep the row in
// the same commit as the status change.
func (s *Service) Record(ctx context.Context, e Entry) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO transition_history (entity_type, entity_id, campus, actor_id, actor_role, from_status, to_status, remarks, request_id)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
  `, e.EntityType, e.EntityID, e.Campus, e.ActorID, e.ActorRole, e.FromStatus, e.ToStatus, e.Remarks, e.RequestID)
	return err
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// List returns entries oldest first, which is the order a request moved through its states.
func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Entry, error) {
	query, args := buildBaseQuery(
		"SELECT id::text, entity_type, entity_id, campus, actor_id, actor_role, from_status, to_status, remarks, request_id, created_at",
		filter,
	)
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Campus, &e.ActorID, &e.ActorRole, &e.FromStatus, &e.ToStatus, &e.Remarks, &e.RequestID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM transition_history WHERE 1=1"
	var args []any
	if filter.Campus != "" {
		args = append(args, filter.Campus)
		query += fmt.Sprintf(" AND lower(campus) = lower($%d)", len(args))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.EntityID != "" {
		args = append(args, filter.EntityID)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	return query, args
}
