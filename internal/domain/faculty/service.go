package faculty

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/calendar"
)

const DefaultCacheTTL = 10 * time.Minute

type Service struct {
	Store    StoreAPI
	Cache    Cache
	CacheTTL time.Duration
}

func NewService(store StoreAPI, cache Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{Store: store, Cache: cache, CacheTTL: ttl}
}

func cacheKey(campus string) string {
	return "faculty:" + strings.ToLower(strings.TrimSpace(campus))
}

// List returns the campus roster, reading through the cache when one is configured.
// Cache failures are logged and fall back to the store.
func (s *Service) List(ctx context.Context, campus string) ([]Faculty, error) {
	if strings.TrimSpace(campus) == "" {
		return nil, approval.Invalid("campus", "is required")
	}
	key := cacheKey(campus)
	if s.Cache != nil {
		var cached []Faculty
		hit, err := s.Cache.GetJSON(ctx, key, &cached)
		if err != nil {
			slog.Warn("faculty cache read failed", "campus", campus, "err", err)
		}
		if hit {
			return cached, nil
		}
	}

	list, err := s.Store.ListByCampus(ctx, campus)
	if err != nil {
		return nil, approval.Transport("list faculty", err)
	}
	if s.Cache != nil {
		if err := s.Cache.SetJSON(ctx, key, list, s.CacheTTL); err != nil {
			slog.Warn("faculty cache write failed", "campus", campus, "err", err)
		}
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id string) (Faculty, error) {
	f, err := s.Store.Get(ctx, id)
	if err != nil {
		return Faculty{}, approval.Transport("get faculty", err)
	}
	return f, nil
}

// Availability reports whether facultyID can cover periods on date: not on leave that
// day and not already substituting in any of those periods.
func (s *Service) Availability(ctx context.Context, facultyID string, date calendar.Date, periods []int) (Availability, error) {
	out := Availability{FacultyID: facultyID, Date: date.String()}
	onLeave, err := s.Store.OnLeave(ctx, facultyID, date)
	if err != nil {
		return out, approval.Transport("check faculty leave", err)
	}
	busy, err := s.Store.BusyPeriods(ctx, facultyID, date, periods)
	if err != nil {
		return out, approval.Transport("check faculty periods", err)
	}
	out.OnLeave = onLeave
	out.BusyPeriods = busy
	out.Available = !onLeave && len(busy) == 0
	return out, nil
}

// CheckFacultyAvailability is the ok/conflict form used while assembling a schedule.
func (s *Service) CheckFacultyAvailability(ctx context.Context, facultyID string, date calendar.Date, periods []int) (bool, error) {
	a, err := s.Availability(ctx, facultyID, date, periods)
	if err != nil {
		return false, err
	}
	return a.Available, nil
}

func (s *Service) invalidate(ctx context.Context, campuses []string) {
	if s.Cache == nil || len(campuses) == 0 {
		return
	}
	keys := make([]string, 0, len(campuses))
	for _, c := range campuses {
		keys = append(keys, cacheKey(c))
	}
	if err := s.Cache.Delete(ctx, keys...); err != nil {
		slog.Warn("faculty cache invalidate failed", "err", err)
	}
}
