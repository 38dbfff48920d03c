package faculty

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/calendar"
	"facultyleave/internal/platform/cache"
)

type fakeStore struct {
	listCalls int
	ListFn    func(campus string) ([]Faculty, error)
	OnLeaveFn func(id string, date calendar.Date) (bool, error)
	BusyFn    func(id string, date calendar.Date, periods []int) ([]int, error)
	upserted  []Faculty
	UpsertErr error
}

func (f *fakeStore) ListByCampus(_ context.Context, campus string) ([]Faculty, error) {
	f.listCalls++
	return f.ListFn(campus)
}

func (f *fakeStore) Get(_ context.Context, id string) (Faculty, error) {
	for _, row := range f.upserted {
		if row.ID == id {
			return row, nil
		}
	}
	return Faculty{}, approval.ErrNotFound
}

func (f *fakeStore) Upsert(_ context.Context, rows []Faculty) error {
	if f.UpsertErr != nil {
		return f.UpsertErr
	}
	f.upserted = append(f.upserted, rows...)
	return nil
}

func (f *fakeStore) OnLeave(_ context.Context, id string, date calendar.Date) (bool, error) {
	if f.OnLeaveFn == nil {
		return false, nil
	}
	return f.OnLeaveFn(id, date)
}

func (f *fakeStore) BusyPeriods(_ context.Context, id string, date calendar.Date, periods []int) ([]int, error) {
	if f.BusyFn == nil {
		return nil, nil
	}
	return f.BusyFn(id, date, periods)
}

func redisCache(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.New(client), mr
}

func TestListReadsThroughCache(t *testing.T) {
	store := &fakeStore{ListFn: func(campus string) ([]Faculty, error) {
		return []Faculty{{ID: "f1", Name: "Asha", Department: "CSE", Campus: campus, Role: "employee"}}, nil
	}}
	c, mr := redisCache(t)
	svc := NewService(store, c, time.Minute)

	first, err := svc.List(context.Background(), "Main")
	require.NoError(t, err)
	second, err := svc.List(context.Background(), "main")
	require.NoError(t, err)

	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, mr.Exists("faculty:main"))
}

func TestListWithoutCacheAndBlankCampus(t *testing.T) {
	store := &fakeStore{ListFn: func(string) ([]Faculty, error) { return nil, errors.New("conn reset") }}
	svc := NewService(store, nil, 0)

	_, err := svc.List(context.Background(), " ")
	assert.ErrorIs(t, err, approval.ErrValidation)

	_, err = svc.List(context.Background(), "main")
	assert.ErrorIs(t, err, approval.ErrTransport)
}

func TestCheckFacultyAvailability(t *testing.T) {
	day := calendar.MustParse("2024-06-03")
	store := &fakeStore{
		OnLeaveFn: func(id string, _ calendar.Date) (bool, error) { return id == "away", nil },
		BusyFn: func(id string, _ calendar.Date, periods []int) ([]int, error) {
			if id == "busy" {
				return []int{periods[0]}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(store, nil, 0)

	ok, err := svc.CheckFacultyAvailability(context.Background(), "free", day, []int{2})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckFacultyAvailability(context.Background(), "away", day, []int{2})
	require.NoError(t, err)
	assert.False(t, ok)

	a, err := svc.Availability(context.Background(), "busy", day, []int{3})
	require.NoError(t, err)
	assert.False(t, a.Available)
	assert.Equal(t, []int{3}, a.BusyPeriods)
	assert.Equal(t, "2024-06-03", a.Date)
}

func TestAvailabilityCombinesLeaveAndBusyPeriods(t *testing.T) {
	ctx := context.Background()
	day := calendar.MustParse("2024-06-04")
	var gotDate calendar.Date
	var gotPeriods []int
	store := &fakeStore{
		OnLeaveFn: func(id string, date calendar.Date) (bool, error) {
			gotDate = date
			return id == "both", nil
		},
		BusyFn: func(id string, _ calendar.Date, periods []int) ([]int, error) {
			gotPeriods = periods
			if id == "both" || id == "busy" {
				return []int{5, 7}, nil
			}
			return nil, nil
		},
	}
	svc := NewService(store, nil, 0)

	a, err := svc.Availability(ctx, "both", day, []int{5, 6, 7})
	require.NoError(t, err)
	assert.False(t, a.Available)
	assert.True(t, a.OnLeave)
	assert.Equal(t, []int{5, 7}, a.BusyPeriods)
	assert.Equal(t, day, gotDate)
	assert.Equal(t, []int{5, 6, 7}, gotPeriods)

	a, err = svc.Availability(ctx, "busy", day, []int{5})
	require.NoError(t, err)
	assert.False(t, a.OnLeave)
	assert.False(t, a.Available)

	a, err = svc.Availability(ctx, "free", day, []int{5})
	require.NoError(t, err)
	assert.True(t, a.Available)
	assert.Empty(t, a.BusyPeriods)

	store.OnLeaveFn = func(string, calendar.Date) (bool, error) { return false, errors.New("conn reset") }
	_, err = svc.CheckFacultyAvailability(ctx, "free", day, []int{5})
	assert.ErrorIs(t, err, approval.ErrTransport)

	store.OnLeaveFn = nil
	store.BusyFn = func(string, calendar.Date, []int) ([]int, error) { return nil, errors.New("timeout") }
	_, err = svc.Availability(ctx, "free", day, []int{5})
	assert.ErrorIs(t, err, approval.ErrTransport)
}

func rosterWorkbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportRosterUpsertsAndInvalidates(t *testing.T) {
	store := &fakeStore{ListFn: func(string) ([]Faculty, error) { return nil, nil }}
	c, mr := redisCache(t)
	require.NoError(t, mr.Set("faculty:main", "[]"))
	svc := NewService(store, c, time.Minute)

	book := rosterWorkbook(t, [][]any{
		{"ID", "Name", "Department", "Campus", "Role"},
		{"f1", "Asha", "CSE", "Main", ""},
		{"f2", "Ravi", "ECE", "Main", "HOD"},
		{"f3", "", "ECE", "Main", ""},
		{"f4", "Meena", "ECE", "Main", "dean"},
		{"f1", "Asha again", "CSE", "Main", ""},
		{"", "", "", "", ""},
	})

	res, err := svc.ImportRoster(context.Background(), book)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 4, res.Errors[0].Row)

	require.Len(t, store.upserted, 2)
	assert.Equal(t, "employee", store.upserted[0].Role)
	assert.Equal(t, "hod", store.upserted[1].Role)
	assert.False(t, mr.Exists("faculty:main"))
}

func TestImportRosterRejectsMissingColumns(t *testing.T) {
	svc := NewService(&fakeStore{}, nil, 0)
	book := rosterWorkbook(t, [][]any{{"id", "name", "campus"}, {"f1", "Asha", "Main"}})

	_, err := svc.ImportRoster(context.Background(), book)
	assert.ErrorIs(t, err, approval.ErrValidation)

	_, err = svc.ImportRoster(context.Background(), bytes.NewBufferString("not a workbook"))
	assert.ErrorIs(t, err, approval.ErrValidation)
}
