package leave

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facultyleave/internal/domain/approval"
	"facultyleave/internal/domain/balance"
	"facultyleave/internal/domain/calendar"
)

func TestCalculateDays(t *testing.T) {
	start := calendar.MustParse("2025-01-10")

	days, err := CalculateDays(start, start, false)
	require.NoError(t, err)
	assert.Equal(t, 1.0, days)

	days, err = CalculateDays(start, calendar.MustParse("2025-01-12"), false)
	require.NoError(t, err)
	assert.Equal(t, 3.0, days)
}

func TestCalculateDaysInclusiveForAnyRange(t *testing.T) {
	start := calendar.MustParse("2024-01-01")
	for offset := 0; offset <= 400; offset += 7 {
		end := start.AddDays(offset)
		days, err := CalculateDays(start, end, false)
		require.NoError(t, err)
		assert.Equal(t, float64(end.DaysSince(start)+1), days)
		assert.GreaterOrEqual(t, days, 1.0)
	}
}

func TestCalculateDaysHalfDayIsAlwaysHalf(t *testing.T) {
	for _, end := range []string{"2024-06-03", "2024-06-10", "2024-05-01"} {
		days, err := CalculateDays(calendar.MustParse("2024-06-03"), calendar.MustParse(end), true)
		require.NoError(t, err)
		assert.Equal(t, 0.5, days)
	}
}

func TestCalculateDaysInvalid(t *testing.T) {
	_, err := CalculateDays(calendar.MustParse("2025-02-10"), calendar.MustParse("2025-02-09"), false)
	assert.ErrorIs(t, err, approval.ErrValidation)
}

func TestAssignablePeriods(t *testing.T) {
	assert.Equal(t, []int{1, 2, 3, 4}, AssignablePeriods(true, SessionMorning))
	assert.Equal(t, []int{5, 6, 7}, AssignablePeriods(true, SessionAfternoon))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, AssignablePeriods(false, ""))
}

func TestLeaveTypeAccount(t *testing.T) {
	assert.Equal(t, balance.AccountCCL, TypeCCL.Account())
	assert.Equal(t, balance.AccountLeave, TypeCL.Account())
	assert.Equal(t, balance.AccountLeave, TypeOD.Account())
	assert.False(t, TypeOD.ChecksBalance())
}
