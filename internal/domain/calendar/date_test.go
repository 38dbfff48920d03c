package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptsDateAndRFC3339(t *testing.T) {
	d, err := Parse("2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, New(2024, time.June, 3), d)

	d, err = Parse("2024-06-03T23:30:00+05:30")
	require.NoError(t, err)
	assert.Equal(t, New(2024, time.June, 3), d)

	_, err = Parse("03/06/2024")
	assert.Error(t, err)
}

func TestDaysSinceIgnoresDaylightSaving(t *testing.T) {
	// US DST starts 2024-03-10; calendar arithmetic must not lose an hour.
	start := New(2024, time.March, 9)
	end := New(2024, time.March, 11)
	assert.Equal(t, 2, end.DaysSince(start))
	assert.Len(t, Range(start, end), 3)
}

func TestRangeAcrossMonthEnd(t *testing.T) {
	days := Range(MustParse("2024-02-28"), MustParse("2024-03-01"))
	require.Len(t, days, 3)
	assert.Equal(t, "2024-02-29", days[1].String())
	assert.Nil(t, Range(MustParse("2024-03-02"), MustParse("2024-03-01")))
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		At  Date  `json:"at"`
		Opt *Date `json:"opt,omitempty"`
	}
	out, err := json.Marshal(wrapper{At: MustParse("2024-06-05")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"2024-06-05"}`, string(out))

	var in wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"at":"2024-06-05","opt":"2024-06-06"}`), &in))
	assert.Equal(t, MustParse("2024-06-05"), in.At)
	require.NotNil(t, in.Opt)
	assert.Equal(t, MustParse("2024-06-06"), *in.Opt)
}
