package shared

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"facultyleave/internal/domain/calendar"
)

// QueryDate reads a calendar date from the query string. A missing value is the zero date.
func QueryDate(r *http.Request, name string) (calendar.Date, error) {
	return calendar.Parse(r.URL.Query().Get(name))
}

// QueryInts reads a comma separated list of integers such as periods=1,2,5.
func QueryInts(r *http.Request, name string) ([]int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", name, part)
		}
		out = append(out, v)
	}
	return out, nil
}
