package shared

import (
	"encoding/json"
	"io"
	"net/http"
)

// leaveAliases maps field names older clients still send onto the canonical names.
var leaveAliases = map[string]string{
	"type":        "leaveType",
	"leave_type":  "leaveType",
	"fromDate":    "startDate",
	"from_date":   "startDate",
	"toDate":      "endDate",
	"to_date":     "endDate",
	"halfDay":     "isHalfDay",
	"is_half_day": "isHalfDay",
}

// DecodeLeavePayload decodes a leave request body into dst after folding legacy field
// aliases into canonical names. A canonical field present in the body wins over its alias.
func DecodeLeavePayload(body io.Reader, dst any) error {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&fields); err != nil {
		return err
	}
	for alias, canonical := range leaveAliases {
		value, ok := fields[alias]
		if !ok {
			continue
		}
		delete(fields, alias)
		if _, exists := fields[canonical]; !exists {
			fields[canonical] = value
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// DecodeJSON decodes an optional body. An empty body leaves dst untouched.
func DecodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == io.EOF {
		return nil
	}
	return err
}
