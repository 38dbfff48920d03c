package faculty

import "time"

type Faculty struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	Campus     string    `json:"campus"`
	Role       string    `json:"role"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

// Availability is the answer to a substitute check for one date.
type Availability struct {
	FacultyID   string `json:"facultyId"`
	Date        string `json:"date"`
	Available   bool   `json:"available"`
	OnLeave     bool   `json:"onLeave"`
	BusyPeriods []int  `json:"busyPeriods,omitempty"`
}

type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}
