package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DateLayout keys the per-day game history.
const DateLayout = "2006-01-02"

func GeneratePuzzleID() string {
	return uuid.New().String()
}

func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatValue renders an evaluated expression the way players expect to read
// it: "10", "2.5", "-3".
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func Float64Ptr(v float64) *float64 {
	return &v
}
