package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

const resultsRoot = "results"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildResultPath returns the object key of one archived query result:
// results/date=YYYY-MM-DD/<trace>.parquet, dated in UTC.
func BuildResultPath(traceID string, executedAt time.Time) (string, error) {
	if err := validatePathComponent(traceID, "trace id"); err != nil {
		return "", err
	}
	return path.Join(resultsRoot, resultDatePartition(executedAt), traceID+".parquet"), nil
}

// ParseResultDate validates a date partition value such as 2024-03-01.
func ParseResultDate(value string) (time.Time, error) {
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid result date %q: %w", value, err)
	}
	return day, nil
}

func resultDatePartition(ts time.Time) string {
	ts = ts.UTC()
	return fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day())
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
