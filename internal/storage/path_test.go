package storage

import (
	"testing"
	"time"
)

func TestBuildResultPath(t *testing.T) {
	ts := time.Date(2026, time.February, 19, 22, 5, 0, 0, time.FixedZone("x", -5*3600))
	key, err := BuildResultPath("0f8fad5b-d9cb-469f-a165-70867728950e", ts)
	if err != nil {
		t.Fatalf("BuildResultPath() error = %v", err)
	}
	want := "results/date=2026-02-20/0f8fad5b-d9cb-469f-a165-70867728950e.parquet"
	if key != want {
		t.Fatalf("BuildResultPath() = %q, want %q", key, want)
	}
}

func TestBuildResultPathRejectsInvalidTraceID(t *testing.T) {
	for _, traceID := range []string{"", "../oops", "a/b", "-leading"} {
		if _, err := BuildResultPath(traceID, time.Now()); err == nil {
			t.Fatalf("BuildResultPath(%q) expected error", traceID)
		}
	}
}

func TestParseResultDate(t *testing.T) {
	day, err := ParseResultDate("2024-03-01")
	if err != nil {
		t.Fatalf("ParseResultDate() error = %v", err)
	}
	if day.Year() != 2024 || day.Month() != time.March || day.Day() != 1 {
		t.Fatalf("ParseResultDate() = %v", day)
	}
	if _, err := ParseResultDate("03/01/2024"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
