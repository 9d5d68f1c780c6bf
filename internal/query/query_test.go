package query

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sqlagent/sqlagent/internal/dialect"
)

func TestEnvelopeMarshalSuccess(t *testing.T) {
	raw, err := json.Marshal(successEnvelope([]map[string]any{{"product_id": 1}}))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"status":"success","success":true,"data":[{"product_id":1}],"row_count":1}`
	if string(raw) != want {
		t.Fatalf("Marshal() = %s, want %s", raw, want)
	}
}

func TestEnvelopeMarshalEmptySuccessKeepsDataArray(t *testing.T) {
	raw, err := json.Marshal(successEnvelope(nil))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"status":"success","success":true,"data":[],"row_count":0}`
	if string(raw) != want {
		t.Fatalf("Marshal() = %s, want %s", raw, want)
	}
}

func TestEnvelopeMarshalError(t *testing.T) {
	raw, err := json.Marshal(errorEnvelope(GenericErrorMessage))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"status":"error","success":false,"message":"I couldn't process that query. Could you please rephrase it?"}`
	if string(raw) != want {
		t.Fatalf("Marshal() = %s, want %s", raw, want)
	}
}

func TestEnvelopeUnmarshal(t *testing.T) {
	var envelope Envelope
	if err := json.Unmarshal([]byte(`{"status":"success","success":true,"data":[{"name":"Macbook"}],"row_count":1}`), &envelope); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !envelope.Success || envelope.RowCount != 1 || envelope.Data[0]["name"] != "Macbook" {
		t.Fatalf("Unmarshal() = %+v", envelope)
	}
}

func TestUnsupportedOperationErrorUnwraps(t *testing.T) {
	err := error(&UnsupportedOperationError{Verb: "DROP"})
	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("errors.Is(%v, ErrUnsupportedOperation) = false", err)
	}
	if err.Error() != "unsupported operation: DROP statements are not allowed" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestSerializeValue(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 500, time.UTC)
	tests := []struct {
		name   string
		d      dialect.Dialect
		dbType string
		value  any
		want   any
	}{
		{name: "timestamp", d: dialect.Postgres{}, dbType: "TIMESTAMPTZ", value: ts, want: "2024-05-06T07:08:09.0000005Z"},
		{name: "numeric bytes", d: dialect.MSSQL{}, dbType: "DECIMAL", value: []byte("19.99"), want: 19.99},
		{name: "numeric string", d: dialect.Postgres{}, dbType: "numeric", value: "3.50", want: 3.5},
		{name: "money", d: dialect.MSSQL{}, dbType: "MONEY", value: []byte("100.0000"), want: 100.0},
		{name: "unparseable decimal", d: dialect.Postgres{}, dbType: "NUMERIC", value: "NaN?", want: "NaN?"},
		{name: "text bytes", d: dialect.Postgres{}, dbType: "TEXT", value: []byte("hello"), want: "hello"},
		{name: "integer", d: dialect.Postgres{}, dbType: "INT8", value: int64(42), want: int64(42)},
		{name: "null", d: dialect.Postgres{}, dbType: "TEXT", value: nil, want: nil},
		{name: "no dialect", d: nil, dbType: "", value: true, want: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := SerializeValue(tc.d, tc.dbType, tc.value); got != tc.want {
				t.Fatalf("SerializeValue() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestSerializeValueTimestampRoundTrips(t *testing.T) {
	ts := time.Date(2023, 12, 31, 23, 59, 59, 123456789, time.FixedZone("CET", 3600))
	got, ok := SerializeValue(dialect.Postgres{}, "TIMESTAMPTZ", ts).(string)
	if !ok {
		t.Fatal("SerializeValue() did not return a string")
	}
	parsed, err := time.Parse(time.RFC3339Nano, got)
	if err != nil {
		t.Fatalf("time.Parse() error = %v", err)
	}
	if !parsed.Equal(ts) {
		t.Fatalf("round trip = %v, want %v", parsed, ts)
	}
}

func TestSerializeRowsZipsColumns(t *testing.T) {
	rows := SerializeRows(dialect.Postgres{}, Result{
		Columns:     []string{"name", "price"},
		ColumnTypes: []string{"TEXT", "NUMERIC"},
		Rows:        [][]any{{[]byte("Macbook"), "1299.00"}, {"Mac mini", nil}},
	})
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d", len(rows))
	}
	if rows[0]["name"] != "Macbook" || rows[0]["price"] != 1299.0 {
		t.Fatalf("rows[0] = %#v", rows[0])
	}
	if rows[1]["price"] != nil {
		t.Fatalf("rows[1] = %#v", rows[1])
	}
}

func TestHasSelectPrefixAndWriteVerb(t *testing.T) {
	if !hasSelectPrefix("  select 1") {
		t.Fatal("hasSelectPrefix() = false for select")
	}
	if hasSelectPrefix("show me products") {
		t.Fatal("hasSelectPrefix() = true for free text")
	}
	if verb, ok := writeVerb("drop table x"); !ok || verb != "DROP" {
		t.Fatalf("writeVerb() = %q, %v", verb, ok)
	}
	if _, ok := writeVerb("list all orders"); ok {
		t.Fatal("writeVerb() matched free text")
	}
}
