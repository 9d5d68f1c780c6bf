package catalog

import (
	"context"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("catalog: not found")

// Source is the read side of a database catalog.
type Source interface {
	ListTables(ctx context.Context) ([]string, error)
	TableSchema(ctx context.Context, table string) (TableSchema, error)
	TableConstraints(ctx context.Context) (map[string]TableConstraints, error)
}

// Sampler returns one representative row of a table.
type Sampler interface {
	SampleRow(ctx context.Context, table string) ([]string, []any, error)
}

// TableSchema holds parallel per-column sequences in ordinal order.
// MaxLengths and PrecisionScales are empty strings where the catalog has no value.
type TableSchema struct {
	Table           string   `msgpack:"table" json:"table"`
	Columns         []string `msgpack:"columns" json:"columns"`
	Types           []string `msgpack:"types" json:"types"`
	Nullable        []bool   `msgpack:"nullable" json:"nullable"`
	MaxLengths      []string `msgpack:"max_lengths" json:"max_lengths,omitempty"`
	PrecisionScales []string `msgpack:"precision_scales" json:"precision_scales,omitempty"`
}

func (s TableSchema) HasColumn(column string) bool {
	for _, candidate := range s.Columns {
		if candidate == column {
			return true
		}
	}
	return false
}

type ColumnRef struct {
	Table  string `msgpack:"table" json:"table"`
	Column string `msgpack:"column" json:"column"`
}

type ForeignKey struct {
	Column     string    `msgpack:"column" json:"column"`
	References ColumnRef `msgpack:"references" json:"references"`
}

type TableConstraints struct {
	PrimaryKeys []string     `msgpack:"primary_keys" json:"primary_keys"`
	ForeignKeys []ForeignKey `msgpack:"foreign_keys" json:"foreign_keys"`
}

// QueryError is a failed catalog query. It is propagated, never retried.
type QueryError struct {
	Op    string
	Table string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("catalog %s %q: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("catalog %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
