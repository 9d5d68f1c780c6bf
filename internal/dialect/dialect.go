// Package dialect holds the per-backend pieces of the pipeline: driver
// registration, DSN construction, catalog query text and value normalization.
// Everything above this package is backend agnostic.
package dialect

import (
	"fmt"
	"strings"
	"time"
)

// Dialect describes one supported database backend.
//
// Catalog queries return normalized columns so the introspector can scan them
// without knowing the backend:
//
//	ListTablesQuery    table_name
//	TableSchemaQuery   column_name, data_type, is_nullable ('YES'|'NO'), max_length, precision_scale
//	PrimaryKeysQuery   table_name, column_name (ordered by table, key ordinal)
//	ForeignKeysQuery   table_name, column_name, foreign_table_name, foreign_column_name
//
// TableSchemaQuery takes the table name as its single bind parameter.
type Dialect interface {
	Name() string
	DriverName() string
	DSN(params ConnParams) string

	ListTablesQuery() string
	TableSchemaQuery() string
	PrimaryKeysQuery() string
	ForeignKeysQuery() string
	SampleRowQuery(table string) string

	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	// ContainsOperator is the case-insensitive pattern match operator.
	ContainsOperator() string
	// ApplyLimit restricts a complete SELECT statement to n rows.
	ApplyLimit(statement string, n int) string

	// ReadOnlyTx reports whether queries may run inside a read-only transaction.
	ReadOnlyTx() bool
	// NormalizeValue converts driver specific scan results for a column of the
	// given database type into portable values. Unknown values pass through.
	NormalizeValue(databaseType string, value any) any
}

type ConnParams struct {
	Host                   string
	Port                   int
	Database               string
	User                   string
	Password               string
	TrustServerCertificate bool
	ConnectTimeout         time.Duration
}

func Lookup(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mssql", "sqlserver":
		return MSSQL{}, nil
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unsupported database backend %q", name)
	}
}

func connectTimeoutSeconds(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}
	seconds := int(timeout / time.Second)
	if seconds == 0 {
		return 1
	}
	return seconds
}
