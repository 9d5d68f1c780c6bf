// Package sqlengine executes read statements on a scoped database connection.
package sqlengine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sqlagent/sqlagent/internal/database"
	"github.com/sqlagent/sqlagent/internal/query"
)

type Engine struct {
	// MaxRows stops reading after this many rows; 0 reads everything.
	MaxRows int
}

func NewEngine(maxRows int) *Engine {
	return &Engine{MaxRows: maxRows}
}

func (e *Engine) Execute(ctx context.Context, conn database.Conn, request query.Request) (query.Result, error) {
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if conn == nil {
		return query.Result{}, fmt.Errorf("connection is required")
	}

	start := time.Now()
	var queryer sqlx.QueryerContext = conn
	if request.ReadOnlyTx {
		tx, err := conn.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: fmt.Errorf("begin read-only transaction: %w", err)}
		}
		defer func() { _ = tx.Rollback() }()
		queryer = tx
	}

	rows, err := queryer.QueryxContext(ctx, sqlText, request.Args...)
	if err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: fmt.Errorf("query columns: %w", err)}
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: fmt.Errorf("query column types: %w", err)}
	}
	typeNames := make([]string, len(columnTypes))
	for idx, columnType := range columnTypes {
		typeNames[idx] = columnType.DatabaseTypeName()
	}

	result := query.Result{Columns: columns, ColumnTypes: typeNames, Rows: make([][]any, 0)}
	for rows.Next() {
		if e.MaxRows > 0 && len(result.Rows) >= e.MaxRows {
			result.Truncated = true
			break
		}
		values, err := rows.SliceScan()
		if err != nil {
			return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: fmt.Errorf("scan row: %w", err)}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, &query.ExecutionError{SQL: sqlText, Err: fmt.Errorf("iterate rows: %w", err)}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
