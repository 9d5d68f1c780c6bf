package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/sqlagent/sqlagent/internal/dialect"
)

var decimalTypes = map[string]struct{}{
	"DECIMAL":    {},
	"NUMERIC":    {},
	"MONEY":      {},
	"SMALLMONEY": {},
}

// SerializeValue converts one scanned value into a portable scalar: temporal
// values become RFC 3339 strings, exact decimals become float64 and raw bytes
// become strings.
func SerializeValue(d dialect.Dialect, databaseType string, value any) any {
	if d != nil {
		value = d.NormalizeValue(databaseType, value)
	}
	_, isDecimal := decimalTypes[strings.ToUpper(databaseType)]

	switch typed := value.(type) {
	case time.Time:
		return typed.Format(time.RFC3339Nano)
	case []byte:
		if isDecimal {
			if f, err := strconv.ParseFloat(strings.TrimSpace(string(typed)), 64); err == nil {
				return f
			}
		}
		return string(typed)
	case string:
		if isDecimal {
			if f, err := strconv.ParseFloat(strings.TrimSpace(typed), 64); err == nil {
				return f
			}
		}
		return typed
	default:
		return typed
	}
}

// SerializeRows zips column names with each row.
func SerializeRows(d dialect.Dialect, result Result) []map[string]any {
	rows := make([]map[string]any, 0, len(result.Rows))
	for _, values := range result.Rows {
		row := make(map[string]any, len(result.Columns))
		for idx, column := range result.Columns {
			if idx >= len(values) {
				break
			}
			databaseType := ""
			if idx < len(result.ColumnTypes) {
				databaseType = result.ColumnTypes[idx]
			}
			row[column] = SerializeValue(d, databaseType, values[idx])
		}
		rows = append(rows, row)
	}
	return rows
}
