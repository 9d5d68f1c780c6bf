// Package nlq turns free-text requests into SQL statements using keyword
// heuristics over the introspected catalog: relevant-table discovery, foreign
// key join synthesis, condition and intent extraction, and statement assembly.
package nlq

import (
	"context"
	"strings"

	"github.com/sqlagent/sqlagent/internal/catalog"
)

// Kind is the statement type decided for a request.
type Kind string

const (
	KindSelect  Kind = "select"
	KindInsert  Kind = "insert"
	KindUpdate  Kind = "update"
	KindDelete  Kind = "delete"
	KindUnknown Kind = "unknown"
)

// SchemaFunc fetches the schema of one table.
type SchemaFunc func(ctx context.Context, table string) (catalog.TableSchema, error)

// Intent is the structured reading of a request used by the smart assembler.
type Intent struct {
	Type        string   `json:"type"`
	Tables      []string `json:"tables"`
	Conditions  []string `json:"conditions"`
	Limit       *int     `json:"limit,omitempty"`
	OrderBy     *string  `json:"order_by,omitempty"`
	SearchTerms []string `json:"search_terms"`
}

// Statement is generated SQL with its bind arguments. SQL carries dialect
// placeholders; Inline renders the same statement with literals in place.
type Statement struct {
	SQL    string
	Args   []any
	inline string
}

func (s Statement) Inline() string {
	if s.inline == "" {
		return s.SQL
	}
	return s.inline
}

func (s Statement) Empty() bool {
	return strings.TrimSpace(s.SQL) == ""
}

// StatementKind classifies SQL text by its leading keyword.
func StatementKind(sql string) Kind {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return KindUnknown
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT":
		return KindSelect
	case "INSERT":
		return KindInsert
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	default:
		return KindUnknown
	}
}
