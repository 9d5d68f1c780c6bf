package nlq

import (
	"context"
	"regexp"
	"strings"

	"github.com/sqlagent/sqlagent/internal/catalog"
	"github.com/sqlagent/sqlagent/internal/dialect"
)

var (
	insertValuesPattern = regexp.MustCompile(`values?\s+(.+?)(?:\s+where|\s*$)`)
	updateSetPattern    = regexp.MustCompile(`set\s+(.+?)(?:\s+where|\s*$)`)
	wherePattern        = regexp.MustCompile(`where\s+(.+?)$`)
)

var kindKeywords = []struct {
	kind     Kind
	keywords []string
}{
	{KindInsert, []string{"insert", "add", "create"}},
	{KindUpdate, []string{"update", "modify", "change"}},
	{KindDelete, []string{"delete", "remove"}},
}

// DetectKind decides the statement type by substring scan of the lowercased
// query: insert words win over update words, which win over delete words.
// Everything else is a select.
func DetectKind(query string) Kind {
	lower := strings.ToLower(query)
	for _, candidate := range kindKeywords {
		for _, keyword := range candidate.keywords {
			if strings.Contains(lower, keyword) {
				return candidate.kind
			}
		}
	}
	return KindSelect
}

// Assembler builds statements for one backend.
type Assembler struct {
	Dialect     dialect.Dialect
	Schema      SchemaFunc
	Constraints map[string]catalog.TableConstraints
	// RestrictOrderBy drops ORDER BY text that does not name known columns.
	RestrictOrderBy bool
	// SearchColumn is the table.column matched against intent search terms.
	SearchColumn string
}

// Assemble builds the statement for query over the resolved tables. With no
// tables the statement is empty. Insert and update statements are empty when
// their clause cannot be found.
func (a Assembler) Assemble(ctx context.Context, query string, tables []string) (Statement, Kind, error) {
	kind := DetectKind(query)
	if len(tables) == 0 {
		return Statement{}, kind, nil
	}

	lower := strings.ToLower(query)
	switch kind {
	case KindInsert:
		return a.insertStatement(lower, tables[0]), kind, nil
	case KindUpdate:
		return a.updateStatement(lower, tables[0]), kind, nil
	case KindDelete:
		return a.deleteStatement(lower, tables[0]), kind, nil
	default:
		stmt, err := a.selectStatement(ctx, query, tables)
		return stmt, kind, err
	}
}

func (a Assembler) insertStatement(lower, table string) Statement {
	match := insertValuesPattern.FindStringSubmatch(lower)
	if match == nil {
		return Statement{}
	}
	return Statement{SQL: "INSERT INTO " + table + " VALUES (" + match[1] + ")"}
}

func (a Assembler) updateStatement(lower, table string) Statement {
	match := updateSetPattern.FindStringSubmatch(lower)
	if match == nil {
		return Statement{}
	}
	sql := "UPDATE " + table + " SET " + match[1]
	if where := wherePattern.FindStringSubmatch(lower); where != nil {
		sql += " WHERE " + where[1]
	}
	return Statement{SQL: sql}
}

func (a Assembler) deleteStatement(lower, table string) Statement {
	sql := "DELETE FROM " + table
	if where := wherePattern.FindStringSubmatch(lower); where != nil {
		sql += " WHERE " + where[1]
	}
	return Statement{SQL: sql}
}

func (a Assembler) selectStatement(ctx context.Context, query string, tables []string) (Statement, error) {
	_, conditions := ExtractConditions(query)

	columns := []string{}
	known := map[string]struct{}{}
	for _, table := range tables {
		schema, err := a.Schema(ctx, table)
		if err != nil {
			return Statement{}, err
		}
		for _, column := range schema.Columns {
			columns = append(columns, table+"."+column)
		}
		addKnownColumns(known, table, schema.Columns)
	}
	projection := strings.Join(columns, ", ")
	if projection == "" {
		projection = "*"
	}

	b := newStatementBuilder(a.Dialect)
	b.text("SELECT " + projection + " FROM " + tables[0])

	if len(tables) > 1 {
		joins := BuildJoins(tables, a.Constraints)
		for _, table := range tables[1:] {
			b.text(" JOIN " + table)
			current := []string{}
			for _, predicate := range joins {
				if strings.Contains(predicate, table) {
					current = append(current, predicate)
				}
			}
			if len(current) > 0 {
				b.text(" ON " + strings.Join(current, " AND "))
			}
		}
	}

	if len(conditions) > 0 {
		b.text(" WHERE " + strings.Join(conditions, " AND "))
	}

	if order, ok := orderByText(query); ok && order != "" {
		if !a.RestrictOrderBy || allowedOrderBy(order, known) {
			b.text(" ORDER BY " + order)
		}
	}

	var limit *int
	if n, ok := explicitLimit(query); ok {
		limit = &n
	}
	return b.build(limit), nil
}
