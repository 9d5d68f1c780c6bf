package nlq

import (
	"context"
	"strings"

	"github.com/sqlagent/sqlagent/internal/catalog"
)

// DefaultSearchColumn is matched against search terms when none is configured.
const DefaultSearchColumn = "products.name"

// ConstructSmartQuery builds SELECT * over the intent tables, joining each
// table to the first previously placed table it shares a relationship with.
// Tables with no such relationship are left out. Search terms become
// case-insensitive contains matches on the search column, OR-ed together and
// bound as arguments.
func (a Assembler) ConstructSmartQuery(intent Intent, rels catalog.Relationships) Statement {
	if len(intent.Tables) == 0 {
		return Statement{}
	}

	b := newStatementBuilder(a.Dialect)
	b.text("SELECT * FROM " + intent.Tables[0])
	for idx, table := range intent.Tables[1:] {
		if on, ok := smartJoin(table, intent.Tables[:idx+1], rels); ok {
			b.text(" JOIN " + table + " ON " + on)
		}
	}

	if len(intent.SearchTerms) > 0 {
		column := a.searchColumn()
		b.text(" WHERE ")
		for idx, term := range intent.SearchTerms {
			if idx > 0 {
				b.text(" OR ")
			}
			b.text(column + " " + a.Dialect.ContainsOperator() + " ")
			b.literal("%" + term + "%")
		}
	}

	if intent.OrderBy != nil && *intent.OrderBy != "" {
		b.text(" ORDER BY " + *intent.OrderBy)
	}

	var limit *int
	if intent.Limit != nil && *intent.Limit != 0 {
		limit = intent.Limit
	}
	return b.build(limit)
}

// AssembleSmart applies the ORDER BY policy to intent and builds the smart
// statement.
func (a Assembler) AssembleSmart(ctx context.Context, intent Intent, rels catalog.Relationships) (Statement, error) {
	if a.RestrictOrderBy && intent.OrderBy != nil {
		known := map[string]struct{}{}
		for _, table := range intent.Tables {
			schema, err := a.Schema(ctx, table)
			if err != nil {
				return Statement{}, err
			}
			addKnownColumns(known, table, schema.Columns)
		}
		if !allowedOrderBy(*intent.OrderBy, known) {
			intent.OrderBy = nil
		}
	}
	return a.ConstructSmartQuery(intent, rels), nil
}

func (a Assembler) searchColumn() string {
	if strings.TrimSpace(a.SearchColumn) == "" {
		return DefaultSearchColumn
	}
	return a.SearchColumn
}

// searchTable is the table part of the search column.
func (a Assembler) searchTable() string {
	column := a.searchColumn()
	if idx := strings.LastIndex(column, "."); idx > 0 {
		return column[:idx]
	}
	return column
}

func smartJoin(table string, placed []string, rels catalog.Relationships) (string, bool) {
	for _, prev := range placed {
		for _, rel := range rels[prev] {
			if rel.ReferencedTable == table {
				return prev + "." + rel.Column + " = " + table + "." + rel.ReferencedColumn, true
			}
		}
		for _, rel := range rels[table] {
			if rel.ReferencedTable == prev {
				return table + "." + rel.Column + " = " + prev + "." + rel.ReferencedColumn, true
			}
		}
	}
	return "", false
}
