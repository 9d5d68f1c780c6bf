package nlq

import (
	"strings"

	"github.com/sqlagent/sqlagent/internal/dialect"
)

type statementBuilder struct {
	dialect dialect.Dialect
	sql     strings.Builder
	inline  strings.Builder
	args    []any
}

func newStatementBuilder(d dialect.Dialect) *statementBuilder {
	return &statementBuilder{dialect: d}
}

func (b *statementBuilder) text(s string) {
	b.sql.WriteString(s)
	b.inline.WriteString(s)
}

func (b *statementBuilder) literal(value string) {
	b.args = append(b.args, value)
	b.sql.WriteString(b.dialect.Placeholder(len(b.args)))
	b.inline.WriteString(quoteLiteral(value))
}

func (b *statementBuilder) build(limit *int) Statement {
	sql, inline := b.sql.String(), b.inline.String()
	if limit != nil {
		sql = b.dialect.ApplyLimit(sql, *limit)
		inline = b.dialect.ApplyLimit(inline, *limit)
	}
	return Statement{SQL: sql, Args: b.args, inline: inline}
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
