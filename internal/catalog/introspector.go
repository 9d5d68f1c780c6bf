package catalog

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/sqlagent/sqlagent/internal/dialect"
)

// Introspector reads table, column and key metadata through one connection.
// It is request scoped and holds no state besides the connection.
type Introspector struct {
	q       sqlx.QueryerContext
	dialect dialect.Dialect
}

func NewIntrospector(q sqlx.QueryerContext, d dialect.Dialect) *Introspector {
	return &Introspector{q: q, dialect: d}
}

type columnRow struct {
	ColumnName     string         `db:"column_name"`
	DataType       string         `db:"data_type"`
	IsNullable     string         `db:"is_nullable"`
	MaxLength      sql.NullString `db:"max_length"`
	PrecisionScale sql.NullString `db:"precision_scale"`
}

type primaryKeyRow struct {
	TableName  string `db:"table_name"`
	ColumnName string `db:"column_name"`
}

type foreignKeyRow struct {
	TableName         string `db:"table_name"`
	ColumnName        string `db:"column_name"`
	ForeignTableName  string `db:"foreign_table_name"`
	ForeignColumnName string `db:"foreign_column_name"`
}

func (i *Introspector) ListTables(ctx context.Context) ([]string, error) {
	tables := []string{}
	if err := sqlx.SelectContext(ctx, i.q, &tables, i.dialect.ListTablesQuery()); err != nil {
		return nil, &QueryError{Op: "list tables", Err: err}
	}
	return tables, nil
}

// TableSchema returns the columns of table in ordinal order. An unknown table
// yields an empty schema, not an error.
func (i *Introspector) TableSchema(ctx context.Context, table string) (TableSchema, error) {
	rows := []columnRow{}
	if err := sqlx.SelectContext(ctx, i.q, &rows, i.dialect.TableSchemaQuery(), table); err != nil {
		return TableSchema{}, &QueryError{Op: "table schema", Table: table, Err: err}
	}

	schema := TableSchema{
		Table:           table,
		Columns:         make([]string, 0, len(rows)),
		Types:           make([]string, 0, len(rows)),
		Nullable:        make([]bool, 0, len(rows)),
		MaxLengths:      make([]string, 0, len(rows)),
		PrecisionScales: make([]string, 0, len(rows)),
	}
	for _, row := range rows {
		schema.Columns = append(schema.Columns, row.ColumnName)
		schema.Types = append(schema.Types, row.DataType)
		schema.Nullable = append(schema.Nullable, strings.EqualFold(strings.TrimSpace(row.IsNullable), "YES"))
		schema.MaxLengths = append(schema.MaxLengths, row.MaxLength.String)
		schema.PrecisionScales = append(schema.PrecisionScales, row.PrecisionScale.String)
	}
	return schema, nil
}

// TableConstraints returns primary and foreign keys for every table that has
// at least one of them.
func (i *Introspector) TableConstraints(ctx context.Context) (map[string]TableConstraints, error) {
	pkRows := []primaryKeyRow{}
	if err := sqlx.SelectContext(ctx, i.q, &pkRows, i.dialect.PrimaryKeysQuery()); err != nil {
		return nil, &QueryError{Op: "primary keys", Err: err}
	}
	fkRows := []foreignKeyRow{}
	if err := sqlx.SelectContext(ctx, i.q, &fkRows, i.dialect.ForeignKeysQuery()); err != nil {
		return nil, &QueryError{Op: "foreign keys", Err: err}
	}

	out := map[string]TableConstraints{}
	for _, row := range pkRows {
		tc := out[row.TableName]
		tc.PrimaryKeys = append(tc.PrimaryKeys, row.ColumnName)
		out[row.TableName] = tc
	}
	for _, row := range fkRows {
		tc := out[row.TableName]
		tc.ForeignKeys = append(tc.ForeignKeys, ForeignKey{
			Column:     row.ColumnName,
			References: ColumnRef{Table: row.ForeignTableName, Column: row.ForeignColumnName},
		})
		out[row.TableName] = tc
	}
	for table, tc := range out {
		if tc.PrimaryKeys == nil {
			tc.PrimaryKeys = []string{}
		}
		if tc.ForeignKeys == nil {
			tc.ForeignKeys = []ForeignKey{}
		}
		out[table] = tc
	}
	return out, nil
}

func (i *Introspector) Relationships(ctx context.Context) (Relationships, error) {
	constraints, err := i.TableConstraints(ctx)
	if err != nil {
		return nil, err
	}
	return BuildRelationships(constraints), nil
}

// SampleRow returns the column names and values of one row of table, or
// ErrNotFound when the table is empty.
func (i *Introspector) SampleRow(ctx context.Context, table string) ([]string, []any, error) {
	rows, err := i.q.QueryxContext(ctx, i.dialect.SampleRowQuery(table))
	if err != nil {
		return nil, nil, &QueryError{Op: "sample row", Table: table, Err: err}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, &QueryError{Op: "sample row", Table: table, Err: err}
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, nil, &QueryError{Op: "sample row", Table: table, Err: err}
		}
		return nil, nil, ErrNotFound
	}
	values, err := rows.SliceScan()
	if err != nil {
		return nil, nil, &QueryError{Op: "sample row", Table: table, Err: err}
	}
	return columns, values, nil
}
