package catalog

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/sqlagent/sqlagent/internal/dialect"
)

func TestIntrospectorListTables(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders").AddRow("products"))

	tables, err := NewIntrospector(db, dialect.Postgres{}).ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if !reflect.DeepEqual(tables, []string{"orders", "products"}) {
		t.Fatalf("ListTables() = %v", tables)
	}
	assertSQLMock(t, mock)
}

func TestIntrospectorListTablesEmpty(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	tables, err := NewIntrospector(db, dialect.Postgres{}).ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables() error = %v", err)
	}
	if tables == nil || len(tables) != 0 {
		t.Fatalf("ListTables() = %#v, want empty non-nil slice", tables)
	}
	assertSQLMock(t, mock)
}

func TestIntrospectorTableSchema(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns c")).
		WithArgs("products").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "max_length", "precision_scale"}).
			AddRow("id", "integer", "NO", nil, nil).
			AddRow("name", "character varying", "YES", "120", nil).
			AddRow("price", "numeric", "YES", nil, "10,2"))

	schema, err := NewIntrospector(db, dialect.Postgres{}).TableSchema(context.Background(), "products")
	if err != nil {
		t.Fatalf("TableSchema() error = %v", err)
	}
	if !reflect.DeepEqual(schema.Columns, []string{"id", "name", "price"}) {
		t.Fatalf("Columns = %v", schema.Columns)
	}
	if !reflect.DeepEqual(schema.Types, []string{"integer", "character varying", "numeric"}) {
		t.Fatalf("Types = %v", schema.Types)
	}
	if !reflect.DeepEqual(schema.Nullable, []bool{false, true, true}) {
		t.Fatalf("Nullable = %v", schema.Nullable)
	}
	if !reflect.DeepEqual(schema.MaxLengths, []string{"", "120", ""}) {
		t.Fatalf("MaxLengths = %v", schema.MaxLengths)
	}
	if !reflect.DeepEqual(schema.PrecisionScales, []string{"", "", "10,2"}) {
		t.Fatalf("PrecisionScales = %v", schema.PrecisionScales)
	}
	if !schema.HasColumn("price") || schema.HasColumn("missing") {
		t.Fatal("HasColumn() mismatch")
	}
	assertSQLMock(t, mock)
}

func TestIntrospectorTableSchemaUnknownTable(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sys.columns c")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "max_length", "precision_scale"}))

	schema, err := NewIntrospector(db, dialect.MSSQL{}).TableSchema(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("TableSchema() error = %v", err)
	}
	if len(schema.Columns) != 0 || len(schema.Types) != 0 {
		t.Fatalf("TableSchema() = %+v, want empty", schema)
	}
	assertSQLMock(t, mock)
}

func TestIntrospectorTableSchemaQueryError(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns c")).
		WithArgs("products").
		WillReturnError(errors.New("permission denied"))

	_, err := NewIntrospector(db, dialect.Postgres{}).TableSchema(context.Background(), "products")
	var queryErr *QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("TableSchema() error = %v, want QueryError", err)
	}
	if queryErr.Table != "products" || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSQLMock(t, mock)
}

func TestIntrospectorTableConstraints(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("tc.constraint_type = 'PRIMARY KEY'")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name"}).
			AddRow("orders", "id").
			AddRow("products", "id").
			AddRow("order_items", "order_id").
			AddRow("order_items", "product_id"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_catalog.pg_constraint con")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "foreign_table_name", "foreign_column_name"}).
			AddRow("order_items", "order_id", "orders", "id").
			AddRow("order_items", "product_id", "products", "id"))

	constraints, err := NewIntrospector(db, dialect.Postgres{}).TableConstraints(context.Background())
	if err != nil {
		t.Fatalf("TableConstraints() error = %v", err)
	}
	items := constraints["order_items"]
	if !reflect.DeepEqual(items.PrimaryKeys, []string{"order_id", "product_id"}) {
		t.Fatalf("order_items primary keys = %v", items.PrimaryKeys)
	}
	want := []ForeignKey{
		{Column: "order_id", References: ColumnRef{Table: "orders", Column: "id"}},
		{Column: "product_id", References: ColumnRef{Table: "products", Column: "id"}},
	}
	if !reflect.DeepEqual(items.ForeignKeys, want) {
		t.Fatalf("order_items foreign keys = %+v", items.ForeignKeys)
	}
	if constraints["orders"].ForeignKeys == nil || len(constraints["orders"].ForeignKeys) != 0 {
		t.Fatalf("orders foreign keys = %#v, want empty", constraints["orders"].ForeignKeys)
	}
	assertSQLMock(t, mock)
}

func TestIntrospectorTableConstraintsForeignKeyError(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("tc.constraint_type = 'PRIMARY KEY'")).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_catalog.pg_constraint con")).
		WillReturnError(sql.ErrConnDone)

	_, err := NewIntrospector(db, dialect.Postgres{}).TableConstraints(context.Background())
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("TableConstraints() error = %v, want ErrConnDone", err)
	}
	assertSQLMock(t, mock)
}

func TestIntrospectorSampleRow(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products" LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Macbook"))

	columns, values, err := NewIntrospector(db, dialect.Postgres{}).SampleRow(context.Background(), "products")
	if err != nil {
		t.Fatalf("SampleRow() error = %v", err)
	}
	if !reflect.DeepEqual(columns, []string{"id", "name"}) {
		t.Fatalf("columns = %v", columns)
	}
	if values[0] != int64(1) || values[1] != "Macbook" {
		t.Fatalf("values = %#v", values)
	}
	assertSQLMock(t, mock)
}

func TestIntrospectorSampleRowEmptyTable(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT TOP 1 * FROM [coupons]")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err := NewIntrospector(db, dialect.MSSQL{}).SampleRow(context.Background(), "coupons")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("SampleRow() error = %v, want ErrNotFound", err)
	}
	assertSQLMock(t, mock)
}

func newSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}
