package nlq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlagent/sqlagent/internal/dialect"
)

func newShopAssembler(cat *shopCatalog, d dialect.Dialect) Assembler {
	return Assembler{Dialect: d, Schema: cat.TableSchema, Constraints: cat.constraints}
}

func TestDetectKindPriority(t *testing.T) {
	tests := map[string]Kind{
		"add a product and update the price": KindInsert,
		"Please CREATE a coupon":             KindInsert,
		"modify then remove the order":       KindUpdate,
		"remove order 5":                     KindDelete,
		"show me everything":                 KindSelect,
	}
	for query, want := range tests {
		assert.Equal(t, want, DetectKind(query), query)
	}
}

func TestAssembleSelectWithJoinAndOrder(t *testing.T) {
	cat := newShopCatalog()
	stmt, kind, err := newShopAssembler(cat, dialect.Postgres{}).Assemble(context.Background(), "list orders and products order by qty", []string{"orders", "products"})
	require.NoError(t, err)
	assert.Equal(t, KindSelect, kind)
	assert.Equal(t, "SELECT orders.order_id, orders.product_id, orders.qty, products.product_id, products.name FROM orders JOIN products ON orders.product_id = products.product_id ORDER BY qty", stmt.SQL)
	assert.Empty(t, stmt.Args)
}

func TestAssembleSelectJoinWithoutPredicate(t *testing.T) {
	cat := newShopCatalog()
	stmt, _, err := newShopAssembler(cat, dialect.Postgres{}).Assemble(context.Background(), "list stuff", []string{"orders", "coupons"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT orders.order_id, orders.product_id, orders.qty, coupons.coupon_id, coupons.code FROM orders JOIN coupons", stmt.SQL)
}

func TestAssembleSelectConditionsAndLimit(t *testing.T) {
	cat := newShopCatalog()
	asm := newShopAssembler(cat, dialect.Postgres{})

	stmt, _, err := asm.Assemble(context.Background(), "list products with price greater than 100", []string{"products"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT products.product_id, products.name FROM products WHERE > 100 LIMIT 100", stmt.SQL)

	stmt, _, err = asm.Assemble(context.Background(), "top 3 products limit 10", []string{"products"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT products.product_id, products.name FROM products LIMIT 10", stmt.SQL)
}

func TestAssembleSelectLimitOnMSSQL(t *testing.T) {
	cat := newShopCatalog()
	stmt, _, err := newShopAssembler(cat, dialect.MSSQL{}).Assemble(context.Background(), "list 2 products", []string{"products"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT TOP 2 products.product_id, products.name FROM products", stmt.SQL)
}

func TestAssembleOrderByAllowList(t *testing.T) {
	cat := newShopCatalog()
	asm := newShopAssembler(cat, dialect.Postgres{})
	asm.RestrictOrderBy = true

	stmt, _, err := asm.Assemble(context.Background(), "list products order by products.name desc", []string{"products"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT products.product_id, products.name FROM products ORDER BY products.name desc", stmt.SQL)

	stmt, _, err = asm.Assemble(context.Background(), "list products order by name; drop table products", []string{"products"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT products.product_id, products.name FROM products", stmt.SQL)
}

func TestAssembleWriteStatements(t *testing.T) {
	cat := newShopCatalog()
	asm := newShopAssembler(cat, dialect.Postgres{})
	ctx := context.Background()

	stmt, kind, err := asm.Assemble(ctx, "insert into coupons values 7, 'SPRING'", []string{"coupons"})
	require.NoError(t, err)
	assert.Equal(t, KindInsert, kind)
	assert.Equal(t, "INSERT INTO coupons VALUES (7, 'spring')", stmt.SQL)

	stmt, kind, err = asm.Assemble(ctx, "update products set name = 'x' where product_id = 1", []string{"products"})
	require.NoError(t, err)
	assert.Equal(t, KindUpdate, kind)
	assert.Equal(t, "UPDATE products SET name = 'x' WHERE product_id = 1", stmt.SQL)

	stmt, kind, err = asm.Assemble(ctx, "delete orders where qty = 0", []string{"orders"})
	require.NoError(t, err)
	assert.Equal(t, KindDelete, kind)
	assert.Equal(t, "DELETE FROM orders WHERE qty = 0", stmt.SQL)

	stmt, kind, err = asm.Assemble(ctx, "add a product", []string{"products"})
	require.NoError(t, err)
	assert.Equal(t, KindInsert, kind)
	assert.True(t, stmt.Empty())

	stmt, _, err = asm.Assemble(ctx, "change everything", []string{"products"})
	require.NoError(t, err)
	assert.True(t, stmt.Empty())
}

func TestAssembleWithoutTablesIsEmpty(t *testing.T) {
	cat := newShopCatalog()
	stmt, kind, err := newShopAssembler(cat, dialect.Postgres{}).Assemble(context.Background(), "show me things", nil)
	require.NoError(t, err)
	assert.Equal(t, KindSelect, kind)
	assert.True(t, stmt.Empty())
	assert.Zero(t, cat.schemaCalls)
}

func TestAssembleSelectPropagatesSchemaErrors(t *testing.T) {
	cat := newShopCatalog()
	cat.failSchema = true
	_, _, err := newShopAssembler(cat, dialect.Postgres{}).Assemble(context.Background(), "show products", []string{"products"})
	require.Error(t, err)
}
