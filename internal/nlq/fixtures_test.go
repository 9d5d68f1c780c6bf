package nlq

import (
	"context"
	"fmt"

	"github.com/sqlagent/sqlagent/internal/catalog"
)

type shopCatalog struct {
	tables      []string
	schemas     map[string]catalog.TableSchema
	constraints map[string]catalog.TableConstraints
	schemaCalls int
	failSchema  bool
}

func newShopCatalog() *shopCatalog {
	return &shopCatalog{
		tables: []string{"coupons", "orders", "product_coupons", "products"},
		schemas: map[string]catalog.TableSchema{
			"coupons":         {Table: "coupons", Columns: []string{"coupon_id", "code"}, Types: []string{"int", "varchar"}},
			"orders":          {Table: "orders", Columns: []string{"order_id", "product_id", "qty"}, Types: []string{"int", "int", "int"}},
			"product_coupons": {Table: "product_coupons", Columns: []string{"product_id", "coupon_id"}, Types: []string{"int", "int"}},
			"products":        {Table: "products", Columns: []string{"product_id", "name"}, Types: []string{"int", "varchar"}},
		},
		constraints: map[string]catalog.TableConstraints{
			"coupons": {PrimaryKeys: []string{"coupon_id"}, ForeignKeys: []catalog.ForeignKey{}},
			"orders": {
				PrimaryKeys: []string{"order_id"},
				ForeignKeys: []catalog.ForeignKey{
					{Column: "product_id", References: catalog.ColumnRef{Table: "products", Column: "product_id"}},
				},
			},
			"product_coupons": {
				PrimaryKeys: []string{"product_id", "coupon_id"},
				ForeignKeys: []catalog.ForeignKey{
					{Column: "product_id", References: catalog.ColumnRef{Table: "products", Column: "product_id"}},
					{Column: "coupon_id", References: catalog.ColumnRef{Table: "coupons", Column: "coupon_id"}},
				},
			},
			"products": {PrimaryKeys: []string{"product_id"}, ForeignKeys: []catalog.ForeignKey{}},
		},
	}
}

func (c *shopCatalog) ListTables(context.Context) ([]string, error) {
	return append([]string(nil), c.tables...), nil
}

func (c *shopCatalog) TableSchema(_ context.Context, table string) (catalog.TableSchema, error) {
	c.schemaCalls++
	if c.failSchema {
		return catalog.TableSchema{}, fmt.Errorf("schema %s: connection reset", table)
	}
	return c.schemas[table], nil
}

func (c *shopCatalog) TableConstraints(context.Context) (map[string]catalog.TableConstraints, error) {
	return c.constraints, nil
}
