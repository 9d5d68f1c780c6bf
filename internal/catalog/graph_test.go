package catalog

import (
	"reflect"
	"testing"
)

func shopConstraints() map[string]TableConstraints {
	return map[string]TableConstraints{
		"products": {PrimaryKeys: []string{"id"}, ForeignKeys: []ForeignKey{}},
		"coupons":  {PrimaryKeys: []string{"id"}, ForeignKeys: []ForeignKey{}},
		"product_coupons": {
			PrimaryKeys: []string{"product_id", "coupon_id"},
			ForeignKeys: []ForeignKey{
				{Column: "product_id", References: ColumnRef{Table: "products", Column: "id"}},
				{Column: "coupon_id", References: ColumnRef{Table: "coupons", Column: "id"}},
			},
		},
	}
}

func TestBuildRelationships(t *testing.T) {
	rels := BuildRelationships(shopConstraints())
	want := []Relationship{
		{Column: "product_id", ReferencedTable: "products", ReferencedColumn: "id"},
		{Column: "coupon_id", ReferencedTable: "coupons", ReferencedColumn: "id"},
	}
	if !reflect.DeepEqual(rels["product_coupons"], want) {
		t.Fatalf("product_coupons relationships = %+v", rels["product_coupons"])
	}
	if len(rels["products"]) != 0 {
		t.Fatalf("products relationships = %+v, want none", rels["products"])
	}
}

func TestRelatedTablesBothDirections(t *testing.T) {
	constraints := shopConstraints()
	if got := RelatedTables("products", constraints); !reflect.DeepEqual(got, []string{"product_coupons"}) {
		t.Fatalf("RelatedTables(products) = %v", got)
	}
	if got := RelatedTables("product_coupons", constraints); !reflect.DeepEqual(got, []string{"coupons", "products"}) {
		t.Fatalf("RelatedTables(product_coupons) = %v", got)
	}
	if got := RelatedTables("unknown", constraints); len(got) != 0 {
		t.Fatalf("RelatedTables(unknown) = %v, want empty", got)
	}
}
