package nlq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTablesExactMatchWins(t *testing.T) {
	cat := newShopCatalog()
	got, err := ResolveTables(context.Background(), "show me all Products with a code", cat.tables, cat.TableSchema, cat.constraints)
	require.NoError(t, err)
	assert.Equal(t, []string{"products"}, got)
	assert.Zero(t, cat.schemaCalls, "exact match must not fetch schemas")
}

func TestResolveTablesExactMatchFirstInCatalogOrder(t *testing.T) {
	cat := newShopCatalog()
	got, err := ResolveTables(context.Background(), "orders and coupons", cat.tables, cat.TableSchema, cat.constraints)
	require.NoError(t, err)
	assert.Equal(t, []string{"coupons"}, got)
}

func TestResolveTablesColumnMatchAddsRelatedTables(t *testing.T) {
	cat := newShopCatalog()
	got, err := ResolveTables(context.Background(), "which code expires soon", cat.tables, cat.TableSchema, cat.constraints)
	require.NoError(t, err)
	assert.Equal(t, []string{"coupons", "product_coupons"}, got)
}

func TestResolveTablesColumnMatchFollowsOutgoingKeys(t *testing.T) {
	cat := newShopCatalog()
	got, err := ResolveTables(context.Background(), "total qty sold", cat.tables, cat.TableSchema, cat.constraints)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "products"}, got)
}

func TestResolveTablesFuzzyFallback(t *testing.T) {
	cat := newShopCatalog()
	got, err := ResolveTables(context.Background(), "show me the prodcts", cat.tables, cat.TableSchema, cat.constraints)
	require.NoError(t, err)
	assert.Equal(t, []string{"products"}, got)
}

func TestResolveTablesFuzzySkippedWhenColumnsMatch(t *testing.T) {
	cat := newShopCatalog()
	got, err := ResolveTables(context.Background(), "prodcts code", cat.tables, cat.TableSchema, cat.constraints)
	require.NoError(t, err)
	assert.Equal(t, []string{"coupons", "product_coupons"}, got)
}

func TestResolveTablesNoMatch(t *testing.T) {
	cat := newShopCatalog()
	got, err := ResolveTables(context.Background(), "weather tomorrow", cat.tables, cat.TableSchema, cat.constraints)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	got, err = ResolveTables(context.Background(), "anything", nil, cat.TableSchema, cat.constraints)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveTablesPropagatesSchemaErrors(t *testing.T) {
	cat := newShopCatalog()
	cat.failSchema = true
	_, err := ResolveTables(context.Background(), "weather tomorrow", cat.tables, cat.TableSchema, cat.constraints)
	require.Error(t, err)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 14.0/15.0, Similarity("products", "prodcts"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("orders", "orders"), 1e-9)
	assert.Less(t, Similarity("orders", "weather"), FuzzyThreshold)
}
