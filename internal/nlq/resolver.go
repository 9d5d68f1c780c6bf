package nlq

import (
	"context"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/sqlagent/sqlagent/internal/catalog"
)

// FuzzyThreshold is the similarity ratio a token must exceed to select a table.
const FuzzyThreshold = 0.7

// ResolveTables picks the tables a request is about. Strategies run in strict
// priority: exact table name, then column name (plus one-hop related tables),
// then fuzzy token similarity. The result is sorted and may be empty.
func ResolveTables(ctx context.Context, query string, tables []string, schemaFn SchemaFunc, constraints map[string]catalog.TableConstraints) ([]string, error) {
	lower := strings.ToLower(query)

	for _, table := range tables {
		if table != "" && strings.Contains(lower, strings.ToLower(table)) {
			return []string{table}, nil
		}
	}

	candidates := map[string]struct{}{}
	for _, table := range tables {
		schema, err := schemaFn(ctx, table)
		if err != nil {
			return nil, err
		}
		for _, column := range schema.Columns {
			if column == "" || !strings.Contains(lower, strings.ToLower(column)) {
				continue
			}
			candidates[table] = struct{}{}
			for _, related := range catalog.RelatedTables(table, constraints) {
				candidates[related] = struct{}{}
			}
			break
		}
	}

	if len(candidates) == 0 {
		tokens := strings.Fields(lower)
		for _, table := range tables {
			name := strings.ToLower(table)
			for _, token := range tokens {
				if Similarity(name, token) > FuzzyThreshold {
					candidates[table] = struct{}{}
					break
				}
			}
		}
	}

	out := make([]string, 0, len(candidates))
	for table := range candidates {
		out = append(out, table)
	}
	sort.Strings(out)
	return out, nil
}

// Similarity is the difflib ratio between a and b compared character by
// character: 2*matches / (len(a)+len(b)).
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for idx, r := range runes {
		out[idx] = string(r)
	}
	return out
}
