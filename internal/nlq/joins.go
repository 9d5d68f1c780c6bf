package nlq

import "github.com/sqlagent/sqlagent/internal/catalog"

// BuildJoins returns "a.col = b.col" predicates for every pair of tables
// (in input order) directly connected by a foreign key in either direction.
// Duplicates are removed by exact text only.
func BuildJoins(tables []string, constraints map[string]catalog.TableConstraints) []string {
	joins := []string{}
	seen := map[string]struct{}{}
	add := func(predicate string) {
		if _, ok := seen[predicate]; ok {
			return
		}
		seen[predicate] = struct{}{}
		joins = append(joins, predicate)
	}

	for i, left := range tables {
		for _, right := range tables[i+1:] {
			for _, fk := range constraints[left].ForeignKeys {
				if fk.References.Table == right {
					add(left + "." + fk.Column + " = " + right + "." + fk.References.Column)
				}
			}
			for _, fk := range constraints[right].ForeignKeys {
				if fk.References.Table == left {
					add(right + "." + fk.Column + " = " + left + "." + fk.References.Column)
				}
			}
		}
	}
	return joins
}
