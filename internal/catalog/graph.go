package catalog

import "sort"

// Relationship is one outgoing foreign key edge.
type Relationship struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
}

// Relationships maps a table to its outgoing foreign key edges.
type Relationships map[string][]Relationship

func BuildRelationships(constraints map[string]TableConstraints) Relationships {
	rels := Relationships{}
	for table, tc := range constraints {
		for _, fk := range tc.ForeignKeys {
			rels[table] = append(rels[table], Relationship{
				Column:           fk.Column,
				ReferencedTable:  fk.References.Table,
				ReferencedColumn: fk.References.Column,
			})
		}
	}
	return rels
}

// RelatedTables returns the one-hop neighbours of table in both directions:
// tables referencing it and tables it references. The result is sorted.
func RelatedTables(table string, constraints map[string]TableConstraints) []string {
	related := map[string]struct{}{}
	for other, tc := range constraints {
		for _, fk := range tc.ForeignKeys {
			if fk.References.Table == table {
				related[other] = struct{}{}
			}
		}
	}
	if tc, ok := constraints[table]; ok {
		for _, fk := range tc.ForeignKeys {
			related[fk.References.Table] = struct{}{}
		}
	}

	out := make([]string, 0, len(related))
	for name := range related {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
