package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RenderSchemaInfo produces the plain-text schema description used as LLM
// context: one block per table with its columns, outgoing relationships and,
// when sampler is non-nil, the first sample row. Sampling failures are skipped.
func RenderSchemaInfo(ctx context.Context, src Source, sampler Sampler) (string, error) {
	tables, err := src.ListTables(ctx)
	if err != nil {
		return "", err
	}
	constraints, err := src.TableConstraints(ctx)
	if err != nil {
		return "", err
	}
	rels := BuildRelationships(constraints)

	blocks := make([]string, 0, len(tables))
	for _, table := range tables {
		schema, err := src.TableSchema(ctx, table)
		if err != nil {
			return "", err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Table: %s\nColumns:\n", table)
		for idx, column := range schema.Columns {
			fmt.Fprintf(&b, "- %s (%s)\n", column, schema.Types[idx])
		}
		if edges := rels[table]; len(edges) > 0 {
			b.WriteString("Relationships:\n")
			for _, edge := range edges {
				fmt.Fprintf(&b, "- %s -> %s.%s\n", edge.Column, edge.ReferencedTable, edge.ReferencedColumn)
			}
		}
		if sampler != nil {
			columns, values, err := sampler.SampleRow(ctx, table)
			if err == nil && len(columns) > 0 {
				b.WriteString("Sample Data:\n")
				for idx, column := range columns {
					fmt.Fprintf(&b, "- %s: %s\n", column, formatSampleValue(values[idx]))
				}
			} else if err != nil && ctx.Err() != nil {
				return "", ctx.Err()
			}
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n"), nil
}

func formatSampleValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Snapshot is a structured view of the whole catalog.
type Snapshot struct {
	Tables []TableInfo `json:"tables"`
}

type TableInfo struct {
	Name          string         `json:"name"`
	Columns       []ColumnInfo   `json:"columns"`
	PrimaryKeys   []string       `json:"primary_keys"`
	Relationships []Relationship `json:"relationships"`
}

type ColumnInfo struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Nullable       bool   `json:"nullable"`
	MaxLength      string `json:"max_length,omitempty"`
	PrecisionScale string `json:"precision_scale,omitempty"`
}

func LoadSnapshot(ctx context.Context, src Source) (Snapshot, error) {
	tables, err := src.ListTables(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	constraints, err := src.TableConstraints(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	rels := BuildRelationships(constraints)

	snapshot := Snapshot{Tables: make([]TableInfo, 0, len(tables))}
	for _, table := range tables {
		schema, err := src.TableSchema(ctx, table)
		if err != nil {
			return Snapshot{}, err
		}
		info := TableInfo{
			Name:          table,
			Columns:       make([]ColumnInfo, 0, len(schema.Columns)),
			PrimaryKeys:   constraints[table].PrimaryKeys,
			Relationships: rels[table],
		}
		if info.PrimaryKeys == nil {
			info.PrimaryKeys = []string{}
		}
		if info.Relationships == nil {
			info.Relationships = []Relationship{}
		}
		for idx, column := range schema.Columns {
			col := ColumnInfo{Name: column, Type: schema.Types[idx]}
			if idx < len(schema.Nullable) {
				col.Nullable = schema.Nullable[idx]
			}
			if idx < len(schema.MaxLengths) {
				col.MaxLength = schema.MaxLengths[idx]
			}
			if idx < len(schema.PrecisionScales) {
				col.PrecisionScale = schema.PrecisionScales[idx]
			}
			info.Columns = append(info.Columns, col)
		}
		snapshot.Tables = append(snapshot.Tables, info)
	}
	return snapshot, nil
}
