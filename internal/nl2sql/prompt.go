package nl2sql

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompt.yaml
var promptYAML []byte

type promptTemplate struct {
	System       string              `yaml:"system"`
	Rules        []string            `yaml:"rules"`
	DialectRules map[string][]string `yaml:"dialect_rules"`
	Examples     []promptExample     `yaml:"examples"`
}

type promptExample struct {
	Question string            `yaml:"question"`
	SQL      map[string]string `yaml:"sql"`
}

func loadPromptTemplate(raw []byte) (promptTemplate, error) {
	var tmpl promptTemplate
	if err := yaml.Unmarshal(raw, &tmpl); err != nil {
		return promptTemplate{}, fmt.Errorf("decode prompt template: %w", err)
	}
	if strings.TrimSpace(tmpl.System) == "" {
		return promptTemplate{}, fmt.Errorf("prompt template has no system message")
	}
	return tmpl, nil
}

func (p promptTemplate) userPrompt(req Request) string {
	dialect := strings.ToLower(strings.TrimSpace(req.Dialect))
	if dialect == "" {
		dialect = "postgres"
	}

	var b strings.Builder
	b.WriteString("Given the following database schema and relationships:\n\n")
	b.WriteString(strings.TrimSpace(req.SchemaInfo))
	if len(req.History) > 0 {
		b.WriteString("\n\nEarlier in this conversation:\n")
		for _, turn := range req.History {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, strings.TrimSpace(turn.Text))
		}
		b.WriteString("\nConvert this natural language query to SQL:\n")
	} else {
		b.WriteString("\n\nConvert this natural language query to SQL:\n")
	}
	fmt.Fprintf(&b, "%q\n\nImportant rules:\n", strings.TrimSpace(req.NaturalLanguage))

	rules := append(append([]string{}, p.Rules...), p.DialectRules[dialect]...)
	for idx, rule := range rules {
		fmt.Fprintf(&b, "%d. %s\n", idx+1, rule)
	}

	examples := 0
	for _, example := range p.Examples {
		sql := example.SQL[dialect]
		if sql == "" {
			continue
		}
		if examples == 0 {
			b.WriteString("\nExample queries:\n")
		}
		examples++
		fmt.Fprintf(&b, "%d. %q:\n", examples, example.Question)
		for _, line := range strings.Split(sql, "\n") {
			b.WriteString("   " + line + "\n")
		}
		b.WriteString("\n")
	}

	if examples == 0 {
		b.WriteString("\n")
	}
	b.WriteString("Return ONLY the SQL query without any explanation.\n\nSQL Query:")
	return b.String()
}
