package deployments

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Rules []struct {
			Record string            `yaml:"record"`
			Alert  string            `yaml:"alert"`
			Expr   string            `yaml:"expr"`
			Labels map[string]string `yaml:"labels"`
		} `yaml:"rules"`
	} `yaml:"groups"`
}

var exportedMetrics = map[string]bool{
	"sqlagent_query_executions_total":        true,
	"sqlagent_query_execution_latency_ms":    true,
	"sqlagent_query_rows_returned":           true,
	"sqlagent_plan_source_total":             true,
	"sqlagent_schema_cache_lookups_total":    true,
	"sqlagent_archive_uploads_total":         true,
	"sqlagent_webhook_messages_total":        true,
	"sqlagent_http_requests_total":           true,
	"sqlagent_http_request_duration_seconds": true,
}

var metricRef = regexp.MustCompile(`\bsqlagent_[a-z_]+`)

func TestPrometheusRulesParse(t *testing.T) {
	rules := loadRules(t)
	if len(rules.Groups) == 0 {
		t.Fatal("rules must define at least one group")
	}

	records := map[string]bool{}
	alerts := map[string]bool{}
	for _, group := range rules.Groups {
		for _, rule := range group.Rules {
			if strings.TrimSpace(rule.Expr) == "" {
				t.Fatalf("group %s has a rule without expr", group.Name)
			}
			if rule.Record != "" {
				records[rule.Record] = true
			}
			if rule.Alert != "" {
				alerts[rule.Alert] = true
				severity := rule.Labels["severity"]
				if severity != "critical" && severity != "warning" {
					t.Fatalf("alert %s severity = %q", rule.Alert, severity)
				}
			}
		}
	}

	for _, name := range []string{"SQLAgentDatabaseUnavailable", "SQLAgentQueryErrorRateHigh", "SQLAgentArchiveUploadsFailing"} {
		if !alerts[name] {
			t.Fatalf("rules missing alert %q", name)
		}
	}
	if !records["sqlagent:query_error_rate_5m"] {
		t.Fatal("rules missing query error rate record")
	}
}

func TestPrometheusRulesReferenceExportedMetrics(t *testing.T) {
	rules := loadRules(t)
	for _, group := range rules.Groups {
		for _, rule := range group.Rules {
			for _, ref := range metricRef.FindAllString(rule.Expr, -1) {
				name := strings.TrimSuffix(ref, "_bucket")
				if !exportedMetrics[name] {
					t.Fatalf("rule %s%s references unknown metric %q", rule.Record, rule.Alert, ref)
				}
			}
		}
	}
}

func loadRules(t *testing.T) ruleFile {
	t.Helper()
	path := filepath.Join(repoRoot(t), "deployments", "prometheus", "sqlagent_rules.yaml")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rules file: %v", err)
	}
	var rules ruleFile
	if err := yaml.Unmarshal(content, &rules); err != nil {
		t.Fatalf("rules YAML parse error: %v", err)
	}
	return rules
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
