package scripts

import (
	"bytes"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestStackScriptDryRun(t *testing.T) {
	tests := []struct {
		command string
		want    []string
	}{
		{
			command: "up",
			want: []string{
				"[dry-run] docker compose -f",
				"deployments/docker-compose.yml up -d --wait",
				"[dry-run] nohup env SQLAGENT_DB_BACKEND=postgres",
				"go run ./cmd/sqlagent-api",
				"stack is up",
			},
		},
		{
			command: "down",
			want: []string{
				"[dry-run] cd",
				"deployments/docker-compose.yml down",
				"stack is down",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			stdout, stderr, err := runStack(t, tt.command, "--dry-run")
			if err != nil {
				t.Fatalf("stack %s dry-run failed: %v\nstdout:\n%s\nstderr:\n%s", tt.command, err, stdout, stderr)
			}
			for _, token := range tt.want {
				if !strings.Contains(stdout, token) {
					t.Fatalf("output missing %q\noutput:\n%s", token, stdout)
				}
			}
		})
	}
}

func TestStackScriptRejectsUnknownInput(t *testing.T) {
	for _, args := range [][]string{{"restart"}, {"up", "--force"}, {}} {
		_, stderr, err := runStack(t, args...)
		if err == nil {
			t.Fatalf("args %v: expected non-zero exit", args)
		}
		if !strings.Contains(stderr, "unknown") {
			t.Fatalf("args %v: stderr = %q", args, stderr)
		}
	}
}

func runStack(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	scriptPath := filepath.Join(filepath.Dir(thisFile), "stack.sh")

	cmd := exec.Command("bash", append([]string{scriptPath}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}
