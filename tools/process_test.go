package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunReportString(t *testing.T) {
	tests := []struct {
		name   string
		report RunReport
		want   string
	}{
		{"nothing", RunReport{}, "No output produced."},
		{"stdout only", RunReport{Stdout: "8\n"}, "STDOUT: 8\n"},
		{"stderr and exit", RunReport{Stderr: "boom\n", ExitCode: 2}, "STDERR: boom\n\nProcess exited with code 2"},
		{"exit only", RunReport{ExitCode: 1}, "Process exited with code 1"},
		{"everything", RunReport{Stdout: "a", Stderr: "b", ExitCode: 3}, "STDOUT: a\nSTDERR: b\nProcess exited with code 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunScript(t *testing.T) {
	requireShell(t)
	sb, root := newTestSandbox(t)
	writeFixture(t, root, "echo.sh", "echo \"$@\"\necho oops >&2\nexit 3\n")
	writeFixture(t, root, "pwd.sh", "pwd\n")
	writeFixture(t, root, "quiet.sh", "true\n")

	ctx := context.Background()

	report, err := sb.RunScript(ctx, "echo.sh", []string{"3 + 5", "x"})
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if report.Stdout != "3 + 5 x\n" || report.Stderr != "oops\n" || report.ExitCode != 3 {
		t.Errorf("unexpected report: %+v", report)
	}

	report, err = sb.RunScript(ctx, "pwd.sh", nil)
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if strings.TrimSpace(report.Stdout) != root {
		t.Errorf("expected working directory %q, got %q", root, report.Stdout)
	}

	report, err = sb.RunScript(ctx, "quiet.sh", nil)
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
	if report.String() != "No output produced." {
		t.Errorf("unexpected report %q", report.String())
	}
}

func TestRunScriptRejects(t *testing.T) {
	sb, root := newTestSandbox(t)
	writeFixture(t, root, "notes.txt", "hi")
	writeFixture(t, root, "pkg.sh/inner.sh", "true\n")

	ctx := context.Background()
	tests := []struct {
		rel  string
		want error
	}{
		{"missing.sh", ErrNotFound},
		{"notes.txt", ErrNotAScript},
		{"pkg.sh", ErrNotAScript},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			if _, err := sb.RunScript(ctx, tt.rel, nil); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRunScriptSpawnFailure(t *testing.T) {
	sb, err := NewSandbox(t.TempDir(), WithInterpreter("tether-no-such-interpreter", ".sh"))
	if err != nil {
		t.Fatal(err)
	}
	writeFixture(t, sb.Root(), "a.sh", "true\n")

	if _, err := sb.RunScript(context.Background(), "a.sh", nil); !errors.Is(err, ErrExecution) {
		t.Errorf("expected ErrExecution, got %v", err)
	}
}

func TestRunScriptTimeout(t *testing.T) {
	requireShell(t)
	sb, root := newTestSandbox(t, WithScriptTimeout(200*time.Millisecond))
	// The background child keeps stdout open; only a group kill lets the
	// run return before the wait delay expires.
	writeFixture(t, root, "slow.sh", "sleep 30 &\nsleep 30\n")

	start := time.Now()
	_, err := sb.RunScript(context.Background(), "slow.sh", nil)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrExecution) {
		t.Fatalf("expected ErrExecution, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout message, got %v", err)
	}
	if elapsed >= waitDelay {
		t.Errorf("run took %s, process group was not killed", elapsed)
	}
}

func TestRunScriptTool(t *testing.T) {
	requireShell(t)
	sb, root := newTestSandbox(t)
	writeFixture(t, root, "add.sh", "echo $(($1 + $2))\n")

	out, err := NewRunScriptTool(sb).Execute(context.Background(), Args{
		"file_path": "add.sh",
		"args":      []any{"3", "5"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if out != "STDOUT: 8\n" {
		t.Errorf("unexpected output %q", out)
	}
}
