package tools

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// Ignore known background goroutines from dependencies
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

// newTestSandbox creates a sandbox over a fresh temp dir. Scripts are run
// with sh so the tests do not depend on a Python installation.
func newTestSandbox(t *testing.T, opts ...Option) (*Sandbox, string) {
	t.Helper()
	root := t.TempDir()
	opts = append([]Option{
		WithInterpreter("sh", ".sh"),
		WithScriptTimeout(5 * time.Second),
	}, opts...)
	sb, err := NewSandbox(root, opts...)
	if err != nil {
		t.Fatalf("NewSandbox: %v", err)
	}
	return sb, sb.Root()
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func writeFixture(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
