package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListDirectory(t *testing.T) {
	sb, root := newTestSandbox(t)
	writeFixture(t, root, "main.py", "print(1)\n")
	writeFixture(t, root, "pkg/calculator.py", "x = 1\n")
	writeFixture(t, root, "__pycache__/main.cpython-312.pyc", "junk")

	entries, err := sb.ListDirectory("")
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}

	got := make(map[string]Entry, len(entries))
	for _, e := range entries {
		got[e.Name] = e
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %v", entries)
	}
	if _, ok := got["__pycache__"]; ok {
		t.Error("__pycache__ should be excluded")
	}

	if e := got["main.py"]; e.IsDir || e.Size != int64(len("print(1)\n")) {
		t.Errorf("unexpected main.py entry: %+v", e)
	}
	pkgInfo, err := os.Stat(filepath.Join(root, "pkg"))
	if err != nil {
		t.Fatal(err)
	}
	if e := got["pkg"]; !e.IsDir || e.Size != pkgInfo.Size() {
		t.Errorf("unexpected pkg entry: %+v", e)
	}
}

func TestListDirectoryErrors(t *testing.T) {
	sb, root := newTestSandbox(t)
	writeFixture(t, root, "main.py", "print(1)\n")

	for _, rel := range []string{"main.py", "missing"} {
		if _, err := sb.ListDirectory(rel); !errors.Is(err, ErrNotADirectory) {
			t.Errorf("ListDirectory(%q): expected ErrNotADirectory, got %v", rel, err)
		}
	}
}

func TestListDirectoryCustomExclusions(t *testing.T) {
	sb, root := newTestSandbox(t, WithExcludedNames(".git"))
	writeFixture(t, root, ".git/HEAD", "ref")
	writeFixture(t, root, "__pycache__/x.pyc", "junk")

	entries, err := sb.ListDirectory(".")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "__pycache__" {
		t.Errorf("expected only __pycache__, got %v", entries)
	}
}

func TestEntryString(t *testing.T) {
	e := Entry{Name: "main.py", Size: 576, IsDir: false}
	want := "- main.py: file_size=576 bytes, is_dir=false"
	if e.String() != want {
		t.Errorf("got %q, want %q", e.String(), want)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	const limit = 20
	sb, _ := newTestSandbox(t, WithReadLimit(limit))

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"short", "hello"},
		{"exactly at limit", strings.Repeat("a", limit)},
		{"multibyte at limit", strings.Repeat("é", limit)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := sb.WriteFile("out.txt", tt.content)
			if err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if want := len([]rune(tt.content)); n != want {
				t.Errorf("characters written = %d, want %d", n, want)
			}
			got, err := sb.ReadFile("out.txt")
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if got != tt.content {
				t.Errorf("round trip mismatch: got %q, want %q", got, tt.content)
			}
		})
	}
}

func TestReadFileTruncates(t *testing.T) {
	const limit = 10
	sb, _ := newTestSandbox(t, WithReadLimit(limit))

	content := strings.Repeat("ü", limit) + "tail that is cut"
	if _, err := sb.WriteFile("long.txt", content); err != nil {
		t.Fatal(err)
	}

	got, err := sb.ReadFile("long.txt")
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Repeat("ü", limit) + `[...File "long.txt" truncated at 10 characters]`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReadFileErrors(t *testing.T) {
	sb, root := newTestSandbox(t)
	writeFixture(t, root, "pkg/a.txt", "a")
	writeFixture(t, root, "binary.dat", "\xff\xfe\x00")

	tests := []struct {
		rel  string
		want error
	}{
		{"missing.txt", ErrNotFound},
		{"pkg", ErrNotFound},
		{"binary.dat", ErrFilesystem},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			if _, err := sb.ReadFile(tt.rel); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestWriteFileErrors(t *testing.T) {
	sb, root := newTestSandbox(t)
	writeFixture(t, root, "pkg/a.txt", "a")

	if _, err := sb.WriteFile("pkg", "x"); !errors.Is(err, ErrNotAFile) {
		t.Errorf("writing over a directory: expected ErrNotAFile, got %v", err)
	}
	if _, err := sb.WriteFile("", "x"); !errors.Is(err, ErrNotAFile) {
		t.Errorf("writing over the root: expected ErrNotAFile, got %v", err)
	}

	if _, err := sb.WriteFile("new/dir/file.txt", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("writing into a missing directory: expected ErrNotFound, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "new")); !os.IsNotExist(err) {
		t.Error("missing parent directory must not be created")
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	sb, root := newTestSandbox(t)
	writeFixture(t, root, "a.txt", "a much longer original content")

	if _, err := sb.WriteFile("a.txt", "short"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "short" {
		t.Errorf("expected overwrite, got %q", data)
	}
}

func TestFilesystemTools(t *testing.T) {
	sb, root := newTestSandbox(t)
	writeFixture(t, root, "pkg/calc.py", "12345")
	ctx := context.Background()

	out, err := NewListFilesTool(sb).Execute(ctx, Args{"directory": "pkg"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "- calc.py: file_size=5 bytes, is_dir=false" {
		t.Errorf("unexpected listing %q", out)
	}

	out, err = NewWriteFileTool(sb).Execute(ctx, Args{"file_path": "pkg/new.txt", "content": "héllo"})
	if err != nil {
		t.Fatal(err)
	}
	if out != `Successfully wrote to "pkg/new.txt" (5 characters written)` {
		t.Errorf("unexpected write output %q", out)
	}

	out, err = NewReadFileTool(sb).Execute(ctx, Args{"file_path": "pkg/new.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "héllo" {
		t.Errorf("unexpected read output %q", out)
	}
}

func TestOutputQuotesPathLiterally(t *testing.T) {
	sb, _ := newTestSandbox(t, WithReadLimit(3))
	const name = `back\slash "q".txt`

	out, err := NewWriteFileTool(sb).Execute(context.Background(), Args{"file_path": name, "content": "abcdef"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if want := `Successfully wrote to "back\slash "q".txt" (6 characters written)`; out != want {
		t.Errorf("write output = %q, want %q", out, want)
	}

	content, err := sb.ReadFile(name)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := `abc[...File "back\slash "q".txt" truncated at 3 characters]`; content != want {
		t.Errorf("read = %q, want %q", content, want)
	}
}
