// Filesystem Tools - list, read and write inside the sandbox.
//
// Information Hiding:
// - Path resolution and containment hidden behind Sandbox
// - Text decoding and truncation hidden
// - OS errors mapped onto the tool error kinds

package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Tool names exposed to the model.
const (
	ListFilesToolName = "get_files_info"
	ReadFileToolName  = "get_file_content"
	WriteFileToolName = "write_file"
	RunScriptToolName = "run_python_file"
)

// Entry describes one member of a listed directory.
type Entry struct {
	Name  string
	Size  int64
	IsDir bool
}

func (e Entry) String() string {
	return fmt.Sprintf("- %s: file_size=%d bytes, is_dir=%t", e.Name, e.Size, e.IsDir)
}

// ListDirectory returns the members of the directory at rel, except the
// excluded names. Order follows the directory enumeration.
func (s *Sandbox) ListDirectory(rel string) ([]Entry, error) {
	const op = "list"
	dir, err := s.resolve(op, rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(ErrNotADirectory, op, rel, nil)
		}
		return nil, newError(ErrFilesystem, op, rel, err)
	}
	if !info.IsDir() {
		return nil, newError(ErrNotADirectory, op, rel, nil)
	}

	f, err := os.Open(dir)
	if err != nil {
		return nil, newError(ErrFilesystem, op, rel, err)
	}
	defer f.Close()

	// Readdirnames keeps enumeration order; os.ReadDir would sort.
	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, newError(ErrFilesystem, op, rel, err)
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		if _, skip := s.excluded[name]; skip {
			continue
		}
		// Stat follows symlinks, matching what a reader of the entry would see.
		fi, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return nil, newError(ErrFilesystem, op, rel, err)
		}
		entries = append(entries, Entry{Name: name, Size: fi.Size(), IsDir: fi.IsDir()})
	}
	return entries, nil
}

// ReadFile returns the text content of the regular file at rel. Content
// longer than the read limit is cut to that many characters and followed by
// a truncation marker naming rel and the limit.
func (s *Sandbox) ReadFile(rel string) (string, error) {
	const op = "read"
	path, err := s.resolve(op, rel)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", newError(ErrNotFound, op, rel, nil)
		}
		return "", newError(ErrFilesystem, op, rel, err)
	}
	if !info.Mode().IsRegular() {
		return "", newError(ErrNotFound, op, rel, nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", newError(ErrFilesystem, op, rel, err)
	}
	if !utf8.Valid(data) {
		return "", newError(ErrFilesystem, op, rel, errors.New("content is not valid UTF-8 text"))
	}

	content, truncated := truncateChars(string(data), s.readLimit)
	if truncated {
		content += TruncationMarker(rel, s.readLimit)
	}
	return content, nil
}

// TruncationMarker is appended to content cut at limit characters.
func TruncationMarker(rel string, limit int) string {
	return fmt.Sprintf("[...File \"%s\" truncated at %d characters]", rel, limit)
}

// truncateChars cuts s after n characters.
func truncateChars(s string, n int) (string, bool) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}

// WriteFile creates or overwrites the file at rel and returns the number of
// characters written. Missing parent directories are not created.
func (s *Sandbox) WriteFile(rel, content string) (int, error) {
	const op = "write"
	path, err := s.resolve(op, rel)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && !info.Mode().IsRegular():
		return 0, newError(ErrNotAFile, op, rel, nil)
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return 0, newError(ErrFilesystem, op, rel, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, newError(ErrNotFound, op, rel, errors.New("parent directory does not exist"))
		}
		return 0, newError(ErrFilesystem, op, rel, err)
	}
	return utf8.RuneCountInString(content), nil
}

// ListFilesTool lists a directory inside the sandbox.
type ListFilesTool struct {
	sandbox *Sandbox
}

// NewListFilesTool creates a listing tool bound to sandbox.
func NewListFilesTool(sandbox *Sandbox) *ListFilesTool {
	return &ListFilesTool{sandbox: sandbox}
}

// Metadata returns the tool metadata.
func (t *ListFilesTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ListFilesToolName,
		Description: "Lists files in the specified directory along with their sizes, constrained to the working directory.",
		Parameters: []ToolParameter{
			{
				Name:        "directory",
				ParamType:   TypeString,
				Description: "The directory to list files from, relative to the working directory. If not provided, lists files in the working directory itself.",
			},
		},
	}
}

// Execute lists the directory.
func (t *ListFilesTool) Execute(_ context.Context, args Args) (string, error) {
	entries, err := t.sandbox.ListDirectory(args.String("directory"))
	if err != nil {
		return "", err
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n"), nil
}

// ReadFileTool reads a text file inside the sandbox.
type ReadFileTool struct {
	sandbox *Sandbox
}

// NewReadFileTool creates a read tool bound to sandbox.
func NewReadFileTool(sandbox *Sandbox) *ReadFileTool {
	return &ReadFileTool{sandbox: sandbox}
}

// Metadata returns the tool metadata.
func (t *ReadFileTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: ReadFileToolName,
		Description: fmt.Sprintf("Reads the content of a file, constrained to the working directory. "+
			"Content longer than %d characters is truncated.", t.sandbox.ReadLimit()),
		Parameters: []ToolParameter{
			{Name: "file_path", ParamType: TypeString, Description: "Path to the file, relative to the working directory.", Required: true},
		},
	}
}

// Execute reads the file.
func (t *ReadFileTool) Execute(_ context.Context, args Args) (string, error) {
	return t.sandbox.ReadFile(args.String("file_path"))
}

// WriteFileTool writes a file inside the sandbox.
type WriteFileTool struct {
	sandbox *Sandbox
}

// NewWriteFileTool creates a write tool bound to sandbox.
func NewWriteFileTool(sandbox *Sandbox) *WriteFileTool {
	return &WriteFileTool{sandbox: sandbox}
}

// Metadata returns the tool metadata.
func (t *WriteFileTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        WriteFileToolName,
		Description: "Writes content to a file, constrained to the working directory. Overwrites an existing file. The parent directory must already exist.",
		Parameters: []ToolParameter{
			{Name: "file_path", ParamType: TypeString, Description: "Path to the file, relative to the working directory.", Required: true},
			{Name: "content", ParamType: TypeString, Description: "The content to write.", Required: true},
		},
	}
}

// Execute writes the file.
func (t *WriteFileTool) Execute(_ context.Context, args Args) (string, error) {
	path := args.String("file_path")
	n, err := t.sandbox.WriteFile(path, args.String("content"))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully wrote to \"%s\" (%d characters written)", path, n), nil
}
