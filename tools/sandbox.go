// Package tools provides the sandboxed operations an agent may invoke and the
// registry and dispatcher that expose them to a model.
//
// Information Hiding:
// - Path resolution and the containment check are private to Sandbox
// - Tool parameter schemas are declared per tool
// - Failures of any kind surface as *Error values, never panics
package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Sandbox defaults.
const (
	DefaultReadLimit       = 10_000 // characters
	DefaultScriptTimeout   = 30 * time.Second
	DefaultInterpreter     = "python3"
	DefaultScriptExtension = ".py"
)

// DefaultExcludedNames are directory members hidden from listings.
var DefaultExcludedNames = []string{"__pycache__"}

// Sandbox confines file and process operations to a single root directory.
// It is immutable after construction and safe for concurrent use.
type Sandbox struct {
	root        string
	readLimit   int
	excluded    map[string]struct{}
	interpreter string
	extension   string
	timeout     time.Duration
}

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithReadLimit sets the maximum number of characters returned by ReadFile.
func WithReadLimit(chars int) Option {
	return func(s *Sandbox) { s.readLimit = chars }
}

// WithExcludedNames replaces the names hidden from directory listings.
func WithExcludedNames(names ...string) Option {
	return func(s *Sandbox) {
		s.excluded = make(map[string]struct{}, len(names))
		for _, n := range names {
			s.excluded[n] = struct{}{}
		}
	}
}

// WithInterpreter sets the program that runs scripts and the file extension
// a script must carry.
func WithInterpreter(program, extension string) Option {
	return func(s *Sandbox) {
		s.interpreter = program
		s.extension = extension
	}
}

// WithScriptTimeout bounds the wall-clock time of RunScript.
func WithScriptTimeout(d time.Duration) Option {
	return func(s *Sandbox) { s.timeout = d }
}

// NewSandbox creates a Sandbox rooted at root, which may be relative to the
// working directory. The root must be an existing directory.
func NewSandbox(root string, opts ...Option) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("sandbox root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root %q is not a directory", root)
	}

	s := &Sandbox{
		root:        abs,
		readLimit:   DefaultReadLimit,
		interpreter: DefaultInterpreter,
		extension:   DefaultScriptExtension,
		timeout:     DefaultScriptTimeout,
	}
	WithExcludedNames(DefaultExcludedNames...)(s)
	for _, opt := range opts {
		opt(s)
	}

	if s.readLimit < 1 {
		return nil, fmt.Errorf("read limit must be positive, got %d", s.readLimit)
	}
	if s.interpreter == "" {
		return nil, fmt.Errorf("script interpreter cannot be empty")
	}
	if s.timeout <= 0 {
		return nil, fmt.Errorf("script timeout must be positive, got %s", s.timeout)
	}
	return s, nil
}

// Root returns the absolute, cleaned sandbox root.
func (s *Sandbox) Root() string { return s.root }

// ReadLimit returns the maximum number of characters ReadFile returns.
func (s *Sandbox) ReadLimit() int { return s.readLimit }

// ScriptExtension returns the extension RunScript requires.
func (s *Sandbox) ScriptExtension() string { return s.extension }

// resolve maps a caller-supplied path to an absolute path inside the root.
// Relative paths are joined to the root; absolute paths are taken as they
// are. The result is cleaned before the containment check, so ".." segments
// cannot climb out.
func (s *Sandbox) resolve(op, candidate string) (string, error) {
	var p string
	if filepath.IsAbs(candidate) {
		p = filepath.Clean(candidate)
	} else {
		p = filepath.Join(s.root, candidate)
	}
	if !contains(s.root, p) {
		return "", newError(ErrOutsideSandbox, op, candidate, nil)
	}
	return p, nil
}

// contains reports whether p equals root or lies beneath it. Both paths must
// be clean and absolute. The separator suffix keeps "/root2" out of "/root".
func contains(root, p string) bool {
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}
