// Script Runner Tool.
//
// Information Hiding:
// - Interpreter invocation and process-group handling hidden
// - Output capture and report composition abstracted

package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait keeps draining pipes after the process
// was killed, in case a descendant still holds them open.
const waitDelay = 2 * time.Second

// RunReport is the captured outcome of one script run.
type RunReport struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// String renders the report in the form returned to the model.
func (r RunReport) String() string {
	var lines []string
	if r.Stdout != "" {
		lines = append(lines, "STDOUT: "+r.Stdout)
	}
	if r.Stderr != "" {
		lines = append(lines, "STDERR: "+r.Stderr)
	}
	if r.ExitCode != 0 {
		lines = append(lines, fmt.Sprintf("Process exited with code %d", r.ExitCode))
	}
	if len(lines) == 0 {
		return "No output produced."
	}
	return strings.Join(lines, "\n")
}

// RunScript runs the script at rel with the configured interpreter and
// args, in the sandbox root, killing it after the script timeout. A non-zero
// exit is reported in the RunReport, not as an error.
func (s *Sandbox) RunScript(ctx context.Context, rel string, args []string) (RunReport, error) {
	const op = "run"
	path, err := s.resolve(op, rel)
	if err != nil {
		return RunReport{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return RunReport{}, newError(ErrNotFound, op, rel, nil)
		}
		return RunReport{}, newError(ErrFilesystem, op, rel, err)
	}
	if !info.Mode().IsRegular() || !strings.HasSuffix(path, s.extension) {
		return RunReport{}, newError(ErrNotAScript, op, rel, fmt.Errorf("expected a %s file", s.extension))
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, s.interpreter, append([]string{path}, args...)...)
	cmd.Dir = s.root
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	// The script may have left children behind that still hold its pipes.
	reapProcessGroup(cmd)
	if ctxErr := runCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) && ctx.Err() == nil {
			return RunReport{}, newError(ErrExecution, op, rel, fmt.Errorf("timed out after %s", s.timeout))
		}
		return RunReport{}, newError(ErrExecution, op, rel, ctxErr)
	}

	report := RunReport{
		Stdout: strings.ToValidUTF8(stdout.String(), "\uFFFD"),
		Stderr: strings.ToValidUTF8(stderr.String(), "\uFFFD"),
	}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		report.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrWaitDelay):
		// The script exited; only its descendants kept the pipes open.
		report.ExitCode = cmd.ProcessState.ExitCode()
	default:
		return RunReport{}, newError(ErrExecution, op, rel, err)
	}
	return report, nil
}

// RunScriptTool executes a script inside the sandbox.
type RunScriptTool struct {
	sandbox *Sandbox
}

// NewRunScriptTool creates a script tool bound to sandbox.
func NewRunScriptTool(sandbox *Sandbox) *RunScriptTool {
	return &RunScriptTool{sandbox: sandbox}
}

// Metadata returns the tool metadata.
func (t *RunScriptTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: RunScriptToolName,
		Description: fmt.Sprintf("Executes a %s file with optional arguments, constrained to the working directory. "+
			"Returns the captured output and the exit code.", t.sandbox.ScriptExtension()),
		Parameters: []ToolParameter{
			{Name: "file_path", ParamType: TypeString, Description: "Path to the script, relative to the working directory.", Required: true},
			{Name: "args", ParamType: TypeArray, ItemType: TypeString, Description: "Optional command line arguments passed to the script."},
		},
	}
}

// Execute runs the script.
func (t *RunScriptTool) Execute(ctx context.Context, args Args) (string, error) {
	report, err := t.sandbox.RunScript(ctx, args.String("file_path"), args.Strings("args"))
	if err != nil {
		return "", err
	}
	return report.String(), nil
}
