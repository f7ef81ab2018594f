// Tool Dispatcher.
//
// Information Hiding:
// - Argument validation against declared parameters hidden
// - Panic recovery hidden
// - Every failure folded into the returned llm.ToolResult

package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/richinex/tether/internal/observe"
	"github.com/richinex/tether/llm"
)

// Dispatcher turns one model-issued tool call into exactly one result.
type Dispatcher struct {
	registry *Registry
	out      io.Writer
	verbose  bool
	logger   *slog.Logger
	metrics  *observe.Metrics
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithOutput sets where the " - Calling function" line is written.
// Nil disables it.
func WithOutput(w io.Writer) DispatcherOption {
	return func(d *Dispatcher) { d.out = w }
}

// WithVerbose includes call arguments in the diagnostic line.
func WithVerbose(verbose bool) DispatcherOption {
	return func(d *Dispatcher) { d.verbose = verbose }
}

// WithDispatchLogger sets the logger.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithDispatchMetrics sets the metric instruments.
func WithDispatchMetrics(m *observe.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		logger:   slog.Default(),
		metrics:  observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher resolves names against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Dispatch invokes the tool named by call. It never fails: unknown names,
// malformed arguments, tool errors and tool panics all come back as a
// result with Error set.
func (d *Dispatcher) Dispatch(ctx context.Context, call llm.ToolCall) (result llm.ToolResult) {
	if d.out != nil {
		if d.verbose {
			fmt.Fprintf(d.out, " - Calling function: %s(%s)\n", call.Name, call.ArgsJSON())
		} else {
			fmt.Fprintf(d.out, " - Calling function: %s\n", call.Name)
		}
	}

	start := time.Now()
	result = llm.ToolResult{CallID: call.ID, Name: call.Name}

	tool, ok := d.registry.Get(call.Name)
	if !ok {
		result.Error = fmt.Sprintf("Unknown function: %s", call.Name)
		d.logger.Warn("tool call rejected", "tool", call.Name, "error", ErrUnknownTool)
		d.metrics.RecordToolCall(ctx, "unknown", observe.StatusError, time.Since(start))
		return result
	}

	output, err := d.invoke(ctx, tool, call)
	elapsed := time.Since(start)
	d.metrics.RecordToolCall(ctx, call.Name, observe.Status(err), elapsed)

	if err != nil {
		result.Error = err.Error()
		d.logger.Debug("tool call failed", "tool", call.Name, "error", err, "duration", elapsed)
		return result
	}
	result.Output = output
	d.logger.Debug("tool call succeeded", "tool", call.Name, "bytes", len(output), "duration", elapsed)
	return result
}

func (d *Dispatcher) invoke(ctx context.Context, tool Tool, call llm.ToolCall) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", "tool", call.Name, "panic", r)
			output = ""
			err = newError(ErrMalformedCall, "call", "", fmt.Errorf("%s: %v", call.Name, r))
		}
	}()

	if call.Malformed != "" {
		return "", newError(ErrMalformedCall, "call", "", fmt.Errorf("%s: %s", call.Name, call.Malformed))
	}
	args := Args(call.Args)
	if args == nil {
		args = Args{}
	}
	if err := ValidateArgs(tool.Metadata(), args); err != nil {
		return "", newError(ErrMalformedCall, "call", "", err)
	}
	return tool.Execute(ctx, args)
}

// ValidateArgs checks args against the parameters declared in meta:
// every key must be declared, required keys must be present, and values
// must have the declared type.
func ValidateArgs(meta ToolMetadata, args Args) error {
	var errs []error

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		p, ok := meta.parameter(k)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: unexpected argument %q", meta.Name, k))
			continue
		}
		if !hasType(args[k], p.ParamType, p.ItemType) {
			errs = append(errs, fmt.Errorf("%s: argument %q must be of type %s", meta.Name, k, p.ParamType))
		}
	}
	for _, p := range meta.Parameters {
		if _, ok := args[p.Name]; p.Required && !ok {
			errs = append(errs, fmt.Errorf("%s: missing required argument %q", meta.Name, p.Name))
		}
	}
	return errors.Join(errs...)
}

func hasType(v any, paramType, itemType string) bool {
	switch paramType {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case TypeInteger:
		switch n := v.(type) {
		case int, int64:
			return true
		case float64:
			return n == math.Trunc(n)
		}
		return false
	case TypeArray:
		if itemType == "" {
			itemType = TypeString
		}
		switch items := v.(type) {
		case []string:
			return itemType == TypeString
		case []any:
			for _, item := range items {
				if !hasType(item, itemType, "") {
					return false
				}
			}
			return true
		}
		return false
	default:
		return true
	}
}
