package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Handler is the call signature of an external tool implementation. It
// receives validated arguments with declared defaults already applied.
// Handlers performing network I/O must be safe for concurrent use.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Adapter binds a descriptor to a handler. It validates and maps raw call
// arguments into the handler's expected shape and converts the handler's
// result or failure into a protocol-neutral outcome, so handlers stay
// protocol-agnostic and independently testable.
type Adapter struct {
	spec    *ToolSpec
	handler Handler
	logger  *slog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the adapter's logger.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter creates an adapter for the given descriptor and handler.
// It panics on an invalid descriptor, failing fast at initialization time.
func NewAdapter(spec *ToolSpec, handler Handler, opts ...AdapterOption) *Adapter {
	if err := ValidateSpec(spec); err != nil {
		panic(fmt.Sprintf("invalid tool spec: %v", err))
	}
	if handler == nil {
		panic(fmt.Sprintf("nil handler for tool %q", spec.Name))
	}
	a := &Adapter{
		spec:    spec,
		handler: handler,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Spec returns the tool descriptor.
func (a *Adapter) Spec() *ToolSpec {
	return a.spec
}

// Execute decodes raw arguments, validates them against the declared
// schema, applies defaults, and invokes the handler. Every failure comes
// back as a classified *Error; handler panics are contained so a single
// misbehaving tool cannot take down the dispatcher.
func (a *Adapter) Execute(ctx context.Context, rawArgs json.RawMessage) (result *ToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("tool handler panicked",
				"tool", a.spec.Name,
				"panic", fmt.Sprintf("%v", r))
			result = nil
			err = NewInternalError(fmt.Sprintf("tool %s failed", a.spec.Name), nil)
		}
	}()

	args, verr := a.prepareArguments(rawArgs)
	if verr != nil {
		return nil, verr
	}

	out, herr := a.handler(ctx, args)
	if herr != nil {
		classified := Classify(herr)
		if classified.Kind == KindInternal || classified.Kind == KindUpstream {
			a.logger.Error("tool execution failed",
				"tool", a.spec.Name,
				"kind", classified.Kind.String(),
				"error", herr.Error())
		}
		var deliberate *Error
		if !errors.As(herr, &deliberate) {
			// Unclassified failure: callers get a generic message, the raw
			// detail stays in the log above.
			return nil, NewInternalError(fmt.Sprintf("tool %s failed", a.spec.Name), herr)
		}
		return nil, classified
	}

	return &ToolResult{Output: out}, nil
}

// prepareArguments decodes the raw JSON mapping, checks required
// parameters, and fills declared defaults for absent optional ones.
// Unknown extra arguments are tolerated and passed through untouched.
func (a *Adapter) prepareArguments(rawArgs json.RawMessage) (map[string]any, *Error) {
	args := make(map[string]any)
	if len(rawArgs) > 0 && string(rawArgs) != "null" {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, NewValidationError(fmt.Sprintf("invalid arguments: %v", err))
		}
	}

	schema := a.spec.InputSchema
	for _, required := range schema.Required {
		if isEmptyArgument(args[required]) {
			return nil, NewMissingArgumentError(required)
		}
	}

	for name, prop := range schema.Properties {
		if prop == nil || len(prop.Default) == 0 {
			continue
		}
		if _, present := args[name]; present {
			continue
		}
		var value any
		if err := json.Unmarshal(prop.Default, &value); err != nil {
			return nil, NewInternalError(fmt.Sprintf("bad declared default for %s", name), err)
		}
		args[name] = value
	}

	return args, nil
}

// isEmptyArgument reports whether a required argument counts as absent:
// missing, null, or an empty string.
func isEmptyArgument(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}
