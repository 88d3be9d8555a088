package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/tidefall/cityscout/tools"
)

// Dispatcher routes a decoded call request to the right tool adapter. It
// holds no session or transport state: the registry is read-only and every
// invocation is independent, so it is safe to call concurrently from
// multiple front ends and sessions at once.
type Dispatcher struct {
	registry *tools.Registry
	logger   *slog.Logger
	observer *DispatchObserver
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithObserver attaches an OpenTelemetry observer to the dispatcher.
func WithObserver(observer *DispatchObserver) DispatcherOption {
	return func(d *Dispatcher) {
		d.observer = observer
	}
}

// WithDispatchLogger sets the dispatcher's logger.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *tools.Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry this dispatcher routes over.
func (d *Dispatcher) Registry() *tools.Registry {
	return d.registry
}

// Dispatch resolves the tool by name and delegates to its adapter. A nil
// error means success; a non-nil error is always a classified *tools.Error
// (unknown tool comes back as a not-found error whose message names the
// tool).
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) (*tools.ToolResult, error) {
	start := time.Now()

	tool, err := d.registry.Get(name)
	if err != nil {
		d.observe(ctx, name, start, err)
		return nil, tools.Classify(err)
	}

	d.logger.Info("executing tool", "tool", name)
	result, err := tool.Execute(ctx, args)
	if err != nil {
		d.observe(ctx, name, start, err)
		return nil, tools.Classify(err)
	}

	d.observe(ctx, name, start, nil)
	return result, nil
}

// ListTools returns the discovery records in registration order, with each
// schema normalized for the wire.
func (d *Dispatcher) ListTools() ([]ToolDescription, error) {
	specs := d.registry.List()
	descriptions := make([]ToolDescription, 0, len(specs))
	for _, spec := range specs {
		schema, err := tools.SchemaToMap(spec.InputSchema)
		if err != nil {
			return nil, tools.NewInternalError("failed to encode tool schema", err)
		}
		descriptions = append(descriptions, ToolDescription{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: schema,
		})
	}
	return descriptions, nil
}

func (d *Dispatcher) observe(ctx context.Context, name string, start time.Time, err error) {
	if d.observer == nil {
		return
	}
	kind := ""
	if err != nil {
		kind = tools.Classify(err).Kind.String()
	}
	d.observer.ObserveDispatch(ctx, name, time.Since(start), kind)
}
