// Package dispatch routes named tool invocations to their handlers, validating
// arguments against each tool's declared schema and shaping every outcome into
// a structured Result.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/edumesh/eduagent/pkg/errmodel"
	"github.com/edumesh/eduagent/pkg/session"
)

type handlerFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

type toolSpec struct {
	desc    ToolDescriptor
	handler handlerFunc
}

// Dispatcher exposes the tool surface over an explicit session registry.
type Dispatcher struct {
	reg      *session.Registry
	validate ValidateFunc
	now      func() time.Time
	log      *slog.Logger

	specs  []toolSpec
	byName map[string]int
}

// DispatcherOption configures the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithValidator overrides the schema validator.
func WithValidator(v ValidateFunc) DispatcherOption {
	return func(d *Dispatcher) {
		if v != nil {
			d.validate = v
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDispatcher builds the dispatcher with its full tool table.
func NewDispatcher(reg *session.Registry, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		reg:      reg,
		validate: JSONSchemaValidator,
		now:      time.Now,
		log:      slog.Default(),
		byName:   map[string]int{},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.registerTools()
	return d
}

func (d *Dispatcher) register(desc ToolDescriptor, h handlerFunc) {
	d.byName[desc.Name] = len(d.specs)
	d.specs = append(d.specs, toolSpec{desc: desc, handler: h})
}

// Tools lists the tool descriptors in registration order.
func (d *Dispatcher) Tools() []ToolDescriptor {
	out := make([]ToolDescriptor, 0, len(d.specs))
	for _, s := range d.specs {
		out = append(out, s.desc)
	}
	return out
}

// Call validates args against the named tool's schema and invokes it. All
// failure modes, including handler panics, surface as error Results.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (res Result) {
	tr := otel.Tracer("dispatch")
	ctx, span := tr.Start(ctx, "Dispatcher.Call", trace.WithAttributes(
		attribute.String("tool.name", name),
	))
	defer func() {
		if rec := recover(); rec != nil {
			res = Fail(errmodel.System("panic", fmt.Sprintf("tool %s panicked: %v", name, rec), nil, nil))
		}
		if res.IsErr() {
			span.RecordError(res.Err())
			d.log.Warn("tool call failed", "tool", name, "error", res.Err())
		}
		span.End()
	}()

	idx, ok := d.byName[name]
	if !ok {
		return Fail(errmodel.Lookup("tool_not_found", "unknown tool", map[string]any{"tool": name}))
	}
	spec := d.specs[idx]
	if args == nil {
		args = map[string]any{}
	}
	if err := d.validate(spec.desc.InputSchema, args); err != nil {
		return Fail(errmodel.Validation("invalid_input", "tool input validation failed",
			map[string]any{"tool": name, "error": err.Error()}))
	}
	out, err := spec.handler(ctx, args)
	if err != nil {
		return Fail(errmodel.From(err))
	}
	return Ok(out)
}
