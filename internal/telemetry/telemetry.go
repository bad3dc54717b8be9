// Package telemetry records scenario runs as OpenTelemetry traces: one
// span per run with a child span per step.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"sync"

	"uicheck/internal/runner"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "uicheck/internal/runner"

// Attribute keys set on run and step spans.
var (
	AttrRunID       = attribute.Key("uicheck.run.id")
	AttrScenario    = attribute.Key("uicheck.scenario")
	AttrStepIndex   = attribute.Key("uicheck.step.index")
	AttrStepLabel   = attribute.Key("uicheck.step.label")
	AttrAction      = attribute.Key("uicheck.step.action")
	AttrCondition   = attribute.Key("uicheck.condition")
	AttrArtifact    = attribute.Key("uicheck.artifact")
	AttrFailureKind = attribute.Key("uicheck.failure.kind")
)

// NewProvider returns a tracer provider that writes finished spans as JSON
// to w. Callers must Shutdown it to flush.
func NewProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	res := resource.NewSchemaless(attribute.String("service.name", "uicheck"))
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

type runSpans struct {
	ctx  context.Context
	run  trace.Span
	step trace.Span
}

// Tracer is a runner.Observer that turns run events into spans. Safe for
// concurrent runs; spans are keyed by run id.
type Tracer struct {
	tracer trace.Tracer
	mu     sync.Mutex
	runs   map[string]*runSpans
}

var _ runner.Observer = (*Tracer)(nil)

// NewTracer returns an observer recording spans through tp.
func NewTracer(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(tracerName), runs: make(map[string]*runSpans)}
}

func (t *Tracer) OnEvent(e runner.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e.Type == runner.EventRunStart {
		ctx, span := t.tracer.Start(context.Background(), "run "+e.Scenario,
			trace.WithAttributes(AttrRunID.String(e.RunID), AttrScenario.String(e.Scenario)))
		t.runs[e.RunID] = &runSpans{ctx: ctx, run: span}
		return
	}
	rs, ok := t.runs[e.RunID]
	if !ok {
		return
	}

	switch e.Type {
	case runner.EventStepStart:
		_, rs.step = t.tracer.Start(rs.ctx, "step "+e.Label, trace.WithAttributes(
			AttrStepIndex.Int(e.Step),
			AttrStepLabel.String(e.Label),
			AttrAction.String(e.Action),
		))
	case runner.EventActionDone:
		t.stepEvent(rs, "action done")
	case runner.EventConditionMet:
		t.stepEvent(rs, "condition met", AttrCondition.String(e.Condition),
			attribute.Int64("uicheck.wait_ms", e.Elapsed.Milliseconds()))
	case runner.EventCheckpoint:
		t.stepEvent(rs, "checkpoint", AttrArtifact.String(e.Artifact))
	case runner.EventStepPassed:
		if rs.step != nil {
			rs.step.SetStatus(codes.Ok, "")
			rs.step.End()
			rs.step = nil
		}
	case runner.EventStepFailed:
		if rs.step != nil {
			rs.step.SetAttributes(AttrCondition.String(e.Condition), AttrFailureKind.String(runner.Kind(e.Error)))
			rs.step.RecordError(e.Error)
			rs.step.SetStatus(codes.Error, e.Condition+" not met")
			rs.step.End()
			rs.step = nil
		}
	case runner.EventRunComplete:
		rs.run.SetStatus(codes.Ok, "")
		rs.run.End()
		delete(t.runs, e.RunID)
	case runner.EventRunFailed:
		rs.run.SetAttributes(AttrFailureKind.String(runner.Kind(e.Error)))
		rs.run.RecordError(e.Error)
		rs.run.SetStatus(codes.Error, runner.Kind(e.Error))
		rs.run.End()
		delete(t.runs, e.RunID)
	}
}

func (t *Tracer) stepEvent(rs *runSpans, name string, attrs ...attribute.KeyValue) {
	if rs.step == nil {
		return
	}
	rs.step.AddEvent(name, trace.WithAttributes(attrs...))
}
