// Package telemetry records in-process metrics for the language server with
// OpenTelemetry and exposes them as a snapshot.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"fortio.org/safecast"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

const scopeName = "dpscript/internal/telemetry"

// Config controls the provider.
type Config struct {
	ServiceName string
	Version     string
}

// Provider owns the meter provider and the server's instruments. A nil
// *Provider is valid and records nothing.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	reader        *sdkmetric.ManualReader
	meter         metric.Meter

	compilePasses      metric.Int64Counter
	diagnosticsSent    metric.Int64Counter
	processSpawns      metric.Int64Counter
	processExits       metric.Int64Counter
	malformedLines     metric.Int64Counter
	completionRequests metric.Int64Counter
	batchDuration      metric.Int64Histogram

	shutdownOnce sync.Once
}

// Setup builds a provider backed by a manual reader; nothing is exported
// off-process.
func Setup(cfg Config) (*Provider, error) {
	if strings.TrimSpace(cfg.ServiceName) == "" {
		cfg.ServiceName = "dpscript"
	}
	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if cfg.Version != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.Version))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	p := &Provider{
		meterProvider: mp,
		reader:        reader,
		meter:         mp.Meter(scopeName),
	}
	if err := p.initInstruments(); err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, err
	}
	return p, nil
}

func (p *Provider) initInstruments() error {
	var errs []error
	counter := func(name, desc string) metric.Int64Counter {
		c, err := p.meter.Int64Counter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return c
	}
	p.compilePasses = counter("dpscript.compile.passes", "Compile passes started")
	p.diagnosticsSent = counter("dpscript.diagnostics.published", "Diagnostic publications sent")
	p.processSpawns = counter("dpscript.compiler.spawns", "Compiler process spawn attempts")
	p.processExits = counter("dpscript.compiler.exits", "Compiler process exits")
	p.malformedLines = counter("dpscript.compiler.malformed_lines", "Discarded malformed compiler lines")
	p.completionRequests = counter("dpscript.completion.requests", "Completion requests by context")

	hist, err := p.meter.Int64Histogram("dpscript.batch.duration",
		metric.WithDescription("Batch invocation duration"),
		metric.WithUnit("ms"))
	errs = append(errs, err)
	p.batchDuration = hist
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("create instruments: %w", err)
	}
	return nil
}

// CompilePass counts a compile pass by mode and trigger.
func (p *Provider) CompilePass(ctx context.Context, mode, trigger string) {
	if p == nil {
		return
	}
	p.compilePasses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("trigger", trigger),
	))
}

// DiagnosticsPublished counts one publication carrying n records.
func (p *Provider) DiagnosticsPublished(ctx context.Context, n int) {
	if p == nil {
		return
	}
	p.diagnosticsSent.Add(ctx, 1, metric.WithAttributes(attribute.Bool("empty", n == 0)))
}

// ProcessSpawn counts a spawn attempt.
func (p *Provider) ProcessSpawn(ctx context.Context, ok bool) {
	if p == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	p.processSpawns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// ProcessExit counts a process exit.
func (p *Provider) ProcessExit(ctx context.Context, code int, expected bool) {
	if p == nil {
		return
	}
	p.processExits.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("code", code),
		attribute.Bool("expected", expected),
	))
}

// MalformedLine counts a discarded compiler line.
func (p *Provider) MalformedLine(ctx context.Context) {
	if p == nil {
		return
	}
	p.malformedLines.Add(ctx, 1)
}

// CompletionRequest counts a completion request by classified context.
func (p *Provider) CompletionRequest(ctx context.Context, kind string) {
	if p == nil {
		return
	}
	p.completionRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("context", kind)))
}

// BatchInvocation records the duration of one batch invocation.
func (p *Provider) BatchInvocation(ctx context.Context, millis int64, folderErr bool) {
	if p == nil {
		return
	}
	p.batchDuration.Record(ctx, millis, metric.WithAttributes(attribute.Bool("error", folderErr)))
}

// Snapshot collects every instrument. Keys are metric names for totals
// and `name{attrs}` for each attribute set; histograms report counts.
func (p *Provider) Snapshot(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	if p == nil {
		return out, nil
	}
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += dp.Value
					if key := attrKey(m.Name, dp.Attributes); key != "" {
						out[key] += dp.Value
					}
				}
			case metricdata.Histogram[int64]:
				for _, dp := range data.DataPoints {
					n, err := safecast.Conv[int64](dp.Count)
					if err != nil {
						return nil, fmt.Errorf("histogram %s: %w", m.Name, err)
					}
					out[m.Name] += n
					out[m.Name+".sum"] += dp.Sum
				}
			}
		}
	}
	return out, nil
}

func attrKey(name string, set attribute.Set) string {
	if set.Len() == 0 {
		return ""
	}
	parts := make([]string, 0, set.Len())
	for _, kv := range set.ToSlice() {
		parts = append(parts, string(kv.Key)+"="+kv.Value.Emit())
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}

// Shutdown stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var err error
	p.shutdownOnce.Do(func() {
		err = p.meterProvider.Shutdown(ctx)
	})
	return err
}
