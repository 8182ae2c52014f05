// Package trace records per-stage timing spans through OpenTelemetry and
// exports them as a JSON report when timings are requested.
package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer     trace.Tracer
	recorder   *spanRecorder
	reportPath string
)

// spanRecorder collects finished spans. Review passes run concurrently,
// so appends are serialized.
type spanRecorder struct {
	mu    sync.Mutex
	spans []spanRecord
}

type spanRecord struct {
	Name     string
	Duration time.Duration
	Start    time.Time
	End      time.Time
	ParentID string
	SpanID   string
}

// SpanInfo is one timed stage in the exported report.
type SpanInfo struct {
	Name       string     `json:"name"`
	DurationMs float64    `json:"durationMs"`
	Start      string     `json:"start"`
	End        string     `json:"end"`
	Children   []SpanInfo `json:"children,omitempty"`
}

// TimingReport is the JSON document written on shutdown.
type TimingReport struct {
	Spans           []SpanInfo `json:"spans"`
	TotalDurationMs float64    `json:"totalDurationMs"`
	Timestamp       string     `json:"timestamp"`
}

// Init configures OpenTelemetry tracing for one run. When enabled, spans
// are recorded in process and written to outPath as JSON by the returned
// shutdown function. When disabled, spans become no-ops.
func Init(enabled bool, outPath string) (func(), error) {
	if !enabled {
		tracer = nil
		recorder = nil
		reportPath = ""
		return func() {}, nil
	}

	recorder = &spanRecorder{spans: make([]spanRecord, 0)}
	reportPath = outPath

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName("quorum"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(&recordingSpanProcessor{recorder: recorder}),
	)

	otel.SetTracerProvider(tp)
	tracer = tp.Tracer("quorum")

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
		_ = ExportReport()
	}

	return shutdown, nil
}

// StartSpan starts a span, or returns the span already on the context
// when tracing is disabled.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name)
}

type recordingSpanProcessor struct {
	recorder *spanRecorder
}

func (p *recordingSpanProcessor) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {}

func (p *recordingSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	if p.recorder == nil {
		return
	}
	parentID := ""
	if s.Parent().IsValid() {
		parentID = s.Parent().SpanID().String()
	}
	p.recorder.mu.Lock()
	p.recorder.spans = append(p.recorder.spans, spanRecord{
		Name:     s.Name(),
		Duration: s.EndTime().Sub(s.StartTime()),
		Start:    s.StartTime(),
		End:      s.EndTime(),
		SpanID:   s.SpanContext().SpanID().String(),
		ParentID: parentID,
	})
	p.recorder.mu.Unlock()
}

func (p *recordingSpanProcessor) Shutdown(ctx context.Context) error   { return nil }
func (p *recordingSpanProcessor) ForceFlush(ctx context.Context) error { return nil }

// ExportReport writes the collected spans to the configured path.
func ExportReport() error {
	if recorder == nil || reportPath == "" {
		return nil
	}
	recorder.mu.Lock()
	records := make([]spanRecord, len(recorder.spans))
	copy(records, recorder.spans)
	recorder.mu.Unlock()

	if len(records) == 0 {
		return nil
	}

	hierarchy := buildHierarchy(records)

	totalDurationMs := 0.0
	for _, span := range hierarchy {
		totalDurationMs += span.DurationMs
	}

	report := TimingReport{
		Spans:           hierarchy,
		TotalDurationMs: totalDurationMs,
		Timestamp:       time.Now().Format(time.RFC3339Nano),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling timing report: %w", err)
	}

	if err := os.WriteFile(reportPath, data, 0644); err != nil {
		return fmt.Errorf("writing timing report: %w", err)
	}

	return nil
}

// buildHierarchy converts flat span records into a parent/child tree.
func buildHierarchy(records []spanRecord) []SpanInfo {
	spanMap := make(map[string]*SpanInfo)
	var rootSpans []SpanInfo

	for _, record := range records {
		spanInfo := SpanInfo{
			Name:       record.Name,
			DurationMs: float64(record.Duration.Microseconds()) / 1000.0,
			Start:      record.Start.Format(time.RFC3339Nano),
			End:        record.End.Format(time.RFC3339Nano),
			Children:   []SpanInfo{},
		}
		spanMap[record.SpanID] = &spanInfo
	}

	for _, record := range records {
		if record.ParentID == "" {
			rootSpans = append(rootSpans, *spanMap[record.SpanID])
		} else {
			if parent, exists := spanMap[record.ParentID]; exists {
				parent.Children = append(parent.Children, *spanMap[record.SpanID])
			} else {
				rootSpans = append(rootSpans, *spanMap[record.SpanID])
			}
		}
	}

	sort.Slice(rootSpans, func(i, j int) bool {
		return rootSpans[i].Start < rootSpans[j].Start
	})

	return rootSpans
}
