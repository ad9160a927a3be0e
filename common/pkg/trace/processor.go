// Copyright (C) 2025-2026, Advanced Micro Devices, Inc. All rights reserved.
// See LICENSE for license information.

package trace

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/klog/v2"
)

// TraceMode controls which finished traces get exported
type TraceMode string

const (
	// TraceModeErrorOnly only exports traces that contain at least one error span
	TraceModeErrorOnly TraceMode = "error_only"
	// TraceModeAlways exports all traces subject to the sampling ratio
	TraceModeAlways TraceMode = "all"
)

// TraceOptions holds runtime tracing configuration
type TraceOptions struct {
	// Mode selects between error_only and all
	Mode TraceMode
	// SamplingRatio applies in all mode (0.0 - 1.0)
	SamplingRatio float64
	// ErrorSamplingRatio applies to errored traces in error_only mode (0.0 - 1.0)
	ErrorSamplingRatio float64
}

// DefaultTraceOptions returns the default tracing configuration (error_only, full sampling)
func DefaultTraceOptions() TraceOptions {
	return TraceOptions{
		Mode:               TraceModeErrorOnly,
		SamplingRatio:      1.0,
		ErrorSamplingRatio: 1.0,
	}
}

const (
	// Maximum number of spans buffered per trace before the oldest are dropped
	maxSpansPerTrace = 512
	// Maximum number of in-flight traces tracked at once
	maxTrackedTraces = 4096
	// Buffered traces older than this are flushed or dropped by the janitor
	staleTraceAge = 2 * time.Minute
)

// traceBuffer accumulates the finished spans of one trace until its root span ends
type traceBuffer struct {
	spans      []sdktrace.ReadOnlySpan
	hasError   bool
	lastUpdate time.Time
}

// ErrorOnlySpanProcessor buffers spans per trace and exports the whole trace
// only when at least one span recorded an error status. Healthy traces are
// dropped when their root span ends, which keeps the collector load
// proportional to the error rate instead of the request rate.
type ErrorOnlySpanProcessor struct {
	exporter      sdktrace.SpanExporter
	samplingRatio float64

	mu     sync.Mutex
	traces map[trace.TraceID]*traceBuffer

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewErrorOnlySpanProcessor creates a processor that exports errored traces
// through the given exporter. samplingRatio (0.0 - 1.0) additionally samples
// the errored traces, 1.0 exports every errored trace.
func NewErrorOnlySpanProcessor(exporter sdktrace.SpanExporter, samplingRatio float64) *ErrorOnlySpanProcessor {
	if samplingRatio < 0 || samplingRatio > 1 {
		samplingRatio = 1.0
	}
	p := &ErrorOnlySpanProcessor{
		exporter:      exporter,
		samplingRatio: samplingRatio,
		traces:        make(map[trace.TraceID]*traceBuffer),
		stopCh:        make(chan struct{}),
	}
	go p.janitor()
	return p
}

// OnStart implements sdktrace.SpanProcessor
func (p *ErrorOnlySpanProcessor) OnStart(_ context.Context, _ sdktrace.ReadWriteSpan) {}

// OnEnd buffers the finished span and flushes the trace once its root span ends
func (p *ErrorOnlySpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	traceId := s.SpanContext().TraceID()
	isRoot := !s.Parent().IsValid() || s.Parent().IsRemote()

	p.mu.Lock()
	buf, ok := p.traces[traceId]
	if !ok {
		if len(p.traces) >= maxTrackedTraces {
			// Tracking table is full, drop the span rather than grow unbounded
			p.mu.Unlock()
			return
		}
		buf = &traceBuffer{}
		p.traces[traceId] = buf
	}
	if len(buf.spans) < maxSpansPerTrace {
		buf.spans = append(buf.spans, s)
	}
	if s.Status().Code == codes.Error {
		buf.hasError = true
	}
	buf.lastUpdate = time.Now()

	if !isRoot {
		p.mu.Unlock()
		return
	}
	delete(p.traces, traceId)
	p.mu.Unlock()

	p.flush(buf)
}

// flush exports the buffered trace when it errored and passes sampling
func (p *ErrorOnlySpanProcessor) flush(buf *traceBuffer) {
	if !buf.hasError || len(buf.spans) == 0 {
		return
	}
	if p.samplingRatio < 1.0 && rand.Float64() >= p.samplingRatio {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.exporter.ExportSpans(ctx, buf.spans); err != nil {
		klog.Errorf("Failed to export errored trace: %v", err)
	}
}

// janitor periodically flushes or drops traces whose root span never ended,
// e.g. when the root span is finished by another process
func (p *ErrorOnlySpanProcessor) janitor() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-staleTraceAge)
			var stale []*traceBuffer
			p.mu.Lock()
			for id, buf := range p.traces {
				if buf.lastUpdate.Before(cutoff) {
					stale = append(stale, buf)
					delete(p.traces, id)
				}
			}
			p.mu.Unlock()
			for _, buf := range stale {
				p.flush(buf)
			}
		}
	}
}

// Shutdown flushes all buffered errored traces and shuts down the exporter
func (p *ErrorOnlySpanProcessor) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })

	p.mu.Lock()
	remaining := make([]*traceBuffer, 0, len(p.traces))
	for id, buf := range p.traces {
		remaining = append(remaining, buf)
		delete(p.traces, id)
	}
	p.mu.Unlock()

	for _, buf := range remaining {
		p.flush(buf)
	}
	return p.exporter.Shutdown(ctx)
}

// ForceFlush implements sdktrace.SpanProcessor, buffered traces stay put
// until their root span ends so there is nothing to force here
func (p *ErrorOnlySpanProcessor) ForceFlush(_ context.Context) error {
	return nil
}
