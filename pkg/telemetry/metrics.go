// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TaskMetrics tracks the task pipeline: submissions, outcomes, queue depth
// and LLM usage.
type TaskMetrics struct {
	submitted   metric.Int64Counter
	completed   metric.Int64Counter
	failed      metric.Int64Counter
	rejected    metric.Int64Counter
	queueDepth  metric.Int64Gauge
	llmCalls    metric.Int64Counter
	llmTokens   metric.Int64Counter
	taskLatency metric.Float64Histogram
}

// NewTaskMetrics creates the Helios task instruments on the global meter.
func NewTaskMetrics() (*TaskMetrics, error) {
	meter := otel.Meter("helios/orchestrator")

	submitted, err := meter.Int64Counter(
		"helios.tasks.submitted",
		metric.WithDescription("Tasks accepted into the queue"),
	)
	if err != nil {
		return nil, err
	}
	completed, err := meter.Int64Counter(
		"helios.tasks.completed",
		metric.WithDescription("Tasks that finished successfully"),
	)
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter(
		"helios.tasks.failed",
		metric.WithDescription("Tasks that finished with an error"),
	)
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter(
		"helios.tasks.rejected",
		metric.WithDescription("Task submissions rejected because the queue was full"),
	)
	if err != nil {
		return nil, err
	}
	queueDepth, err := meter.Int64Gauge(
		"helios.tasks.queue_depth",
		metric.WithDescription("Current number of queued tasks"),
	)
	if err != nil {
		return nil, err
	}
	llmCalls, err := meter.Int64Counter(
		"helios.llm.calls",
		metric.WithDescription("LLM chat calls by provider and outcome"),
	)
	if err != nil {
		return nil, err
	}
	llmTokens, err := meter.Int64Counter(
		"helios.llm.tokens",
		metric.WithDescription("LLM tokens consumed"),
	)
	if err != nil {
		return nil, err
	}
	taskLatency, err := meter.Float64Histogram(
		"helios.tasks.duration_seconds",
		metric.WithDescription("End-to-end task processing duration"),
	)
	if err != nil {
		return nil, err
	}

	return &TaskMetrics{
		submitted:   submitted,
		completed:   completed,
		failed:      failed,
		rejected:    rejected,
		queueDepth:  queueDepth,
		llmCalls:    llmCalls,
		llmTokens:   llmTokens,
		taskLatency: taskLatency,
	}, nil
}

// RecordSubmitted counts an accepted task submission.
func (m *TaskMetrics) RecordSubmitted(ctx context.Context, priority string) {
	if m == nil {
		return
	}
	m.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("priority", priority)))
}

// RecordRejected counts a submission rejected by the bounded queue.
func (m *TaskMetrics) RecordRejected(ctx context.Context) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1)
}

// RecordOutcome counts a finished task and its duration.
func (m *TaskMetrics) RecordOutcome(ctx context.Context, success bool, seconds float64) {
	if m == nil {
		return
	}
	if success {
		m.completed.Add(ctx, 1)
	} else {
		m.failed.Add(ctx, 1)
	}
	m.taskLatency.Record(ctx, seconds)
}

// RecordQueueDepth publishes the current queue depth.
func (m *TaskMetrics) RecordQueueDepth(ctx context.Context, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Record(ctx, int64(depth))
}

// RecordLLMCall counts an LLM chat call and its token usage.
func (m *TaskMetrics) RecordLLMCall(ctx context.Context, provider string, err error, totalTokens int) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.llmCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
	if totalTokens > 0 {
		m.llmTokens.Add(ctx, int64(totalTokens),
			metric.WithAttributes(attribute.String("provider", provider)))
	}
}
