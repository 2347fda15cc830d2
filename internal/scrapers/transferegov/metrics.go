package transferegov

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("transferegov.internal.scrapers.transferegov")

var meter = otel.Meter("transferegov.internal.scrapers.transferegov")
var runCounter, _ = meter.Int64Counter(
	"workflow_runs",
	metric.WithDescription("workflow executions by procedure and final status"),
)
var fatalCounter, _ = meter.Int64Counter(
	"workflow_fatal",
	metric.WithDescription("workflow executions aborted by a fatal step"),
)
var recordCounter, _ = meter.Int64Counter(
	"extracted_records",
	metric.WithDescription("records returned by the extraction engine"),
)
var droppedCounter, _ = meter.Int64Counter(
	"dropped_rows",
	metric.WithDescription("listing rows dropped for missing required fields"),
)
var detailRetryCounter, _ = meter.Int64Counter(
	"detail_retries",
	metric.WithDescription("detail pages refreshed after a failed extraction attempt"),
)

func procedureAttrs(procedure string, env Environment) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("procedure", procedure),
		attribute.String("environment", string(env)),
	)
}

func countRun(ctx context.Context, procedure string, env Environment, status Status) {
	runCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("procedure", procedure),
		attribute.String("environment", string(env)),
		attribute.String("status", status.String()),
	))
}
