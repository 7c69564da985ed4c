package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Metrics holds all application metrics
type Metrics struct {
	// Operation metrics
	OperationsTotal       metric.Int64Counter
	TransformDuration     metric.Float64Histogram
	OperationPayloadBytes metric.Int64Histogram

	// Conflict metrics
	ConflictsDetected  metric.Int64Counter
	ConflictsResolved  metric.Int64Counter
	ConflictsPending   metric.Int64UpDownCounter
	ResolutionDuration metric.Float64Histogram

	// Complexity metrics
	BatchComplexity        metric.Int64Counter
	EstimatedTransformTime metric.Float64Histogram

	// Error metrics
	ErrorTransformFailures  metric.Int64Counter
	ErrorResolutionFailures metric.Int64Counter
	ErrorApplyFailures      metric.Int64Counter
}

// NewMetrics creates and initializes all metrics
func NewMetrics(meterProvider metric.MeterProvider, serviceName string) (*Metrics, error) {
	meter := meterProvider.Meter(serviceName)

	operationsTotal, err := meter.Int64Counter(
		"sync_operations_total",
		metric.WithDescription("Total operations processed"),
	)
	if err != nil {
		return nil, err
	}

	transformDuration, err := meter.Float64Histogram(
		"sync_transform_duration",
		metric.WithDescription("Time spent transforming operation batches in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	operationPayloadBytes, err := meter.Int64Histogram(
		"sync_operation_payload_bytes",
		metric.WithDescription("Payload size per operation"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	conflictsDetected, err := meter.Int64Counter(
		"sync_conflicts_detected_total",
		metric.WithDescription("Conflicts detected by type"),
	)
	if err != nil {
		return nil, err
	}

	conflictsResolved, err := meter.Int64Counter(
		"sync_conflicts_resolved_total",
		metric.WithDescription("Conflicts resolved by strategy"),
	)
	if err != nil {
		return nil, err
	}

	conflictsPending, err := meter.Int64UpDownCounter(
		"sync_conflicts_pending",
		metric.WithDescription("Conflicts awaiting a user decision"),
	)
	if err != nil {
		return nil, err
	}

	resolutionDuration, err := meter.Float64Histogram(
		"sync_resolution_duration",
		metric.WithDescription("Time spent resolving conflicts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	batchComplexity, err := meter.Int64Counter(
		"sync_batch_complexity_total",
		metric.WithDescription("Operation batches by complexity bucket"),
	)
	if err != nil {
		return nil, err
	}

	estimatedTransformTime, err := meter.Float64Histogram(
		"sync_estimated_transform_time",
		metric.WithDescription("Estimated transformation time per batch in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errorTransformFailures, err := meter.Int64Counter(
		"error_transform_failures",
		metric.WithDescription("Failed operation transformations"),
	)
	if err != nil {
		return nil, err
	}

	errorResolutionFailures, err := meter.Int64Counter(
		"error_resolution_failures",
		metric.WithDescription("Failed conflict resolutions"),
	)
	if err != nil {
		return nil, err
	}

	errorApplyFailures, err := meter.Int64Counter(
		"error_apply_failures",
		metric.WithDescription("Operations the document aggregate rejected"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		OperationsTotal:         operationsTotal,
		TransformDuration:       transformDuration,
		OperationPayloadBytes:   operationPayloadBytes,
		ConflictsDetected:       conflictsDetected,
		ConflictsResolved:       conflictsResolved,
		ConflictsPending:        conflictsPending,
		ResolutionDuration:      resolutionDuration,
		BatchComplexity:         batchComplexity,
		EstimatedTransformTime:  estimatedTransformTime,
		ErrorTransformFailures:  errorTransformFailures,
		ErrorResolutionFailures: errorResolutionFailures,
		ErrorApplyFailures:      errorApplyFailures,
	}, nil
}

// InitMetricsProvider initializes the OpenTelemetry metrics provider
func InitMetricsProvider(ctx context.Context, endpoint string, serviceName string) (metric.MeterProvider, func() error, error) {
	if endpoint == "" {
		// Return a no-op provider if no endpoint is configured
		return sdkmetric.NewMeterProvider(), func() error { return nil }, nil
	}

	exporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(), // Use WithTLSClientConfig for production
	)
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)

	otel.SetMeterProvider(mp)

	return mp, func() error {
		return mp.Shutdown(ctx)
	}, nil
}
