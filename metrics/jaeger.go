package metrics

import (
	logging "github.com/ipfs/go-log/v2"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.7.0"
)

var log = logging.Logger("lakeflow/metrics")

// NewJaegerTraceProvider returns a TracerProvider that batches spans to a Jaeger collector.
// A ratio of 1 samples every trace, a ratio outside (0, 1) samples nothing.
func NewJaegerTraceProvider(serviceName, collectorEndpoint string, sampleRatio float64) (*tracesdk.TracerProvider, error) {
	log.Infow("creating jaeger trace provider", "service", serviceName, "ratio", sampleRatio, "endpoint", collectorEndpoint)

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(collectorEndpoint)))
	if err != nil {
		return nil, err
	}

	return tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithSampler(samplerFor(sampleRatio)),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	), nil
}

func samplerFor(ratio float64) tracesdk.Sampler {
	switch {
	case ratio == 1:
		return tracesdk.AlwaysSample()
	case ratio > 0 && ratio < 1:
		return tracesdk.ParentBased(tracesdk.TraceIDRatioBased(ratio))
	default:
		return tracesdk.NeverSample()
	}
}
