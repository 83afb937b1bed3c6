package monitoring

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewMeterProvider installs a global meter provider whose instruments are
// exported on the default Prometheus registry, next to the promauto metrics.
func NewMeterProvider() (*sdkmetric.MeterProvider, error) {
	exporter, err := promexporter.New()
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return provider, nil
}

// Recorder receives pipeline events from the predictor.
type Recorder struct {
	stageDuration otelmetric.Float64Histogram
}

func NewRecorder(meter otelmetric.Meter) (*Recorder, error) {
	stageDuration, err := meter.Float64Histogram(
		"creditrisk.pipeline.stage.duration",
		otelmetric.WithDescription("Duration of each prediction pipeline stage"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return &Recorder{stageDuration: stageDuration}, nil
}

func (r *Recorder) ObserveStage(ctx context.Context, stage string, d time.Duration) {
	r.stageDuration.Record(ctx, float64(d.Microseconds())/1000, otelmetric.WithAttributes(
		attribute.String("stage", stage),
	))
}

func (r *Recorder) PredictionServed(label string, cached bool) {
	Predictions.WithLabelValues(label).Inc()
	if cached {
		PredictionCacheHits.Inc()
	}
}

func (r *Recorder) PredictionFailed(code string) {
	PredictionErrors.WithLabelValues(code).Inc()
}
