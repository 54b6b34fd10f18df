package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tablegate/tablegate/internal/build"
)

var tracer = otel.Tracer("pkg/gateway")

var (
	queryDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:                       build.ProjectName,
		Name:                            "gateway_query_duration_ms",
		Help:                            "The duration (in ms) of statements sent by a gateway, labeled by operation.",
		Buckets:                         []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		NativeHistogramBucketFactor:     1.1,
		NativeHistogramMaxBucketNumber:  100,
		NativeHistogramMinResetDuration: time.Hour,
	}, []string{"operation"})

	memoryOverflowCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "gateway_memory_overflow_count",
		Help:      "The total number of buffered reads aborted by the memory limit.",
	})
)

func observeQuery(operation string, start time.Time) {
	queryDurationHistogram.WithLabelValues(operation).Observe(float64(time.Since(start).Milliseconds()))
}

// traceError records err on span and returns it unchanged.
func traceError(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
