package oteladapters_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore"
	"github.com/AntonStoeckl/reactive-tablestore-go/tablestore/oteladapters"
)

func newMetrics(t *testing.T) (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics))

	return resourceMetrics
}

func findMetric(resourceMetrics metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}

	return metricdata.Metrics{}, false
}

func findHistogram(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Histogram[float64] {
	t.Helper()

	m, ok := findMetric(resourceMetrics, name)
	require.True(t, ok, "histogram %s not found", name)

	histogram, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "%s is not a float64 histogram", name)

	return histogram
}

func findCounter(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Sum[int64] {
	t.Helper()

	m, ok := findMetric(resourceMetrics, name)
	require.True(t, ok, "counter %s not found", name)

	counter, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", name)

	return counter
}

func findGauge(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) metricdata.Gauge[float64] {
	t.Helper()

	m, ok := findMetric(resourceMetrics, name)
	require.True(t, ok, "gauge %s not found", name)

	gauge, ok := m.Data.(metricdata.Gauge[float64])
	require.True(t, ok, "%s is not a float64 gauge", name)

	return gauge
}

func Test_MetricsCollector_When_DurationIsRecorded_Then_HistogramHoldsSeconds(t *testing.T) {
	// arrange
	collector, reader := newMetrics(t)
	labels := map[string]string{
		tablestore.LabelOperation: "get_list",
		tablestore.LabelStatus:    tablestore.StatusSuccess,
	}

	// act
	collector.RecordDuration(tablestore.MetricOperationDuration, 150*time.Millisecond, labels)

	// assert
	histogram := findHistogram(t, collect(t, reader), tablestore.MetricOperationDuration)
	require.Len(t, histogram.DataPoints, 1)
	assert.Equal(t, uint64(1), histogram.DataPoints[0].Count)
	assert.InDelta(t, 0.15, histogram.DataPoints[0].Sum, 0.001)

	expected := attribute.NewSet(
		attribute.String(tablestore.LabelOperation, "get_list"),
		attribute.String(tablestore.LabelStatus, tablestore.StatusSuccess),
	)
	assert.True(t, histogram.DataPoints[0].Attributes.Equals(&expected))
}

func Test_MetricsCollector_When_CounterIsIncrementedTwice_Then_SumIsTwo(t *testing.T) {
	// arrange
	collector, reader := newMetrics(t)

	// act
	collector.IncrementCounter(tablestore.MetricChangesPublished, nil)
	collector.IncrementCounterContext(context.Background(), tablestore.MetricChangesPublished, nil)

	// assert
	counter := findCounter(t, collect(t, reader), tablestore.MetricChangesPublished)
	require.Len(t, counter.DataPoints, 1)
	assert.Equal(t, int64(2), counter.DataPoints[0].Value)
	assert.True(t, counter.IsMonotonic)
}

func Test_MetricsCollector_When_ValueIsRecordedTwice_Then_GaugeHoldsTheLastOne(t *testing.T) {
	// arrange
	collector, reader := newMetrics(t)

	// act
	collector.RecordValue(tablestore.MetricActiveSubscriptions, 3, nil)
	collector.RecordValueContext(context.Background(), tablestore.MetricActiveSubscriptions, 1, nil)

	// assert
	gauge := findGauge(t, collect(t, reader), tablestore.MetricActiveSubscriptions)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 1.0, gauge.DataPoints[0].Value, 0.0001)
}

func Test_MetricsCollector_When_LabelsDiffer_Then_DataPointsAreSeparate(t *testing.T) {
	// arrange
	collector, reader := newMetrics(t)

	// act
	collector.IncrementCounter(tablestore.MetricOperationErrors, map[string]string{tablestore.LabelOperation: "put_object"})
	collector.IncrementCounter(tablestore.MetricOperationErrors, map[string]string{tablestore.LabelOperation: "delete_object"})

	// assert
	counter := findCounter(t, collect(t, reader), tablestore.MetricOperationErrors)
	assert.Len(t, counter.DataPoints, 2)
}

func Test_MetricsCollector_When_UsedConcurrently_Then_AllIncrementsAreCounted(t *testing.T) {
	// arrange
	collector, reader := newMetrics(t)
	var wg sync.WaitGroup

	// act
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounter(tablestore.MetricLiveQueryReexecution, nil)
		}()
	}
	wg.Wait()

	// assert
	counter := findCounter(t, collect(t, reader), tablestore.MetricLiveQueryReexecution)
	require.Len(t, counter.DataPoints, 1)
	assert.Equal(t, int64(50), counter.DataPoints[0].Value)
}

// failingMeter refuses to create the "broken_*" instruments.
type failingMeter struct {
	metric.Meter
}

var errInstrumentRejected = errors.New("instrument rejected")

func (m failingMeter) Float64Histogram(name string, options ...metric.Float64HistogramOption) (metric.Float64Histogram, error) {
	if name == "broken_histogram" {
		return nil, errInstrumentRejected
	}

	return m.Meter.Float64Histogram(name, options...)
}

func (m failingMeter) Int64Counter(name string, options ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	if name == "broken_counter" {
		return nil, errInstrumentRejected
	}

	return m.Meter.Int64Counter(name, options...)
}

func (m failingMeter) Float64Gauge(name string, options ...metric.Float64GaugeOption) (metric.Float64Gauge, error) {
	if name == "broken_gauge" {
		return nil, errInstrumentRejected
	}

	return m.Meter.Float64Gauge(name, options...)
}

func Test_MetricsCollector_When_InstrumentCannotBeCreated_Then_RecordingIsSkipped(t *testing.T) {
	// arrange
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	collector := oteladapters.NewMetricsCollector(failingMeter{Meter: provider.Meter("test")})

	// act
	assert.NotPanics(t, func() {
		collector.RecordDuration("broken_histogram", time.Second, nil)
		collector.IncrementCounter("broken_counter", nil)
		collector.RecordValue("broken_gauge", 1, nil)
		collector.IncrementCounter("working_counter", nil)
	})

	// assert
	resourceMetrics := collect(t, reader)
	for _, name := range []string{"broken_histogram", "broken_counter", "broken_gauge"} {
		_, found := findMetric(resourceMetrics, name)
		assert.False(t, found, name)
	}

	counter := findCounter(t, resourceMetrics, "working_counter")
	assert.Equal(t, int64(1), counter.DataPoints[0].Value)
}
