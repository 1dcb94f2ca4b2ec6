package testdoubles_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/reactive-tablestore-go/testutil/testdoubles"
)

func Test_HasDurationRecordForMetric_When_AnEarlierRecordHasOtherLabels_Then_LaterRecordsAreMatched(t *testing.T) {
	// arrange
	spy := testdoubles.NewMetricsCollectorSpy()
	spy.RecordDuration("statement_duration", time.Millisecond, map[string]string{"operation": "execute_sql", "status": "success"})
	spy.RecordDuration("statement_duration", time.Millisecond, map[string]string{"operation": "insert", "status": "error"})
	spy.RecordDuration("statement_duration", time.Millisecond, map[string]string{"operation": "insert", "status": "success"})

	// act
	found := spy.HasDurationRecordForMetric("statement_duration").WithOperation("insert").WithStatus("success").Assert()
	notFound := spy.HasDurationRecordForMetric("statement_duration").WithOperation("delete").Assert()

	// assert
	assert.True(t, found)
	assert.False(t, notFound)
}

func Test_HasCounterRecordForMetric_When_NoLabelsMatchTogether_Then_ItIsNotFound(t *testing.T) {
	// arrange
	spy := testdoubles.NewMetricsCollectorSpy()
	spy.IncrementCounter("errors", map[string]string{"operation": "insert", "error_type": "timeout"})
	spy.IncrementCounter("errors", map[string]string{"operation": "delete", "error_type": "conflict"})

	// act
	found := spy.HasCounterRecordForMetric("errors").WithOperation("insert").WithErrorType("conflict").Assert()

	// assert
	assert.False(t, found)
}
