// SPDX-FileCopyrightText: 2020 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package metric

import (
	"github.com/go-kit/kit/metrics"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Object store metrics
const (
	OperationCounter         = "object_store_operations_total"
	OperationDurationSeconds = "object_store_operation_duration_seconds"
	WrittenBytesCounter      = "object_store_written_bytes_total"
)

// Labels
const (
	AdapterLabel   = "adapter"
	OperationLabel = "operation"
	OutcomeLabel   = "outcome"
)

// Label values
const (
	SuccessOutcome  = "success"
	NotFoundOutcome = "not_found"
	DeclinedOutcome = "declined"
	FailureOutcome  = "failure"
)

// ProvideMetrics returns the Metrics relevant to this package
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: OperationCounter,
				Help: "The total number of object store operations by adapter, operation and outcome",
			},
			AdapterLabel, OperationLabel, OutcomeLabel,
		),
		touchstone.HistogramVec(
			prometheus.HistogramOpts{
				Name:    OperationDurationSeconds,
				Help:    "A histogram of latencies for object store operations.",
				Buckets: []float64{0.0625, 0.125, .25, .5, 1, 5, 10, 20, 40, 80, 160},
			},
			AdapterLabel, OperationLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: WrittenBytesCounter,
				Help: "The total number of bytes handed to the object store",
			},
			AdapterLabel,
		),
		fx.Provide(NewMeasures),
	)
}

// MeasuresIn is the set of registered collectors.
type MeasuresIn struct {
	fx.In
	Operations   *prometheus.CounterVec   `name:"object_store_operations_total"`
	Duration     *prometheus.HistogramVec `name:"object_store_operation_duration_seconds"`
	WrittenBytes *prometheus.CounterVec   `name:"object_store_written_bytes_total"`
}

// Measures exposes the collectors through the go-kit metrics interfaces.
type Measures struct {
	Operations   metrics.Counter
	Duration     metrics.Histogram
	WrittenBytes metrics.Counter
}

func NewMeasures(in MeasuresIn) Measures {
	return Measures{
		Operations:   kitprometheus.NewCounter(in.Operations),
		Duration:     kitprometheus.NewHistogram(in.Duration),
		WrittenBytes: kitprometheus.NewCounter(in.WrittenBytes),
	}
}
