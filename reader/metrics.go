// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	RequestCounter         = "reader_requests_total"
	RequestDurationSeconds = "reader_request_duration_seconds"
	CacheCounter           = "reader_cache_requests_total"
)

// Labels
const (
	OperationLabel = "operation"
	OutcomeLabel   = "outcome"
	ResultLabel    = "result"
)

// Label Values
const (
	SuccessOutcome = "success"
	FailureOutcome = "failure"

	HitResult   = "hit"
	MissResult  = "miss"
	ErrorResult = "error"
)

// ProvideMetrics returns the Metrics relevant to this package
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: RequestCounter,
				Help: "Counter for packet reader requests by operation and outcome.",
			},
			OperationLabel, OutcomeLabel,
		),
		touchstone.HistogramVec(
			prometheus.HistogramOpts{
				Name:    RequestDurationSeconds,
				Help:    "A histogram of latencies for packet reader requests.",
				Buckets: []float64{0.0625, 0.125, .25, .5, 1, 5, 10, 20, 40},
			},
			OperationLabel,
		),
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: CacheCounter,
				Help: "Counter for packet cache lookups by result.",
			},
			ResultLabel,
		),
	)
}

// Measures holds the reader's metrics. Nil collectors are skipped.
type Measures struct {
	fx.In
	Requests *prometheus.CounterVec   `name:"reader_requests_total"`
	Duration *prometheus.HistogramVec `name:"reader_request_duration_seconds"`
	Cache    *prometheus.CounterVec   `name:"reader_cache_requests_total"`
}

func (m Measures) observe(operation string, start time.Time, err error) {
	if m.Duration != nil {
		m.Duration.With(prometheus.Labels{OperationLabel: operation}).Observe(time.Since(start).Seconds())
	}
	if m.Requests == nil {
		return
	}
	outcome := SuccessOutcome
	if err != nil {
		outcome = FailureOutcome
	}
	m.Requests.With(prometheus.Labels{OperationLabel: operation, OutcomeLabel: outcome}).Inc()
}

func (m Measures) cacheResult(result string) {
	if m.Cache != nil {
		m.Cache.With(prometheus.Labels{ResultLabel: result}).Inc()
	}
}
