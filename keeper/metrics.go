// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package keeper

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	OperationCounter         = "keeper_operations_total"
	IntegrityFailureCounter  = "keeper_integrity_failures_total"
	OperationDurationSeconds = "keeper_operation_duration_seconds"
)

// Labels
const (
	OperationLabel = "operation"
	OutcomeLabel   = "outcome"
)

// Label Values
const (
	PutOperation      = "put"
	GetOperation      = "get"
	ManifestOperation = "manifest"

	SuccessOutcome   = "success"
	IntegrityOutcome = "integrity_failure"
	FailureOutcome   = "failure"
)

// ProvideMetrics returns the Metrics relevant to this package
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: OperationCounter,
				Help: "Counter for keeper operations by operation and outcome.",
			},
			OperationLabel, OutcomeLabel,
		),
		touchstone.Counter(
			prometheus.CounterOpts{
				Name: IntegrityFailureCounter,
				Help: "Counter for packets rejected by the integrity or signature check.",
			},
		),
		touchstone.HistogramVec(
			prometheus.HistogramOpts{
				Name:    OperationDurationSeconds,
				Help:    "A histogram of latencies for keeper operations.",
				Buckets: []float64{0.0625, 0.125, .25, .5, 1, 5, 10, 20, 40},
			},
			OperationLabel,
		),
	)
}

// Measures holds the keeper's metrics. Nil collectors are skipped.
type Measures struct {
	fx.In
	Operations        *prometheus.CounterVec   `name:"keeper_operations_total"`
	IntegrityFailures prometheus.Counter       `name:"keeper_integrity_failures_total"`
	Duration          *prometheus.HistogramVec `name:"keeper_operation_duration_seconds"`
}

func (m Measures) observe(operation string, start time.Time, err error) {
	if m.Duration != nil {
		m.Duration.With(prometheus.Labels{OperationLabel: operation}).Observe(time.Since(start).Seconds())
	}
	if m.Operations == nil {
		return
	}
	outcome := SuccessOutcome
	switch {
	case errors.Is(err, ErrIntegrity):
		outcome = IntegrityOutcome
	case err != nil:
		outcome = FailureOutcome
	}
	m.Operations.With(prometheus.Labels{OperationLabel: operation, OutcomeLabel: outcome}).Inc()
}

func (m Measures) integrityFailure() {
	if m.IntegrityFailures != nil {
		m.IntegrityFailures.Inc()
	}
}
