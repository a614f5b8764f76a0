// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package online

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// Names
const (
	RequestCounter = "crypto_requests_total"
)

// Labels
const (
	OperationLabel = "operation"
	OutcomeLabel   = "outcome"
)

// Label Values
const (
	EncryptOperation = "encrypt"
	DecryptOperation = "decrypt"
	SignOperation    = "sign"

	SuccessOutcome = "success"
	FailureOutcome = "failure"
)

// ProvideMetrics returns the Metrics relevant to this package
func ProvideMetrics() fx.Option {
	return fx.Options(
		touchstone.CounterVec(
			prometheus.CounterOpts{
				Name: RequestCounter,
				Help: "Counter for requests to the remote key manager by operation and outcome.",
			},
			OperationLabel, OutcomeLabel,
		),
	)
}

// Measures holds the client's metrics. A nil counter disables counting.
type Measures struct {
	fx.In
	Requests *prometheus.CounterVec `name:"crypto_requests_total"`
}

func (m Measures) observe(operation string, err error) {
	if m.Requests == nil {
		return
	}
	outcome := SuccessOutcome
	if err != nil {
		outcome = FailureOutcome
	}
	m.Requests.With(prometheus.Labels{OperationLabel: operation, OutcomeLabel: outcome}).Inc()
}
