// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/xmidt-org/keeper/store/metric"
)

type instrumentingAdapter struct {
	Adapter
	measures metric.Measures
	now      func() time.Time
}

// NewInstrumentingAdapter counts and times every call made to next.
func NewInstrumentingAdapter(measures metric.Measures, next Adapter) Adapter {
	return &instrumentingAdapter{Adapter: next, measures: measures, now: time.Now}
}

func (a *instrumentingAdapter) observe(op string, start time.Time, outcome string) {
	name := a.Adapter.Name()
	if a.measures.Operations != nil {
		a.measures.Operations.With(metric.AdapterLabel, name, metric.OperationLabel, op, metric.OutcomeLabel, outcome).Add(1.0)
	}
	if a.measures.Duration != nil {
		a.measures.Duration.With(metric.AdapterLabel, name, metric.OperationLabel, op).Observe(a.now().Sub(start).Seconds())
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metric.SuccessOutcome
	case errors.Is(err, ErrObjectNotFound):
		return metric.NotFoundOutcome
	default:
		return metric.FailureOutcome
	}
}

type countingReader struct {
	io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.Reader.Read(p)
	c.n += int64(n)
	return n, err
}

func (a *instrumentingAdapter) PutObject(ctx context.Context, account, id, name string, data io.Reader) (ok bool, err error) {
	start := a.now()
	cr := &countingReader{Reader: data}
	defer func() {
		outcome := outcomeOf(err)
		if err == nil && !ok {
			outcome = metric.DeclinedOutcome
		}
		if ok && a.measures.WrittenBytes != nil {
			a.measures.WrittenBytes.With(metric.AdapterLabel, a.Adapter.Name()).Add(float64(cr.n))
		}
		a.observe(PutOp, start, outcome)
	}()
	return a.Adapter.PutObject(ctx, account, id, name, cr)
}

func (a *instrumentingAdapter) GetObject(ctx context.Context, account, id, name string) (rc io.ReadCloser, err error) {
	defer func(start time.Time) { a.observe(GetOp, start, outcomeOf(err)) }(a.now())
	return a.Adapter.GetObject(ctx, account, id, name)
}

func (a *instrumentingAdapter) GetMetaData(ctx context.Context, account, id, name string) (meta map[string]string, err error) {
	defer func(start time.Time) { a.observe(GetMetaOp, start, outcomeOf(err)) }(a.now())
	return a.Adapter.GetMetaData(ctx, account, id, name)
}

func (a *instrumentingAdapter) ListMetaData(ctx context.Context, account, id string) (metas map[string]map[string]string, err error) {
	defer func(start time.Time) { a.observe(ListMetaOp, start, outcomeOf(err)) }(a.now())
	return a.Adapter.ListMetaData(ctx, account, id)
}

func (a *instrumentingAdapter) AddObjectMetaData(ctx context.Context, account, id, name string, meta map[string]string) (stored map[string]string, err error) {
	defer func(start time.Time) { a.observe(AddMetaOp, start, outcomeOf(err)) }(a.now())
	return a.Adapter.AddObjectMetaData(ctx, account, id, name, meta)
}

// Ping forwards to the wrapped adapter when it supports health checks.
func (a *instrumentingAdapter) Ping(ctx context.Context) (err error) {
	p, ok := a.Adapter.(Pinger)
	if !ok {
		return nil
	}
	defer func(start time.Time) { a.observe(PingOp, start, outcomeOf(err)) }(a.now())
	return p.Ping(ctx)
}
