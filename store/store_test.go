// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/keeper/model"
	"github.com/xmidt-org/keeper/store"
	"github.com/xmidt-org/keeper/store/inmem"
	"github.com/xmidt-org/keeper/store/metric"
	"github.com/xmidt-org/keeper/store/storetest"
	"github.com/xmidt-org/keeper/store/test"
	"go.uber.org/zap"
)

func TestOperationError(t *testing.T) {
	tcs := []struct {
		Description   string
		Err           error
		ExpectedCode  string
		ExpectedError string
	}{
		{
			Description:   "not found",
			Err:           store.NotFound(store.GetOp, "acct", "id1", "id1_name"),
			ExpectedCode:  model.PacketNotFoundCode,
			ExpectedError: "getObject acct/id1/id1_name: object not found",
		},
		{
			Description:   "failure",
			Err:           store.Wrap(errors.New("disk full"), store.PutOp, "acct", "id1", "id1_name"),
			ExpectedCode:  model.ObjectStoreFailureCode,
			ExpectedError: "putObject acct/id1/id1_name: disk full",
		},
		{
			Description:   "list",
			Err:           store.Wrap(errors.New("timeout"), store.ListMetaOp, "acct", "id1", ""),
			ExpectedCode:  model.ObjectStoreFailureCode,
			ExpectedError: "listMetaData acct/id1: timeout",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			code, ok := model.CodeOf(tc.Err)
			assert.True(ok)
			assert.Equal(tc.ExpectedCode, code)
			assert.Equal(tc.ExpectedError, tc.Err.Error())
		})
	}

	assert.Nil(t, store.Wrap(nil, store.GetOp, "a", "b", "c"))
	inner := store.NotFound(store.GetOp, "a", "b", "c")
	assert.Equal(t, inner, store.Wrap(inner, store.AddMetaOp, "x", "y", "z"))
}

func TestRegistry(t *testing.T) {
	assert := assert.New(t)
	r := store.NewRegistry()
	r.Register(inmem.Name, func() (store.Adapter, error) { return inmem.NewInMem(), nil })

	a, err := r.Resolve("inmemadapter")
	require.NoError(t, err)
	assert.Equal(inmem.Name, a.Name())

	_, err = r.Resolve("PosixAdapter")
	assert.True(errors.Is(err, store.ErrUnknownAdapter))
	code, _ := model.CodeOf(err)
	assert.Equal(model.UnknownResourceCode, code)
	assert.Equal([]string{"inmemadapter"}, r.Names())
}

func TestMergeMetadata(t *testing.T) {
	current := map[string]string{"a": "1", "b": "2"}
	merged := store.MergeMetadata(current, map[string]string{"b": "3", "c": "4"})
	assert.Equal(t, map[string]string{"a": "1", "b": "3", "c": "4"}, merged)
	assert.Equal(t, "2", current["b"])
}

func newMeasures() (metric.Measures, *prometheus.CounterVec, *prometheus.CounterVec) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{Name: metric.OperationCounter},
		[]string{metric.AdapterLabel, metric.OperationLabel, metric.OutcomeLabel})
	written := prometheus.NewCounterVec(prometheus.CounterOpts{Name: metric.WrittenBytesCounter},
		[]string{metric.AdapterLabel})
	m := metric.NewMeasures(metric.MeasuresIn{
		Operations: ops,
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: metric.OperationDurationSeconds},
			[]string{metric.AdapterLabel, metric.OperationLabel}),
		WrittenBytes: written,
	})
	return m, ops, written
}

func TestDecoratedAdapter(t *testing.T) {
	m, ops, written := newMeasures()
	a := store.NewLoggingAdapter(zap.NewNop(), store.NewInstrumentingAdapter(m, inmem.NewInMem()))

	t.Run("contract", func(t *testing.T) {
		storetest.AdapterTest(t, a)
	})

	assert := assert.New(t)
	assert.Equal(inmem.Name, a.Name())
	assert.Equal(3.0, testutil.ToFloat64(ops.WithLabelValues(inmem.Name, store.PutOp, metric.SuccessOutcome)))
	assert.Equal(2.0, testutil.ToFloat64(ops.WithLabelValues(inmem.Name, store.GetOp, metric.NotFoundOutcome)))
	assert.Equal(float64(len(storetest.Data)+len("second")+len("rewritten")),
		testutil.ToFloat64(written.WithLabelValues(inmem.Name)))
}

func TestInstrumentingDeclinedAndPing(t *testing.T) {
	assert := assert.New(t)
	m, ops, _ := newMeasures()
	mockAdapter := &test.MockPinger{}
	mockAdapter.On("PutObject", mock.Anything, "acct", "id", "name", mock.Anything).Return(false, nil).Once()
	mockAdapter.On("Ping", mock.Anything).Return(errors.New("closed")).Once()

	a := store.NewInstrumentingAdapter(m, mockAdapter)
	ok, err := a.PutObject(context.Background(), "acct", "id", "name", bytes.NewReader([]byte("x")))
	assert.NoError(err)
	assert.False(ok)
	assert.Equal(1.0, testutil.ToFloat64(ops.WithLabelValues("MockAdapter", store.PutOp, metric.DeclinedOutcome)))

	p, isPinger := a.(store.Pinger)
	require.True(t, isPinger)
	assert.Error(p.Ping(context.Background()))
	assert.Equal(1.0, testutil.ToFloat64(ops.WithLabelValues("MockAdapter", store.PingOp, metric.FailureOutcome)))
	mockAdapter.AssertExpectations(t)

	plain := store.NewLoggingAdapter(zap.NewNop(), inmem.NewInMem())
	assert.NoError(plain.(store.Pinger).Ping(context.Background()))

	rc, err := plain.GetObject(context.Background(), "acct", "id", "name")
	assert.Nil(rc)
	assert.True(errors.Is(err, store.ErrObjectNotFound))
}
