// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"io"

	"go.uber.org/zap"
)

type loggingAdapter struct {
	Adapter
	debugLogger *zap.Logger
}

// NewLoggingAdapter logs every call made to next at debug level.
func NewLoggingAdapter(logger *zap.Logger, next Adapter) Adapter {
	return &loggingAdapter{Adapter: next, debugLogger: logger.With(zap.String("adapter", next.Name()))}
}

func (a *loggingAdapter) PutObject(ctx context.Context, account, id, name string, data io.Reader) (ok bool, err error) {
	defer func() {
		a.debugLogger.Debug(PutOp, zap.String("account", account), zap.String("id", id), zap.String("name", name),
			zap.Bool("stored", ok), zap.Error(err))
	}()
	return a.Adapter.PutObject(ctx, account, id, name, data)
}

func (a *loggingAdapter) GetObject(ctx context.Context, account, id, name string) (rc io.ReadCloser, err error) {
	defer func() {
		a.debugLogger.Debug(GetOp, zap.String("account", account), zap.String("id", id), zap.String("name", name), zap.Error(err))
	}()
	return a.Adapter.GetObject(ctx, account, id, name)
}

func (a *loggingAdapter) GetMetaData(ctx context.Context, account, id, name string) (meta map[string]string, err error) {
	defer func() {
		a.debugLogger.Debug(GetMetaOp, zap.String("account", account), zap.String("id", id), zap.String("name", name),
			zap.Int("metaSize", len(meta)), zap.Error(err))
	}()
	return a.Adapter.GetMetaData(ctx, account, id, name)
}

func (a *loggingAdapter) ListMetaData(ctx context.Context, account, id string) (metas map[string]map[string]string, err error) {
	defer func() {
		a.debugLogger.Debug(ListMetaOp, zap.String("account", account), zap.String("id", id),
			zap.Int("objects", len(metas)), zap.Error(err))
	}()
	return a.Adapter.ListMetaData(ctx, account, id)
}

func (a *loggingAdapter) AddObjectMetaData(ctx context.Context, account, id, name string, meta map[string]string) (stored map[string]string, err error) {
	defer func() {
		a.debugLogger.Debug(AddMetaOp, zap.String("account", account), zap.String("id", id), zap.String("name", name),
			zap.Int("metaSize", len(stored)), zap.Error(err))
	}()
	return a.Adapter.AddObjectMetaData(ctx, account, id, name, meta)
}

func (a *loggingAdapter) Ping(ctx context.Context) (err error) {
	p, ok := a.Adapter.(Pinger)
	if !ok {
		return nil
	}
	defer func() {
		if err != nil {
			a.debugLogger.Debug(PingOp, zap.Error(err))
		}
	}()
	return p.Ping(ctx)
}
