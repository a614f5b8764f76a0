// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"

	"github.com/xmidt-org/keeper/store"
	"github.com/xmidt-org/keeper/store/cassandra"
	"github.com/xmidt-org/keeper/store/inmem"
	"github.com/xmidt-org/keeper/store/metric"
	"github.com/xmidt-org/keeper/store/posix"
	"github.com/xmidt-org/keeper/store/s3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Configs holds the optional configuration of each adapter. The in memory
// adapter needs none and is always available.
type Configs struct {
	Posix     *posix.Config
	S3        *s3.Config
	Cassandra *cassandra.Config
}

type SetupIn struct {
	fx.In
	Configs  Configs
	Measures metric.Measures
	LC       fx.Lifecycle
	Logger   *zap.Logger
}

func Provide() fx.Option {
	return fx.Options(
		metric.ProvideMetrics(),
		fx.Provide(
			SetupRegistry,
		),
	)
}

// SetupRegistry registers a factory for every configured adapter. Each adapter
// is wrapped with instrumentation and debug logging when it is resolved.
func SetupRegistry(in SetupIn) *store.Registry {
	r := store.NewRegistry()
	decorate := func(a store.Adapter) store.Adapter {
		in.Logger.Info("using object store adapter", zap.String("adapter", a.Name()))
		return store.NewLoggingAdapter(in.Logger, store.NewInstrumentingAdapter(in.Measures, a))
	}

	r.Register(inmem.Name, func() (store.Adapter, error) {
		return decorate(inmem.NewInMem()), nil
	})
	if in.Configs.Posix != nil {
		config := *in.Configs.Posix
		r.Register(posix.Name, func() (store.Adapter, error) {
			a, err := posix.NewPosix(config)
			if err != nil {
				return nil, err
			}
			return decorate(a), nil
		})
	}
	if in.Configs.S3 != nil {
		config := *in.Configs.S3
		r.Register(s3.Name, func() (store.Adapter, error) {
			a, err := s3.NewS3(context.Background(), config)
			if err != nil {
				return nil, err
			}
			return decorate(a), nil
		})
	}
	if in.Configs.Cassandra != nil {
		config := *in.Configs.Cassandra
		r.Register(cassandra.Name, func() (store.Adapter, error) {
			a, err := cassandra.NewCassandra(config, in.LC, in.Logger)
			if err != nil {
				return nil, err
			}
			return decorate(a), nil
		})
	}
	return r
}
