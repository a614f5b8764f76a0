// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/keeper/reader"
	"github.com/xmidt-org/sallust"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ProvideIn struct {
	fx.In
	Config  Config
	Tracing candlelight.Tracing
	Logger  *zap.Logger
}

// Provide registers the client as the reader's reference provider. Nothing is
// registered when no address is configured.
func Provide() fx.Option {
	return fx.Provide(
		fx.Annotated{
			Name:   "reference_provider",
			Target: NewProvider,
		},
	)
}

func NewProvider(in ProvideIn) (reader.Provider, error) {
	if in.Config.Address == "" {
		in.Logger.Info("no reference packet reader configured")
		return nil, nil
	}
	config := in.Config
	if config.Propagator == nil {
		config.Propagator = in.Tracing.Propagator()
	}
	c, err := New(config, sallust.Get)
	if err != nil {
		return nil, err
	}
	in.Logger.Info("using reference packet reader", zap.String("address", in.Config.Address))
	return c, nil
}
