// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/keeper/crypto"
	"github.com/xmidt-org/keeper/crypto/offline"
	"github.com/xmidt-org/keeper/crypto/online"
	"github.com/xmidt-org/sallust"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Implementation names accepted by the registry.
const (
	Online  = "online"
	Offline = "offline"
)

// Configs holds the optional configuration of each implementation. Only
// configured implementations are registered.
type Configs struct {
	Online  *online.Config
	Offline *offline.Config
}

type SetupIn struct {
	fx.In
	Configs  Configs
	Measures online.Measures
	Tracing  candlelight.Tracing
	Logger   *zap.Logger
}

func Provide() fx.Option {
	return fx.Options(
		online.ProvideMetrics(),
		fx.Provide(
			SetupRegistry,
		),
	)
}

// SetupRegistry registers a factory for every configured implementation.
// Nothing is built until the registry is asked to resolve a name.
func SetupRegistry(in SetupIn) *crypto.Registry {
	r := crypto.NewRegistry()
	if in.Configs.Online != nil {
		config := *in.Configs.Online
		if config.Propagator == nil {
			config.Propagator = in.Tracing.Propagator()
		}
		r.Register(Online, func() (crypto.Service, error) {
			in.Logger.Info("using online crypto implementation")
			return online.New(config, in.Measures, sallust.Get)
		})
	}
	if in.Configs.Offline != nil {
		config := *in.Configs.Offline
		r.Register(Offline, func() (crypto.Service, error) {
			in.Logger.Info("using offline crypto implementation")
			return offline.New(config)
		})
	}
	return r
}
