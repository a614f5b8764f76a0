// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package keeper

import (
	"github.com/xmidt-org/keeper/crypto"
	"github.com/xmidt-org/keeper/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type keeperIn struct {
	fx.In
	Config   Config
	Stores   *store.Registry
	Cryptos  *crypto.Registry
	Measures Measures
	Logger   *zap.Logger
}

type handlerIn struct {
	fx.In
	Keeper *Keeper
	Config *transportConfig
}

// Provide builds the Keeper, resolving its adapter and crypto implementation
// once. A configured name that is not registered fails startup.
func Provide() fx.Option {
	return fx.Options(
		ProvideMetrics(),
		fx.Provide(
			newKeeper,
			newTransportConfig,
			fx.Annotated{
				Name:   "put_packet_handler",
				Target: newPutPacketHandler,
			},
			fx.Annotated{
				Name:   "get_packet_handler",
				Target: newGetPacketHandler,
			},
			fx.Annotated{
				Name:   "get_manifest_handler",
				Target: newGetManifestHandler,
			},
		),
	)
}

func newKeeper(in keeperIn) (*Keeper, error) {
	adapter, err := in.Stores.Resolve(in.Config.AdapterName)
	if err != nil {
		return nil, err
	}
	cs, err := in.Cryptos.Resolve(in.Config.CryptoName)
	if err != nil {
		return nil, err
	}
	in.Logger.Info("packet keeper ready",
		zap.String("adapter", adapter.Name()), zap.String("crypto", in.Config.CryptoName))
	return New(in.Config, adapter, cs, in.Measures, in.Logger), nil
}
