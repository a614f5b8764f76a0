// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/keeper/crypto/provider"
	"github.com/xmidt-org/keeper/keeper"
	"github.com/xmidt-org/keeper/reader"
	"github.com/xmidt-org/keeper/reader/cache"
	"github.com/xmidt-org/keeper/reader/remote"
	"github.com/xmidt-org/keeper/store/db"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
)

// ServerConfig describes one of the HTTP servers. A server without an
// address is not started.
type ServerConfig struct {
	Address string

	// Path is where the metrics and health servers answer.
	Path string

	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
}

// unmarshalKey reads the section at key into a new T.
func unmarshalKey[T any](key string) func(*viper.Viper) (T, error) {
	return func(v *viper.Viper) (T, error) {
		var c T
		if err := v.UnmarshalKey(key, &c); err != nil {
			return c, fmt.Errorf("failed to unmarshal %s configuration: %w", key, err)
		}
		return c, nil
	}
}

// tracingConfig reads the tracing section. No provider means traces are
// propagated but not exported.
func tracingConfig(v *viper.Viper) (candlelight.Config, error) {
	c, err := unmarshalKey[candlelight.Config]("tracing")(v)
	if err != nil {
		return candlelight.Config{}, err
	}
	c.ApplicationName = applicationName
	return c, nil
}

func provideConfigs() fx.Option {
	return fx.Provide(
		unmarshalKey[touchstone.Config]("prometheus"),
		tracingConfig,
		unmarshalKey[db.Configs]("stores"),
		unmarshalKey[provider.Configs]("crypto"),
		unmarshalKey[keeper.Config]("keeper"),
		unmarshalKey[keeper.UserInputValidationConfig]("inputValidation"),
		unmarshalKey[reader.Config]("reader"),
		unmarshalKey[remote.Config]("reader.reference"),
		unmarshalKey[cache.Config]("cache"),
		fx.Annotated{
			Name:   "servers.primary",
			Target: unmarshalKey[ServerConfig]("servers.primary"),
		},
		fx.Annotated{
			Name:   "servers.metrics",
			Target: unmarshalKey[ServerConfig]("servers.metrics"),
		},
		fx.Annotated{
			Name:   "servers.health",
			Target: unmarshalKey[ServerConfig]("servers.health"),
		},
	)
}
