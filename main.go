// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/keeper/crypto/provider"
	"github.com/xmidt-org/keeper/keeper"
	"github.com/xmidt-org/keeper/reader"
	"github.com/xmidt-org/keeper/reader/cache"
	"github.com/xmidt-org/keeper/reader/remote"
	"github.com/xmidt-org/keeper/store/db"
	"github.com/xmidt-org/touchstone"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

const (
	applicationName = "keeper"
	apiBase         = "api/v1"
)

var (
	GitCommit = "undefined"
	Version   = "undefined"
	BuildTime = "undefined"
)

func main() {
	v, logger, err := setup(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		fx.Supply(logger, v),
		provideConfigs(),
		fx.Provide(candlelight.New),
		touchstone.Provide(),
		provideServerMetrics(),
		db.Provide(),
		provider.Provide(),
		keeper.Provide(),
		cache.Provide(),
		remote.Provide(),
		reader.Provide(),
		fx.Invoke(
			BuildPrimaryRoutes,
			BuildMetricsRoutes,
			BuildHealthRoutes,
		),
	)

	if err := app.Err(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	app.Run()
}
