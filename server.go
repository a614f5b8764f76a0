// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// newServer binds an HTTP server to the application lifecycle. It listens on
// start, so a bad address fails startup, and shuts down gracefully on stop.
func newServer(name string, config ServerConfig, handler http.Handler, lc fx.Lifecycle, logger *zap.Logger) *http.Server {
	s := &http.Server{
		Addr:              config.Address,
		Handler:           handler,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
		MaxHeaderBytes:    config.MaxHeaderBytes,
	}
	logger = logger.With(zap.String("server", name))

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			l, err := net.Listen("tcp", s.Addr)
			if err != nil {
				return err
			}
			logger.Info("server listening", zap.Stringer("address", l.Addr()))
			go func() {
				if err := s.Serve(l); !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return s.Shutdown(ctx)
		},
	})
	return s
}
