// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xmidt-org/candlelight"
	"github.com/xmidt-org/httpaux"
	"github.com/xmidt-org/httpaux/recovery"
	"github.com/xmidt-org/keeper/keeper"
	"github.com/xmidt-org/keeper/reader"
	"github.com/xmidt-org/sallust"
	"github.com/xmidt-org/touchstone/touchhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultMetricsPath = "/metrics"
	defaultHealthPath  = "/health"
)

type PrimaryRoutesIn struct {
	fx.In
	Config   ServerConfig                 `name:"servers.primary"`
	Metrics  touchhttp.ServerInstrumenter `name:"servers.primary.metrics"`
	Handlers PrimaryHandlersIn
	Tracing  candlelight.Tracing
	LC       fx.Lifecycle
	Logger   *zap.Logger
}

type PrimaryHandlersIn struct {
	fx.In
	PutPacket   keeper.Handler `name:"put_packet_handler"`
	GetPacket   keeper.Handler `name:"get_packet_handler"`
	GetManifest keeper.Handler `name:"get_manifest_handler"`

	Field     reader.Handler `name:"reader_field_handler"`
	Fields    reader.Handler `name:"reader_fields_handler"`
	Document  reader.Handler `name:"reader_document_handler"`
	Biometric reader.Handler `name:"reader_biometric_handler"`
	MetaInfo  reader.Handler `name:"reader_meta_handler"`
	All       reader.Handler `name:"reader_all_handler"`
	Validate  reader.Handler `name:"reader_validate_handler"`
}

type MetricsRoutesIn struct {
	fx.In
	Config   ServerConfig `name:"servers.metrics"`
	Gatherer prometheus.Gatherer
	LC       fx.Lifecycle
	Logger   *zap.Logger
}

type HealthRoutesIn struct {
	fx.In
	Config  ServerConfig                 `name:"servers.health"`
	Metrics touchhttp.ServerInstrumenter `name:"servers.health.metrics"`
	LC      fx.Lifecycle
	Logger  *zap.Logger
}

// setLogger puts a request scoped logger into each request's context.
func setLogger(logger *zap.Logger, server string) alice.Constructor {
	return func(delegate http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				l := logger.With(
					zap.String("requestURL", r.URL.EscapedPath()),
					zap.String("method", r.Method),
					zap.String("server", server),
				)
				delegate.ServeHTTP(w, r.WithContext(sallust.With(r.Context(), l)))
			})
	}
}

// primaryRouter routes the packet and reader APIs. Matched requests are
// traced and answer with the trace they joined.
func primaryRouter(h PrimaryHandlersIn, tracing candlelight.Tracing) *mux.Router {
	r := mux.NewRouter()
	r.Use(
		otelmux.Middleware("server_primary",
			otelmux.WithTracerProvider(tracing.TracerProvider()),
			otelmux.WithPropagators(tracing.Propagator()),
		),
		candlelight.EchoFirstTraceNodeInfo(tracing, false),
	)

	packets := r.PathPrefix(fmt.Sprintf("/%s/packets", apiBase)).Subrouter()
	packets.Handle("/{id}/{name}", h.PutPacket).Methods(http.MethodPut)
	packets.Handle("/{id}/{name}", h.GetPacket).Methods(http.MethodGet)
	packets.Handle("/{id}", h.GetManifest).Methods(http.MethodGet)

	packet := r.PathPrefix(fmt.Sprintf("/%s/reader/{id}", apiBase)).Subrouter()
	packet.Handle("/fields", h.Fields).Methods(http.MethodGet)
	packet.Handle("/fields/{field}", h.Field).Methods(http.MethodGet)
	packet.Handle("/documents/{name}", h.Document).Methods(http.MethodGet)
	packet.Handle("/biometrics/{person}", h.Biometric).Methods(http.MethodGet)
	packet.Handle("/meta", h.MetaInfo).Methods(http.MethodGet)
	packet.Handle("/all", h.All).Methods(http.MethodGet)
	packet.Handle("/validate", h.Validate).Methods(http.MethodGet)
	return r
}

func BuildPrimaryRoutes(in PrimaryRoutesIn) {
	if in.Config.Address == "" {
		in.Logger.Warn("primary server not configured")
		return
	}
	chain := alice.New(
		recovery.Middleware(recovery.WithStatusCode(555)),
		in.Metrics.Then,
		setLogger(in.Logger, "primary"),
	)
	newServer("primary", in.Config, chain.Then(primaryRouter(in.Handlers, in.Tracing)), in.LC, in.Logger)
}

func BuildMetricsRoutes(in MetricsRoutesIn) {
	if in.Config.Address == "" {
		return
	}
	r := mux.NewRouter()
	r.Handle(useOrDefault(in.Config.Path, defaultMetricsPath),
		promhttp.HandlerFor(in.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	newServer("metrics", in.Config, r, in.LC, in.Logger)
}

func BuildHealthRoutes(in HealthRoutesIn) {
	if in.Config.Address == "" {
		return
	}
	r := mux.NewRouter()
	r.Handle(useOrDefault(in.Config.Path, defaultHealthPath), httpaux.ConstantHandler{
		StatusCode: http.StatusOK,
	}).Methods(http.MethodGet)
	newServer("health", in.Config, in.Metrics.Then(r), in.LC, in.Logger)
}

func useOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
