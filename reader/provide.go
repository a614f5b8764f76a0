// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"github.com/xmidt-org/keeper/keeper"
	"github.com/xmidt-org/keeper/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Provider defaults
const (
	DefaultProviderName    = "PacketReaderImpl"
	DefaultProviderVersion = "v1.0"
)

type readerIn struct {
	fx.In
	Config    Config
	Keeper    *keeper.Keeper
	Cache     Cache    `optional:"true"`
	Reference Provider `name:"reference_provider" optional:"true"`
	Measures  Measures
	Logger    *zap.Logger
}

// Provide builds the Reader and its handlers.
func Provide() fx.Option {
	return fx.Options(
		ProvideMetrics(),
		fx.Provide(
			newReader,
			fx.Annotated{Name: "reader_field_handler", Target: newFieldHandler},
			fx.Annotated{Name: "reader_fields_handler", Target: newFieldsHandler},
			fx.Annotated{Name: "reader_document_handler", Target: newDocumentHandler},
			fx.Annotated{Name: "reader_biometric_handler", Target: newBiometricHandler},
			fx.Annotated{Name: "reader_meta_handler", Target: newMetaInfoHandler},
			fx.Annotated{Name: "reader_all_handler", Target: newAllFieldsHandler},
			fx.Annotated{Name: "reader_validate_handler", Target: newValidateHandler},
		),
	)
}

func newReader(in readerIn) *Reader {
	c := in.Config
	info := model.ProviderInfo{
		Provider:  c.ProviderName,
		Version:   c.ProviderVersion,
		SchemaURL: c.SchemaURL,
	}
	if info.Provider == "" {
		info.Provider = DefaultProviderName
	}
	if info.Version == "" {
		info.Version = DefaultProviderVersion
	}

	in.Logger.Info("packet reader ready",
		zap.String("sources", c.Sources), zap.String("processes", c.Processes),
		zap.Bool("reference", in.Reference != nil), zap.Bool("cache", in.Cache != nil))
	return New(c, NewRegistrationProvider(in.Keeper, info), in.Reference, in.Cache, in.Measures, in.Logger)
}
