// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package reader gives field level read access to stored packets. Calls are
// routed to the registration provider or to the optional reference provider
// by source and process, and results may be cached.
package reader

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/xmidt-org/keeper/model"
	"go.uber.org/zap"
)

// Operation names used in cache keys and metrics.
const (
	FieldOperation     = "field"
	FieldsOperation    = "fields"
	DocumentOperation  = "document"
	BiometricOperation = "biometric"
	MetaInfoOperation  = "metaInfo"
	AllOperation       = "all"
	ValidateOperation  = "validate"
)

var ErrNoProvider = errors.New("no packet reader provider for source and process")

// Provider reads packet content.
type Provider interface {
	Info() model.ProviderInfo
	ValidatePacket(ctx context.Context, id, source, process string) (bool, error)
	GetAll(ctx context.Context, id, source, process string) (map[string]interface{}, error)
	GetField(ctx context.Context, id, field, source, process string) (string, error)
	GetFields(ctx context.Context, id string, fields []string, source, process string) (map[string]string, error)
	GetDocument(ctx context.Context, id, documentName, source, process string) (model.Document, error)
	GetBiometric(ctx context.Context, id, person string, modalities []model.BiometricType, source, process string) (model.BiometricRecord, error)
	GetMetaInfo(ctx context.Context, id, source, process string) (map[string]string, error)
}

// Config selects which (source, process) pairs the registration provider serves.
type Config struct {
	// Sources is a comma separated list of sources.
	Sources string

	// Processes is a comma separated list of processes.
	Processes string

	SchemaURL       string
	ProviderName    string
	ProviderVersion string
}

// Reader is the facade in front of the providers.
type Reader struct {
	config       Config
	registration Provider
	reference    Provider
	cache        Cache
	measures     Measures
	logger       *zap.Logger
	now          func() time.Time
}

// New builds a Reader. reference and cache may be nil.
func New(config Config, registration, reference Provider, cache Cache, measures Measures, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		config:       config,
		registration: registration,
		reference:    reference,
		cache:        cache,
		measures:     measures,
		logger:       logger,
		now:          time.Now,
	}
}

// Provider returns the provider serving source and process.
func (r *Reader) Provider(source, process string) (Provider, error) {
	if contains(r.config.Sources, source) && contains(r.config.Processes, process) {
		return r.registration, nil
	}
	if r.reference == nil {
		return nil, model.NewError(model.ReaderProviderFailedCode,
			"No packet reader provider for source "+source+" and process "+process, ErrNoProvider)
	}
	return r.reference, nil
}

func (r *Reader) GetField(ctx context.Context, id, field, source, process string, bypassCache bool) (value string, err error) {
	key := CacheKey{Operation: FieldOperation, ID: id, Name: field, Source: source, Process: process}
	err = r.read(ctx, key, bypassCache, &value, func(p Provider) (err error) {
		value, err = p.GetField(ctx, id, field, source, process)
		return err
	})
	return value, err
}

func (r *Reader) GetFields(ctx context.Context, id string, fields []string, source, process string, bypassCache bool) (values map[string]string, err error) {
	key := CacheKey{Operation: FieldsOperation, ID: id, Attributes: fields, Source: source, Process: process}
	err = r.read(ctx, key, bypassCache, &values, func(p Provider) (err error) {
		values, err = p.GetFields(ctx, id, fields, source, process)
		return err
	})
	return values, err
}

func (r *Reader) GetDocument(ctx context.Context, id, documentName, source, process string, bypassCache bool) (document model.Document, err error) {
	key := CacheKey{Operation: DocumentOperation, ID: id, Name: documentName, Source: source, Process: process}
	err = r.read(ctx, key, bypassCache, &document, func(p Provider) (err error) {
		document, err = p.GetDocument(ctx, id, documentName, source, process)
		return err
	})
	return document, err
}

func (r *Reader) GetBiometric(ctx context.Context, id, person string, modalities []model.BiometricType, source, process string, bypassCache bool) (record model.BiometricRecord, err error) {
	attributes := make([]string, 0, len(modalities))
	for _, m := range modalities {
		attributes = append(attributes, string(m))
	}
	key := CacheKey{Operation: BiometricOperation, ID: id, Name: person, Attributes: attributes, Source: source, Process: process}
	err = r.read(ctx, key, bypassCache, &record, func(p Provider) (err error) {
		record, err = p.GetBiometric(ctx, id, person, modalities, source, process)
		return err
	})
	return record, err
}

func (r *Reader) GetMetaInfo(ctx context.Context, id, source, process string, bypassCache bool) (meta map[string]string, err error) {
	key := CacheKey{Operation: MetaInfoOperation, ID: id, Source: source, Process: process}
	err = r.read(ctx, key, bypassCache, &meta, func(p Provider) (err error) {
		meta, err = p.GetMetaInfo(ctx, id, source, process)
		return err
	})
	return meta, err
}

func (r *Reader) GetAllFields(ctx context.Context, id, source, process string, bypassCache bool) (fields map[string]interface{}, err error) {
	key := CacheKey{Operation: AllOperation, ID: id, Source: source, Process: process}
	err = r.read(ctx, key, bypassCache, &fields, func(p Provider) (err error) {
		fields, err = p.GetAll(ctx, id, source, process)
		return err
	})
	return fields, err
}

// ValidatePacket is never cached.
func (r *Reader) ValidatePacket(ctx context.Context, id, source, process string) (valid bool, err error) {
	start := r.now()
	defer func() { r.measures.observe(ValidateOperation, start, err) }()

	p, err := r.Provider(source, process)
	if err != nil {
		return false, err
	}
	valid, err = p.ValidatePacket(ctx, id, source, process)
	if err != nil {
		return false, translate(err)
	}
	return valid, nil
}

// read serves key from the cache unless bypassed, otherwise loads it from the
// resolved provider and stores the result. Bypassing refreshes the entry.
// Cache failures are logged and never fail the read.
func (r *Reader) read(ctx context.Context, key CacheKey, bypassCache bool, out interface{}, load func(Provider) error) (err error) {
	start := r.now()
	defer func() { r.measures.observe(key.Operation, start, err) }()

	p, err := r.Provider(key.Source, key.Process)
	if err != nil {
		return err
	}

	logger := r.logger.With(zap.Stringer("key", key))
	if r.cache != nil && !bypassCache {
		data, ok, cerr := r.cache.Get(ctx, key)
		switch {
		case cerr != nil:
			r.measures.cacheResult(ErrorResult)
			logger.Warn("packet cache lookup failed", zap.Error(cerr))
		case ok:
			if uerr := json.Unmarshal(data, out); uerr == nil {
				r.measures.cacheResult(HitResult)
				return nil
			}
			r.measures.cacheResult(ErrorResult)
			logger.Warn("discarding unreadable cache entry")
		default:
			r.measures.cacheResult(MissResult)
		}
	}

	if err := load(p); err != nil {
		return translate(err)
	}

	if r.cache != nil {
		data, merr := json.Marshal(out)
		if merr == nil {
			merr = r.cache.Put(ctx, key, data)
		}
		if merr != nil {
			logger.Warn("failed caching packet read", zap.Error(merr))
		}
	}
	return nil
}

// translate keeps coded provider errors and codes the rest as provider failures.
func translate(err error) error {
	if _, ok := model.CodeOf(err); ok {
		return err
	}
	return model.NewError(model.ReaderProviderFailedCode, "Packet reader provider failed : "+err.Error(), err)
}

// contains reports whether the comma separated list holds value.
func contains(list, value string) bool {
	if value == "" {
		return false
	}
	for _, v := range strings.Split(list, ",") {
		if strings.TrimSpace(v) == value {
			return true
		}
	}
	return false
}
