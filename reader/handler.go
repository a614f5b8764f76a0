// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"context"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/xmidt-org/keeper/keeper"
	"github.com/xmidt-org/keeper/model"
)

// Handler serves one reader operation.
type Handler http.Handler

func newFieldEndpoint(r *Reader) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*readRequest)
		v, err := r.GetField(ctx, req.id, req.attribute, req.source, req.process, req.bypassCache)
		if err != nil {
			return nil, err
		}
		return map[string]string{req.attribute: v}, nil
	}
}

func newFieldsEndpoint(r *Reader) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*readRequest)
		return r.GetFields(ctx, req.id, req.names, req.source, req.process, req.bypassCache)
	}
}

func newDocumentEndpoint(r *Reader) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*readRequest)
		return r.GetDocument(ctx, req.id, req.attribute, req.source, req.process, req.bypassCache)
	}
}

func newBiometricEndpoint(r *Reader) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*readRequest)
		modalities := make([]model.BiometricType, 0, len(req.names))
		for _, n := range req.names {
			modalities = append(modalities, model.BiometricType(n))
		}
		return r.GetBiometric(ctx, req.id, req.attribute, modalities, req.source, req.process, req.bypassCache)
	}
}

func newMetaInfoEndpoint(r *Reader) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*readRequest)
		return r.GetMetaInfo(ctx, req.id, req.source, req.process, req.bypassCache)
	}
}

func newAllFieldsEndpoint(r *Reader) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*readRequest)
		return r.GetAllFields(ctx, req.id, req.source, req.process, req.bypassCache)
	}
}

func newValidateEndpoint(r *Reader) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*readRequest)
		valid, err := r.ValidatePacket(ctx, req.id, req.source, req.process)
		if err != nil {
			return nil, err
		}
		return validateResponse{ID: req.id, Valid: valid}, nil
	}
}

func newHandler(e endpoint.Endpoint, dec kithttp.DecodeRequestFunc) Handler {
	return kithttp.NewServer(
		e,
		dec,
		encodeResponse,
		kithttp.ServerErrorEncoder(keeper.EncodeError),
	)
}

func newFieldHandler(r *Reader) Handler {
	return newHandler(newFieldEndpoint(r), readRequestDecoder(fieldVarKey, "", false))
}

func newFieldsHandler(r *Reader) Handler {
	return newHandler(newFieldsEndpoint(r), readRequestDecoder("", namesQueryKey, true))
}

func newDocumentHandler(r *Reader) Handler {
	return newHandler(newDocumentEndpoint(r), readRequestDecoder(documentVarKey, "", false))
}

func newBiometricHandler(r *Reader) Handler {
	return newHandler(newBiometricEndpoint(r), readRequestDecoder(personVarKey, modalitiesQueryKey, false))
}

func newMetaInfoHandler(r *Reader) Handler {
	return newHandler(newMetaInfoEndpoint(r), readRequestDecoder("", "", false))
}

func newAllFieldsHandler(r *Reader) Handler {
	return newHandler(newAllFieldsEndpoint(r), readRequestDecoder("", "", false))
}

func newValidateHandler(r *Reader) Handler {
	return newHandler(newValidateEndpoint(r), readRequestDecoder("", "", false))
}
