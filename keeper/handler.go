// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package keeper

import (
	"context"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
)

// Handler serves one keeper operation.
type Handler http.Handler

func newPutPacketEndpoint(k *Keeper) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		r := request.(*putPacketRequest)
		info, err := k.PutPacket(ctx, r.packet)
		if err != nil {
			return nil, err
		}
		return &info, nil
	}
}

func newGetPacketEndpoint(k *Keeper) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		r := request.(*getPacketRequest)
		packet, err := k.GetPacket(ctx, r.info)
		if err != nil {
			return nil, err
		}
		return &packet, nil
	}
}

func newGetManifestEndpoint(k *Keeper) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		r := request.(*getManifestRequest)
		manifest, err := k.GetManifest(ctx, r.id)
		if err != nil {
			return nil, err
		}
		return &manifest, nil
	}
}

func newPutPacketHandler(in handlerIn) Handler {
	return kithttp.NewServer(
		newPutPacketEndpoint(in.Keeper),
		putPacketRequestDecoder(in.Config),
		encodePutPacketResponse,
		kithttp.ServerErrorEncoder(EncodeError),
	)
}

func newGetPacketHandler(in handlerIn) Handler {
	return kithttp.NewServer(
		newGetPacketEndpoint(in.Keeper),
		getPacketRequestDecoder(in.Config),
		encodeGetPacketResponse,
		kithttp.ServerErrorEncoder(EncodeError),
	)
}

func newGetManifestHandler(in handlerIn) Handler {
	return kithttp.NewServer(
		newGetManifestEndpoint(in.Keeper),
		getManifestRequestDecoder(in.Config),
		encodeGetManifestResponse,
		kithttp.ServerErrorEncoder(EncodeError),
	)
}
