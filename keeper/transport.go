// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package keeper

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/xmidt-org/httpaux/erraux"
	"github.com/xmidt-org/keeper/model"
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// request URL path keys
const (
	idVarKey   = "id"
	nameVarKey = "name"
)

const (
	idVarMissingMsg   = "{id} URL path parameter missing"
	nameVarMissingMsg = "{name} URL path parameter missing"
)

// KeeperErrorHeaderKey carries the error message on failed responses.
const KeeperErrorHeaderKey = "X-Keeper-Error"

// ErrCasting indicates there was a middleware wiring mistake with the go-kit style
// encoders.
var ErrCasting = errors.New("casting error due to middleware wiring mistake")

type putPacketRequest struct {
	packet model.Packet
}

type getPacketRequest struct {
	info model.PacketInfo
}

type getManifestRequest struct {
	id string
}

// putPacketBody is the payload of a packet upload. Data is base64 in JSON.
type putPacketBody struct {
	Source          string            `json:"source"`
	Process         string            `json:"process"`
	SchemaVersion   string            `json:"schemaVersion"`
	ProviderName    string            `json:"providerName"`
	ProviderVersion string            `json:"providerVersion"`
	CreationDate    string            `json:"creationDate"`
	Extra           map[string]string `json:"extra"`
	Data            []byte            `json:"data"`
}

type errorResponse struct {
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message"`
}

func putPacketRequestDecoder(config *transportConfig) kithttp.DecodeRequestFunc {
	return func(ctx context.Context, r *http.Request) (interface{}, error) {
		id, name, err := packetPathVars(config, r)
		if err != nil {
			return nil, err
		}

		data, err := readBody(r.Body, config.MaxBodyBytes)
		if err != nil {
			return nil, err
		}

		var body putPacketBody
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, badRequest("failed to unmarshal json")
		}
		if len(body.Data) == 0 {
			return nil, errDataFieldMissing
		}

		return &putPacketRequest{
			packet: model.Packet{
				Info: model.PacketInfo{
					ID:              id,
					PacketName:      name,
					Source:          body.Source,
					Process:         body.Process,
					SchemaVersion:   body.SchemaVersion,
					ProviderName:    body.ProviderName,
					ProviderVersion: body.ProviderVersion,
					CreationDate:    body.CreationDate,
					Extra:           body.Extra,
				},
				Data: body.Data,
			},
		}, nil
	}
}

func getPacketRequestDecoder(config *transportConfig) kithttp.DecodeRequestFunc {
	return func(ctx context.Context, r *http.Request) (interface{}, error) {
		id, name, err := packetPathVars(config, r)
		if err != nil {
			return nil, err
		}
		return &getPacketRequest{
			info: model.PacketInfo{ID: id, PacketName: name},
		}, nil
	}
}

func getManifestRequestDecoder(config *transportConfig) kithttp.DecodeRequestFunc {
	return func(ctx context.Context, r *http.Request) (interface{}, error) {
		id, ok := mux.Vars(r)[idVarKey]
		if !ok {
			return nil, badRequest(idVarMissingMsg)
		}
		if !config.IDFormatRegex.MatchString(id) {
			return nil, errInvalidID
		}
		return &getManifestRequest{id: id}, nil
	}
}

func packetPathVars(config *transportConfig, r *http.Request) (string, string, error) {
	vars := mux.Vars(r)
	id, ok := vars[idVarKey]
	if !ok {
		return "", "", badRequest(idVarMissingMsg)
	}
	name, ok := vars[nameVarKey]
	if !ok {
		return "", "", badRequest(nameVarMissingMsg)
	}
	if err := validatePacketPathVars(config, id, name); err != nil {
		return "", "", err
	}
	return id, name, nil
}

func readBody(body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, badRequest("failed to read body")
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func encodePutPacketResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	info, ok := response.(*model.PacketInfo)
	if !ok {
		return ErrCasting
	}
	return writeJSON(rw, http.StatusCreated, info)
}

func encodeGetPacketResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	packet, ok := response.(*model.Packet)
	if !ok {
		return ErrCasting
	}
	return writeJSON(rw, http.StatusOK, packet)
}

func encodeGetManifestResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	manifest, ok := response.(*model.Manifest)
	if !ok {
		return ErrCasting
	}
	return writeJSON(rw, http.StatusOK, manifest)
}

func writeJSON(rw http.ResponseWriter, code int, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)
	_, err = rw.Write(data)
	return err
}

// EncodeError writes err as a JSON {errorCode, message} body with the status
// its class maps to.
func EncodeError(ctx context.Context, err error, w http.ResponseWriter) {
	code := StatusCode(err)
	message := model.MessageOf(err)
	if code >= http.StatusInternalServerError {
		sallust.Get(ctx).Error("request failed", zap.Int("status", code), zap.Error(err))
	}

	w.Header().Set(KeeperErrorHeaderKey, message)
	if headerer, ok := err.(kithttp.Headerer); ok {
		for k, values := range headerer.Headers() {
			for _, v := range values {
				w.Header().Add(k, v)
			}
		}
	}

	errorCode, _ := model.CodeOf(err)
	_ = writeJSON(w, code, errorResponse{ErrorCode: errorCode, Message: message})
}

// StatusCode maps an error to an HTTP status, preferring a status the error
// carries itself.
func StatusCode(err error) int {
	var sc kithttp.StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}

	code, _ := model.CodeOf(err)
	switch code {
	case model.InvalidPacketFormatCode:
		return http.StatusBadRequest
	case model.PacketNotFoundCode:
		return http.StatusNotFound
	case model.IntegrityFailureCode:
		return http.StatusUnprocessableEntity
	case model.APINotAccessibleCode:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(message string) error {
	return &erraux.Error{Err: errors.New(message), Code: http.StatusBadRequest}
}
