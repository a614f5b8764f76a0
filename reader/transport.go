// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/spf13/cast"
	"github.com/xmidt-org/httpaux/erraux"
)

// request URL path keys
const (
	idVarKey       = "id"
	fieldVarKey    = "field"
	documentVarKey = "name"
	personVarKey   = "person"
)

// request URL query keys
const (
	sourceQueryKey      = "source"
	processQueryKey     = "process"
	bypassCacheQueryKey = "bypassCache"
	namesQueryKey       = "names"
	modalitiesQueryKey  = "modalities"
)

var (
	errSourceMissing  = &erraux.Error{Err: errors.New("source and process query parameters are required"), Code: http.StatusBadRequest}
	errNamesMissing   = &erraux.Error{Err: errors.New("names query parameter is required"), Code: http.StatusBadRequest}
	errInvalidBypass  = &erraux.Error{Err: errors.New("bypassCache must be a boolean"), Code: http.StatusBadRequest}
	errPathVarMissing = &erraux.Error{Err: errors.New("URL path parameter missing"), Code: http.StatusBadRequest}
)

type readRequest struct {
	id          string
	attribute   string
	names       []string
	source      string
	process     string
	bypassCache bool
}

type validateResponse struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
}

// readRequestDecoder decodes the common query parameters. attributeVar names
// the path variable holding the requested attribute, if any. listKey names the
// comma separated query parameter, if any; it is required when required is set.
func readRequestDecoder(attributeVar, listKey string, required bool) kithttp.DecodeRequestFunc {
	return func(ctx context.Context, r *http.Request) (interface{}, error) {
		vars := mux.Vars(r)
		id, ok := vars[idVarKey]
		if !ok || id == "" {
			return nil, errPathVarMissing
		}

		req := &readRequest{id: id}
		if attributeVar != "" {
			req.attribute, ok = vars[attributeVar]
			if !ok || req.attribute == "" {
				return nil, errPathVarMissing
			}
		}

		query := r.URL.Query()
		req.source = query.Get(sourceQueryKey)
		req.process = query.Get(processQueryKey)
		if req.source == "" || req.process == "" {
			return nil, errSourceMissing
		}

		if b := query.Get(bypassCacheQueryKey); b != "" {
			bypass, err := cast.ToBoolE(b)
			if err != nil {
				return nil, errInvalidBypass
			}
			req.bypassCache = bypass
		}

		if listKey != "" {
			req.names = splitList(query.Get(listKey))
			if required && len(req.names) == 0 {
				return nil, errNamesMissing
			}
		}
		return req, nil
	}
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func encodeResponse(ctx context.Context, rw http.ResponseWriter, response interface{}) error {
	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	rw.Header().Set("Content-Type", "application/json")
	_, err = rw.Write(data)
	return err
}
