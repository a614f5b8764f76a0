// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package remote is a reader.Provider that reads packets through the reader
// API of another keeper deployment.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xmidt-org/bascule/acquire"
	"github.com/xmidt-org/keeper/model"
	"github.com/xmidt-org/keeper/reader"
	"github.com/xmidt-org/sallust"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var (
	ErrAddressEmpty         = errors.New("reference reader address is required")
	ErrAuthAcquirerFailure  = errors.New("failed acquiring auth token")
	ErrBadRequest           = errors.New("reference reader rejected the request as invalid")
	ErrFailedAuthentication = errors.New("failed to authenticate with the reference reader")
)

var (
	errNonSuccessResponse = errors.New("reference reader responded with a non-success status code")
	errNewRequestFailure  = errors.New("failed creating an HTTP request")
	errDoRequestFailure   = errors.New("http client failed while sending request")
	errReadingBodyFailure = errors.New("failed while reading http response body")
	errJSONUnmarshal      = errors.New("failed unmarshaling JSON response payload")
)

const (
	readerAPIPath    = "/api/v1/reader"
	errWrappedFmt    = "%w: %s"
	errStatusCodeFmt = "%w: received status %v"
	errorHeaderKey   = "X-Keeper-Error"

	defaultProviderName = "ReferenceReader"
	defaultTimeout      = 30 * time.Second
)

// Config points the client at a remote reader API.
type Config struct {
	// Address is the remote base URL (i.e. https://keeper.example.io:6600).
	// An empty address disables the reference provider.
	Address string

	// ProviderName and ProviderVersion are reported by Info.
	ProviderName    string
	ProviderVersion string

	// Timeout bounds each request when HTTPClient is not set.
	// (Optional) Defaults to 30s.
	Timeout time.Duration

	// HTTPClient refers to the client that will be used to send requests.
	HTTPClient *http.Client `json:"-" yaml:"-" mapstructure:"-"`

	// Propagator writes the caller's trace context into outgoing requests.
	// (Optional) If not provided, no trace headers are added.
	Propagator propagation.TextMapPropagator `json:"-" yaml:"-" mapstructure:"-"`

	// Auth provides the mechanism to add auth headers to outgoing requests.
	// (Optional) If not provided, no auth headers are added.
	Auth Auth
}

// Auth contains authorization data for requests to the remote reader.
type Auth struct {
	JWT   acquire.RemoteBearerTokenAcquirerOptions
	Basic string
}

type response struct {
	Body        []byte
	ErrorHeader string
	Code        int
}

type errorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

type validateResponse struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
}

// Client reads packets from a remote reader API.
type Client struct {
	client     *http.Client
	propagator propagation.TextMapPropagator
	auth       acquire.Acquirer
	baseURL    string
	info       model.ProviderInfo
	getLogger  func(context.Context) *zap.Logger
}

var _ reader.Provider = (*Client)(nil)

// New creates a Client. A nil getLogger falls back to sallust.Get.
func New(config Config, getLogger func(context.Context) *zap.Logger) (*Client, error) {
	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	if getLogger == nil {
		getLogger = sallust.Get
	}

	tokenAcquirer, err := buildTokenAcquirer(config.Auth)
	if err != nil {
		return nil, err
	}

	return &Client{
		client:     config.HTTPClient,
		propagator: config.Propagator,
		auth:       tokenAcquirer,
		baseURL:    strings.TrimRight(config.Address, "/") + readerAPIPath,
		info: model.ProviderInfo{
			Provider: config.ProviderName,
			Version:  config.ProviderVersion,
		},
		getLogger: getLogger,
	}, nil
}

func (c *Client) Info() model.ProviderInfo {
	return c.info
}

func (c *Client) ValidatePacket(ctx context.Context, id, source, process string) (bool, error) {
	var v validateResponse
	err := c.get(ctx, id, "validate", query(source, process), &v)
	return v.Valid, err
}

func (c *Client) GetAll(ctx context.Context, id, source, process string) (map[string]interface{}, error) {
	var all map[string]interface{}
	err := c.get(ctx, id, "all", query(source, process), &all)
	return all, err
}

func (c *Client) GetField(ctx context.Context, id, field, source, process string) (string, error) {
	var values map[string]string
	err := c.get(ctx, id, "fields/"+url.PathEscape(field), query(source, process), &values)
	return values[field], err
}

func (c *Client) GetFields(ctx context.Context, id string, fields []string, source, process string) (map[string]string, error) {
	q := query(source, process)
	q.Set("names", strings.Join(fields, ","))
	var values map[string]string
	err := c.get(ctx, id, "fields", q, &values)
	return values, err
}

func (c *Client) GetDocument(ctx context.Context, id, documentName, source, process string) (model.Document, error) {
	var d model.Document
	err := c.get(ctx, id, "documents/"+url.PathEscape(documentName), query(source, process), &d)
	return d, err
}

func (c *Client) GetBiometric(ctx context.Context, id, person string, modalities []model.BiometricType, source, process string) (model.BiometricRecord, error) {
	q := query(source, process)
	if len(modalities) > 0 {
		names := make([]string, len(modalities))
		for i, m := range modalities {
			names[i] = string(m)
		}
		q.Set("modalities", strings.Join(names, ","))
	}
	var record model.BiometricRecord
	err := c.get(ctx, id, "biometrics/"+url.PathEscape(person), q, &record)
	return record, err
}

func (c *Client) GetMetaInfo(ctx context.Context, id, source, process string) (map[string]string, error) {
	var meta map[string]string
	err := c.get(ctx, id, "meta", query(source, process), &meta)
	return meta, err
}

func query(source, process string) url.Values {
	return url.Values{
		"source":  []string{source},
		"process": []string{process},
	}
}

func (c *Client) get(ctx context.Context, id, path string, q url.Values, out interface{}) error {
	u := fmt.Sprintf("%s/%s/%s?%s", c.baseURL, url.PathEscape(id), path, q.Encode())
	resp, err := c.sendRequest(ctx, u)
	if err != nil {
		return err
	}

	if resp.Code != http.StatusOK {
		c.logger(ctx).Error("reference reader responded with a non-success status code",
			zap.String("path", path), zap.Int("code", resp.Code), zap.String(errorHeaderKey, resp.ErrorHeader))
		return translateNonSuccessResponse(resp)
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf(errWrappedFmt, errJSONUnmarshal, err.Error())
	}
	return nil
}

func (c *Client) sendRequest(ctx context.Context, url string) (response, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return response{}, fmt.Errorf(errWrappedFmt, errNewRequestFailure, err.Error())
	}
	if c.propagator != nil {
		c.propagator.Inject(ctx, propagation.HeaderCarrier(r.Header))
	}
	err = acquire.AddAuth(r, c.auth)
	if err != nil {
		return response{}, fmt.Errorf(errWrappedFmt, ErrAuthAcquirerFailure, err.Error())
	}
	resp, err := c.client.Do(r)
	if err != nil {
		return response{}, fmt.Errorf(errWrappedFmt, errDoRequestFailure, err.Error())
	}
	defer resp.Body.Close()
	var rResp = response{
		Code:        resp.StatusCode,
		ErrorHeader: resp.Header.Get(errorHeaderKey),
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return rResp, fmt.Errorf(errWrappedFmt, errReadingBodyFailure, err.Error())
	}
	rResp.Body = bodyBytes
	return rResp, nil
}

func (c *Client) logger(ctx context.Context) *zap.Logger {
	if l := c.getLogger(ctx); l != nil {
		return l
	}
	return sallust.Default()
}

// translateNonSuccessResponse keeps the remote error code when the remote
// sent one so a missing packet stays a missing packet.
func translateNonSuccessResponse(resp response) error {
	var e errorResponse
	if json.Unmarshal(resp.Body, &e) == nil && e.ErrorCode != "" {
		return model.NewError(e.ErrorCode, e.Message,
			fmt.Errorf(errStatusCodeFmt, errNonSuccessResponse, resp.Code))
	}

	switch resp.Code {
	case http.StatusBadRequest:
		return fmt.Errorf(errStatusCodeFmt, ErrBadRequest, resp.Code)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf(errStatusCodeFmt, ErrFailedAuthentication, resp.Code)
	default:
		return fmt.Errorf(errStatusCodeFmt, errNonSuccessResponse, resp.Code)
	}
}

func isEmpty(options acquire.RemoteBearerTokenAcquirerOptions) bool {
	return len(options.AuthURL) < 1 || options.Buffer == 0 || options.Timeout == 0
}

func buildTokenAcquirer(auth Auth) (acquire.Acquirer, error) {
	if !isEmpty(auth.JWT) {
		return acquire.NewRemoteBearerTokenAcquirer(auth.JWT)
	} else if len(auth.Basic) > 0 {
		return acquire.NewFixedAuthAcquirer(auth.Basic)
	}
	return &acquire.DefaultAcquirer{}, nil
}

func validateConfig(config *Config) error {
	if config.Address == "" {
		return ErrAddressEmpty
	}
	if config.ProviderName == "" {
		config.ProviderName = defaultProviderName
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	return nil
}
