// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package online

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xmidt-org/bascule/acquire"
	"github.com/xmidt-org/keeper/crypto"
	"github.com/xmidt-org/sallust"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const (
	decryptServiceID = "mosip.cryptomanager.decrypt"

	errWrappedFmt    = "%w: %s"
	errStatusCodeFmt = "%w: received status %v"

	ioExceptionMessage = "Exception while reading packet inputStream"
)

var (
	errNonSuccessResponse = errors.New("key manager responded with a non-success status code")
	errNewRequestFailure  = errors.New("failed creating an HTTP request")
	errDoRequestFailure   = errors.New("http client failed while sending request")
	errReadingBodyFailure = errors.New("failed while reading http response body")
	errJSONUnmarshal      = errors.New("failed unmarshaling JSON response payload")
	errJSONMarshal        = errors.New("failed marshaling JSON request payload")
	errServiceError       = errors.New("key manager returned an error")
	errBase64Decode       = errors.New("failed decoding response data")
)

type envelope struct {
	ID          string      `json:"id"`
	Version     string      `json:"version"`
	RequestTime string      `json:"requesttime"`
	Metadata    interface{} `json:"metadata"`
	Request     interface{} `json:"request"`
}

type cryptomanagerRequest struct {
	ApplicationID string `json:"applicationId"`
	ReferenceID   string `json:"referenceId"`
	TimeStamp     string `json:"timeStamp"`
	Data          string `json:"data"`
}

type signRequest struct {
	Data string `json:"data"`
}

type serviceError struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

type responseEnvelope struct {
	ID           string          `json:"id"`
	Version      string          `json:"version"`
	ResponseTime string          `json:"responsetime"`
	Response     json.RawMessage `json:"response"`
	Errors       []serviceError  `json:"errors"`
}

type cryptomanagerResponse struct {
	Data string `json:"data"`
}

type signResponse struct {
	Signature string `json:"signature"`
	Timestamp string `json:"timestamp"`
}

type response struct {
	Body []byte
	Code int
}

// Client is the crypto.Service backed by the remote cryptomanager and keymanager.
type Client struct {
	config    Config
	client    *http.Client
	auth      acquire.Acquirer
	measures  Measures
	getLogger func(context.Context) *zap.Logger
	now       func() time.Time
}

var _ crypto.Service = (*Client)(nil)

// New creates a Client. A nil getLogger falls back to sallust.Get.
func New(config Config, measures Measures, getLogger func(context.Context) *zap.Logger) (*Client, error) {
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
		config:    config,
		client:    config.HTTPClient,
		auth:      tokenAcquirer,
		measures:  measures,
		getLogger: getLogger,
		now:       time.Now,
	}, nil
}

// Encrypt sends the base64 encoded payload to the cryptomanager and returns the
// encrypted text it answers with.
func (c *Client) Encrypt(ctx context.Context, id string, plaintext []byte) (out []byte, err error) {
	defer func() { c.measures.observe(EncryptOperation, err) }()

	pid, err := crypto.ParseID("Encryption", id, c.config.CenterIDLength, c.config.MachineIDLength)
	if err != nil {
		return nil, err
	}

	data, err := c.cryptomanager(ctx, c.config.EncryptURL, pid, base64.URLEncoding.EncodeToString(plaintext))
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

// Decrypt sends the ciphertext as text and base64 decodes the answer.
func (c *Client) Decrypt(ctx context.Context, id string, ciphertext []byte) (out []byte, err error) {
	defer func() { c.measures.observe(DecryptOperation, err) }()

	pid, err := crypto.ParseID("Decryption", id, c.config.CenterIDLength, c.config.MachineIDLength)
	if err != nil {
		return nil, err
	}

	data, err := c.cryptomanager(ctx, c.config.DecryptURL, pid, string(ciphertext))
	if err != nil {
		return nil, err
	}

	out, err = decodeBase64(data)
	if err != nil {
		return nil, crypto.NewDecryptionError(ioExceptionMessage, fmt.Errorf(errWrappedFmt, errBase64Decode, err.Error()))
	}
	return out, nil
}

// Sign asks the keymanager to sign payload. The signature text is returned as is.
func (c *Client) Sign(ctx context.Context, payload []byte) (out []byte, err error) {
	defer func() { c.measures.observe(SignOperation, err) }()

	req := envelope{
		Version:     c.config.Version,
		RequestTime: c.requestTime(),
		Request:     signRequest{Data: string(payload)},
	}

	raw, err := c.exchange(ctx, "Sign", c.config.SignURL, req, crypto.NewSignatureError)
	if err != nil {
		return nil, err
	}

	var sr signResponse
	if len(raw) == 0 || string(raw) == "null" {
		return nil, crypto.NewSignatureError("", nil)
	}
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, crypto.NewSignatureError("", fmt.Errorf(errWrappedFmt, errJSONUnmarshal, err.Error()))
	}
	if sr.Signature == "" {
		return nil, crypto.NewSignatureError("", nil)
	}
	return []byte(sr.Signature), nil
}

// Verify is not supported by the remote service and always fails closed.
func (c *Client) Verify(context.Context, []byte) bool {
	return false
}

func (c *Client) cryptomanager(ctx context.Context, url string, pid crypto.PacketID, data string) (string, error) {
	req := envelope{
		ID:          decryptServiceID,
		Version:     c.config.Version,
		RequestTime: c.requestTime(),
		Request: cryptomanagerRequest{
			ApplicationID: c.config.ApplicationID,
			ReferenceID:   pid.ReferenceID,
			TimeStamp:     pid.Timestamp.Format(c.config.DateTimePattern),
			Data:          data,
		},
	}

	raw, err := c.exchange(ctx, "Cryptomanager", url, req, crypto.NewDecryptionError)
	if err != nil {
		return "", err
	}

	var cr cryptomanagerResponse
	if len(raw) == 0 || string(raw) == "null" {
		return "", crypto.NewDecryptionError(ioExceptionMessage, errJSONUnmarshal)
	}
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", crypto.NewDecryptionError(ioExceptionMessage, fmt.Errorf(errWrappedFmt, errJSONUnmarshal, err.Error()))
	}
	return cr.Data, nil
}

// exchange posts the envelope and returns the response member. A populated
// error list is turned into an error by onServiceError using its first entry.
func (c *Client) exchange(ctx context.Context, op, url string, req envelope, onServiceError func(string, error) error) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, crypto.NewDecryptionError(ioExceptionMessage, fmt.Errorf(errWrappedFmt, errJSONMarshal, err.Error()))
	}

	resp, err := c.sendRequest(ctx, url, bytes.NewReader(body))
	if err != nil {
		c.logger(ctx).Error("Key manager not accessible", zap.String("operation", op), zap.Error(err))
		return nil, crypto.NewAPINotAccessibleError("", err)
	}

	if resp.Code < http.StatusOK || resp.Code >= http.StatusMultipleChoices {
		c.logger(ctx).Error("Key manager responded with a non-success status code",
			zap.String("operation", op), zap.Int("code", resp.Code))
		return nil, crypto.NewAPINotAccessibleError(string(resp.Body), fmt.Errorf(errStatusCodeFmt, errNonSuccessResponse, resp.Code))
	}

	var re responseEnvelope
	if err := json.Unmarshal(resp.Body, &re); err != nil {
		return nil, crypto.NewDecryptionError(ioExceptionMessage, fmt.Errorf(errWrappedFmt, errJSONUnmarshal, err.Error()))
	}

	if len(re.Errors) > 0 {
		first := re.Errors[0]
		c.logger(ctx).Error("Key manager returned errors",
			zap.String("operation", op), zap.String("errorCode", first.ErrorCode), zap.String("message", first.Message))
		return nil, onServiceError(first.Message, fmt.Errorf(errWrappedFmt, errServiceError, first.ErrorCode))
	}
	return re.Response, nil
}

func (c *Client) sendRequest(ctx context.Context, url string, body io.Reader) (response, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return response{}, fmt.Errorf(errWrappedFmt, errNewRequestFailure, err.Error())
	}
	r.Header.Set("Content-Type", "application/json")
	if c.config.Propagator != nil {
		c.config.Propagator.Inject(ctx, propagation.HeaderCarrier(r.Header))
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
	var cResp = response{
		Code: resp.StatusCode,
	}
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return cResp, fmt.Errorf(errWrappedFmt, errReadingBodyFailure, err.Error())
	}
	cResp.Body = bodyBytes
	return cResp, nil
}

func (c *Client) requestTime() string {
	return c.now().UTC().Format(c.config.DateTimePattern)
}

func (c *Client) logger(ctx context.Context) *zap.Logger {
	if l := c.getLogger(ctx); l != nil {
		return l
	}
	return sallust.Default()
}

// decodeBase64 accepts both url-safe and standard alphabets, padded or not.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
