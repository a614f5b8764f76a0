// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package online

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/xmidt-org/bascule/acquire"
	"go.opentelemetry.io/otel/propagation"
)

// Defaults
const (
	DefaultApplicationID   = "REGISTRATION"
	DefaultVersion         = "v1"
	DefaultDateTimePattern = "2006-01-02T15:04:05.000Z"
	DefaultTimeout         = 30 * time.Second
)

var (
	ErrInvalidConfig       = errors.New("invalid crypto client config")
	ErrAuthAcquirerFailure = errors.New("failed acquiring auth token")
)

// Config contains the endpoints and id layout used to talk to the remote key manager.
type Config struct {
	// EncryptURL is the cryptomanager encrypt endpoint.
	EncryptURL string `validate:"required,url"`

	// DecryptURL is the cryptomanager decrypt endpoint.
	DecryptURL string `validate:"required,url"`

	// SignURL is the keymanager sign endpoint.
	SignURL string `validate:"required,url"`

	// ApplicationID is sent with every encrypt/decrypt request.
	// (Optional) Defaults to REGISTRATION.
	ApplicationID string

	// Version is the request envelope version.
	Version string

	// DateTimePattern is the go time layout used for request timestamps.
	// (Optional) Defaults to 2006-01-02T15:04:05.000Z.
	DateTimePattern string

	// CenterIDLength and MachineIDLength give the size of the leading segments of
	// a packet id that make up the key reference id.
	CenterIDLength  int `validate:"gte=0"`
	MachineIDLength int `validate:"gte=0"`

	// Timeout bounds each remote call. Exceeding it is reported as the
	// service being inaccessible.
	Timeout time.Duration `validate:"gte=0"`

	// HTTPClient refers to the client that will be used to send requests.
	// (Optional) Built from Timeout when absent.
	HTTPClient *http.Client `json:"-" yaml:"-" mapstructure:"-"`

	// Propagator writes the caller's trace context into outgoing requests.
	// (Optional) If not provided, no trace headers are added.
	Propagator propagation.TextMapPropagator `json:"-" yaml:"-" mapstructure:"-"`

	// Auth provides the mechanism to add auth headers to outgoing requests.
	// (Optional) If not provided, no auth headers are added.
	Auth Auth
}

// Auth contains authorization data for requests to the key manager.
type Auth struct {
	JWT   acquire.RemoteBearerTokenAcquirerOptions
	Basic string
}

func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf(errWrappedFmt, ErrInvalidConfig, err.Error())
	}

	if config.ApplicationID == "" {
		config.ApplicationID = DefaultApplicationID
	}
	if config.Version == "" {
		config.Version = DefaultVersion
	}
	if config.DateTimePattern == "" {
		config.DateTimePattern = DefaultDateTimePattern
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}
	return nil
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
