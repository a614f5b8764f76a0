// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package keeper

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/xmidt-org/httpaux/erraux"
)

// default input field validation regular expressions.
// Note: these values are configurable so please check the keeper.yaml file if
// you're interested.
const (
	IDFormatRegexSource   = `^[0-9A-Za-z]{15,64}$`
	NameFormatRegexSource = `^[0-9A-Za-z_\-]{1,128}$`
)

// DefaultMaxBodyBytes caps packet uploads. Packet data is base64 inside JSON.
const DefaultMaxBodyBytes int64 = 64 << 20

var errRegexCompilation = errors.New("regex could not be compiled")

var (
	errInvalidID        = &erraux.Error{Err: errors.New("Invalid packet id format."), Code: http.StatusBadRequest}
	errInvalidName      = &erraux.Error{Err: errors.New("Invalid packet name format."), Code: http.StatusBadRequest}
	errDataFieldMissing = &erraux.Error{Err: errors.New("Data field must be set in payload."), Code: http.StatusBadRequest}
	errBodyTooLarge     = &erraux.Error{Err: errors.New("Payload exceeds the maximum size."), Code: http.StatusRequestEntityTooLarge}
)

// UserInputValidationConfig is the configurable part of request validation.
type UserInputValidationConfig struct {
	IDFormatRegex   string
	NameFormatRegex string
	MaxBodyBytes    int64
}

type transportConfig struct {
	IDFormatRegex   *regexp.Regexp
	NameFormatRegex *regexp.Regexp
	MaxBodyBytes    int64
}

func newTransportConfig(v UserInputValidationConfig) (*transportConfig, error) {
	config := &transportConfig{
		MaxBodyBytes: v.MaxBodyBytes,
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}

	idRegex, err := regexp.Compile(useOrDefault(v.IDFormatRegex, IDFormatRegexSource))
	if err != nil {
		return nil, fmt.Errorf("ID %w: %v", errRegexCompilation, err)
	}
	config.IDFormatRegex = idRegex

	nameRegex, err := regexp.Compile(useOrDefault(v.NameFormatRegex, NameFormatRegexSource))
	if err != nil {
		return nil, fmt.Errorf("Name %w: %v", errRegexCompilation, err)
	}
	config.NameFormatRegex = nameRegex
	return config, nil
}

// useOrDefault returns the value if it's not the empty string. Otherwise, it returns the defaultValue.
func useOrDefault(value, defaultValue string) string {
	if len(value) > 0 {
		return value
	}
	return defaultValue
}

// validatePacketPathVars returns a pertinent HTTP-coded error if any of the input variables
// are invalid, nil otherwise.
func validatePacketPathVars(config *transportConfig, id, name string) error {
	if !config.IDFormatRegex.MatchString(id) {
		return errInvalidID
	}
	if !config.NameFormatRegex.MatchString(name) {
		return errInvalidName
	}
	return nil
}
