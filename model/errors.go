// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
	"fmt"
)

// Error codes shared by the packet pipeline.
const (
	UnknownResourceCode      = "KER-PUT-001"
	DecryptionFailureCode    = "KER-PUT-003"
	APINotAccessibleCode     = "KER-PUT-005"
	SignatureFailureCode     = "KER-PUT-006"
	KeeperPutFailureCode     = "KER-PUT-007"
	KeeperGetFailureCode     = "KER-PUT-008"
	IntegrityFailureCode     = "KER-PUT-009"
	ObjectStoreFailureCode   = "KER-PUT-010"
	InvalidPacketFormatCode  = "KER-PUT-011"
	PacketNotFoundCode       = "KER-PUT-012"
	ReaderProviderFailedCode = "KER-PUT-013"
)

// Coder is implemented by errors that carry a structured error code.
type Coder interface {
	ErrorCode() string
}

// Error is a coded error. Err, when set, is the underlying cause.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) ErrorCode() string { return e.Code }
func (e *Error) Unwrap() error     { return e.Err }

// NewError builds a coded error.
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// CodeOf returns the first structured code found in err's chain.
func CodeOf(err error) (string, bool) {
	var c Coder
	if errors.As(err, &c) {
		return c.ErrorCode(), true
	}
	return "", false
}

// MessageOf returns the message of the first coded error in err's chain,
// falling back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
