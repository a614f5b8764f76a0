// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"

	"github.com/xmidt-org/keeper/model"
)

// Sentinel errors adapters wrap.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUnknownAdapter = errors.New("unknown object store adapter")
)

// OperationError describes a failed adapter call. It is coded KER-PUT-012
// when the object does not exist and KER-PUT-010 otherwise.
type OperationError struct {
	Op      string
	Account string
	ID      string
	Name    string
	Err     error
}

func (e OperationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Account, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s/%s/%s: %v", e.Op, e.Account, e.ID, e.Name, e.Err)
}

func (e OperationError) Unwrap() error {
	return e.Err
}

func (e OperationError) ErrorCode() string {
	if errors.Is(e.Err, ErrObjectNotFound) {
		return model.PacketNotFoundCode
	}
	return model.ObjectStoreFailureCode
}

// NotFound is a convenience for adapters.
func NotFound(op, account, id, name string) error {
	return OperationError{Op: op, Account: account, ID: id, Name: name, Err: ErrObjectNotFound}
}

// Wrap decorates err with the operation context unless it already carries one.
func Wrap(err error, op, account, id, name string) error {
	if err == nil {
		return nil
	}
	var oe OperationError
	if errors.As(err, &oe) {
		return err
	}
	return OperationError{Op: op, Account: account, ID: id, Name: name, Err: err}
}
