// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package crypto

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xmidt-org/keeper/model"
)

const (
	// timestampLength is the size of the creation timestamp suffix of a packet id.
	timestampLength = 14

	// idTimestampLayout is yyyyMMdd'T'HHmmss.
	idTimestampLayout = "20060102T150405"

	referenceSeparator = "_"
)

// Service encrypts, decrypts and signs packet payloads.
type Service interface {
	Encrypt(ctx context.Context, id string, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, id string, ciphertext []byte) ([]byte, error)
	Sign(ctx context.Context, payload []byte) ([]byte, error)

	// Verify is reserved. Implementations that do not verify must return false.
	Verify(ctx context.Context, payload []byte) bool
}

var (
	// ErrInvalidPacketFormat means the packet id could not be split into its
	// center, machine and timestamp segments.
	ErrInvalidPacketFormat = errors.New("invalid packet format")

	// ErrDateTimeParse means the packet id timestamp segment is malformed.
	ErrDateTimeParse = errors.New("error while parsing packet timestamp")

	// ErrAPINotAccessible means the remote crypto service could not be reached
	// or responded with a client or server error status.
	ErrAPINotAccessible = errors.New("api not accessible")

	// ErrSignature means no signature could be produced.
	ErrSignature = errors.New("failed to generate digital signature")

	// ErrCryptoFailure is the generic failure for everything else.
	ErrCryptoFailure = errors.New("packet crypto operation failed")
)

// PacketID is the parsed form of a packet id.
type PacketID struct {
	CenterID    string
	MachineID   string
	ReferenceID string
	Timestamp   time.Time
}

// ParseID derives the reference id and creation timestamp from a packet id. op is
// used only to shape the error message ("Encryption", "Decryption").
func ParseID(op, id string, centerLength, machineLength int) (PacketID, error) {
	if len(id) <= timestampLength || len(id) < centerLength+machineLength || centerLength < 0 || machineLength < 0 {
		return PacketID{}, NewInvalidFormatError(op)
	}

	p := PacketID{
		CenterID:  id[:centerLength],
		MachineID: id[centerLength : centerLength+machineLength],
	}
	p.ReferenceID = p.CenterID + referenceSeparator + p.MachineID

	created := id[len(id)-timestampLength:]
	formatted := created[:8] + "T" + created[len(created)-6:]
	ts, err := time.Parse(idTimestampLayout, formatted)
	if err != nil {
		return PacketID{}, NewDecryptionError("Error while parsing packet timestamp", fmt.Errorf("%w: %v", ErrDateTimeParse, err))
	}
	p.Timestamp = ts
	return p, nil
}

// NewInvalidFormatError reports an unparseable packet id.
func NewInvalidFormatError(op string) error {
	return model.NewError(model.InvalidPacketFormatCode,
		fmt.Sprintf("Packet %s Failed-Invalid Packet format", op), ErrInvalidPacketFormat)
}

// NewDecryptionError reports a failed encrypt or decrypt call.
func NewDecryptionError(message string, cause error) error {
	if cause == nil {
		cause = ErrCryptoFailure
	}
	return model.NewError(model.DecryptionFailureCode, message, cause)
}

// NewAPINotAccessibleError carries the remote response body, if any.
func NewAPINotAccessibleError(body string, cause error) error {
	if cause == nil {
		cause = ErrAPINotAccessible
	} else {
		cause = fmt.Errorf("%w: %v", ErrAPINotAccessible, cause)
	}
	if body == "" {
		body = "API not accessible"
	}
	return model.NewError(model.APINotAccessibleCode, body, cause)
}

// NewSignatureError reports a failed sign call.
func NewSignatureError(message string, cause error) error {
	if cause == nil {
		cause = ErrSignature
	} else {
		cause = fmt.Errorf("%w: %v", ErrSignature, cause)
	}
	if message == "" {
		message = ErrSignature.Error()
	}
	return model.NewError(model.SignatureFailureCode, message, cause)
}

// normalize lowers a registry name.
func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
