// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package offline implements packet crypto with locally configured key material.
// Each packet gets a fresh AES-256-GCM data key that is wrapped with the master
// key and stored in front of the ciphertext.
package offline

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	aead "github.com/google/tink/go/aead/subtle"
	kwp "github.com/google/tink/go/kwp/subtle"
	mac "github.com/google/tink/go/mac/subtle"
	"github.com/google/tink/go/subtle/random"
	"github.com/xmidt-org/keeper/crypto"
)

const (
	dataKeyLength  = 32
	headerLength   = 2
	signatureHash  = "SHA256"
	signatureBytes = 32

	errWrappedFmt = "%w: %s"
)

var (
	ErrMasterKey     = errors.New("invalid master key")
	ErrSigningKey    = errors.New("invalid signing key")
	errTruncated     = errors.New("ciphertext too short")
	errUnwrapDataKey = errors.New("failed unwrapping data key")
)

// Config holds base64 encoded key material.
type Config struct {
	// MasterKey wraps the per packet data keys. 16 or 32 bytes once decoded.
	MasterKey string

	// SigningKey is the HMAC-SHA256 key. At least 16 bytes once decoded.
	SigningKey string

	CenterIDLength  int
	MachineIDLength int
}

// Service is the local crypto.Service.
type Service struct {
	wrapper *kwp.KWP
	signer  *mac.HMAC
	config  Config
}

var _ crypto.Service = (*Service)(nil)

// New decodes the configured keys.
func New(config Config) (*Service, error) {
	master, err := base64.StdEncoding.DecodeString(config.MasterKey)
	if err != nil {
		return nil, fmt.Errorf(errWrappedFmt, ErrMasterKey, err.Error())
	}
	wrapper, err := kwp.NewKWP(master)
	if err != nil {
		return nil, fmt.Errorf(errWrappedFmt, ErrMasterKey, err.Error())
	}

	signing, err := base64.StdEncoding.DecodeString(config.SigningKey)
	if err != nil {
		return nil, fmt.Errorf(errWrappedFmt, ErrSigningKey, err.Error())
	}
	signer, err := mac.NewHMAC(signatureHash, signing, signatureBytes)
	if err != nil {
		return nil, fmt.Errorf(errWrappedFmt, ErrSigningKey, err.Error())
	}

	return &Service{
		wrapper: wrapper,
		signer:  signer,
		config:  config,
	}, nil
}

// Encrypt seals plaintext under a new data key bound to the packet's reference id.
func (s *Service) Encrypt(_ context.Context, id string, plaintext []byte) ([]byte, error) {
	pid, err := crypto.ParseID("Encryption", id, s.config.CenterIDLength, s.config.MachineIDLength)
	if err != nil {
		return nil, err
	}

	dataKey := random.GetRandomBytes(dataKeyLength)
	cipher, err := aead.NewAESGCM(dataKey)
	if err != nil {
		return nil, crypto.NewDecryptionError(err.Error(), err)
	}
	sealed, err := cipher.Encrypt(plaintext, []byte(pid.ReferenceID))
	if err != nil {
		return nil, crypto.NewDecryptionError(err.Error(), err)
	}
	wrapped, err := s.wrapper.Wrap(dataKey)
	if err != nil {
		return nil, crypto.NewDecryptionError(err.Error(), err)
	}

	out := make([]byte, headerLength, headerLength+len(wrapped)+len(sealed))
	binary.BigEndian.PutUint16(out, uint16(len(wrapped)))
	out = append(out, wrapped...)
	return append(out, sealed...), nil
}

// Decrypt reverses Encrypt. Ciphertexts produced for another reference id fail.
func (s *Service) Decrypt(_ context.Context, id string, ciphertext []byte) ([]byte, error) {
	pid, err := crypto.ParseID("Decryption", id, s.config.CenterIDLength, s.config.MachineIDLength)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < headerLength {
		return nil, crypto.NewDecryptionError(errTruncated.Error(), errTruncated)
	}
	n := int(binary.BigEndian.Uint16(ciphertext))
	if len(ciphertext) < headerLength+n {
		return nil, crypto.NewDecryptionError(errTruncated.Error(), errTruncated)
	}

	dataKey, err := s.wrapper.Unwrap(ciphertext[headerLength : headerLength+n])
	if err != nil {
		return nil, crypto.NewDecryptionError(errUnwrapDataKey.Error(), fmt.Errorf(errWrappedFmt, errUnwrapDataKey, err.Error()))
	}
	cipher, err := aead.NewAESGCM(dataKey)
	if err != nil {
		return nil, crypto.NewDecryptionError(err.Error(), err)
	}
	plaintext, err := cipher.Decrypt(ciphertext[headerLength+n:], []byte(pid.ReferenceID))
	if err != nil {
		return nil, crypto.NewDecryptionError(err.Error(), err)
	}
	return plaintext, nil
}

// Sign returns the HMAC-SHA256 tag of payload.
func (s *Service) Sign(_ context.Context, payload []byte) ([]byte, error) {
	tag, err := s.signer.ComputeMAC(payload)
	if err != nil {
		return nil, crypto.NewSignatureError("", err)
	}
	return tag, nil
}

// Verify always fails closed.
func (s *Service) Verify(context.Context, []byte) bool {
	return false
}
