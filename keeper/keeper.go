// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

// Package keeper stores packets encrypted, signed and hashed, and releases them
// only after both checks pass on the way back out.
package keeper

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/sha256-simd"
	"github.com/xmidt-org/keeper/crypto"
	"github.com/xmidt-org/keeper/model"
	"github.com/xmidt-org/keeper/store"
	"go.uber.org/zap"
)

const (
	putFailedMessage      = "Unable to store packet in object store"
	persistFailedMessage  = "Failed to persist packet in object store"
	getFailedMessage      = "Failed to get packet from object store"
	integrityFailedFormat = "Packet integrity check failed for %s"
)

var (
	ErrPutFailed       = errors.New("object store declined the packet")
	ErrIntegrity       = errors.New("packet failed integrity or signature check")
	ErrMissingMetadata = errors.New("packet id and name are required")
)

// Config configures the Keeper.
type Config struct {
	// Account is the object store namespace packets are kept under.
	Account string

	// AdapterName selects the object store adapter.
	AdapterName string

	// CryptoName selects the crypto implementation.
	CryptoName string
}

// Keeper is the packet integrity pipeline sitting between callers and the
// object store.
type Keeper struct {
	account  string
	adapter  store.Adapter
	crypto   crypto.Service
	measures Measures
	logger   *zap.Logger
	now      func() time.Time
}

// New builds a Keeper. A nil logger is replaced by a no-op logger.
func New(config Config, adapter store.Adapter, cs crypto.Service, measures Measures, logger *zap.Logger) *Keeper {
	if config.Account == "" {
		config.Account = store.DefaultAccount
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Keeper{
		account:  config.Account,
		adapter:  adapter,
		crypto:   cs,
		measures: measures,
		logger:   logger,
		now:      time.Now,
	}
}

// ObjectName is the object store name of a sub packet.
func ObjectName(id, packetName string) string {
	return id + "_" + packetName
}

// Hash returns the base64 encoded SHA-256 digest recorded as the encrypted hash.
func Hash(encrypted []byte) string {
	sum := sha256.Sum256(encrypted)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// PutPacket encrypts and stores the packet, then records its signature and
// encrypted hash as object metadata. The returned info is what the store
// persisted. A failure after the bytes were stored leaves the unsigned object
// in place; it is reported and logged, not rolled back.
func (k *Keeper) PutPacket(ctx context.Context, packet model.Packet) (info model.PacketInfo, err error) {
	start := k.now()
	defer func() { k.measures.observe(PutOperation, start, err) }()

	id, packetName := packet.Info.ID, packet.Info.PacketName
	if id == "" || packetName == "" {
		return model.PacketInfo{}, model.NewError(model.KeeperPutFailureCode, ErrMissingMetadata.Error(), ErrMissingMetadata)
	}
	name := ObjectName(id, packetName)
	logger := k.logger.With(zap.String("id", id), zap.String("name", name))

	encrypted, err := k.crypto.Encrypt(ctx, id, packet.Data)
	if err != nil {
		logger.Error("failed encrypting packet", zap.Error(err))
		return model.PacketInfo{}, translate(err, model.KeeperPutFailureCode, persistFailedMessage)
	}

	ok, err := k.adapter.PutObject(ctx, k.account, id, name, bytes.NewReader(encrypted))
	if err != nil {
		logger.Error("failed storing packet", zap.Error(err))
		return model.PacketInfo{}, translate(err, model.KeeperPutFailureCode, persistFailedMessage)
	}
	if !ok {
		logger.Error("object store declined packet")
		return model.PacketInfo{}, model.NewError(model.KeeperPutFailureCode, putFailedMessage, ErrPutFailed)
	}

	signature, err := k.crypto.Sign(ctx, packet.Data)
	if err != nil {
		logger.Warn("packet stored without signature", zap.String("account", k.account), zap.Error(err))
		return model.PacketInfo{}, translate(err, model.KeeperPutFailureCode, persistFailedMessage)
	}

	record := packet.Info
	record.Signature = base64.StdEncoding.EncodeToString(signature)
	record.EncryptedHash = Hash(encrypted)

	persisted, err := k.adapter.AddObjectMetaData(ctx, k.account, id, name, record.ToMetadata())
	if err != nil {
		logger.Warn("packet stored without signature", zap.String("account", k.account), zap.Error(err))
		return model.PacketInfo{}, translate(err, model.KeeperPutFailureCode, persistFailedMessage)
	}

	logger.Debug("packet stored")
	return model.PacketInfoFromMetadata(persisted), nil
}

// GetPacket fetches, verifies and decrypts a packet. The encrypted hash is
// checked before anything is decrypted, and unverified plaintext is never
// returned.
func (k *Keeper) GetPacket(ctx context.Context, info model.PacketInfo) (packet model.Packet, err error) {
	start := k.now()
	defer func() { k.measures.observe(GetOperation, start, err) }()

	if info.ID == "" || info.PacketName == "" {
		return model.Packet{}, model.NewError(model.KeeperGetFailureCode, ErrMissingMetadata.Error(), ErrMissingMetadata)
	}
	name := ObjectName(info.ID, info.PacketName)
	logger := k.logger.With(zap.String("id", info.ID), zap.String("name", name))

	encrypted, err := k.readObject(ctx, info.ID, name)
	if err != nil {
		logger.Error("failed fetching packet", zap.Error(err))
		return model.Packet{}, translate(err, model.KeeperGetFailureCode, getFailedMessage)
	}

	meta, err := k.adapter.GetMetaData(ctx, k.account, info.ID, name)
	if err != nil {
		logger.Error("failed fetching packet metadata", zap.Error(err))
		return model.Packet{}, translate(err, model.KeeperGetFailureCode, getFailedMessage)
	}

	stored := model.PacketInfoFromMetadata(meta)
	if stored.ID == "" {
		stored.ID = info.ID
	}
	if stored.PacketName == "" {
		stored.PacketName = info.PacketName
	}

	if !k.CheckIntegrity(stored, encrypted) {
		logger.Error("encrypted hash mismatch, packet not decrypted")
		return model.Packet{}, k.integrityError(name)
	}

	plaintext, err := k.crypto.Decrypt(ctx, info.ID, encrypted)
	if err != nil {
		logger.Error("failed decrypting packet", zap.Error(err))
		return model.Packet{}, translate(err, model.KeeperGetFailureCode, getFailedMessage)
	}

	candidate := model.Packet{Info: stored, Data: plaintext}
	valid, err := k.CheckSignature(ctx, candidate, encrypted)
	if err != nil {
		return model.Packet{}, translate(err, model.KeeperGetFailureCode, getFailedMessage)
	}
	if !valid {
		return model.Packet{}, k.integrityError(name)
	}
	return candidate, nil
}

func (k *Keeper) integrityError(name string) error {
	k.measures.integrityFailure()
	return model.NewError(model.IntegrityFailureCode, fmt.Sprintf(integrityFailedFormat, name), ErrIntegrity)
}

// GetManifest returns the info of every sub packet stored under id.
func (k *Keeper) GetManifest(ctx context.Context, id string) (manifest model.Manifest, err error) {
	start := k.now()
	defer func() { k.measures.observe(ManifestOperation, start, err) }()

	entries, err := k.adapter.ListMetaData(ctx, k.account, id)
	if err != nil {
		k.logger.Error("failed listing packet metadata", zap.String("id", id), zap.Error(err))
		return model.Manifest{}, translate(err, model.KeeperGetFailureCode, getFailedMessage)
	}

	manifest.PacketInfos = make([]model.PacketInfo, 0, len(entries))
	for name, meta := range entries {
		info := model.PacketInfoFromMetadata(meta)
		if info.ID == "" {
			info.ID = id
		}
		if info.PacketName == "" {
			info.PacketName = strings.TrimPrefix(name, id+"_")
		}
		manifest.PacketInfos = append(manifest.PacketInfos, info)
	}
	return manifest, nil
}

// CheckIntegrity compares the hash of encrypted against the recorded one.
func (k *Keeper) CheckIntegrity(info model.PacketInfo, encrypted []byte) bool {
	return info.EncryptedHash != "" && Hash(encrypted) == info.EncryptedHash
}

// CheckSignature requires both the integrity check and a matching signature
// over the plaintext. Both checks run and each failure is logged.
func (k *Keeper) CheckSignature(ctx context.Context, packet model.Packet, encrypted []byte) (bool, error) {
	logger := k.logger.With(zap.String("id", packet.Info.ID), zap.String("packetName", packet.Info.PacketName))

	integrity := k.CheckIntegrity(packet.Info, encrypted)
	if !integrity {
		logger.Error("encrypted hash mismatch")
	}

	signature, err := k.crypto.Sign(ctx, packet.Data)
	if err != nil {
		logger.Error("failed signing plaintext for verification", zap.Error(err))
		return false, err
	}
	signed := packet.Info.Signature != "" && base64.StdEncoding.EncodeToString(signature) == packet.Info.Signature
	if !signed {
		logger.Error("signature mismatch")
	}
	return integrity && signed, nil
}

func (k *Keeper) readObject(ctx context.Context, id, name string) ([]byte, error) {
	rc, err := k.adapter.GetObject(ctx, k.account, id, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, store.Wrap(err, store.GetOp, k.account, id, name)
	}
	return data, nil
}

// translate keeps coded errors as they are and gives every other error the
// fallback code, appending its text to message.
func translate(err error, code, message string) error {
	if _, ok := model.CodeOf(err); ok {
		return err
	}
	return model.NewError(code, message+" : "+err.Error(), err)
}
