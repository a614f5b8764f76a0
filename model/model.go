// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"strings"

	"github.com/spf13/cast"
)

// Metadata keys used to persist a PacketInfo alongside the stored object.
const (
	IDKey              = "id"
	PacketNameKey      = "packetname"
	SourceKey          = "source"
	ProcessKey         = "process"
	SchemaVersionKey   = "schemaversion"
	SignatureKey       = "signature"
	EncryptedHashKey   = "encryptedhash"
	ProviderNameKey    = "providername"
	ProviderVersionKey = "providerversion"
	CreationDateKey    = "creationdate"
)

// PacketInfo is the metadata record kept for a stored packet.
type PacketInfo struct {
	// ID is the packet id. It encodes the center id, the machine id and the
	// creation timestamp of the packet.
	ID string `json:"id"`

	// PacketName names the sub packet stored under ID.
	PacketName string `json:"packetName"`

	Source          string `json:"source,omitempty"`
	Process         string `json:"process,omitempty"`
	SchemaVersion   string `json:"schemaVersion,omitempty"`
	ProviderName    string `json:"providerName,omitempty"`
	ProviderVersion string `json:"providerVersion,omitempty"`
	CreationDate    string `json:"creationDate,omitempty"`

	// Signature is the base64 encoded signature computed over the plaintext.
	Signature string `json:"signature,omitempty"`

	// EncryptedHash is the base64 encoded hash computed over the encrypted bytes.
	EncryptedHash string `json:"encryptedHash,omitempty"`

	// Extra holds provider defined key/value fields.
	Extra map[string]string `json:"extra,omitempty"`
}

// Packet is an opaque payload plus its identifying metadata.
type Packet struct {
	Info PacketInfo `json:"info"`
	Data []byte     `json:"data"`
}

// Manifest aggregates every named sub packet stored under a single id.
// Order is not significant.
type Manifest struct {
	PacketInfos []PacketInfo `json:"packetInfos"`
}

// ProviderInfo describes a packet reading provider. It is fixed at construction.
type ProviderInfo struct {
	Provider  string `json:"provider"`
	Version   string `json:"version"`
	SchemaURL string `json:"schemaUrl"`
	PublicKey []byte `json:"publicKey,omitempty"`
	Signer    string `json:"signer,omitempty"`
}

// ToMetadata flattens the info into the string mapping kept by object stores.
// Empty fields are omitted.
func (p PacketInfo) ToMetadata() map[string]string {
	m := make(map[string]string, len(p.Extra)+10)
	for k, v := range p.Extra {
		m[strings.ToLower(k)] = v
	}
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set(IDKey, p.ID)
	set(PacketNameKey, p.PacketName)
	set(SourceKey, p.Source)
	set(ProcessKey, p.Process)
	set(SchemaVersionKey, p.SchemaVersion)
	set(SignatureKey, p.Signature)
	set(EncryptedHashKey, p.EncryptedHash)
	set(ProviderNameKey, p.ProviderName)
	set(ProviderVersionKey, p.ProviderVersion)
	set(CreationDateKey, p.CreationDate)
	return m
}

// PacketInfoFromMetadata rebuilds a PacketInfo from object store metadata.
// Keys are matched case-insensitively since some stores normalize them.
func PacketInfoFromMetadata(meta map[string]string) PacketInfo {
	var p PacketInfo
	for k, v := range meta {
		switch strings.ToLower(k) {
		case IDKey:
			p.ID = v
		case PacketNameKey:
			p.PacketName = v
		case SourceKey:
			p.Source = v
		case ProcessKey:
			p.Process = v
		case SchemaVersionKey:
			p.SchemaVersion = v
		case SignatureKey:
			p.Signature = v
		case EncryptedHashKey:
			p.EncryptedHash = v
		case ProviderNameKey:
			p.ProviderName = v
		case ProviderVersionKey:
			p.ProviderVersion = v
		case CreationDateKey:
			p.CreationDate = v
		default:
			if p.Extra == nil {
				p.Extra = map[string]string{}
			}
			p.Extra[strings.ToLower(k)] = v
		}
	}
	return p
}

// StringMetadata coerces loosely typed metadata, such as decoded JSON or
// driver maps, into the flat string form.
func StringMetadata(in map[string]interface{}) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = cast.ToString(v)
	}
	return out
}
