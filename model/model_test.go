// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPacketInfoMetadata(t *testing.T) {
	assert := assert.New(t)
	info := PacketInfo{
		ID:            "100011000220201231235959",
		PacketName:    "id",
		Source:        "REGISTRATION_CLIENT",
		Signature:     "c2ln",
		EncryptedHash: "aGFzaA==",
		Extra:         map[string]string{"Operator": "jdoe"},
	}

	meta := info.ToMetadata()
	assert.Equal("jdoe", meta["operator"])
	assert.NotContains(meta, ProcessKey)

	// object stores such as S3 hand keys back capitalized.
	meta["Signature"] = meta[SignatureKey]
	delete(meta, SignatureKey)

	got := PacketInfoFromMetadata(meta)
	info.Extra = map[string]string{"operator": "jdoe"}
	assert.Equal(info, got)
}

func TestStringMetadata(t *testing.T) {
	assert := assert.New(t)
	got := StringMetadata(map[string]interface{}{"a": 1, "b": "two", "c": true})
	assert.Equal(map[string]string{"a": "1", "b": "two", "c": "true"}, got)
}

func TestCodeOf(t *testing.T) {
	tcs := []struct {
		Description     string
		Err             error
		ExpectedCode    string
		ExpectedFound   bool
		ExpectedMessage string
	}{
		{
			Description:     "coded",
			Err:             NewError(IntegrityFailureCode, "tampered", nil),
			ExpectedCode:    IntegrityFailureCode,
			ExpectedFound:   true,
			ExpectedMessage: "tampered",
		},
		{
			Description:     "wrapped coded",
			Err:             fmt.Errorf("outer: %w", NewError(APINotAccessibleCode, "down", nil)),
			ExpectedCode:    APINotAccessibleCode,
			ExpectedFound:   true,
			ExpectedMessage: "down",
		},
		{
			Description:     "plain",
			Err:             errors.New("boom"),
			ExpectedMessage: "boom",
		},
	}
	for _, tc := range tcs {
		t.Run(tc.Description, func(t *testing.T) {
			assert := assert.New(t)
			code, ok := CodeOf(tc.Err)
			assert.Equal(tc.ExpectedCode, code)
			assert.Equal(tc.ExpectedFound, ok)
			assert.Equal(tc.ExpectedMessage, MessageOf(tc.Err))
		})
	}
}
