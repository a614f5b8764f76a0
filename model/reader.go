// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package model

// BiometricType is a biometric modality.
type BiometricType string

const (
	Finger BiometricType = "Finger"
	Iris   BiometricType = "Iris"
	Face   BiometricType = "Face"
	Voice  BiometricType = "Voice"
)

// Document is a supporting document carried in a packet.
type Document struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Format string `json:"format"`
	Value  []byte `json:"value"`
}

// BiometricSegment is a single captured biometric.
type BiometricSegment struct {
	Type    BiometricType `json:"type"`
	SubType string        `json:"subType,omitempty"`
	Format  string        `json:"format,omitempty"`
	Quality int           `json:"quality,omitempty"`
	Data    []byte        `json:"data"`
}

// BiometricRecord groups the biometric segments captured for a person.
type BiometricRecord struct {
	Person   string             `json:"person"`
	Segments []BiometricSegment `json:"segments"`
}
