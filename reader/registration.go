// SPDX-FileCopyrightText: 2021 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xmidt-org/keeper/keeper"
	"github.com/xmidt-org/keeper/model"
)

var (
	ErrNotFound      = errors.New("packet content not found")
	errPacketContent = errors.New("packet content is not valid json")
)

// PacketGetter is the part of the keeper the registration provider reads through.
type PacketGetter interface {
	GetManifest(ctx context.Context, id string) (model.Manifest, error)
	GetPacket(ctx context.Context, info model.PacketInfo) (model.Packet, error)
}

// content is the decoded body of a registration packet.
type content struct {
	Identity   map[string]json.RawMessage          `json:"identity"`
	Documents  map[string]model.Document           `json:"documents"`
	Biometrics map[string][]model.BiometricSegment `json:"biometrics"`
	MetaInfo   map[string]string                   `json:"metaInfo"`
}

func (c *content) merge(other content) {
	for k, v := range other.Identity {
		c.Identity[k] = v
	}
	for k, v := range other.Documents {
		if v.Name == "" {
			v.Name = k
		}
		c.Documents[k] = v
	}
	for k, v := range other.Biometrics {
		c.Biometrics[k] = append(c.Biometrics[k], v...)
	}
	for k, v := range other.MetaInfo {
		c.MetaInfo[k] = v
	}
}

// RegistrationProvider reads the packets this service stores. Every read goes
// through the keeper, so content is always integrity checked.
type RegistrationProvider struct {
	packets PacketGetter
	info    model.ProviderInfo
}

var _ Provider = (*RegistrationProvider)(nil)

func NewRegistrationProvider(packets PacketGetter, info model.ProviderInfo) *RegistrationProvider {
	return &RegistrationProvider{
		packets: packets,
		info:    info,
	}
}

func (p *RegistrationProvider) Info() model.ProviderInfo {
	return p.info
}

// ValidatePacket reports whether every sub packet matching source and process
// passes the integrity check.
func (p *RegistrationProvider) ValidatePacket(ctx context.Context, id, source, process string) (bool, error) {
	infos, err := p.matching(ctx, id, source, process)
	if err != nil {
		return false, err
	}
	for _, info := range infos {
		if _, err := p.packets.GetPacket(ctx, info); err != nil {
			if errors.Is(err, keeper.ErrIntegrity) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}

func (p *RegistrationProvider) GetAll(ctx context.Context, id, source, process string) (map[string]interface{}, error) {
	c, err := p.load(ctx, id, source, process)
	if err != nil {
		return nil, err
	}
	all := make(map[string]interface{}, len(c.Identity))
	for k, raw := range c.Identity {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, model.NewError(model.ReaderProviderFailedCode, errPacketContent.Error(), errPacketContent)
		}
		all[k] = v
	}
	return all, nil
}

func (p *RegistrationProvider) GetField(ctx context.Context, id, field, source, process string) (string, error) {
	c, err := p.load(ctx, id, source, process)
	if err != nil {
		return "", err
	}
	return fieldValue(c.Identity[field]), nil
}

// GetFields answers every requested field. Missing fields are empty.
func (p *RegistrationProvider) GetFields(ctx context.Context, id string, fields []string, source, process string) (map[string]string, error) {
	c, err := p.load(ctx, id, source, process)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f] = fieldValue(c.Identity[f])
	}
	return values, nil
}

func (p *RegistrationProvider) GetDocument(ctx context.Context, id, documentName, source, process string) (model.Document, error) {
	c, err := p.load(ctx, id, source, process)
	if err != nil {
		return model.Document{}, err
	}
	d, ok := c.Documents[documentName]
	if !ok {
		return model.Document{}, notFound("document", documentName, id)
	}
	return d, nil
}

// GetBiometric returns the person's segments of the requested modalities, or
// all of them when none are requested.
func (p *RegistrationProvider) GetBiometric(ctx context.Context, id, person string, modalities []model.BiometricType, source, process string) (model.BiometricRecord, error) {
	c, err := p.load(ctx, id, source, process)
	if err != nil {
		return model.BiometricRecord{}, err
	}
	segments, ok := c.Biometrics[person]
	if !ok {
		return model.BiometricRecord{}, notFound("biometrics of", person, id)
	}

	record := model.BiometricRecord{Person: person, Segments: []model.BiometricSegment{}}
	for _, s := range segments {
		if wanted(modalities, s.Type) {
			record.Segments = append(record.Segments, s)
		}
	}
	return record, nil
}

func (p *RegistrationProvider) GetMetaInfo(ctx context.Context, id, source, process string) (map[string]string, error) {
	c, err := p.load(ctx, id, source, process)
	if err != nil {
		return nil, err
	}
	return c.MetaInfo, nil
}

// matching lists the sub packets stored under id for source and process,
// ordered by name.
func (p *RegistrationProvider) matching(ctx context.Context, id, source, process string) ([]model.PacketInfo, error) {
	manifest, err := p.packets.GetManifest(ctx, id)
	if err != nil {
		return nil, err
	}
	var infos []model.PacketInfo
	for _, info := range manifest.PacketInfos {
		if strings.EqualFold(info.Source, source) && strings.EqualFold(info.Process, process) {
			infos = append(infos, info)
		}
	}
	if len(infos) == 0 {
		return nil, notFound("packet for source "+source+" and process", process, id)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].PacketName < infos[j].PacketName })
	return infos, nil
}

// load merges the content of every matching sub packet. Later names win.
func (p *RegistrationProvider) load(ctx context.Context, id, source, process string) (content, error) {
	infos, err := p.matching(ctx, id, source, process)
	if err != nil {
		return content{}, err
	}

	merged := content{
		Identity:   map[string]json.RawMessage{},
		Documents:  map[string]model.Document{},
		Biometrics: map[string][]model.BiometricSegment{},
		MetaInfo:   map[string]string{},
	}
	for _, info := range infos {
		packet, err := p.packets.GetPacket(ctx, info)
		if err != nil {
			return content{}, err
		}
		var c content
		if err := json.Unmarshal(packet.Data, &c); err != nil {
			return content{}, model.NewError(model.ReaderProviderFailedCode,
				fmt.Sprintf("%s: %s", errPacketContent, info.PacketName), err)
		}
		merged.merge(c)
	}
	return merged, nil
}

// fieldValue returns strings as is and any other JSON value in its encoded form.
func fieldValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func wanted(modalities []model.BiometricType, t model.BiometricType) bool {
	if len(modalities) == 0 {
		return true
	}
	for _, m := range modalities {
		if strings.EqualFold(string(m), string(t)) {
			return true
		}
	}
	return false
}

func notFound(what, name, id string) error {
	return model.NewError(model.PacketNotFoundCode, fmt.Sprintf("No %s %s in packet %s", what, name, id), ErrNotFound)
}
