// Package model defines the wire types shared by every link of the
// bridge: MkIX inbound/outbound frames, MkIX system frames, and the
// OneBot action envelope.
package model

import "encoding/json"

// MkIXMessagePayload is the free-form content carried by a MkIX frame.
type MkIXMessagePayload struct {
	Name    string         `json:"name,omitempty"`
	Size    int            `json:"size,omitempty"`
	Content string         `json:"content"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Merge combines two payloads of the same logical run: meta values that
// appear in both concatenate (string+string, or list+list via append),
// scalar fields favour the first non-empty, and content concatenates.
func (p MkIXMessagePayload) Merge(other MkIXMessagePayload) MkIXMessagePayload {
	meta := make(map[string]any, len(p.Meta)+len(other.Meta))
	for k, v := range p.Meta {
		meta[k] = v
	}
	for k, v := range other.Meta {
		if existing, ok := meta[k]; ok {
			meta[k] = mergeMetaValue(existing, v)
		} else {
			meta[k] = v
		}
	}

	name := p.Name
	if name == "" {
		name = other.Name
	}
	size := p.Size
	if size == 0 {
		size = other.Size
	}

	return MkIXMessagePayload{
		Name:    name,
		Size:    size,
		Content: p.Content + other.Content,
		Meta:    meta,
	}
}

func mergeMetaValue(a, b any) any {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av + bv
		}
	case []any:
		if bv, ok := b.([]any); ok {
			return append(append([]any{}, av...), bv...)
		}
	}
	// Incompatible shapes: the later value wins rather than panicking.
	return b
}

// MkIXGetMessage is an inbound chat frame from the MkIX WS link.
type MkIXGetMessage struct {
	Time            string             `json:"time"`
	Type            string             `json:"type"`
	Group           string             `json:"group"`
	IsSystemMessage bool               `json:"isSystemMessage"`
	SenderID        string             `json:"senderID"`
	Payload         MkIXMessagePayload `json:"payload"`
}

// MkIXPostMessage is an outbound frame destined for the MkIX link.
type MkIXPostMessage struct {
	Type      string              `json:"type,omitempty"`
	Echo      *int                `json:"echo,omitempty"`
	Group     string              `json:"group,omitempty"`
	GroupType string              `json:"groupType,omitempty"`
	Payload   *MkIXMessagePayload `json:"payload,omitempty"`
}

// Merge combines two adjacent outbound frames of the same kind: the
// codec uses this to collapse runs of plain text into one frame.
func (m MkIXPostMessage) Merge(other MkIXPostMessage) MkIXPostMessage {
	var payload *MkIXMessagePayload
	switch {
	case m.Payload != nil && other.Payload != nil:
		merged := m.Payload.Merge(*other.Payload)
		payload = &merged
	case m.Payload != nil:
		payload = m.Payload
	default:
		payload = other.Payload
	}

	typ := m.Type
	if typ == "" {
		typ = other.Type
	}
	group := m.Group
	if group == "" {
		group = other.Group
	}
	groupType := m.GroupType
	if groupType == "" {
		groupType = other.GroupType
	}

	return MkIXPostMessage{
		Type:      typ,
		Group:     group,
		GroupType: groupType,
		Payload:   payload,
	}
}

// MkIXSystemMessage is the envelope for echoes, notices, and membership
// events pushed on the MkIX link.
type MkIXSystemMessage struct {
	Time            string         `json:"time"`
	Type            string         `json:"type"`
	SubType         string         `json:"subType,omitempty"`
	Target          string         `json:"target,omitempty"`
	TargetKey       string         `json:"targetKey,omitempty"`
	IsSystemMessage bool           `json:"isSystemMessage"`
	State           string         `json:"state,omitempty"`
	SenderID        string         `json:"senderID,omitempty"`
	SenderKey       string         `json:"senderKey,omitempty"`
	Payload         string         `json:"payload"`
	Meta            map[string]any `json:"meta,omitempty"`
}

// OB11ActionData is an action request received on the OneBot link.
type OB11ActionData struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
	Echo   json.RawMessage `json:"echo,omitempty"`
}

// OB11Reply is the standard OneBot action response envelope.
type OB11Reply struct {
	Status  string          `json:"status"`
	Retcode int             `json:"retcode"`
	Data    any             `json:"data,omitempty"`
	Echo    json.RawMessage `json:"echo,omitempty"`
}

// CQData wraps a raw MkIX text payload carrying inline CQ-code markup.
type CQData struct {
	Data string `json:"data"`
}

// CQDataListItem is one OneBot array-form message segment.
type CQDataListItem struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}
