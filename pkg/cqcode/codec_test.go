package cqcode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkixbridge/bridge/pkg/cqcode"
	"github.com/mkixbridge/bridge/pkg/model"
)

func TestDeserializeNoMergeAcrossAt(t *testing.T) {
	frames, err := cqcode.Deserialize("hi[CQ:at,qq=42]!", false)
	require.NoError(t, err)
	require.Len(t, frames, 3)

	assert.Equal(t, "hi", frames[0].Payload.Content)
	assert.Equal(t, []any{"42"}, frames[1].Payload.Meta["at"])
	assert.Equal(t, "!", frames[2].Payload.Content)
}

func TestDeserializeAutoEscape(t *testing.T) {
	frames, err := cqcode.Deserialize("hi[CQ:at,qq=42]!", true)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "hi[CQ:at,qq=42]!", frames[0].Payload.Content)
}

func TestDeserializeMergesAdjacentTextSegments(t *testing.T) {
	frames, err := cqcode.Deserialize([]model.CQDataListItem{
		{Type: "text", Data: map[string]any{"text": "ab"}},
		{Type: "text", Data: map[string]any{"text": "cd"}},
	}, false)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, "abcd", frames[0].Payload.Content)
}

func TestFaceHandlerTotalAndBounded(t *testing.T) {
	frames, err := cqcode.Deserialize([]model.CQDataListItem{
		{Type: "face", Data: map[string]any{"id": "0"}},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, "😲", frames[0].Payload.Content)

	_, err = cqcode.Deserialize([]model.CQDataListItem{
		{Type: "face", Data: map[string]any{"id": "230"}},
	}, false)
	assert.Error(t, err)
}

func TestSerializeTextFrame(t *testing.T) {
	msg := model.MkIXGetMessage{
		Type:    "text",
		Payload: model.MkIXMessagePayload{Content: "hello"},
	}
	segs, err := cqcode.Serialize(msg, nil, "")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "text", segs[0].Type)
	assert.Equal(t, "hello", segs[0].Data["text"])
}
