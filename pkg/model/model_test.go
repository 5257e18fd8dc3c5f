package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkixbridge/bridge/pkg/model"
)

func TestMkIXMessagePayloadMerge(t *testing.T) {
	a := model.MkIXMessagePayload{Content: "ab", Meta: map[string]any{"at": []any{"1"}}}
	b := model.MkIXMessagePayload{Content: "cd", Meta: map[string]any{"at": []any{"2"}}}

	got := a.Merge(b)

	assert.Equal(t, "abcd", got.Content)
	assert.Equal(t, []any{"1", "2"}, got.Meta["at"])
}

func TestMkIXMessagePayloadMergeFavoursFirstNonEmptyScalar(t *testing.T) {
	a := model.MkIXMessagePayload{Name: "", Content: "x"}
	b := model.MkIXMessagePayload{Name: "picture.png", Content: "y"}

	got := a.Merge(b)

	assert.Equal(t, "picture.png", got.Name)
	assert.Equal(t, "xy", got.Content)
}

func TestMkIXPostMessageMerge(t *testing.T) {
	a := model.MkIXPostMessage{
		Type:  "text",
		Group: "g1",
		Payload: &model.MkIXMessagePayload{
			Content: "hello ",
		},
	}
	b := model.MkIXPostMessage{
		Type: "text",
		Payload: &model.MkIXMessagePayload{
			Content: "world",
		},
	}

	got := a.Merge(b)

	assert.Equal(t, "text", got.Type)
	assert.Equal(t, "g1", got.Group)
	assert.Equal(t, "hello world", got.Payload.Content)
}
