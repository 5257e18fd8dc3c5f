package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkixbridge/bridge/pkg/classify"
	"github.com/mkixbridge/bridge/pkg/config"
	"github.com/mkixbridge/bridge/pkg/memo"
	"github.com/mkixbridge/bridge/pkg/mkixapi"
	"github.com/mkixbridge/bridge/pkg/profile"
)

type nopSender struct{}

func (nopSender) Send(data []byte) error { return nil }

func newTestClassifier(t *testing.T) (*classify.Classifier, *profile.MyProfile) {
	t.Helper()
	cfg := &config.Config{MaxMemoSize: 100}
	prof := profile.New("bot-uuid", "bot", "", "0")
	mm := memo.New(cfg, mkixapi.New(cfg), nopSender{})
	rm := memo.NewRequestMemo()
	return classify.New(cfg, prof, mm, rm, "0"), prof
}

func TestClassifyPrivateMessage(t *testing.T) {
	c, _ := newTestClassifier(t)

	raw := []byte(`{
		"time": "1700000000001",
		"type": "text",
		"group": "peer-uuid",
		"isSystemMessage": false,
		"senderID": "peer-uuid",
		"payload": {"content": "hello"}
	}`)

	event, err := c.Classify(raw)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "message", event["post_type"])
	assert.Equal(t, "private", event["message_type"])
	assert.Equal(t, "peer-uuid", event["user_id"])
}

func TestClassifyDropsOwnMessage(t *testing.T) {
	c, _ := newTestClassifier(t)

	raw := []byte(`{
		"time": "1700000000001",
		"type": "text",
		"group": "peer-uuid",
		"isSystemMessage": false,
		"senderID": "bot-uuid",
		"payload": {"content": "hello"}
	}`)

	event, err := c.Classify(raw)
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestClassifyGroupMessageRequiresMembership(t *testing.T) {
	c, prof := newTestClassifier(t)
	prof.AddGroup("g1")

	raw := []byte(`{
		"time": "1700000000001",
		"type": "text",
		"group": "g1",
		"isSystemMessage": false,
		"senderID": "peer-uuid",
		"payload": {"content": "hi all"}
	}`)

	event, err := c.Classify(raw)
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, "group", event["message_type"])
	assert.Equal(t, "g1", event["group_id"])
}

func TestClassifyEchoIsDroppedAndNotAnEvent(t *testing.T) {
	c, _ := newTestClassifier(t)

	raw := []byte(`{
		"time": "1700000000002",
		"type": "echo",
		"isSystemMessage": true,
		"payload": "{\"echo\":0,\"time\":\"1700000000002\"}"
	}`)

	event, err := c.Classify(raw)
	require.NoError(t, err)
	assert.Nil(t, event)
}
