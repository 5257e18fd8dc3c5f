package memo_test

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkixbridge/bridge/pkg/config"
	"github.com/mkixbridge/bridge/pkg/memo"
	"github.com/mkixbridge/bridge/pkg/mkixapi"
	"github.com/mkixbridge/bridge/pkg/model"
)

type fakeSender struct {
	mu      sync.Mutex
	sent    []model.MkIXPostMessage
	onFrame func(model.MkIXPostMessage)
}

func (f *fakeSender) Send(data []byte) error {
	var frame model.MkIXPostMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	f.mu.Lock()
	f.sent = append(f.sent, frame)
	f.mu.Unlock()
	if f.onFrame != nil {
		f.onFrame(frame)
	}
	return nil
}

func newTestMemo(t *testing.T, sender memo.Sender) *memo.MessageMemo {
	t.Helper()
	cfg := &config.Config{MaxMemoSize: 100}
	return memo.New(cfg, mkixapi.New(cfg), sender)
}

func TestPostMessagesEchoSuccess(t *testing.T) {
	var mm *memo.MessageMemo
	sender := &fakeSender{}
	sender.onFrame = func(frame model.MkIXPostMessage) {
		go func() {
			sysMsg := model.MkIXSystemMessage{
				Payload: `{"echo":` + strconv.Itoa(*frame.Echo) + `,"time":"1700000000000"}`,
			}
			_ = mm.ReceiveEcho(sysMsg)
		}()
	}
	mm = newTestMemo(t, sender)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go mm.Run(ctx)

	id, err := mm.PostMessages(ctx, []model.MkIXPostMessage{
		{Type: "text", Group: "g1", Payload: &model.MkIXMessagePayload{Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", id)
}

func TestPostMessagesTimeoutReturnsSentinel(t *testing.T) {
	sender := &fakeSender{}
	mm := newTestMemo(t, sender)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go mm.Run(ctx)

	id, err := mm.PostMessages(ctx, []model.MkIXPostMessage{
		{Type: "text", Group: "g1", Payload: &model.MkIXMessagePayload{Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "-1", id)
}
