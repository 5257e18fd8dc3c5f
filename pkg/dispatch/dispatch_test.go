package dispatch_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkixbridge/bridge/pkg/config"
	"github.com/mkixbridge/bridge/pkg/dispatch"
	"github.com/mkixbridge/bridge/pkg/memo"
	"github.com/mkixbridge/bridge/pkg/mkixapi"
	"github.com/mkixbridge/bridge/pkg/model"
)

type echoSender struct{ mm **memo.MessageMemo }

func (s echoSender) Send(data []byte) error {
	var frame model.MkIXPostMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	go func() {
		_ = (*s.mm).ReceiveEcho(model.MkIXSystemMessage{
			Payload: `{"echo":` + strconv.Itoa(*frame.Echo) + `,"time":"1700000000123"}`,
		})
	}()
	return nil
}

func TestParseActionRejectsUnknownAction(t *testing.T) {
	_, err := dispatch.ParseAction(model.OB11ActionData{Action: "not_a_real_action"})
	require.Error(t, err)
}

func TestGetVersionInfoDispatch(t *testing.T) {
	action, err := dispatch.ParseAction(model.OB11ActionData{Action: "get_version_info"})
	require.NoError(t, err)

	deps := &dispatch.Deps{API: mkixapi.New(&config.Config{MaxMemoSize: 100})}
	data, err := action.Dispatch(context.Background(), deps)
	require.NoError(t, err)

	asMap, ok := data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "v11", asMap["protocol_version"])
}

func TestSendPrivateMsgDispatchResolvesMessageID(t *testing.T) {
	cfg := &config.Config{MaxMemoSize: 100}
	var mm *memo.MessageMemo
	sender := echoSender{mm: &mm}
	mm = memo.New(cfg, mkixapi.New(cfg), sender)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go mm.Run(ctx)

	action, err := dispatch.ParseAction(model.OB11ActionData{
		Action: "send_private_msg",
		Params: json.RawMessage(`{"user_id":"peer-1","message":"hello"}`),
	})
	require.NoError(t, err)

	deps := &dispatch.Deps{API: mkixapi.New(cfg), Messages: mm}
	data, err := action.Dispatch(ctx, deps)
	require.NoError(t, err)

	asMap, ok := data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1700000000123", asMap["message_id"])
}
