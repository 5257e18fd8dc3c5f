package wslink

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mkixbridge/bridge/pkg/config"
	"github.com/mkixbridge/bridge/pkg/logger"
)

const heartbeatInterval = 30 * time.Second

// OneBotDialer points straight at the configured OneBot endpoint,
// identifying the bot with the headers a Universal-role OneBot client
// is expected to send.
func OneBotDialer(cfg *config.Config, selfID string) Dialer {
	return func(ctx context.Context) (string, http.Header, error) {
		header := http.Header{}
		header.Set("X-Self-ID", selfID)
		header.Set("X-Client-Role", "Universal")
		return cfg.OneBotURL, header, nil
	}
}

// StatusFunc reports the bridge's current liveness status, used to fill
// the heartbeat meta-event's status field.
type StatusFunc func(ctx context.Context) map[string]any

// NewOneBotSession builds the OneBot link's reconnecting session. On
// every successful connect it emits a lifecycle meta-event and starts a
// heartbeat loop, matching OneBotConnect's _lifecycle/_heartbeat tasks.
func NewOneBotSession(cfg *config.Config, selfID string, status StatusFunc, onMessage func(data []byte)) *Session {
	var session *Session
	onConnect := func(s *Session) {
		sendLifecycle(s, selfID)
		go heartbeatLoop(s, selfID, status)
	}
	session = New("onebot", OneBotDialer(cfg, selfID), onConnect, onMessage).WithTLSConfig(tlsConfigFor(cfg))
	return session
}

func sendLifecycle(s *Session, selfID string) {
	event := map[string]any{
		"time":            time.Now().Unix(),
		"self_id":         selfID,
		"post_type":       "meta_event",
		"meta_event_type": "lifecycle",
		"sub_type":        "connect",
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.Send(data); err != nil {
		logger.WarnCF("onebot", "failed to send lifecycle event", map[string]any{"error": err.Error()})
	}
}

func heartbeatLoop(s *Session, selfID string, status StatusFunc) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for range ticker.C {
		if !s.Alive() {
			return
		}
		event := map[string]any{
			"time":            time.Now().Unix(),
			"self_id":         selfID,
			"post_type":       "meta_event",
			"meta_event_type": "heartbeat",
			"status":          status(context.Background()),
			"interval":        heartbeatInterval.Milliseconds(),
		}
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		if err := s.Send(data); err != nil {
			logger.WarnCF("onebot", "failed to send heartbeat", map[string]any{"error": err.Error()})
			return
		}
	}
}
