// Package memo implements the outbound message pipeline (echo-correlated
// send queue with bounded history retention) and the short-lived request
// memo used to resolve OneBot approve/reject actions back to their
// originating MkIX request.
package memo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mkixbridge/bridge/pkg/config"
	"github.com/mkixbridge/bridge/pkg/logger"
	"github.com/mkixbridge/bridge/pkg/mkerr"
	"github.com/mkixbridge/bridge/pkg/mkixapi"
	"github.com/mkixbridge/bridge/pkg/model"
)

const postMessagesDeadline = 30 * time.Second

// Sender delivers a raw JSON frame over the MkIX WS link.
type Sender interface {
	Send(data []byte) error
}

type groupRef struct {
	groupType string
	groupID   string
}

type batchJob struct {
	frames []model.MkIXPostMessage
	reply  chan batchOutcome
}

type batchOutcome struct {
	messageID string
	ok        bool
}

// MessageMemo queues outbound frames, assigns and correlates echo ids,
// and tracks recently-sent message chunks under a bounded FIFO so a
// later revoke/reply can be resolved back to its MkIX group.
type MessageMemo struct {
	cfg    *config.Config
	api    *mkixapi.Client
	sender Sender

	mu                sync.Mutex
	echoID            int
	waitEcho          map[int]chan string
	messageChunk      map[string][]string
	messageGroupType  map[string]groupRef
	capacityQueue     []string

	queue chan batchJob
}

// New builds a MessageMemo bound to cfg, api (used for file/audio
// uploads), and sender (used for text/image/revoke frames).
func New(cfg *config.Config, api *mkixapi.Client, sender Sender) *MessageMemo {
	return &MessageMemo{
		cfg:              cfg,
		api:              api,
		sender:           sender,
		waitEcho:         map[int]chan string{},
		messageChunk:     map[string][]string{},
		messageGroupType: map[string]groupRef{},
		queue:            make(chan batchJob, 64),
	}
}

// Run starts the single-consumer goroutine that drains the send queue in
// order. It returns when ctx is cancelled.
func (m *MessageMemo) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.queue:
			m.processBatch(ctx, job)
		}
	}
}

// ReceiveChat records an inbound chat frame's group so a later revoke
// request against its message_id can find the right group/groupType.
func (m *MessageMemo) ReceiveChat(msg model.MkIXGetMessage, groupType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messageGroupType[msg.Time] = groupRef{groupType: groupType, groupID: msg.Group}
	m.messageChunk[msg.Time] = []string{msg.Time}
	m.capacityQueue = append(m.capacityQueue, msg.Time)

	if len(m.capacityQueue) > m.cfg.MaxMemoSize {
		evict := m.capacityQueue[0]
		m.capacityQueue = m.capacityQueue[1:]
		delete(m.messageGroupType, evict)
		for _, id := range m.messageChunk[evict] {
			delete(m.messageChunk, id)
		}
	}
}

// ReceiveEcho resolves the waiter registered for the echo id carried in
// sysMsg's payload, delivering it the confirmed MkIX message time.
func (m *MessageMemo) ReceiveEcho(sysMsg model.MkIXSystemMessage) error {
	var echo struct {
		Echo int    `json:"echo"`
		Time string `json:"time"`
	}
	if err := json.Unmarshal([]byte(sysMsg.Payload), &echo); err != nil {
		return fmt.Errorf("decoding echo payload: %w", err)
	}

	m.mu.Lock()
	ch, ok := m.waitEcho[echo.Echo]
	if ok {
		delete(m.waitEcho, echo.Echo)
	}
	m.mu.Unlock()

	if ok {
		ch <- echo.Time
	}
	return nil
}

// GetStorage resolves a previously sent message_id to its group and the
// full set of message ids it expanded into (e.g. for a revoke request),
// consuming the entry.
func (m *MessageMemo) GetStorage(messageID string) (groupType, groupID string, messages []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, ok := m.messageGroupType[messageID]
	if !ok {
		return "", "", nil, fmt.Errorf("message_id %q not found", messageID)
	}
	ids := m.messageChunk[messageID]
	for _, id := range ids {
		delete(m.messageChunk, id)
	}
	delete(m.messageGroupType, messageID)

	return ref.groupType, ref.groupID, ids, nil
}

// PostMessages enqueues frames for the consumer goroutine and blocks
// until the batch resolves or the 30 s deadline elapses.
func (m *MessageMemo) PostMessages(ctx context.Context, frames []model.MkIXPostMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, postMessagesDeadline)
	defer cancel()

	reply := make(chan batchOutcome, 1)
	select {
	case m.queue <- batchJob{frames: frames, reply: reply}:
	case <-ctx.Done():
		return "-1", fmt.Errorf("%w: post_messages queue full", mkerr.ErrTimeout)
	}

	select {
	case outcome := <-reply:
		if !outcome.ok {
			return "-1", nil
		}
		return outcome.messageID, nil
	case <-ctx.Done():
		return "-1", fmt.Errorf("%w: post_messages did not complete within %s", mkerr.ErrTimeout, postMessagesDeadline)
	}
}

func (m *MessageMemo) processBatch(ctx context.Context, job batchJob) {
	var successIDs []string

	for _, frame := range job.frames {
		m.mu.Lock()
		echo := m.echoID
		m.echoID++
		m.mu.Unlock()

		frame.Echo = &echo

		id, ok := m.sendFrame(ctx, frame, echo)
		if ok {
			logger.DebugCF("memo", "frame sent", map[string]any{"echo": echo})
			successIDs = append(successIDs, id)
		} else {
			logger.WarnCF("memo", "frame failed", map[string]any{"echo": echo})
		}
	}

	m.mu.Lock()
	for _, id := range successIDs {
		m.messageChunk[id] = successIDs
	}
	m.mu.Unlock()

	if len(successIDs) == 0 {
		job.reply <- batchOutcome{ok: false}
		return
	}
	job.reply <- batchOutcome{messageID: successIDs[0], ok: true}
}

func (m *MessageMemo) sendFrame(ctx context.Context, frame model.MkIXPostMessage, echo int) (string, bool) {
	if frame.Type == "file" || frame.Type == "audio" {
		return m.sendFileFrame(ctx, frame)
	}
	return m.sendWSFrame(ctx, frame, echo)
}

func (m *MessageMemo) sendFileFrame(ctx context.Context, frame model.MkIXPostMessage) (string, bool) {
	var content string
	if frame.Payload != nil {
		content = frame.Payload.Content
	}
	res, err := m.api.PostFile(ctx, frame.Group, frame.GroupType, frame.Type, []byte(content))
	if err != nil {
		logger.WarnCF("memo", "upload failed", map[string]any{"error": err.Error()})
		return "", false
	}
	return res.Time, true
}

func (m *MessageMemo) sendWSFrame(ctx context.Context, frame model.MkIXPostMessage, echo int) (string, bool) {
	if err := m.maybeEncrypt(&frame); err != nil {
		logger.WarnCF("memo", "encrypt failed", map[string]any{"error": err.Error()})
		return "", false
	}

	wait := make(chan string, 1)
	m.mu.Lock()
	m.waitEcho[echo] = wait
	m.mu.Unlock()

	data, err := json.Marshal(frame)
	if err != nil {
		m.mu.Lock()
		delete(m.waitEcho, echo)
		m.mu.Unlock()
		return "", false
	}
	go func() {
		if err := m.sender.Send(data); err != nil {
			logger.WarnCF("memo", "ws send failed", map[string]any{"error": err.Error()})
		}
	}()

	timeout := frameTimeout(frame.Type)
	select {
	case t := <-wait:
		return t, true
	case <-time.After(timeout):
		m.mu.Lock()
		delete(m.waitEcho, echo)
		m.mu.Unlock()
		return "", false
	case <-ctx.Done():
		m.mu.Lock()
		delete(m.waitEcho, echo)
		m.mu.Unlock()
		return "", false
	}
}

func frameTimeout(frameType string) time.Duration {
	switch frameType {
	case "text", "revokeRequest":
		return time.Second
	case "image":
		return 3 * time.Second
	default:
		return 10 * time.Second
	}
}

// maybeEncrypt re-encodes frame's payload content as AES-CBC ciphertext
// when its group has a configured encryption key and its type is
// text/image, per the bridge's encryption invariant.
func (m *MessageMemo) maybeEncrypt(frame *model.MkIXPostMessage) error {
	if frame.Payload == nil || (frame.Type != "text" && frame.Type != "image") {
		return nil
	}
	key, ok := m.cfg.EncryptKeyFor(frame.Group)
	if !ok {
		return nil
	}

	ciphertext, ivHex, err := encryptBody([]byte(frame.Payload.Content), key)
	if err != nil {
		return err
	}

	meta := frame.Payload.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	meta["encrypt"] = true
	meta["iv"] = ivHex

	frame.Payload = &model.MkIXMessagePayload{
		Name:    frame.Payload.Name,
		Size:    frame.Payload.Size,
		Content: ciphertext,
		Meta:    meta,
	}
	return nil
}
