// Package classify turns inbound MkIX frames into OneBot v11 events,
// porting the Python bridge's event_mapping decision tree: a message is
// classified as message/notice/request/meta_event depending on its
// isSystemMessage flag, its type, and whether its group is one the bot
// currently belongs to.
package classify

import (
	"encoding/json"
	"fmt"

	"github.com/mkixbridge/bridge/pkg/config"
	"github.com/mkixbridge/bridge/pkg/logger"
	"github.com/mkixbridge/bridge/pkg/memo"
	"github.com/mkixbridge/bridge/pkg/mkerr"
	"github.com/mkixbridge/bridge/pkg/model"
	"github.com/mkixbridge/bridge/pkg/profile"
)

// pendingReview is the MkIX state string a join/friend request carries
// while awaiting approval.
const pendingReview = "等待审核"

// Classifier converts raw MkIX frames into OneBot event payloads. The
// OneBot self_id it reports is always the bot's own MkIX uuid.
type Classifier struct {
	cfg        *config.Config
	profile    *profile.MyProfile
	messages   *memo.MessageMemo
	requests   *memo.RequestMemo
	launchTime string
}

// New builds a Classifier. launchTime is the bridge's own start
// timestamp (as a MkIX time string): chat frames sent before the bridge
// came up, or sent by the bot account itself, are dropped.
func New(cfg *config.Config, prof *profile.MyProfile, messages *memo.MessageMemo, requests *memo.RequestMemo, launchTime string) *Classifier {
	return &Classifier{
		cfg:        cfg,
		profile:    prof,
		messages:   messages,
		requests:   requests,
		launchTime: launchTime,
	}
}

func (c *Classifier) selfID() string {
	return c.profile.UUID
}

type envelope struct {
	IsSystemMessage bool   `json:"isSystemMessage"`
	SenderID        string `json:"senderID"`
	Time            string `json:"time"`
	Group           string `json:"group"`
}

// Classify decodes raw and returns the OneBot event payload it maps to,
// or nil if the frame should be dropped (an echo, an unrecognised
// notice, a frame predating launch, or the bot's own chat message).
func (c *Classifier) Classify(raw []byte) (map[string]any, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: decoding MkIX frame: %v", mkerr.ErrProtocol, err)
	}

	if env.IsSystemMessage {
		var sysMsg model.MkIXSystemMessage
		if err := json.Unmarshal(raw, &sysMsg); err != nil {
			return nil, fmt.Errorf("%w: decoding system message: %v", mkerr.ErrProtocol, err)
		}
		return c.handleSystemMessage(sysMsg)
	}

	var msg model.MkIXGetMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: decoding chat message: %v", mkerr.ErrProtocol, err)
	}

	var (
		event map[string]any
		err   error
	)
	if c.profile.HasGroup(msg.Group) {
		event, err = c.handleGroupMessage(msg)
	} else {
		event, err = c.handlePrivateMessage(msg)
	}
	if err != nil {
		return nil, err
	}

	if msg.Time < c.launchTime || msg.SenderID == c.profile.UUID {
		return nil, nil
	}
	return event, nil
}

func (c *Classifier) handleSystemMessage(msg model.MkIXSystemMessage) (map[string]any, error) {
	if msg.Type == "echo" {
		if err := c.messages.ReceiveEcho(msg); err != nil {
			logger.WarnCF("classify", "failed to resolve echo", map[string]any{"error": err.Error()})
		}
		return nil, nil
	}

	if msg.Type == "notice" {
		op, _ := msg.Meta["operation"].(string)
		switch op {
		case "friend_request_accepted":
			c.profile.AddFriend(varString(msg.Meta, "id"))
			return buildFriendAdd(msg, c.selfID()), nil
		case "group_admin_set", "group_admin_unset":
			return buildGroupAdmin(msg, c.selfID(), op), nil
		default:
			return nil, nil
		}
	}

	if msg.Type == "join" && msg.State == pendingReview {
		c.requests.Record(msg.Time, memo.GroupRequest, msg.Target)
		return buildGroupRequest(msg, c.selfID()), nil
	}
	if msg.Type == "friend" && msg.State == pendingReview {
		c.requests.Record(msg.Time, memo.FriendRequest, msg.SenderID)
		return buildFriendRequest(msg, c.selfID()), nil
	}
	return nil, nil
}

func (c *Classifier) handleGroupMessage(msg model.MkIXGetMessage) (map[string]any, error) {
	switch msg.Type {
	case "system":
		op, _ := msg.Payload.Meta["operation"].(string)
		switch op {
		case "group_joined":
			if varString(msg.Payload.Meta, "id") == c.profile.UUID {
				c.profile.AddGroup(msg.Group)
			}
			return buildGroupIncrease(msg, c.selfID()), nil
		case "group_ban", "group_lift_ban":
			return buildGroupBan(msg, c.selfID(), op), nil
		case "group_kick", "group_leave":
			if op == "group_kick" && varString(msg.Payload.Meta, "id") == c.selfID() {
				c.profile.RemoveGroup(msg.Group)
			} else if op == "group_leave" && msg.SenderID == c.profile.UUID {
				c.profile.RemoveGroup(msg.Group)
			}
			return buildGroupDecrease(msg, c.selfID(), op)
		default:
			return nil, nil
		}
	case "file":
		return buildGroupFileUpload(msg, c.selfID()), nil
	case "revoke":
		return buildGroupRecall(msg, c.selfID()), nil
	default:
		if err := c.decrypt(&msg); err != nil {
			return nil, nil
		}
		c.messages.ReceiveChat(msg, "group")
		return c.buildGroupChat(msg)
	}
}

func (c *Classifier) handlePrivateMessage(msg model.MkIXGetMessage) (map[string]any, error) {
	switch msg.Type {
	case "system":
		return nil, nil
	case "file":
		return buildGroupFileUpload(msg, c.selfID()), nil
	case "revoke":
		return buildFriendRecall(msg, c.selfID()), nil
	default:
		if err := c.decrypt(&msg); err != nil {
			return nil, nil
		}
		c.messages.ReceiveChat(msg, "friend")
		return c.buildPrivateChat(msg)
	}
}

// decrypt reverses MessageMemo's AES-CBC encryption when the payload's
// meta marks it encrypted, in place. A message encrypted for a group
// with no configured key is reported as an error so the caller can
// drop it, matching the original bridge's silent-drop behaviour.
func (c *Classifier) decrypt(msg *model.MkIXGetMessage) error {
	encrypted, _ := msg.Payload.Meta["encrypt"].(bool)
	if !encrypted {
		return nil
	}

	key, ok := c.cfg.EncryptKeyFor(msg.Group)
	if !ok {
		return fmt.Errorf("%w: no encryption key configured for group %s", mkerr.ErrCrypto, msg.Group)
	}

	ivHex, _ := msg.Payload.Meta["iv"].(string)
	plaintext, err := memo.DecryptBody(msg.Payload.Content, ivHex, key)
	if err != nil {
		return err
	}
	msg.Payload.Content = plaintext
	return nil
}

func varString(meta map[string]any, key string) string {
	return fmt.Sprint(metaVarValue(meta, key))
}

// metaVarString reads a string field out of meta["var"], tolerating a
// missing or non-map "var" rather than panicking.
func metaVarString(meta map[string]any, key string) string {
	s, _ := metaVarValue(meta, key).(string)
	return s
}

// metaVarValue reads any field out of meta["var"].
func metaVarValue(meta map[string]any, key string) any {
	v, ok := meta["var"].(map[string]any)
	if !ok {
		return nil
	}
	return v[key]
}
