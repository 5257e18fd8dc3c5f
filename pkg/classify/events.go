package classify

import (
	"fmt"

	"github.com/mkixbridge/bridge/pkg/cqcode"
	"github.com/mkixbridge/bridge/pkg/mkerr"
	"github.com/mkixbridge/bridge/pkg/model"
)

func (c *Classifier) buildPrivateChat(msg model.MkIXGetMessage) (map[string]any, error) {
	array, err := cqcode.Serialize(msg, c.cfg, "friend")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"time":           msg.Time,
		"self_id":        c.selfID(),
		"post_type":      "message",
		"message_type":   "private",
		"sub_type":       "friend",
		"message_id":     msg.Time,
		"user_id":        msg.SenderID,
		"message":        array,
		"raw_message":    cqcode.SerializeString(array),
		"message_format": "array",
		"font":           -1,
		"sender":         map[string]any{"user_id": msg.SenderID},
	}, nil
}

func (c *Classifier) buildGroupChat(msg model.MkIXGetMessage) (map[string]any, error) {
	array, err := cqcode.Serialize(msg, c.cfg, "group")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"time":           msg.Time,
		"self_id":        c.selfID(),
		"post_type":      "message",
		"message_type":   "group",
		"sub_type":       "normal",
		"message_id":     msg.Time,
		"group_id":       msg.Group,
		"user_id":        msg.SenderID,
		"anonymous":      nil,
		"message":        array,
		"raw_message":    cqcode.SerializeString(array),
		"message_format": "array",
		"font":           -1,
		"sender":         map[string]any{"user_id": msg.SenderID},
	}, nil
}

func buildGroupFileUpload(msg model.MkIXGetMessage, selfID string) map[string]any {
	return map[string]any{
		"time":        msg.Time,
		"self_id":     selfID,
		"post_type":   "notice",
		"notice_type": "group_upload",
		"group_id":    msg.Group,
		"user_id":     msg.SenderID,
		"file": map[string]any{
			"id":    msg.Payload.Content,
			"name":  msg.Payload.Name,
			"size":  msg.Payload.Size,
			"busid": 0,
		},
	}
}

func buildGroupAdmin(msg model.MkIXSystemMessage, selfID, op string) map[string]any {
	subType := "unset"
	if op == "group_admin_set" {
		subType = "set"
	}
	return map[string]any{
		"time":        msg.Time,
		"self_id":     selfID,
		"post_type":   "notice",
		"notice_type": "group_admin",
		"sub_type":    subType,
		"group_id":    varString(msg.Meta, "id"),
		"user_id":     selfID,
	}
}

func buildGroupDecrease(msg model.MkIXGetMessage, selfID, op string) (map[string]any, error) {
	var subType string
	switch op {
	case "group_leave":
		subType = "leave"
	case "group_kick":
		if varString(msg.Payload.Meta, "id") == selfID {
			subType = "kick_me"
		} else {
			subType = "kick"
		}
	default:
		return nil, fmt.Errorf("%w: unknown group_decrease operation %q", mkerr.ErrProtocol, op)
	}

	return map[string]any{
		"time":        msg.Time,
		"self_id":     selfID,
		"post_type":   "notice",
		"notice_type": "group_decrease",
		"sub_type":    subType,
		"group_id":    msg.Group,
		"operator_id": varString(msg.Payload.Meta, "operator"),
		"user_id":     varString(msg.Payload.Meta, "id"),
	}, nil
}

func buildGroupIncrease(msg model.MkIXGetMessage, selfID string) map[string]any {
	subType := "invite"
	if metaVarString(msg.Payload.Meta, "way") == "request" {
		subType = "approve"
	}
	return map[string]any{
		"time":        msg.Time,
		"self_id":     selfID,
		"post_type":   "notice",
		"notice_type": "group_increase",
		"sub_type":    subType,
		"group_id":    msg.Group,
		"operator_id": varString(msg.Payload.Meta, "operator"),
		"user_id":     varString(msg.Payload.Meta, "id"),
	}
}

func buildGroupBan(msg model.MkIXGetMessage, selfID, op string) map[string]any {
	subType := "lift_ban"
	if op == "group_ban" {
		subType = "ban"
	}
	return map[string]any{
		"time":        msg.Time,
		"self_id":     selfID,
		"post_type":   "notice",
		"notice_type": "group_ban",
		"sub_type":    subType,
		"group_id":    msg.Group,
		"operator_id": varString(msg.Payload.Meta, "operator"),
		"user_id":     varString(msg.Payload.Meta, "id"),
		"duration":    metaVarValue(msg.Payload.Meta, "duration"),
	}
}

func buildFriendAdd(msg model.MkIXSystemMessage, selfID string) map[string]any {
	return map[string]any{
		"time":        msg.Time,
		"self_id":     selfID,
		"post_type":   "notice",
		"notice_type": "friend_add",
		"user_id":     varString(msg.Meta, "id"),
	}
}

func buildGroupRecall(msg model.MkIXGetMessage, selfID string) map[string]any {
	return map[string]any{
		"time":        msg.Time,
		"self_id":     selfID,
		"post_type":   "notice",
		"notice_type": "group_recall",
		"group_id":    msg.Group,
		"user_id":     varString(msg.Payload.Meta, "sender"),
		"operator_id": msg.SenderID,
		"message_id":  varString(msg.Payload.Meta, "time"),
	}
}

func buildFriendRecall(msg model.MkIXGetMessage, selfID string) map[string]any {
	return map[string]any{
		"time":        msg.Time,
		"self_id":     selfID,
		"post_type":   "notice",
		"notice_type": "friend_recall",
		"user_id":     msg.Group,
		"message_id":  varString(msg.Payload.Meta, "time"),
	}
}

func buildFriendRequest(msg model.MkIXSystemMessage, selfID string) map[string]any {
	return map[string]any{
		"time":         msg.Time,
		"self_id":      selfID,
		"post_type":    "request",
		"request_type": "friend",
		"user_id":      msg.SenderID,
		"comment":      msg.Payload,
		"flag":         msg.Time,
	}
}

func buildGroupRequest(msg model.MkIXSystemMessage, selfID string) map[string]any {
	return map[string]any{
		"time":         msg.Time,
		"self_id":      selfID,
		"post_type":    "request",
		"request_type": "group",
		"sub_type":     "add",
		"group_id":     msg.Target,
		"user_id":      msg.SenderID,
		"comment":      msg.Payload,
		"flag":         msg.Time,
	}
}
