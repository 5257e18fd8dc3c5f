package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mkixbridge/bridge/pkg/cqcode"
	"github.com/mkixbridge/bridge/pkg/mkerr"
	"github.com/mkixbridge/bridge/pkg/model"
)

// rawMessage decodes a OneBot "message" field, which is either a plain
// CQ-code string or an already-parsed segment array.
type rawMessage struct {
	segments []model.CQDataListItem
	text     string
	isArray  bool
}

func (r *rawMessage) UnmarshalJSON(data []byte) error {
	var segments []model.CQDataListItem
	if err := json.Unmarshal(data, &segments); err == nil {
		r.segments = segments
		r.isArray = true
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("%w: message must be a string or segment array", mkerr.ErrUsage)
	}
	r.text = text
	return nil
}

func (r rawMessage) deserialize() ([]model.MkIXPostMessage, error) {
	if r.isArray {
		return cqcode.Deserialize(r.segments, false)
	}
	return cqcode.Deserialize(r.text, false)
}

func applyTarget(frames []model.MkIXPostMessage, group, groupType string) []model.MkIXPostMessage {
	for i := range frames {
		frames[i].Group = group
		frames[i].GroupType = groupType
	}
	return frames
}

func postAndReply(ctx context.Context, deps *Deps, frames []model.MkIXPostMessage) (any, error) {
	id, err := deps.Messages.PostMessages(ctx, frames)
	if err != nil {
		return nil, err
	}
	return map[string]any{"message_id": id}, nil
}

// SendPrivateMsg sends message to user_id as a private chat.
type SendPrivateMsg struct {
	UserID  string     `json:"user_id"`
	Message rawMessage `json:"message"`
}

func (a *SendPrivateMsg) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	frames, err := a.Message.deserialize()
	if err != nil {
		return nil, err
	}
	return postAndReply(ctx, deps, applyTarget(frames, fmt.Sprint(a.UserID), "friend"))
}

// SendGroupMsg sends message to group_id.
type SendGroupMsg struct {
	GroupID string     `json:"group_id"`
	Message rawMessage `json:"message"`
}

func (a *SendGroupMsg) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	frames, err := a.Message.deserialize()
	if err != nil {
		return nil, err
	}
	return postAndReply(ctx, deps, applyTarget(frames, fmt.Sprint(a.GroupID), "group"))
}

// SendMsg sends message to whichever of group_id/user_id is set,
// preferring an explicit message_type when given.
type SendMsg struct {
	MessageType string     `json:"message_type"`
	UserID      string     `json:"user_id"`
	GroupID     string     `json:"group_id"`
	Message     rawMessage `json:"message"`
}

func (a *SendMsg) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	groupType := ""
	switch a.MessageType {
	case "group":
		groupType = "group"
	case "private":
		groupType = "friend"
	default:
		if a.GroupID != "" {
			groupType = "group"
		} else if a.UserID != "" {
			groupType = "friend"
		}
	}
	groupID := a.UserID
	if groupType == "group" {
		groupID = a.GroupID
	}

	frames, err := a.Message.deserialize()
	if err != nil {
		return nil, err
	}
	return postAndReply(ctx, deps, applyTarget(frames, groupID, groupType))
}

// DeleteMsg revokes every MkIX message that message_id expanded into.
type DeleteMsg struct {
	MessageID string `json:"message_id"`
}

func (a *DeleteMsg) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	groupType, groupID, messages, err := deps.Messages.GetStorage(a.MessageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mkerr.ErrNotFound, err)
	}

	postGroupType := "group"
	if groupType == "friend" {
		postGroupType = "friend"
	}

	frames := make([]model.MkIXPostMessage, 0, len(messages))
	for _, id := range messages {
		frames = append(frames, model.MkIXPostMessage{
			Type:      "revokeRequest",
			Group:     groupID,
			GroupType: postGroupType,
			Payload:   &model.MkIXMessagePayload{Content: id},
		})
	}
	return postAndReply(ctx, deps, frames)
}

// SetGroupKick removes user_id from group_id.
type SetGroupKick struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

func (a *SetGroupKick) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return nil, deps.API.GroupKick(ctx, a.GroupID, a.UserID)
}

// SetGroupBan mutes user_id in group_id for duration seconds.
type SetGroupBan struct {
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	Duration int    `json:"duration"`
}

func (a *SetGroupBan) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return nil, deps.API.GroupBan(ctx, a.GroupID, a.UserID, a.Duration)
}

// SetGroupAdmin grants or revokes user_id's admin role in group_id.
type SetGroupAdmin struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	Enable  bool   `json:"enable"`
}

func (a *SetGroupAdmin) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return nil, deps.API.GroupAdmin(ctx, a.GroupID, a.UserID, a.Enable)
}

// SetGroupName renames group_id.
type SetGroupName struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
}

func (a *SetGroupName) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return nil, deps.API.GroupName(ctx, a.GroupID, a.GroupName)
}

// SetGroupLeave leaves (or dismisses) group_id.
type SetGroupLeave struct {
	GroupID   string `json:"group_id"`
	IsDismiss bool   `json:"is_dismiss"`
}

func (a *SetGroupLeave) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return nil, deps.API.GroupLeave(ctx, a.GroupID, a.IsDismiss)
}

// SetFriendAddRequest approves or rejects a pending friend request,
// resolving flag back to the requester via the request memo.
type SetFriendAddRequest struct {
	Flag    string `json:"flag"`
	Approve bool   `json:"approve"`
	Remark  string `json:"remark"`
}

func (a *SetFriendAddRequest) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	req, ok := deps.Requests.Resolve(a.Flag)
	if !ok {
		return nil, fmt.Errorf("%w: unknown request flag %q", mkerr.ErrNotFound, a.Flag)
	}
	return nil, deps.API.FriendAddRequest(ctx, req.ID, a.Flag, a.Approve)
}

// SetGroupAddRequest approves or rejects a pending group join request.
type SetGroupAddRequest struct {
	Flag    string `json:"flag"`
	SubType string `json:"sub_type"`
	Type    string `json:"type"`
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

func (a *SetGroupAddRequest) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	req, ok := deps.Requests.Resolve(a.Flag)
	if !ok {
		return nil, fmt.Errorf("%w: unknown request flag %q", mkerr.ErrNotFound, a.Flag)
	}
	return nil, deps.API.GroupAddRequest(ctx, req.ID, a.Flag, a.Approve)
}

// GetLoginInfo reports the bot's own identity.
type GetLoginInfo struct{}

func (a *GetLoginInfo) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return deps.API.LoginInfo(ctx)
}

// GetStrangerInfo reports a third party's public profile.
type GetStrangerInfo struct {
	UserID string `json:"user_id"`
}

func (a *GetStrangerInfo) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return deps.API.StrangerInfo(ctx, a.UserID)
}

// GetFriendList reports the bot's friend list.
type GetFriendList struct{}

func (a *GetFriendList) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return deps.API.FriendList(ctx)
}

// GetGroupInfo reports group_id's metadata.
type GetGroupInfo struct {
	GroupID string `json:"group_id"`
}

func (a *GetGroupInfo) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return deps.API.GroupInfo(ctx, a.GroupID)
}

// GetGroupList reports the bot's group list.
type GetGroupList struct{}

func (a *GetGroupList) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return deps.API.GroupList(ctx)
}

// GetGroupMemberInfo reports user_id's role within group_id.
type GetGroupMemberInfo struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

func (a *GetGroupMemberInfo) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return deps.API.GroupMemberInfo(ctx, a.GroupID, a.UserID)
}

// GetGroupMemberList reports group_id's full roster.
type GetGroupMemberList struct {
	GroupID string `json:"group_id"`
}

func (a *GetGroupMemberList) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return deps.API.GroupMemberList(ctx, a.GroupID)
}

// GetRecord downloads file and returns its local path.
type GetRecord struct {
	File      string `json:"file"`
	OutFormat string `json:"out_format"`
}

func (a *GetRecord) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	path, err := deps.API.Record(ctx, a.File)
	if err != nil {
		return nil, err
	}
	return map[string]any{"file": path}, nil
}

// GetImage materializes a base64:// image file to disk and returns its path.
type GetImage struct {
	File      string `json:"file"`
	OutFormat string `json:"out_format"`
}

func (a *GetImage) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	path, err := deps.API.Image(a.File)
	if err != nil {
		return nil, err
	}
	return map[string]any{"file": path}, nil
}

// GetStatus reports link liveness.
type GetStatus struct{}

func (a *GetStatus) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return deps.API.Status(ctx, deps.MkIXAlive), nil
}

// GetVersionInfo reports the bridge's static version identity.
type GetVersionInfo struct{}

func (a *GetVersionInfo) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	return deps.API.VersionInfo(), nil
}

// forwardNode is one go-cqhttp forward-message node; only its inner
// message content is used, matching the upstream bridge's own flattening.
type forwardNode struct {
	Data struct {
		Content rawMessage `json:"content"`
	} `json:"data"`
}

func deserializeForward(nodes []forwardNode) ([]model.MkIXPostMessage, error) {
	var frames []model.MkIXPostMessage
	for _, n := range nodes {
		f, err := n.Data.Content.deserialize()
		if err != nil {
			return nil, err
		}
		frames = append(frames, f...)
	}
	return frames, nil
}

// SendGroupForwardMsg sends a forward-message node list to group_id.
type SendGroupForwardMsg struct {
	GroupID  string        `json:"group_id"`
	Messages []forwardNode `json:"messages"`
}

func (a *SendGroupForwardMsg) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	frames, err := deserializeForward(a.Messages)
	if err != nil {
		return nil, err
	}
	return postAndReply(ctx, deps, applyTarget(frames, a.GroupID, "group"))
}

// SendPrivateForwardMsg sends a forward-message node list to user_id.
type SendPrivateForwardMsg struct {
	UserID   string        `json:"user_id"`
	Messages []forwardNode `json:"messages"`
}

func (a *SendPrivateForwardMsg) Dispatch(ctx context.Context, deps *Deps) (any, error) {
	frames, err := deserializeForward(a.Messages)
	if err != nil {
		return nil, err
	}
	return postAndReply(ctx, deps, applyTarget(frames, a.UserID, "friend"))
}
