// Package dispatch turns a decoded OneBot action request into MkIX
// side effects, porting the Python bridge's action_mapping: one struct
// per action name, parsed out of the action's params and then invoked
// against the bridge's dependencies.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mkixbridge/bridge/pkg/memo"
	"github.com/mkixbridge/bridge/pkg/mkerr"
	"github.com/mkixbridge/bridge/pkg/mkixapi"
	"github.com/mkixbridge/bridge/pkg/model"
)

// Deps bundles everything an Action needs to run.
type Deps struct {
	API       *mkixapi.Client
	Messages  *memo.MessageMemo
	Requests  *memo.RequestMemo
	SelfID    string
	MkIXAlive func(ctx context.Context) bool
}

// Action is one OneBot action request, ready to run against Deps.
type Action interface {
	Dispatch(ctx context.Context, deps *Deps) (any, error)
}

type constructor func(params json.RawMessage) (Action, error)

var registry = map[string]constructor{
	"send_private_msg": newTyped(func() *SendPrivateMsg { return &SendPrivateMsg{} }),
	"send_group_msg":   newTyped(func() *SendGroupMsg { return &SendGroupMsg{} }),
	"send_msg":         newTyped(func() *SendMsg { return &SendMsg{} }),
	"delete_msg":       newTyped(func() *DeleteMsg { return &DeleteMsg{} }),

	"set_group_kick":          newTyped(func() *SetGroupKick { return &SetGroupKick{} }),
	"set_group_ban":           newTyped(func() *SetGroupBan { return &SetGroupBan{Duration: 30 * 60} }),
	"set_group_admin":         newTyped(func() *SetGroupAdmin { return &SetGroupAdmin{Enable: true} }),
	"set_group_name":          newTyped(func() *SetGroupName { return &SetGroupName{} }),
	"set_group_leave":         newTyped(func() *SetGroupLeave { return &SetGroupLeave{} }),
	"set_friend_add_request":  newTyped(func() *SetFriendAddRequest { return &SetFriendAddRequest{Approve: true} }),
	"set_group_add_request":   newTyped(func() *SetGroupAddRequest { return &SetGroupAddRequest{Approve: true} }),

	"get_login_info":         newTyped(func() *GetLoginInfo { return &GetLoginInfo{} }),
	"get_stranger_info":      newTyped(func() *GetStrangerInfo { return &GetStrangerInfo{} }),
	"get_friend_list":        newTyped(func() *GetFriendList { return &GetFriendList{} }),
	"get_group_info":         newTyped(func() *GetGroupInfo { return &GetGroupInfo{} }),
	"get_group_list":         newTyped(func() *GetGroupList { return &GetGroupList{} }),
	"get_group_member_info":  newTyped(func() *GetGroupMemberInfo { return &GetGroupMemberInfo{} }),
	"get_group_member_list":  newTyped(func() *GetGroupMemberList { return &GetGroupMemberList{} }),
	"get_record":             newTyped(func() *GetRecord { return &GetRecord{} }),
	"get_image":              newTyped(func() *GetImage { return &GetImage{} }),
	"get_status":             newTyped(func() *GetStatus { return &GetStatus{} }),
	"get_version_info":       newTyped(func() *GetVersionInfo { return &GetVersionInfo{} }),

	"send_group_forward_msg":   newTyped(func() *SendGroupForwardMsg { return &SendGroupForwardMsg{} }),
	"send_private_forward_msg": newTyped(func() *SendPrivateForwardMsg { return &SendPrivateForwardMsg{} }),
}

// newTyped adapts a zero-value factory into the registry's untyped
// constructor signature, decoding params straight into the concrete type.
func newTyped[T Action](zero func() T) constructor {
	return func(params json.RawMessage) (Action, error) {
		action := zero()
		if len(params) > 0 {
			if err := json.Unmarshal(params, action); err != nil {
				return nil, fmt.Errorf("%w: decoding params: %v", mkerr.ErrUsage, err)
			}
		}
		return action, nil
	}
}

// ParseAction resolves data.Action in the registry and decodes data.Params
// into the matching Action. An unrecognised action name is a usage_error.
func ParseAction(data model.OB11ActionData) (Action, error) {
	build, ok := registry[data.Action]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported action %q", mkerr.ErrUsage, data.Action)
	}
	return build(data.Params)
}
