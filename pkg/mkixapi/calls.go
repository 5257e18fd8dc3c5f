package mkixapi

import (
	"context"
	"fmt"
	"net/url"
)

// LoginResult is the raw response from the password-grant token endpoint.
type LoginResult struct {
	Token string `json:"access_token"`
}

// Login exchanges account/password for a bearer token.
func (c *Client) Login(ctx context.Context) (*LoginResult, error) {
	res, err := c.do(ctx, "POST", c.buildURL("v1/user/token", url.Values{"isBot": {"true"}}), requestOpts{
		headers: map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		body:    fmt.Sprintf("grant_type=password&username=%s&password=%s", c.cfg.Account, c.cfg.Password),
	})
	if err != nil {
		return nil, err
	}
	var out LoginResult
	if err := decode(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WSTokenResult carries the short-lived token used to open the MkIX WS link.
type WSTokenResult struct {
	Token string `json:"token"`
}

func (c *Client) WSToken(ctx context.Context) (*WSTokenResult, error) {
	res, err := c.do(ctx, "GET", c.buildURL("v1/user/wsToken", url.Values{"device": {device}}), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
	})
	if err != nil {
		return nil, err
	}
	var out WSTokenResult
	if err := decode(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyProfileResult is the bot's own profile as returned by MkIX.
type MyProfileResult struct {
	UUID       string            `json:"uuid"`
	Username   string            `json:"username"`
	Bio        string            `json:"bio"`
	LastUpdate string            `json:"lastUpdate"`
	Groups     []string          `json:"groups"`
	Friends    []UserRef         `json:"friends"`
	GroupRefs  []GroupRef        `json:"groupRefs,omitempty"`
	Extra      map[string]string `json:"-"`
}

// UserRef is a minimal user reference embedded in list responses.
type UserRef struct {
	UUID string `json:"uuid"`
}

// GroupRef is a minimal group reference embedded in list responses.
type GroupRef struct {
	Group string `json:"group"`
}

func (c *Client) GetMyProfile(ctx context.Context) (*MyProfileResult, error) {
	res, err := c.do(ctx, "GET", c.buildURL("v1/user/profile/me", nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
	})
	if err != nil {
		return nil, err
	}
	var out MyProfileResult
	if err := decode(res, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostFileResult is the response to an upload, carrying the server-assigned
// message time (used as message_id by the rest of the bridge).
type PostFileResult struct {
	Time string `json:"time"`
}

func (c *Client) GroupKick(ctx context.Context, groupID, userID string) error {
	res, err := c.do(ctx, "DELETE", c.buildURL(fmt.Sprintf("v1/group/%s/members/%s", groupID, userID), nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
	})
	if err != nil {
		return err
	}
	return decode(res, nil)
}

// GroupBan bans or mutes a member for durationSec seconds.
func (c *Client) GroupBan(ctx context.Context, groupID, userID string, durationSec int) error {
	res, err := c.do(ctx, "POST", c.buildURL(fmt.Sprintf("v1/group/%s/members/%s/ban", groupID, userID), nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
		json:    map[string]int{"duration": durationSec},
	})
	if err != nil {
		return err
	}
	return decode(res, nil)
}

func (c *Client) GroupAdmin(ctx context.Context, groupID, userID string, enable bool) error {
	method := "DELETE"
	if enable {
		method = "POST"
	}
	res, err := c.do(ctx, method, c.buildURL(fmt.Sprintf("v1/group/%s/members/admin/%s", groupID, userID), nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
	})
	if err != nil {
		return err
	}
	return decode(res, nil)
}

func (c *Client) GroupName(ctx context.Context, groupID, name string) error {
	res, err := c.do(ctx, "PATCH", c.buildURL(fmt.Sprintf("v1/group/%s/info/name", groupID), nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
		json:    map[string]string{"name": name},
	})
	if err != nil {
		return err
	}
	return decode(res, nil)
}

func (c *Client) GroupLeave(ctx context.Context, groupID string, isDismiss bool) error {
	endpoint := fmt.Sprintf("v1/group/%s/members/me", groupID)
	if isDismiss {
		endpoint = fmt.Sprintf("v1/group/%s", groupID)
	}
	res, err := c.do(ctx, "DELETE", c.buildURL(endpoint, nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
	})
	if err != nil {
		return err
	}
	return decode(res, nil)
}

func (c *Client) FriendAddRequest(ctx context.Context, userID, flag string, approve bool) error {
	method := "DELETE"
	if approve {
		method = "POST"
	}
	res, err := c.do(ctx, method, c.buildURL(fmt.Sprintf("v1/user/%s/verify/request/%s", userID, flag), nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
	})
	if err != nil {
		return err
	}
	return decode(res, nil)
}

func (c *Client) GroupAddRequest(ctx context.Context, groupID, flag string, approve bool) error {
	method := "DELETE"
	if approve {
		method = "POST"
	}
	res, err := c.do(ctx, method, c.buildURL(fmt.Sprintf("v1/group/%s/verify/request/%s", groupID, flag), nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
	})
	if err != nil {
		return err
	}
	return decode(res, nil)
}

// LoginInfo normalizes the bot's own profile into OneBot's get_login_info shape.
func (c *Client) LoginInfo(ctx context.Context) (map[string]any, error) {
	profile, err := c.GetMyProfile(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"user_id":  profile.UUID,
		"nickname": profile.Username,
	}, nil
}

// StrangerInfo normalizes a third party's profile into OneBot's
// get_stranger_info shape.
func (c *Client) StrangerInfo(ctx context.Context, userID string) (map[string]any, error) {
	res, err := c.do(ctx, "GET", c.buildURL(fmt.Sprintf("v1/user/%s/profile", userID), nil), requestOpts{})
	if err != nil {
		return nil, err
	}
	var out struct {
		Username string `json:"username"`
		Avatar   string `json:"avatar"`
	}
	if err := decode(res, &out); err != nil {
		return nil, err
	}
	return map[string]any{
		"user_id":  userID,
		"nickname": out.Username,
		"sex":      "unknown",
		"age":      -1,
		"avatar":   out.Avatar,
	}, nil
}

// FriendList normalizes the bot's friend set into OneBot's get_friend_list shape.
func (c *Client) FriendList(ctx context.Context) ([]map[string]any, error) {
	profile, err := c.GetMyProfile(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(profile.Friends))
	for _, f := range profile.Friends {
		out = append(out, map[string]any{
			"user_id":  f.UUID,
			"nickname": "",
			"remark":   "",
		})
	}
	return out, nil
}

// GroupInfo normalizes group metadata into OneBot's get_group_info shape.
func (c *Client) GroupInfo(ctx context.Context, groupID string) (map[string]any, error) {
	res0, err := c.do(ctx, "GET", c.buildURL(fmt.Sprintf("v1/group/%s/info", groupID), nil), requestOpts{})
	if err != nil {
		return nil, err
	}
	var info struct {
		Name string `json:"name"`
	}
	if err := decode(res0, &info); err != nil {
		return nil, err
	}

	res1, err := c.do(ctx, "GET", c.buildURL(fmt.Sprintf("v1/group/%s/members", groupID), nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
	})
	if err != nil {
		return nil, err
	}
	var members struct {
		Users []UserRef `json:"users"`
	}
	if err := decode(res1, &members); err != nil {
		return nil, err
	}

	return map[string]any{
		"group_id":         groupID,
		"group_name":       info.Name,
		"member_count":     len(members.Users),
		"max_member_count": 2000,
	}, nil
}

// GroupList normalizes the bot's group set into OneBot's get_group_list shape.
func (c *Client) GroupList(ctx context.Context) ([]map[string]any, error) {
	profile, err := c.GetMyProfile(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(profile.Groups))
	for _, g := range profile.Groups {
		out = append(out, map[string]any{
			"group_id":         g,
			"group_name":       "",
			"member_count":     -1,
			"max_member_count": -1,
		})
	}
	return out, nil
}

type groupAdminList struct {
	Admin []UserRef `json:"admin"`
	Owner UserRef   `json:"owner"`
}

func memberRole(admins map[string]struct{}, owner, userID string) string {
	switch {
	case userID == owner:
		return "owner"
	case func() bool { _, ok := admins[userID]; return ok }():
		return "admin"
	default:
		return "member"
	}
}

func baseMember(groupID, userID, role string) map[string]any {
	return map[string]any{
		"group_id":          groupID,
		"user_id":           userID,
		"nick_name":         "",
		"card":              "",
		"sex":               "",
		"age":               -1,
		"area":              "",
		"join_time":         -1,
		"last_sent_time":    -1,
		"level":             "",
		"role":              role,
		"unfriendly":        "",
		"title":             "",
		"title_expire_time": -1,
		"card_changeable":   false,
	}
}

// GroupMemberInfo normalizes a single member's role into OneBot's
// get_group_member_info shape.
func (c *Client) GroupMemberInfo(ctx context.Context, groupID, userID string) (map[string]any, error) {
	res, err := c.do(ctx, "GET", c.buildURL(fmt.Sprintf("v1/group/%s/members/admin", groupID), nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
	})
	if err != nil {
		return nil, err
	}
	var admins groupAdminList
	if err := decode(res, &admins); err != nil {
		return nil, err
	}

	adminSet := map[string]struct{}{}
	for _, a := range admins.Admin {
		adminSet[a.UUID] = struct{}{}
	}
	return baseMember(groupID, userID, memberRole(adminSet, admins.Owner.UUID, userID)), nil
}

// GroupMemberList normalizes the full member roster into OneBot's
// get_group_member_list shape.
func (c *Client) GroupMemberList(ctx context.Context, groupID string) ([]map[string]any, error) {
	res0, err := c.do(ctx, "GET", c.buildURL(fmt.Sprintf("v1/group/%s/members", groupID), nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
	})
	if err != nil {
		return nil, err
	}
	var members struct {
		Members []UserRef `json:"members"`
	}
	if err := decode(res0, &members); err != nil {
		return nil, err
	}

	res1, err := c.do(ctx, "GET", c.buildURL(fmt.Sprintf("v1/group/%s/members/admin", groupID), nil), requestOpts{
		headers: map[string]string{"Authorization": c.authHeader()},
	})
	if err != nil {
		return nil, err
	}
	var admins groupAdminList
	if err := decode(res1, &admins); err != nil {
		return nil, err
	}

	adminSet := map[string]struct{}{}
	for _, a := range admins.Admin {
		adminSet[a.UUID] = struct{}{}
	}

	out := make([]map[string]any, 0, len(members.Members))
	for _, m := range members.Members {
		out = append(out, baseMember(groupID, m.UUID, memberRole(adminSet, admins.Owner.UUID, m.UUID)))
	}
	return out, nil
}

// Status reports link liveness via the caller-supplied liveness probe.
func (c *Client) Status(ctx context.Context, linkAlive func(context.Context) bool) map[string]any {
	up := linkAlive(ctx)
	return map[string]any{"online": up, "good": up}
}

// VersionInfo is a static identity for get_version_info.
func (c *Client) VersionInfo() map[string]any {
	return map[string]any{
		"app_name":         "MkXI",
		"app_version":      "1.0.0",
		"protocol_version": "v11",
	}
}

// PollFriendRequests asks MkIX to (re)deliver any pending friend requests
// for the bot account over the WS link. Fire-and-forget: failures are not
// surfaced to the caller, matching the upstream API's own behaviour.
func (c *Client) PollFriendRequests(ctx context.Context) {
	go func() {
		res, err := c.do(ctx, "GET", c.buildURL(fmt.Sprintf("v1/user/%s/verify/request", c.cfg.Account), url.Values{"device": {device}}), requestOpts{
			headers: map[string]string{"Authorization": c.authHeader()},
		})
		if err == nil {
			res.Body.Close()
		}
	}()
}

// PollGroupRequests asks MkIX to (re)deliver pending join requests for group.
func (c *Client) PollGroupRequests(ctx context.Context, group string) {
	go func() {
		res, err := c.do(ctx, "GET", c.buildURL(fmt.Sprintf("v1/group/%s/verify/request", group), url.Values{"device": {device}}), requestOpts{
			headers: map[string]string{"Authorization": c.authHeader()},
		})
		if err == nil {
			res.Body.Close()
		}
	}()
}
