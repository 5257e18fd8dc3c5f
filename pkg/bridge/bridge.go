// Package bridge wires every other package together into the running
// protocol bridge: it logs in to MkIX, opens both WS links, and routes
// frames between the classifier and the action dispatcher.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mkixbridge/bridge/pkg/classify"
	"github.com/mkixbridge/bridge/pkg/config"
	"github.com/mkixbridge/bridge/pkg/dispatch"
	"github.com/mkixbridge/bridge/pkg/logger"
	"github.com/mkixbridge/bridge/pkg/memo"
	"github.com/mkixbridge/bridge/pkg/mkixapi"
	"github.com/mkixbridge/bridge/pkg/model"
	"github.com/mkixbridge/bridge/pkg/profile"
	"github.com/mkixbridge/bridge/pkg/wslink"
)

const actionTimeout = 30 * time.Second

// Bridge is one running instance of the MkIX <-> OneBot protocol bridge.
type Bridge struct {
	cfg *config.Config
	api *mkixapi.Client

	profile    *profile.MyProfile
	messages   *memo.MessageMemo
	requests   *memo.RequestMemo
	classifier *classify.Classifier

	mkix   *wslink.Session
	onebot *wslink.Session
}

// New builds a Bridge from cfg. Call Run to log in, open both links, and
// block until ctx is cancelled.
func New(cfg *config.Config) *Bridge {
	return &Bridge{
		cfg: cfg,
		api: mkixapi.New(cfg),
	}
}

func (b *Bridge) setUp(ctx context.Context) error {
	login, err := b.api.Login(ctx)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	b.cfg.Token = "Bearer " + login.Token

	myProfile, err := b.api.GetMyProfile(ctx)
	if err != nil {
		return fmt.Errorf("fetching own profile: %w", err)
	}

	groups := make([]string, 0, len(myProfile.Groups))
	groups = append(groups, myProfile.Groups...)
	friends := make([]string, 0, len(myProfile.Friends))
	for _, f := range myProfile.Friends {
		friends = append(friends, f.UUID)
	}

	b.profile = profile.New(myProfile.UUID, myProfile.Username, myProfile.Bio, myProfile.LastUpdate)
	b.profile.SetGroups(groups)
	b.profile.SetFriends(friends)

	launchTime := strconv.FormatInt(time.Now().UnixMilli(), 10)

	b.onebot = wslink.NewOneBotSession(b.cfg, b.profile.UUID, b.status, b.handleOneBotFrame)
	b.mkix = wslink.NewMkIXSession(b.cfg, b.api, b.handleMkIXFrame)
	b.messages = memo.New(b.cfg, b.api, b.mkix)
	b.requests = memo.NewRequestMemo()
	b.classifier = classify.New(b.cfg, b.profile, b.messages, b.requests, launchTime)

	logger.InfoC("bridge", "set up success")
	return nil
}

func (b *Bridge) status(ctx context.Context) map[string]any {
	return b.api.Status(ctx, func(context.Context) bool { return b.mkix.Alive() })
}

// Run logs in, opens both links, and blocks running them until ctx is
// cancelled or set up fails.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.setUp(ctx); err != nil {
		return err
	}

	go b.messages.Run(ctx)
	go b.mkix.Run(ctx)
	go b.onebot.Run(ctx)

	<-ctx.Done()
	return ctx.Err()
}

// handleMkIXFrame classifies one raw MkIX frame and, if it maps to a
// OneBot event, forwards it on the OneBot link.
func (b *Bridge) handleMkIXFrame(data []byte) {
	event, err := b.classifier.Classify(data)
	if err != nil {
		logger.WarnCF("bridge", "failed to classify MkIX frame", map[string]any{"error": err.Error()})
		return
	}
	if event == nil {
		return
	}

	encoded, err := json.Marshal(event)
	if err != nil {
		logger.WarnCF("bridge", "failed to encode OneBot event", map[string]any{"error": err.Error()})
		return
	}
	if err := b.onebot.Send(encoded); err != nil {
		logger.WarnCF("bridge", "failed to deliver OneBot event", map[string]any{"error": err.Error()})
	}
}

// handleOneBotFrame decodes one raw OneBot action request, dispatches
// it, and replies on the OneBot link with its outcome.
func (b *Bridge) handleOneBotFrame(data []byte) {
	var req model.OB11ActionData
	if err := json.Unmarshal(data, &req); err != nil {
		logger.WarnCF("bridge", "failed to decode OneBot action", map[string]any{"error": err.Error()})
		return
	}

	reply := b.runAction(req)
	encoded, err := json.Marshal(reply)
	if err != nil {
		logger.WarnCF("bridge", "failed to encode OneBot reply", map[string]any{"error": err.Error()})
		return
	}
	if err := b.onebot.Send(encoded); err != nil {
		logger.WarnCF("bridge", "failed to deliver OneBot reply", map[string]any{"error": err.Error()})
	}
}

func (b *Bridge) runAction(req model.OB11ActionData) model.OB11Reply {
	action, err := dispatch.ParseAction(req)
	if err != nil {
		return failedReply(req.Echo, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	data, err := action.Dispatch(ctx, &dispatch.Deps{
		API:       b.api,
		Messages:  b.messages,
		Requests:  b.requests,
		SelfID:    b.profile.UUID,
		MkIXAlive: func(context.Context) bool { return b.mkix.Alive() },
	})
	if err != nil {
		return failedReply(req.Echo, err)
	}

	return model.OB11Reply{Status: "ok", Retcode: 0, Data: data, Echo: req.Echo}
}

func failedReply(echo json.RawMessage, err error) model.OB11Reply {
	logger.WarnCF("bridge", "action failed", map[string]any{"error": err.Error()})
	return model.OB11Reply{
		Status:  "failed",
		Retcode: 1400,
		Data:    map[string]any{"detail": err.Error()},
		Echo:    echo,
	}
}
