// Package cqcode translates between MkIX chat frames and OneBot's CQ-code
// message representation, in both the inline-string and segment-array
// encodings.
package cqcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mkixbridge/bridge/pkg/config"
	"github.com/mkixbridge/bridge/pkg/mkerr"
	"github.com/mkixbridge/bridge/pkg/model"
)

// Serialize converts one MkIX inbound frame into its OneBot segment-array
// form. file/audio frames require cfg and groupType to build the download
// URL; their absence is a usage_error.
func Serialize(msg model.MkIXGetMessage, cfg *config.Config, groupType string) ([]model.CQDataListItem, error) {
	var segments []model.CQDataListItem

	if at, ok := msg.Payload.Meta["at"]; ok {
		for _, id := range toStringSlice(at) {
			segments = append(segments, model.CQDataListItem{
				Type: "at",
				Data: map[string]any{"qq": id},
			})
		}
	}

	switch msg.Type {
	case "text":
		segments = append(segments, model.CQDataListItem{
			Type: "text",
			Data: map[string]any{"text": msg.Payload.Content},
		})
	case "image":
		segments = append(segments, model.CQDataListItem{
			Type: "image",
			Data: map[string]any{"file": msg.Payload.Content},
		})
	case "file", "audio":
		if cfg == nil || groupType == "" {
			return nil, fmt.Errorf("%w: file/audio serialization requires config and group_type", mkerr.ErrUsage)
		}
		kind := "user"
		if groupType == "group" {
			kind = "group"
		}
		downloadURL := fmt.Sprintf("%s/v1/%s/%s/download/%s", cfg.ServerURL, kind, msg.Group, msg.Payload.Content)
		segType := "file"
		if msg.Type == "audio" {
			segType = "record"
		}
		segments = append(segments, model.CQDataListItem{
			Type: segType,
			Data: map[string]any{"file": downloadURL},
		})
	default:
		return nil, fmt.Errorf("%w: unsupported MkIX frame type %q", mkerr.ErrUsage, msg.Type)
	}

	return segments, nil
}

// SerializeString renders segments as inline "[CQ:type,k=v,...]" markup,
// with plain text segments passed through verbatim.
func SerializeString(segments []model.CQDataListItem) string {
	var sb strings.Builder
	for _, seg := range segments {
		if seg.Type == "text" {
			sb.WriteString(fmt.Sprint(seg.Data["text"]))
			continue
		}
		sb.WriteString("[CQ:")
		sb.WriteString(seg.Type)
		for k, v := range seg.Data {
			sb.WriteString(fmt.Sprintf(",%s=%v", k, v))
		}
		sb.WriteString("]")
	}
	return sb.String()
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

var cqSegmentPattern = regexp.MustCompile(`(\[.*?])`)

// Deserialize turns OneBot input (a CQ-code string, or an already-parsed
// segment array) into the MkIX outbound frames it represents, merging
// adjacent plain-text runs. autoEscape forces a string input to be
// treated as one literal text segment, bypassing CQ-code parsing.
func Deserialize(data any, autoEscape bool) ([]model.MkIXPostMessage, error) {
	var segments []model.CQDataListItem

	switch v := data.(type) {
	case string:
		if autoEscape {
			return []model.MkIXPostMessage{{
				Type:    "text",
				Payload: &model.MkIXMessagePayload{Content: v},
			}}, nil
		}
		parsed, err := parseCQString(v)
		if err != nil {
			return nil, err
		}
		segments = parsed
	case []model.CQDataListItem:
		segments = v
	default:
		return nil, fmt.Errorf("%w: unsupported deserialize input type %T", mkerr.ErrUsage, data)
	}

	return resolveSegments(segments)
}

func parseCQString(s string) ([]model.CQDataListItem, error) {
	parts := cqSegmentPattern.Split(s, -1)
	matches := cqSegmentPattern.FindAllString(s, -1)

	var segments []model.CQDataListItem
	// regexp.Split interleaves: parts[0], matches[0], parts[1], matches[1], ...
	for i, part := range parts {
		if part != "" {
			segments = append(segments, model.CQDataListItem{
				Type: "text",
				Data: map[string]any{"text": part},
			})
		}
		if i < len(matches) {
			seg, err := parseCQBracket(matches[i])
			if err != nil {
				return nil, err
			}
			if seg != nil {
				segments = append(segments, *seg)
			}
		}
	}
	return segments, nil
}

func parseCQBracket(bracket string) (*model.CQDataListItem, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(bracket, "["), "]")
	if !strings.HasPrefix(inner, "CQ:") {
		// Not real CQ markup (e.g. plain "[note]") - treat as text.
		return &model.CQDataListItem{Type: "text", Data: map[string]any{"text": bracket}}, nil
	}
	inner = strings.TrimPrefix(inner, "CQ:")
	fields := strings.Split(inner, ",")
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: malformed CQ code %q", mkerr.ErrUsage, bracket)
	}

	seg := model.CQDataListItem{Type: fields[0], Data: map[string]any{}}
	for _, field := range fields[1:] {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			continue
		}
		seg.Data[kv[0]] = kv[1]
	}
	return &seg, nil
}

// resolvedFrame's origin tags whether a resolved frame came from a literal text
// segment (mergeable with its neighbours) or from at/face (which MkIX
// also represents as type "text" but must never merge with surrounding
// prose, per the bridge's text-merge invariant).
type resolvedFrame struct {
	frame  model.MkIXPostMessage
	origin string
}

func resolveSegments(segments []model.CQDataListItem) ([]model.MkIXPostMessage, error) {
	var resolved []resolvedFrame
	for _, seg := range segments {
		rf, err := resolveSegment(seg)
		if err != nil {
			return nil, err
		}
		if rf == nil {
			continue
		}

		if len(resolved) > 0 {
			last := &resolved[len(resolved)-1]
			if last.origin == "text" && rf.origin == "text" {
				last.frame = last.frame.Merge(rf.frame)
				continue
			}
		}
		resolved = append(resolved, *rf)
	}

	out := make([]model.MkIXPostMessage, 0, len(resolved))
	for _, rf := range resolved {
		out = append(out, rf.frame)
	}
	return out, nil
}

func resolveSegment(seg model.CQDataListItem) (*resolvedFrame, error) {
	switch seg.Type {
	case "at":
		qq := fmt.Sprint(seg.Data["qq"])
		return &resolvedFrame{
			origin: "at",
			frame: model.MkIXPostMessage{
				Type:    "text",
				Payload: &model.MkIXMessagePayload{Meta: map[string]any{"at": []any{qq}}},
			},
		}, nil

	case "text":
		return &resolvedFrame{
			origin: "text",
			frame: model.MkIXPostMessage{
				Type:    "text",
				Payload: &model.MkIXMessagePayload{Content: fmt.Sprint(seg.Data["text"])},
			},
		}, nil

	case "image":
		file := fmt.Sprint(seg.Data["file"])
		content, err := resolveFile(file, true)
		if err != nil {
			return nil, err
		}
		return &resolvedFrame{
			origin: "image",
			frame: model.MkIXPostMessage{
				Type:    "image",
				Payload: &model.MkIXMessagePayload{Content: content},
			},
		}, nil

	case "file", "audio", "record":
		file := fmt.Sprint(seg.Data["file"])
		content, err := resolveFile(file, false)
		if err != nil {
			return nil, err
		}
		frameType := "file"
		if seg.Type == "record" || seg.Type == "audio" {
			frameType = "audio"
		}
		return &resolvedFrame{
			origin: frameType,
			frame: model.MkIXPostMessage{
				Type:    frameType,
				Payload: &model.MkIXMessagePayload{Content: content},
			},
		}, nil

	case "face":
		idStr := fmt.Sprint(seg.Data["id"])
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid face id %q", mkerr.ErrUsage, idStr)
		}
		emoji, ok := faceByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: face id %d out of range", mkerr.ErrUsage, id)
		}
		return &resolvedFrame{
			origin: "face",
			frame: model.MkIXPostMessage{
				Type:    "text",
				Payload: &model.MkIXMessagePayload{Content: emoji},
			},
		}, nil

	default:
		return nil, fmt.Errorf("%w: invalid segment type %q", mkerr.ErrUsage, seg.Type)
	}
}
