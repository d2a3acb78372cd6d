// Package payload extracts a canonical notification tuple from the
// heterogeneous trigger shapes the transport and internal callers produce.
package payload

import (
	"fmt"
	"time"

	"push-pipeline/internal/models"
)

// Normalize maps a raw trigger onto a NotificationEvent. data.title and
// data.body win over the transport-level notification block, which lets
// internal triggers override display text. It performs presence checks only
// and never fails.
func Normalize(raw map[string]interface{}) models.NotificationEvent {
	event := models.NotificationEvent{
		Type:         models.TypeFCM,
		TargetUserID: models.UnknownUser,
		CustomData:   map[string]string{},
	}

	if raw == nil {
		return event
	}

	if notification, ok := raw["notification"].(map[string]interface{}); ok {
		event.Title = stringValue(notification["title"])
		event.Body = stringValue(notification["body"])
	}

	if data, ok := raw["data"].(map[string]interface{}); ok {
		for k, v := range data {
			event.CustomData[k] = stringValue(v)
		}
	}

	if title := event.CustomData["title"]; title != "" {
		event.Title = title
	}
	if body := event.CustomData["body"]; body != "" {
		event.Body = body
	}
	if typ := event.CustomData["type"]; typ != "" {
		event.Type = typ
	}
	if target := event.CustomData["targetUserId"]; target != "" {
		event.TargetUserID = target
	}

	event.SourceMessageID = stringValue(raw["messageId"])
	event.SentTime = sentTime(raw["sentTime"])

	return event
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

// sentTime accepts RFC3339 strings and epoch-millisecond numbers; anything
// else is treated as absent.
func sentTime(v interface{}) *time.Time {
	switch t := v.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return &parsed
		}
	case float64:
		parsed := time.UnixMilli(int64(t)).UTC()
		return &parsed
	case int64:
		parsed := time.UnixMilli(t).UTC()
		return &parsed
	}
	return nil
}
