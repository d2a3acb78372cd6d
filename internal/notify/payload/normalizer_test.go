package payload

import (
	"testing"
	"time"

	"push-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      map[string]interface{}
		validate func(t *testing.T, event models.NotificationEvent)
	}{
		{
			name: "transport notification block only",
			raw: map[string]interface{}{
				"notification": map[string]interface{}{
					"title": "Hello",
					"body":  "World",
				},
			},
			validate: func(t *testing.T, event models.NotificationEvent) {
				assert.Equal(t, "Hello", event.Title)
				assert.Equal(t, "World", event.Body)
				assert.Equal(t, models.TypeFCM, event.Type)
				assert.Equal(t, models.UnknownUser, event.TargetUserID)
			},
		},
		{
			name: "data title and body win over notification block",
			raw: map[string]interface{}{
				"notification": map[string]interface{}{
					"title": "Provider Title",
					"body":  "Provider Body",
				},
				"data": map[string]interface{}{
					"title": "Internal Title",
					"body":  "Internal Body",
				},
			},
			validate: func(t *testing.T, event models.NotificationEvent) {
				assert.Equal(t, "Internal Title", event.Title)
				assert.Equal(t, "Internal Body", event.Body)
			},
		},
		{
			name: "type and target come from data",
			raw: map[string]interface{}{
				"data": map[string]interface{}{
					"type":         "follow",
					"targetUserId": "u1",
					"followerId":   "f1",
				},
			},
			validate: func(t *testing.T, event models.NotificationEvent) {
				assert.Equal(t, "follow", event.Type)
				assert.Equal(t, "u1", event.TargetUserID)
				assert.Equal(t, "f1", event.CustomData["followerId"])
			},
		},
		{
			name: "missing everything yields defaults",
			raw:  map[string]interface{}{},
			validate: func(t *testing.T, event models.NotificationEvent) {
				assert.Equal(t, models.TypeFCM, event.Type)
				assert.Equal(t, models.UnknownUser, event.TargetUserID)
				assert.Empty(t, event.Title)
				assert.Empty(t, event.Body)
				assert.Empty(t, event.CustomData)
			},
		},
		{
			name: "nil raw map",
			raw:  nil,
			validate: func(t *testing.T, event models.NotificationEvent) {
				assert.Equal(t, models.TypeFCM, event.Type)
				assert.Equal(t, models.UnknownUser, event.TargetUserID)
			},
		},
		{
			name: "non-string data values are stringified",
			raw: map[string]interface{}{
				"data": map[string]interface{}{
					"rating": 4.5,
					"count":  float64(3),
				},
			},
			validate: func(t *testing.T, event models.NotificationEvent) {
				assert.Equal(t, "4.5", event.CustomData["rating"])
				assert.Equal(t, "3", event.CustomData["count"])
			},
		},
		{
			name: "provider message id and sent time",
			raw: map[string]interface{}{
				"messageId": "msg-42",
				"sentTime":  "2026-08-01T12:00:00Z",
			},
			validate: func(t *testing.T, event models.NotificationEvent) {
				assert.Equal(t, "msg-42", event.SourceMessageID)
				require.NotNil(t, event.SentTime)
				assert.Equal(t, 2026, event.SentTime.Year())
			},
		},
		{
			name: "epoch millis sent time",
			raw: map[string]interface{}{
				"sentTime": float64(1700000000000),
			},
			validate: func(t *testing.T, event models.NotificationEvent) {
				require.NotNil(t, event.SentTime)
				assert.Equal(t, time.UnixMilli(1700000000000).UTC(), *event.SentTime)
			},
		},
		{
			name: "garbage sent time treated as absent",
			raw: map[string]interface{}{
				"sentTime": "not-a-time",
			},
			validate: func(t *testing.T, event models.NotificationEvent) {
				assert.Nil(t, event.SentTime)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, Normalize(tt.raw))
		})
	}
}
