package dispatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-pipeline/internal/models"
)

func TestShowFollow_EndToEnd(t *testing.T) {
	f := newFixture(t, nil)

	f.service.ShowFollow(context.Background(), "f1", "alice", "u1")

	displays := f.fake.Displays()
	require.Len(t, displays, 1)
	assert.Equal(t, "New Follower", displays[0].Title)
	assert.Equal(t, "alice started following you", displays[0].Body)

	records := f.recorder.all()
	require.Len(t, records, 1)
	assert.Equal(t, "follow_notification_shown", records[0].Step)
	assert.Equal(t, models.StatusSuccess, records[0].Status)
	assert.Equal(t, "u1", records[0].Target)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(displays[0].Payload), &payload))
	assert.Equal(t, models.TypeFollow, payload["type"])
	assert.Equal(t, "f1", payload["followerId"])
	assert.Equal(t, "alice", payload["followerUsername"])
}

func TestShowTest(t *testing.T) {
	f := newFixture(t, nil)

	f.service.ShowTest(context.Background())

	displays := f.fake.Displays()
	require.Len(t, displays, 1)
	assert.Equal(t, "Test Notification", displays[0].Title)

	records := f.recorder.all()
	require.Len(t, records, 1)
	assert.Equal(t, "test_notification_shown", records[0].Step)
}

func TestShowRating_FormatsBody(t *testing.T) {
	f := newFixture(t, nil)

	f.service.ShowRating(context.Background(), "r1", "bob", 4.5, "u2")

	displays := f.fake.Displays()
	require.Len(t, displays, 1)
	assert.Equal(t, "New Rating", displays[0].Title)
	assert.Equal(t, "bob rated you 4.5 stars", displays[0].Body)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(displays[0].Payload), &payload))
	assert.Equal(t, "4.5", payload["rating"])
	assert.Equal(t, "u2", payload["targetUserId"])
}

func TestShowMessageAndCommentVariants(t *testing.T) {
	tests := []struct {
		name      string
		invoke    func(s *Service)
		wantTitle string
		wantBody  string
		wantStep  string
	}{
		{
			name:      "follow request",
			invoke:    func(s *Service) { s.ShowFollowRequest(context.Background(), "q1", "carol", "u3") },
			wantTitle: "Follow Request",
			wantBody:  "carol wants to follow you",
			wantStep:  "follow_request_notification_shown",
		},
		{
			name:      "comment",
			invoke:    func(s *Service) { s.ShowComment(context.Background(), "c1", "dave", "u4") },
			wantTitle: "New Comment",
			wantBody:  "dave commented on your post",
			wantStep:  "comment_notification_shown",
		},
		{
			name:      "comment like",
			invoke:    func(s *Service) { s.ShowCommentLike(context.Background(), "l1", "erin", "u5") },
			wantTitle: "Comment Liked",
			wantBody:  "erin liked your comment",
			wantStep:  "comment_like_notification_shown",
		},
		{
			name:      "message",
			invoke:    func(s *Service) { s.ShowMessage(context.Background(), "s1", "frank", "u6") },
			wantTitle: "New Message",
			wantBody:  "frank sent you a message",
			wantStep:  "message_notification_shown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			tt.invoke(f.service)

			displays := f.fake.Displays()
			require.Len(t, displays, 1)
			assert.Equal(t, tt.wantTitle, displays[0].Title)
			assert.Equal(t, tt.wantBody, displays[0].Body)

			records := f.recorder.all()
			require.Len(t, records, 1)
			assert.Equal(t, tt.wantStep, records[0].Step)
			assert.Equal(t, models.StatusSuccess, records[0].Status)
		})
	}
}

func TestTriggerServerNotification_CustomDataRidesAlong(t *testing.T) {
	f := newFixture(t, nil)

	f.service.TriggerServerNotification(context.Background(), "", "u7", "Maintenance", "Back at noon", map[string]string{
		"window": "12:00",
		"type":   "should-be-overridden",
	})

	displays := f.fake.Displays()
	require.Len(t, displays, 1)
	assert.Equal(t, "Maintenance", displays[0].Title)
	assert.Equal(t, "Back at noon", displays[0].Body)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(displays[0].Payload), &payload))
	assert.Equal(t, models.TypeService, payload["type"])
	assert.Equal(t, "u7", payload["targetUserId"])
	assert.Equal(t, "12:00", payload["window"])
}

func TestShowWrappers_DisplayFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, nil)
	f.fake.DisplayErr = assert.AnError

	assert.NotPanics(t, func() {
		f.service.ShowFollow(context.Background(), "f1", "alice", "u1")
	})

	records := f.recorder.all()
	require.Len(t, records, 1)
	assert.Equal(t, models.StepNotificationFailed, records[0].Step)
	assert.Equal(t, models.StatusError, records[0].Status)
}
