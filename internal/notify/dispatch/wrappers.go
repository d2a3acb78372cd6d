package dispatch

import (
	"context"
	"fmt"

	pperrors "push-pipeline/internal/common/errors"
	"push-pipeline/internal/models"
)

// Typed wrappers for the internal application triggers. Each builds the
// custom-data map for its notification type, hands it to the renderer, and
// records attempt/display analytics. None of them ever returns an error.

// ShowTest displays a throwaway notification for manual verification.
func (s *Service) ShowTest(ctx context.Context) {
	s.show(ctx, "show_test", "Test Notification", "This is a test notification", map[string]string{
		"type": models.TypeTest,
	})
}

// ShowFollow announces a new follower to the followed user.
func (s *Service) ShowFollow(ctx context.Context, followerID, followerUsername, targetUserID string) {
	s.show(ctx, "show_follow", "New Follower", fmt.Sprintf("%s started following you", followerUsername), map[string]string{
		"type":             models.TypeFollow,
		"targetUserId":     targetUserID,
		"followerId":       followerID,
		"followerUsername": followerUsername,
	})
}

// ShowFollowRequest announces a pending follow request on a private profile.
func (s *Service) ShowFollowRequest(ctx context.Context, requesterID, requesterUsername, targetUserID string) {
	s.show(ctx, "show_follow_request", "Follow Request", fmt.Sprintf("%s wants to follow you", requesterUsername), map[string]string{
		"type":              models.TypeFollowRequest,
		"targetUserId":      targetUserID,
		"requesterId":       requesterID,
		"requesterUsername": requesterUsername,
	})
}

// ShowRating announces a new rating on the target user's content.
func (s *Service) ShowRating(ctx context.Context, raterID, raterUsername string, rating float64, targetUserID string) {
	s.show(ctx, "show_rating", "New Rating", fmt.Sprintf("%s rated you %.1f stars", raterUsername, rating), map[string]string{
		"type":          models.TypeRating,
		"targetUserId":  targetUserID,
		"raterId":       raterID,
		"raterUsername": raterUsername,
		"rating":        fmt.Sprintf("%.1f", rating),
	})
}

// ShowComment announces a new comment on the target user's content.
func (s *Service) ShowComment(ctx context.Context, commenterID, commenterUsername, targetUserID string) {
	s.show(ctx, "show_comment", "New Comment", fmt.Sprintf("%s commented on your post", commenterUsername), map[string]string{
		"type":              models.TypeComment,
		"targetUserId":      targetUserID,
		"commenterId":       commenterID,
		"commenterUsername": commenterUsername,
	})
}

// ShowCommentLike announces a like on the target user's comment.
func (s *Service) ShowCommentLike(ctx context.Context, likerID, likerUsername, targetUserID string) {
	s.show(ctx, "show_comment_like", "Comment Liked", fmt.Sprintf("%s liked your comment", likerUsername), map[string]string{
		"type":          models.TypeCommentLike,
		"targetUserId":  targetUserID,
		"likerId":       likerID,
		"likerUsername": likerUsername,
	})
}

// ShowMessage announces a new direct message.
func (s *Service) ShowMessage(ctx context.Context, senderID, senderUsername, targetUserID string) {
	s.show(ctx, "show_message", "New Message", fmt.Sprintf("%s sent you a message", senderUsername), map[string]string{
		"type":           models.TypeMessage,
		"targetUserId":   targetUserID,
		"senderId":       senderID,
		"senderUsername": senderUsername,
	})
}

// TriggerServerNotification displays a fully caller-specified notification.
// Extra customData keys ride along in the tap payload untouched; type and
// targetUserId win over any colliding keys.
func (s *Service) TriggerServerNotification(ctx context.Context, notificationType, targetUserID, title, body string, customData map[string]string) {
	if notificationType == "" {
		notificationType = models.TypeService
	}
	data := make(map[string]string, len(customData)+2)
	for k, v := range customData {
		data[k] = v
	}
	data["type"] = notificationType
	if targetUserID != "" {
		data["targetUserId"] = targetUserID
	}
	s.show(ctx, "server_notification", title, body, data)
}

func (s *Service) show(ctx context.Context, trigger, title, body string, data map[string]string) {
	pperrors.Guard(s.logger, trigger, func() error {
		notificationType := data["type"]
		targetUserID := data["targetUserId"]

		err := s.renderer.Render(ctx, title, body, data)
		s.sink.RecordAttempt(notificationType, targetUserID, trigger, err)
		if err == nil {
			s.sink.RecordDisplay(notificationType, trigger)
		}
		return nil
	})
}
