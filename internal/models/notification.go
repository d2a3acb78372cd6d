// internal/models/notification.go
package models

import "time"

// NotificationEvent is one inbound trigger after normalization. It lives for
// the duration of one dispatch and is never persisted; only its audit trail
// survives.
type NotificationEvent struct {
	Type            string            `json:"type"`
	TargetUserID    string            `json:"targetUserId"`
	Title           string            `json:"title,omitempty"`
	Body            string            `json:"body,omitempty"`
	CustomData      map[string]string `json:"customData,omitempty"`
	SourceMessageID string            `json:"sourceMessageId,omitempty"`
	SentTime        *time.Time        `json:"sentTime,omitempty"`
}

// AuditRecord is one durable log line describing one pipeline step's outcome.
// Field names are fixed; the ops dashboard consumes this schema as-is.
type AuditRecord struct {
	Timestamp        time.Time `json:"timestamp"`
	Step             string    `json:"step"`
	NotificationType string    `json:"notification_type"`
	TargetUserID     string    `json:"target_user_id"`
	Status           string    `json:"status"`
	AdditionalInfo   string    `json:"additional_info,omitempty"`
	Platform         string    `json:"platform"`
}

// DeviceToken represents a delivery-channel token for a device. A pending
// token (Associated=false) awaits reconciliation to a user identity.
type DeviceToken struct {
	Token       string    `json:"token"`
	OwnerUserID string    `json:"ownerUserId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Associated  bool      `json:"associated"`
}

// Notification types
const (
	TypeFCM           = "fcm"
	TypeFollow        = "follow"
	TypeFollowRequest = "follow_request"
	TypeRating        = "rating"
	TypeComment       = "comment"
	TypeCommentLike   = "comment_like"
	TypeMessage       = "message"
	TypeTest          = "test"
	TypeService       = "service"
	TypeUnknown       = "unknown"
)

// Audit statuses
const (
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusSkipped    = "skipped"
	StatusError      = "error"
)

// Audit steps
const (
	StepInitStarted        = "init_started"
	StepInitComplete       = "init_complete"
	StepInitialization     = "initialization"
	StepPermissionStatus   = "permission_status"
	StepTokenReceived      = "token_received"
	StepTokenSaved         = "token_saved"
	StepTokenSaveFailed    = "token_save_failed"
	StepPendingTokenSaved  = "pending_token_saved"
	StepNotificationShown  = "notification_shown"
	StepNotificationFailed = "notification_failed"
	StepNotificationTapped = "notification_tapped"
	StepNoNotification     = "no_notification"
	StepDuplicateTrigger   = "duplicate_trigger"
)

// Default user id when a trigger names no target.
const UnknownUser = "unknown"
