// Package sink records attempt/failure/display events to metrics and the
// audit trail, decoupled from the dispatcher's control flow. Every call is
// fire-and-forget; internal failures are discarded.
package sink

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"push-pipeline/internal/common/logger"
	"push-pipeline/internal/common/metrics"
	"push-pipeline/internal/common/observability"
	"push-pipeline/internal/models"
	"push-pipeline/internal/notify/audit"
)

// Emailer sends operator alert mail. Satisfied by aws.SESClient.
type Emailer interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// AlertConfig gates the operator email channel.
type AlertConfig struct {
	Enabled   bool
	FromEmail string
	ToEmail   string
}

type Sink struct {
	audit  audit.Recorder
	obs    *observability.Observability
	email  Emailer
	alert  AlertConfig
	logger logger.Logger
}

func New(rec audit.Recorder, obs *observability.Observability, email Emailer, alert AlertConfig, log logger.Logger) *Sink {
	return &Sink{
		audit:  rec,
		obs:    obs,
		email:  email,
		alert:  alert,
		logger: log.WithFields(map[string]interface{}{"component": "sink"}),
	}
}

// RecordAttempt counts one render attempt, failed or not.
func (s *Sink) RecordAttempt(notificationType, targetUserID, trigger string, err error) {
	metrics.NotificationAttempts.WithLabelValues(notificationType, trigger).Inc()
	if err != nil {
		s.logger.Warn("notification attempt failed", map[string]interface{}{
			"notificationType": notificationType,
			"targetUserId":     targetUserID,
			"trigger":          trigger,
			"error":            err.Error(),
		})
	}
}

// RecordError counts a pipeline failure and forwards it to the audit trail
// so the operational and audit views stay consistent.
func (s *Sink) RecordError(ctx context.Context, notificationType, targetUserID string, err error, trace string) {
	metrics.NotificationFailures.WithLabelValues(notificationType, models.StepNotificationFailed).Inc()
	if s.obs != nil {
		s.obs.RecordEventProcessed(ctx, notificationType, models.StatusError)
	}

	info := err.Error()
	if trace != "" {
		info = fmt.Sprintf("%s | %s", info, trace)
	}
	s.audit.Record(ctx, models.StepNotificationFailed, notificationType, targetUserID, models.StatusError, info)

	if notificationType == models.StepInitialization {
		s.alertOperator(ctx, err)
	}
}

// RecordDisplay counts one notification handed to the display transport.
func (s *Sink) RecordDisplay(notificationType, source string) {
	metrics.NotificationsDisplayed.WithLabelValues(notificationType, source).Inc()
}

// alertOperator mails the on-call address about a failed initialization.
// Mail failure is itself swallowed.
func (s *Sink) alertOperator(ctx context.Context, cause error) {
	if !s.alert.Enabled || s.email == nil {
		return
	}

	_, err := s.email.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{s.alert.ToEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String("push-pipeline initialization failed")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(cause.Error())},
			},
		},
		Source: aws.String(s.alert.FromEmail),
	})
	if err != nil {
		s.logger.Warn("operator alert failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
