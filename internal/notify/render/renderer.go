// Package render issues the user-visible display call for one notification.
package render

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pperrors "push-pipeline/internal/common/errors"
	"push-pipeline/internal/common/logger"
	"push-pipeline/internal/models"
	"push-pipeline/internal/notify/audit"
	"push-pipeline/internal/notify/ident"
)

// Display text used when a trigger carries neither explicit nor data-map text.
const (
	DefaultTitle = "New Activity"
	DefaultBody  = "You have new activity"
)

// Displayer is the transport surface the renderer needs.
type Displayer interface {
	Display(ctx context.Context, id int, title, body, payload string) error
}

type Renderer struct {
	transport Displayer
	ids       *ident.Generator
	audit     audit.Recorder
	logger    logger.Logger
	timeout   time.Duration
}

func New(transport Displayer, ids *ident.Generator, rec audit.Recorder, timeout time.Duration, log logger.Logger) *Renderer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Renderer{
		transport: transport,
		ids:       ids,
		audit:     rec,
		logger:    log.WithFields(map[string]interface{}{"component": "render"}),
		timeout:   timeout,
	}
}

// Render issues one display call. Empty title/body fall back to the data
// map, then to generic defaults. The full data map is serialized as the
// opaque tap payload so type/target/custom fields round-trip exactly.
// Failures are audited with full context and never panic; the returned
// error exists only so callers can feed the analytics sink.
func (r *Renderer) Render(ctx context.Context, title, body string, data map[string]string) error {
	notificationType := data["type"]
	if notificationType == "" {
		notificationType = models.TypeFCM
	}
	targetUserID := data["targetUserId"]

	if title == "" {
		title = data["title"]
	}
	if title == "" {
		title = DefaultTitle
	}
	if body == "" {
		body = data["body"]
	}
	if body == "" {
		body = DefaultBody
	}

	payload, err := json.Marshal(data)
	if err != nil {
		r.failed(ctx, notificationType, targetUserID, title, body, data, err)
		return err
	}

	displayCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id := r.ids.NextID()
	if err := r.transport.Display(displayCtx, id, title, body, string(payload)); err != nil {
		r.failed(ctx, notificationType, targetUserID, title, body, data, err)
		return pperrors.NewRenderFailedError(notificationType, err)
	}

	r.audit.Record(ctx, shownStep(notificationType), notificationType, targetUserID, models.StatusSuccess,
		fmt.Sprintf("id=%d title=%q", id, title))
	return nil
}

func (r *Renderer) failed(ctx context.Context, notificationType, targetUserID, title, body string, data map[string]string, err error) {
	r.logger.Error("display call failed", map[string]interface{}{
		"notificationType": notificationType,
		"targetUserId":     targetUserID,
		"error":            err.Error(),
	})
	r.audit.Record(ctx, models.StepNotificationFailed, notificationType, targetUserID, models.StatusError,
		fmt.Sprintf("title=%q body=%q data=%v error=%s", title, body, data, err.Error()))
}

// shownStep names the terminal success step after the notification type,
// e.g. follow_notification_shown.
func shownStep(notificationType string) string {
	if notificationType == "" || notificationType == models.TypeFCM {
		return models.StepNotificationShown
	}
	return notificationType + "_" + models.StepNotificationShown
}
