// Package dispatch coordinates the notification pipeline: permission and
// channel setup, listener registration, and routing of inbound triggers to
// the renderer. Every public operation swallows its own failures; the host
// process only ever observes log lines and audit records.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	pperrors "push-pipeline/internal/common/errors"
	"push-pipeline/internal/common/logger"
	"push-pipeline/internal/common/metrics"
	"push-pipeline/internal/common/observability"
	"push-pipeline/internal/common/validation"
	"push-pipeline/internal/models"
	"push-pipeline/internal/notify/audit"
	"push-pipeline/internal/notify/payload"
	"push-pipeline/internal/notify/render"
	"push-pipeline/internal/notify/sink"
	"push-pipeline/internal/notify/tokens"
	"push-pipeline/internal/transport"
)

// Service lifecycle states. InitFailed is terminal and reachable only from
// Initializing; event handling is re-entrant and carries no state of its own.
const (
	StateUninitialized int32 = iota
	StateInitializing
	StateReady
	StateInitFailed
)

const seenKeyPrefix = "seen_msg:"

// Options tune per-event behavior.
type Options struct {
	// RenderOnDataOnly renders a trigger whose data map is non-empty even
	// when it carries no title or body, falling back to generic text.
	RenderOnDataOnly bool

	// DedupeTTL bounds how long a provider message id suppresses repeats.
	DedupeTTL time.Duration
}

// Service is the process-wide dispatcher. Construct it once at startup and
// pass it by reference; it owns its listener goroutines and tears them down
// on Close.
type Service struct {
	transport transport.Transport
	registry  *tokens.Registry
	renderer  *render.Renderer
	audit     audit.Recorder
	sink      *sink.Sink
	rdb       *redis.Client
	obs       *observability.Observability
	logger    logger.Logger
	opts      Options

	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(
	t transport.Transport,
	registry *tokens.Registry,
	renderer *render.Renderer,
	rec audit.Recorder,
	snk *sink.Sink,
	rdb *redis.Client,
	obs *observability.Observability,
	opts Options,
	log logger.Logger,
) *Service {
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = time.Hour
	}
	return &Service{
		transport: t,
		registry:  registry,
		renderer:  renderer,
		audit:     rec,
		sink:      snk,
		rdb:       rdb,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatch"}),
		opts:      opts,
	}
}

// State returns the current lifecycle state tag.
func (s *Service) State() int32 { return s.state.Load() }

// Initialize brings the service to Ready: permission request, foreground
// presentation, listener subscriptions, and initial token save. Any failure
// moves the service to InitFailed and is reported through the sink, never to
// the host. A second call is a no-op.
func (s *Service) Initialize(ctx context.Context) {
	pperrors.Guard(s.logger, "initialize", func() error {
		if !s.state.CompareAndSwap(StateUninitialized, StateInitializing) {
			s.logger.Warn("initialize called twice", map[string]interface{}{
				"state": s.state.Load(),
			})
			return nil
		}

		s.audit.Record(ctx, models.StepInitStarted, models.TypeService, models.UnknownUser, models.StatusInProgress, "")

		if err := s.setup(ctx); err != nil {
			s.state.Store(StateInitFailed)
			initErr := pperrors.NewInitializationFailedError(err)
			s.audit.Record(ctx, models.StepInitialization, models.TypeService, models.UnknownUser, models.StatusError, initErr.Details)
			s.sink.RecordError(ctx, models.StepInitialization, models.UnknownUser, initErr, "")
			return initErr
		}

		s.state.Store(StateReady)
		s.audit.Record(ctx, models.StepInitComplete, models.TypeService, models.UnknownUser, models.StatusSuccess, "")
		return nil
	})
}

func (s *Service) setup(ctx context.Context) error {
	status, err := s.transport.RequestPermission(ctx)
	if err != nil {
		return pperrors.NewTransportUnavailableError(fmt.Errorf("permission request: %w", err))
	}
	s.audit.Record(ctx, models.StepPermissionStatus, models.TypeService, models.UnknownUser, models.StatusSuccess, string(status))
	if status == transport.PermissionDenied {
		// Degraded mode: listeners still run so the audit trail stays
		// complete, the provider just will not display anything.
		s.logger.WithError(pperrors.NewPermissionDeniedError(string(status))).Warn("display permission denied", nil)
	}

	if err := s.transport.ConfigureForegroundPresentation(ctx); err != nil {
		return pperrors.NewTransportUnavailableError(fmt.Errorf("foreground presentation setup: %w", err))
	}
	if err := s.transport.SetupPermissionCategories(ctx); err != nil {
		// Soft no-op on platforms without categories.
		s.logger.Warn("permission category setup failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if token, ok := s.registry.RetrieveCurrentToken(ctx); ok {
		s.registry.SaveToken(ctx, token)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(5)
	go s.listenForeground(listenCtx)
	go s.listenOpened(listenCtx)
	go s.listenTokenRefresh(listenCtx)
	go s.listenIdentityChanges(listenCtx)
	go s.listenTaps(listenCtx)

	return nil
}

// Close tears down the listener subscriptions. Safe to call regardless of
// state.
func (s *Service) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Service) listenForeground(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-s.transport.ForegroundMessages():
			if !ok {
				return
			}
			s.HandleTrigger(ctx, raw, "foreground")
		}
	}
}

func (s *Service) listenOpened(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-s.transport.OpenedMessages():
			if !ok {
				return
			}
			s.HandleTrigger(ctx, raw, "opened")
		}
	}
}

func (s *Service) listenTokenRefresh(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case token, ok := <-s.transport.TokenRefresh():
			if !ok {
				return
			}
			pperrors.Guard(s.logger, "token_refresh", func() error {
				s.registry.OnTokenRefresh(ctx, token)
				return nil
			})
		}
	}
}

func (s *Service) listenIdentityChanges(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case userID, ok := <-s.transport.IdentityChanges():
			if !ok {
				return
			}
			pperrors.Guard(s.logger, "identity_change", func() error {
				s.registry.OnIdentityChange(ctx, userID)
				return nil
			})
		}
	}
}

func (s *Service) listenTaps(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-s.transport.TapResponses():
			if !ok {
				return
			}
			s.HandleTap(ctx, resp)
		}
	}
}

// HandleTrigger routes one inbound raw trigger: normalize, dedupe, decide
// whether to render, render. Exactly one terminal audit record is written on
// every branch, including panics recovered at this boundary.
func (s *Service) HandleTrigger(ctx context.Context, raw map[string]interface{}, source string) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "handle_trigger")
	defer span.End()
	defer func() {
		elapsed := time.Since(start)
		metrics.EventHandleDuration.WithLabelValues(source).Observe(elapsed.Seconds())
		s.obs.RecordEventDuration(ctx, elapsed, source)
	}()

	event := payload.Normalize(raw)

	err := pperrors.Guard(s.logger, "handle_trigger", func() error {
		if problems, err := validation.CheckTrigger(raw); err == nil && len(problems) > 0 {
			// Advisory only; malformed triggers still flow through.
			s.logger.Warn("trigger shape check", map[string]interface{}{
				"problems": problems,
				"source":   source,
			})
		}

		if s.isDuplicate(ctx, event.SourceMessageID) {
			metrics.NotificationsSkipped.WithLabelValues("duplicate").Inc()
			s.audit.Record(ctx, models.StepDuplicateTrigger, event.Type, event.TargetUserID, models.StatusSkipped,
				fmt.Sprintf("messageId=%s", event.SourceMessageID))
			return nil
		}

		if !s.shouldRender(event) {
			metrics.NotificationsSkipped.WithLabelValues("no_content").Inc()
			s.audit.Record(ctx, models.StepNoNotification, event.Type, event.TargetUserID, models.StatusSkipped,
				fmt.Sprintf("source=%s", source))
			return nil
		}

		data := renderData(event)
		renderErr := s.renderer.Render(ctx, event.Title, event.Body, data)
		s.sink.RecordAttempt(event.Type, event.TargetUserID, source, renderErr)
		if renderErr == nil {
			s.sink.RecordDisplay(event.Type, source)
			s.obs.RecordEventProcessed(ctx, source, models.StatusSuccess)
		}
		return nil
	})
	if err != nil {
		// Guard recovered a panic; the renderer was never reached, so this
		// is the event's terminal record.
		trace := ""
		var panicked *pperrors.PanicError
		if errors.As(err, &panicked) {
			trace = audit.Truncate(string(panicked.Stack), 200)
		}
		s.sink.RecordError(ctx, event.Type, event.TargetUserID, err, trace)
	}
}

// HandleTap decodes the round-tripped payload of a tapped notification and
// records the interaction. It never re-renders and never panics outward.
func (s *Service) HandleTap(ctx context.Context, resp transport.TapResponse) {
	pperrors.Guard(s.logger, "handle_tap", func() error {
		var data map[string]string
		if err := json.Unmarshal([]byte(resp.Payload), &data); err != nil {
			s.audit.Record(ctx, models.StepNotificationTapped, models.TypeUnknown, models.UnknownUser, models.StatusError,
				fmt.Sprintf("id=%d decode error: %s", resp.NotificationID, err.Error()))
			return nil
		}

		notificationType := data["type"]
		if notificationType == "" {
			notificationType = models.TypeUnknown
		}
		targetUserID := data["targetUserId"]

		s.audit.Record(ctx, models.StepNotificationTapped, notificationType, targetUserID, models.StatusSuccess,
			fmt.Sprintf("id=%d", resp.NotificationID))
		return nil
	})
}

// isDuplicate claims the trigger's provider message id in Redis. Redis being
// down is not a reason to drop a notification, so any error means "not a
// duplicate".
func (s *Service) isDuplicate(ctx context.Context, messageID string) bool {
	if messageID == "" || s.rdb == nil {
		return false
	}
	claimed, err := s.rdb.SetNX(ctx, seenKeyPrefix+messageID, 1, s.opts.DedupeTTL).Result()
	if err != nil {
		s.logger.Warn("dedupe check unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return !claimed
}

func (s *Service) shouldRender(event models.NotificationEvent) bool {
	if event.Title != "" || event.Body != "" {
		return true
	}
	return s.opts.RenderOnDataOnly && len(event.CustomData) > 0
}

// renderData flattens the event back into the string map the renderer
// serializes as the tap payload, keeping type and target round-trippable.
func renderData(event models.NotificationEvent) map[string]string {
	data := make(map[string]string, len(event.CustomData)+2)
	for k, v := range event.CustomData {
		data[k] = v
	}
	data["type"] = event.Type
	if event.TargetUserID != "" {
		data["targetUserId"] = event.TargetUserID
	}
	return data
}
