// internal/transport/sns.go
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"push-pipeline/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the subset of the SNS client the transport uses.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
	CreatePlatformEndpoint(ctx context.Context, input *sns.CreatePlatformEndpointInput) (*sns.CreatePlatformEndpointOutput, error)
	GetEndpointAttributes(ctx context.Context, input *sns.GetEndpointAttributesInput) (*sns.GetEndpointAttributesOutput, error)
}

// SNSTransport delivers notifications through an SNS platform endpoint.
// Inbound streams are fed by the subscription webhook via the Emit methods;
// SNS itself has no pull API for them.
type SNSTransport struct {
	client         SNSAPI
	platformAppARN string
	logger         logger.Logger

	mu          sync.Mutex
	endpointARN string

	foreground chan map[string]interface{}
	opened     chan map[string]interface{}
	refresh    chan string
	identity   chan string
	taps       chan TapResponse

	closeOnce sync.Once
}

func NewSNSTransport(client SNSAPI, platformAppARN string, log logger.Logger) *SNSTransport {
	return &SNSTransport{
		client:         client,
		platformAppARN: platformAppARN,
		logger:         log.WithFields(map[string]interface{}{"component": "sns-transport"}),
		foreground:     make(chan map[string]interface{}, 16),
		opened:         make(chan map[string]interface{}, 16),
		refresh:        make(chan string, 4),
		identity:       make(chan string, 4),
		taps:           make(chan TapResponse, 16),
	}
}

// RequestPermission maps the endpoint's Enabled attribute onto a permission
// status. No endpoint yet means the device has not registered: provisional.
func (t *SNSTransport) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	t.mu.Lock()
	arn := t.endpointARN
	t.mu.Unlock()

	if arn == "" {
		return PermissionProvisional, nil
	}

	out, err := t.client.GetEndpointAttributes(ctx, &sns.GetEndpointAttributesInput{
		EndpointArn: aws.String(arn),
	})
	if err != nil {
		return PermissionDenied, fmt.Errorf("get endpoint attributes: %w", err)
	}

	if enabled, err := strconv.ParseBool(out.Attributes["Enabled"]); err == nil && !enabled {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

// ConfigureForegroundPresentation is a no-op for a server-side endpoint.
func (t *SNSTransport) ConfigureForegroundPresentation(ctx context.Context) error {
	return nil
}

// SetupPermissionCategories is a no-op; SNS has no category concept.
func (t *SNSTransport) SetupPermissionCategories(ctx context.Context) error {
	return nil
}

// RegisterDeviceToken creates (or reuses) the platform endpoint for a device
// token and remembers its ARN for later Display calls.
func (t *SNSTransport) RegisterDeviceToken(ctx context.Context, token string) error {
	out, err := t.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(t.platformAppARN),
		Token:                  aws.String(token),
	})
	if err != nil {
		return fmt.Errorf("create platform endpoint: %w", err)
	}

	t.mu.Lock()
	t.endpointARN = aws.ToString(out.EndpointArn)
	t.mu.Unlock()
	return nil
}

// Token reads the current device token off the registered endpoint. An
// unregistered endpoint yields no token, which is not an error.
func (t *SNSTransport) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	arn := t.endpointARN
	t.mu.Unlock()

	if arn == "" {
		return "", nil
	}

	out, err := t.client.GetEndpointAttributes(ctx, &sns.GetEndpointAttributesInput{
		EndpointArn: aws.String(arn),
	})
	if err != nil {
		return "", fmt.Errorf("get endpoint attributes: %w", err)
	}
	return out.Attributes["Token"], nil
}

// Display publishes the notification to the device endpoint.
func (t *SNSTransport) Display(ctx context.Context, id int, title, body, payload string) error {
	t.mu.Lock()
	arn := t.endpointARN
	t.mu.Unlock()

	if arn == "" {
		return fmt.Errorf("no platform endpoint registered")
	}

	message, err := json.Marshal(map[string]interface{}{
		"notificationId": id,
		"title":          title,
		"body":           body,
		"payload":        payload,
	})
	if err != nil {
		return fmt.Errorf("marshal display message: %w", err)
	}

	_, err = t.client.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(arn),
		Message:   aws.String(string(message)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"notification_id": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.Itoa(id)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish display call: %w", err)
	}
	return nil
}

// EmitForeground feeds one raw trigger from the subscription webhook. A full
// buffer drops the trigger; the transport never guaranteed delivery.
func (t *SNSTransport) EmitForeground(raw map[string]interface{}) {
	select {
	case t.foreground <- raw:
	default:
		t.logger.Warn("foreground trigger dropped, buffer full", nil)
	}
}

// EmitOpened feeds one raw trigger that arrived while the host was down.
func (t *SNSTransport) EmitOpened(raw map[string]interface{}) {
	select {
	case t.opened <- raw:
	default:
		t.logger.Warn("opened trigger dropped, buffer full", nil)
	}
}

// EmitTokenRefresh feeds a replacement device token.
func (t *SNSTransport) EmitTokenRefresh(token string) {
	select {
	case t.refresh <- token:
	default:
		t.logger.Warn("token refresh dropped, buffer full", nil)
	}
}

// EmitIdentityChange feeds a sign-in (user id) or sign-out (empty string).
func (t *SNSTransport) EmitIdentityChange(userID string) {
	select {
	case t.identity <- userID:
	default:
		t.logger.Warn("identity change dropped, buffer full", nil)
	}
}

// EmitTap feeds a tap response for a displayed notification.
func (t *SNSTransport) EmitTap(resp TapResponse) {
	select {
	case t.taps <- resp:
	default:
		t.logger.Warn("tap response dropped, buffer full", nil)
	}
}

func (t *SNSTransport) ForegroundMessages() <-chan map[string]interface{} { return t.foreground }
func (t *SNSTransport) OpenedMessages() <-chan map[string]interface{}    { return t.opened }
func (t *SNSTransport) TokenRefresh() <-chan string                      { return t.refresh }
func (t *SNSTransport) IdentityChanges() <-chan string                   { return t.identity }
func (t *SNSTransport) TapResponses() <-chan TapResponse                 { return t.taps }

func (t *SNSTransport) Close() {
	t.closeOnce.Do(func() {
		close(t.foreground)
		close(t.opened)
		close(t.refresh)
		close(t.identity)
		close(t.taps)
	})
}
