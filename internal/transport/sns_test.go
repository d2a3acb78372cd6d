package transport

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-pipeline/internal/common/logger"
)

type mockSNSAPI struct {
	published    []*sns.PublishInput
	publishErr   error
	endpointARN  string
	createErr    error
	attributes   map[string]string
	attributeErr error
}

func (m *mockSNSAPI) Publish(_ context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	m.published = append(m.published, input)
	return &sns.PublishOutput{}, m.publishErr
}

func (m *mockSNSAPI) CreatePlatformEndpoint(_ context.Context, _ *sns.CreatePlatformEndpointInput) (*sns.CreatePlatformEndpointOutput, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &sns.CreatePlatformEndpointOutput{EndpointArn: aws.String(m.endpointARN)}, nil
}

func (m *mockSNSAPI) GetEndpointAttributes(_ context.Context, _ *sns.GetEndpointAttributesInput) (*sns.GetEndpointAttributesOutput, error) {
	if m.attributeErr != nil {
		return nil, m.attributeErr
	}
	return &sns.GetEndpointAttributesOutput{Attributes: m.attributes}, nil
}

func newTestTransport(api *mockSNSAPI) *SNSTransport {
	return NewSNSTransport(api, "arn:aws:sns:eu-west-1:123:app/GCM/test", logger.NewNoOpLogger())
}

func TestRequestPermission_ProvisionalWithoutEndpoint(t *testing.T) {
	tr := newTestTransport(&mockSNSAPI{})

	status, err := tr.RequestPermission(context.Background())

	require.NoError(t, err)
	assert.Equal(t, PermissionProvisional, status)
}

func TestRequestPermission_DeniedWhenEndpointDisabled(t *testing.T) {
	api := &mockSNSAPI{
		endpointARN: "arn:endpoint",
		attributes:  map[string]string{"Enabled": "false"},
	}
	tr := newTestTransport(api)
	require.NoError(t, tr.RegisterDeviceToken(context.Background(), "tok-1"))

	status, err := tr.RequestPermission(context.Background())

	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, status)
}

func TestDisplay_PublishesNotification(t *testing.T) {
	api := &mockSNSAPI{
		endpointARN: "arn:endpoint",
		attributes:  map[string]string{"Enabled": "true", "Token": "tok-1"},
	}
	tr := newTestTransport(api)
	require.NoError(t, tr.RegisterDeviceToken(context.Background(), "tok-1"))

	err := tr.Display(context.Background(), 42, "Hello", "World", `{"type":"test"}`)
	require.NoError(t, err)

	require.Len(t, api.published, 1)
	input := api.published[0]
	assert.Equal(t, "arn:endpoint", aws.ToString(input.TargetArn))
	assert.Equal(t, "42", aws.ToString(input.MessageAttributes["notification_id"].StringValue))

	var message map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(input.Message)), &message))
	assert.Equal(t, float64(42), message["notificationId"])
	assert.Equal(t, "Hello", message["title"])
	assert.Equal(t, "World", message["body"])
	assert.Equal(t, `{"type":"test"}`, message["payload"])
}

func TestDisplay_FailsWithoutEndpoint(t *testing.T) {
	tr := newTestTransport(&mockSNSAPI{})

	err := tr.Display(context.Background(), 1, "a", "b", "{}")

	assert.Error(t, err)
}

func TestToken_EmptyWithoutEndpoint(t *testing.T) {
	tr := newTestTransport(&mockSNSAPI{})

	token, err := tr.Token(context.Background())

	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestEmit_FullBufferDoesNotBlock(t *testing.T) {
	tr := newTestTransport(&mockSNSAPI{})
	defer tr.Close()

	assert.NotPanics(t, func() {
		for i := 0; i < 100; i++ {
			tr.EmitForeground(map[string]interface{}{"n": i})
			tr.EmitTokenRefresh("tok")
			tr.EmitIdentityChange("u1")
			tr.EmitTap(TapResponse{NotificationID: i})
		}
	})
}
