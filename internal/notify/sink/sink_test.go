package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-pipeline/internal/common/logger"
	"push-pipeline/internal/models"
)

type mockRecorder struct {
	records []recordedEntry
}

type recordedEntry struct {
	Step   string
	Type   string
	Target string
	Status string
	Info   string
}

func (m *mockRecorder) Record(_ context.Context, step, notificationType, targetUserID, status, info string) {
	m.records = append(m.records, recordedEntry{step, notificationType, targetUserID, status, info})
}

type mockEmailer struct {
	sent []*ses.SendEmailInput
	err  error
}

func (m *mockEmailer) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	m.sent = append(m.sent, input)
	return &ses.SendEmailOutput{}, m.err
}

func TestRecordErrorWritesAuditEntry(t *testing.T) {
	rec := &mockRecorder{}
	s := New(rec, nil, nil, AlertConfig{}, logger.NewNoOpLogger())

	s.RecordError(context.Background(), models.TypeFollow, "u1", errors.New("display timed out"), "")

	require.Len(t, rec.records, 1)
	entry := rec.records[0]
	assert.Equal(t, models.StepNotificationFailed, entry.Step)
	assert.Equal(t, models.TypeFollow, entry.Type)
	assert.Equal(t, "u1", entry.Target)
	assert.Equal(t, models.StatusError, entry.Status)
	assert.Equal(t, "display timed out", entry.Info)
}

func TestRecordErrorAppendsTrace(t *testing.T) {
	rec := &mockRecorder{}
	s := New(rec, nil, nil, AlertConfig{}, logger.NewNoOpLogger())

	s.RecordError(context.Background(), models.TypeComment, "u2", errors.New("boom"), "goroutine 7 [running]")

	require.Len(t, rec.records, 1)
	assert.Equal(t, "boom | goroutine 7 [running]", rec.records[0].Info)
}

func TestInitializationErrorAlertsOperator(t *testing.T) {
	rec := &mockRecorder{}
	email := &mockEmailer{}
	alert := AlertConfig{Enabled: true, FromEmail: "alerts@example.com", ToEmail: "oncall@example.com"}
	s := New(rec, nil, email, alert, logger.NewNoOpLogger())

	s.RecordError(context.Background(), models.StepInitialization, models.UnknownUser, errors.New("redis unreachable"), "")

	require.Len(t, email.sent, 1)
	input := email.sent[0]
	assert.Equal(t, "alerts@example.com", *input.Source)
	assert.Equal(t, []string{"oncall@example.com"}, input.Destination.ToAddresses)
	assert.Equal(t, "redis unreachable", *input.Message.Body.Text.Data)
}

func TestOperatorAlertDisabledByConfig(t *testing.T) {
	email := &mockEmailer{}
	s := New(&mockRecorder{}, nil, email, AlertConfig{Enabled: false}, logger.NewNoOpLogger())

	s.RecordError(context.Background(), models.StepInitialization, models.UnknownUser, errors.New("redis unreachable"), "")

	assert.Empty(t, email.sent)
}

func TestOperatorAlertFailureIsSwallowed(t *testing.T) {
	email := &mockEmailer{err: errors.New("ses throttled")}
	alert := AlertConfig{Enabled: true, FromEmail: "a@example.com", ToEmail: "b@example.com"}
	s := New(&mockRecorder{}, nil, email, alert, logger.NewNoOpLogger())

	assert.NotPanics(t, func() {
		s.RecordError(context.Background(), models.StepInitialization, models.UnknownUser, errors.New("bad"), "")
	})
}

func TestNonInitializationErrorDoesNotAlert(t *testing.T) {
	email := &mockEmailer{}
	alert := AlertConfig{Enabled: true, FromEmail: "a@example.com", ToEmail: "b@example.com"}
	s := New(&mockRecorder{}, nil, email, alert, logger.NewNoOpLogger())

	s.RecordError(context.Background(), models.TypeMessage, "u3", errors.New("bad"), "")

	assert.Empty(t, email.sent)
}

func TestRecordAttemptAndDisplayDoNotPanic(t *testing.T) {
	s := New(&mockRecorder{}, nil, nil, AlertConfig{}, logger.NewNoOpLogger())

	assert.NotPanics(t, func() {
		s.RecordAttempt(models.TypeRating, "u4", "show_rating", nil)
		s.RecordAttempt(models.TypeRating, "u4", "show_rating", errors.New("render failed"))
		s.RecordDisplay(models.TypeRating, "foreground")
	})
}
