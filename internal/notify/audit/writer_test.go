package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"push-pipeline/internal/common/logger"
	"push-pipeline/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type mockIndexer struct {
	IndexFunc func(ctx context.Context, index, docID string, body io.Reader) error
	docs      []models.AuditRecord
}

func (m *mockIndexer) Index(ctx context.Context, index, docID string, body io.Reader) error {
	if m.IndexFunc != nil {
		return m.IndexFunc(ctx, index, docID, body)
	}
	var rec models.AuditRecord
	if err := json.NewDecoder(body).Decode(&rec); err != nil {
		return err
	}
	m.docs = append(m.docs, rec)
	return nil
}

func newTestWriter(store Indexer) *Writer {
	return NewWriter(store, "notification-audit", "test", 200, time.Second, logger.NewNoOpLogger())
}

// ==========================
// Tests
// ==========================

func TestRecord_WritesFixedSchema(t *testing.T) {
	store := &mockIndexer{}
	w := newTestWriter(store)

	w.Record(context.Background(), models.StepNotificationShown, models.TypeFollow, "u1", models.StatusSuccess, "rendered")

	require.Len(t, store.docs, 1)
	rec := store.docs[0]
	assert.Equal(t, models.StepNotificationShown, rec.Step)
	assert.Equal(t, models.TypeFollow, rec.NotificationType)
	assert.Equal(t, "u1", rec.TargetUserID)
	assert.Equal(t, models.StatusSuccess, rec.Status)
	assert.Equal(t, "rendered", rec.AdditionalInfo)
	assert.Equal(t, "test", rec.Platform)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestRecord_Defaults(t *testing.T) {
	store := &mockIndexer{}
	w := newTestWriter(store)

	w.Record(context.Background(), models.StepTokenReceived, models.TypeFCM, "", "", "")

	require.Len(t, store.docs, 1)
	assert.Equal(t, models.UnknownUser, store.docs[0].TargetUserID)
	assert.Equal(t, models.StatusInProgress, store.docs[0].Status)
}

func TestRecord_StorageFailureIsSwallowed(t *testing.T) {
	store := &mockIndexer{
		IndexFunc: func(ctx context.Context, index, docID string, body io.Reader) error {
			return errors.New("storage unavailable")
		},
	}
	w := newTestWriter(store)

	assert.NotPanics(t, func() {
		w.Record(context.Background(), models.StepNotificationShown, models.TypeFollow, "u1", models.StatusSuccess, "")
	})
}

func TestRecord_TruncatesLongInfo(t *testing.T) {
	store := &mockIndexer{}
	w := newTestWriter(store)

	long := strings.Repeat("x", 350)
	w.Record(context.Background(), models.StepNotificationFailed, models.TypeComment, "u2", models.StatusError, long)

	require.Len(t, store.docs, 1)
	info := store.docs[0].AdditionalInfo
	assert.LessOrEqual(t, len(info), 200+len(Ellipsis))
	assert.True(t, strings.HasSuffix(info, Ellipsis))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		max      int
		expected string
	}{
		{
			name:     "under cap stored verbatim",
			in:       "short",
			max:      200,
			expected: "short",
		},
		{
			name:     "exactly at cap stored verbatim",
			in:       strings.Repeat("a", 200),
			max:      200,
			expected: strings.Repeat("a", 200),
		},
		{
			name:     "over cap gets ellipsis",
			in:       strings.Repeat("a", 201),
			max:      200,
			expected: strings.Repeat("a", 200) + Ellipsis,
		},
		{
			name:     "empty string",
			in:       "",
			max:      200,
			expected: "",
		},
		{
			// "é" is two bytes; the cap lands mid-rune and the cut backs
			// off to the boundary.
			name:     "multi-byte rune is not split",
			in:       "abécd",
			max:      3,
			expected: "ab" + Ellipsis,
		},
		{
			name:     "cap on rune boundary keeps the rune",
			in:       "abécd",
			max:      4,
			expected: "abé" + Ellipsis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.in, tt.max))
		})
	}
}
