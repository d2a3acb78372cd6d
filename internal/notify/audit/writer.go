// Package audit appends pipeline step records to the durable audit index.
// The writer is a pure side-channel: it has no failure mode visible to its
// callers. A failed write is logged locally, counted, and dropped.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"
	"unicode/utf8"

	pperrors "push-pipeline/internal/common/errors"
	"push-pipeline/internal/common/logger"
	"push-pipeline/internal/common/metrics"
	"push-pipeline/internal/models"

	"github.com/google/uuid"
)

// Ellipsis marks a truncated additional_info value.
const Ellipsis = "..."

// Indexer is the storage surface the writer needs. Satisfied by
// database.ElasticsearchClient.
type Indexer interface {
	Index(ctx context.Context, index, docID string, body io.Reader) error
}

// Recorder is the call surface the rest of the pipeline depends on.
type Recorder interface {
	Record(ctx context.Context, step, notificationType, targetUserID, status, info string)
}

type Writer struct {
	store    Indexer
	index    string
	platform string
	infoCap  int
	timeout  time.Duration
	logger   logger.Logger
	now      func() time.Time
}

func NewWriter(store Indexer, index, platform string, infoCap int, timeout time.Duration, log logger.Logger) *Writer {
	if infoCap <= 0 {
		infoCap = 200
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{
		store:    store,
		index:    index,
		platform: platform,
		infoCap:  infoCap,
		timeout:  timeout,
		logger:   log.WithFields(map[string]interface{}{"component": "audit"}),
		now:      time.Now,
	}
}

// Record appends one step record. Empty targetUserID defaults to "unknown",
// empty status to "in_progress". Never returns; failures are swallowed.
func (w *Writer) Record(ctx context.Context, step, notificationType, targetUserID, status, info string) {
	if targetUserID == "" {
		targetUserID = models.UnknownUser
	}
	if status == "" {
		status = models.StatusInProgress
	}

	rec := models.AuditRecord{
		Timestamp:        w.now().UTC(),
		Step:             step,
		NotificationType: notificationType,
		TargetUserID:     targetUserID,
		Status:           status,
		AdditionalInfo:   Truncate(info, w.infoCap),
		Platform:         w.platform,
	}

	body, err := json.Marshal(rec)
	if err != nil {
		w.dropped(step, err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.store.Index(writeCtx, w.index, uuid.New().String(), bytes.NewReader(body)); err != nil {
		w.dropped(step, err)
	}
}

// dropped logs a failed write to the local diagnostic channel and counts it.
func (w *Writer) dropped(step string, err error) {
	metrics.AuditWriteFailures.Inc()
	w.logger.Warn("audit record dropped", map[string]interface{}{
		"step":  step,
		"error": pperrors.NewStorageWriteError("elasticsearch", err).Error(),
	})
}

// Truncate caps s at max bytes, appending the ellipsis marker when anything
// was cut. The cut backs off to a rune boundary so multi-byte characters are
// never split.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + Ellipsis
}
