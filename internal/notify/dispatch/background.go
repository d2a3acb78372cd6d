package dispatch

import (
	"context"
	"encoding/json"

	pperrors "push-pipeline/internal/common/errors"
	"push-pipeline/internal/common/logger"
	"push-pipeline/internal/models"
	"push-pipeline/internal/notify/audit"
	"push-pipeline/internal/notify/render"
	"push-pipeline/internal/notify/sink"
)

// BackgroundHandler processes triggers that arrive while no dispatcher
// service is running. It is rebuilt from scratch per process and carries
// only the dependencies a render needs; it shares no memory with a live
// Service and must not assume one exists.
type BackgroundHandler struct {
	svc *Service
}

func NewBackgroundHandler(renderer *render.Renderer, rec audit.Recorder, snk *sink.Sink, opts Options, log logger.Logger) *BackgroundHandler {
	return &BackgroundHandler{
		svc: NewService(nil, nil, renderer, rec, snk, nil, nil, opts, log),
	}
}

// Handle runs one raw trigger through the same decision path as a
// foreground message, tagged with the background source.
func (h *BackgroundHandler) Handle(ctx context.Context, raw map[string]interface{}) {
	h.svc.HandleTrigger(ctx, raw, "background")
}

// HandleRaw decodes a JSON trigger blob and handles it. A blob that is not
// a JSON object is recorded and dropped.
func (h *BackgroundHandler) HandleRaw(ctx context.Context, blob []byte) {
	var raw map[string]interface{}
	if err := json.Unmarshal(blob, &raw); err != nil {
		h.svc.sink.RecordError(ctx, models.TypeUnknown, models.UnknownUser,
			pperrors.NewPayloadDecodeError(err), "")
		return
	}
	h.Handle(ctx, raw)
}
