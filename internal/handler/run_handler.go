package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"smart-ocr-server/internal/domain"
	apperrors "smart-ocr-server/pkg/errors"
)

// RunHandler serves conversion run control, results, and the event
// stream.
type RunHandler struct {
	service domain.ConversionService
	logger  domain.Logger
}

func NewRunHandler(service domain.ConversionService, logger domain.Logger) *RunHandler {
	return &RunHandler{
		service: service,
		logger:  logger,
	}
}

type startRunRequest struct {
	FromPage  *int `json:"from_page,omitempty"`
	ToPage    *int `json:"to_page,omitempty"`
	BatchSize int  `json:"batch_size,omitempty"`
}

// StartRun handles POST /api/v1/runs
func (h *RunHandler) StartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	status, err := h.service.StartRun(req.FromPage, req.ToPage, req.BatchSize)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, status)
}

// CancelRun handles DELETE /api/v1/runs/current
func (h *RunHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CancelRun(); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancellation requested"})
}

// GetRun handles GET /api/v1/runs/current and includes the text committed
// so far, so partial results stay retrievable at any time.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Status()
	if snap.Run == nil {
		writeError(w, h.logger, apperrors.NewNotFoundError("no conversion run"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run":     snap.Run,
		"results": h.service.Results(),
	})
}

type saveResultsRequest struct {
	Path string `json:"path"`
}

// SaveResults handles POST /api/v1/results/save
func (h *RunHandler) SaveResults(w http.ResponseWriter, r *http.Request) {
	var req saveResultsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Path == "" {
		writeError(w, h.logger, apperrors.NewValidationError("path is required"))
		return
	}
	if err := h.service.SaveResults(req.Path); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "path": req.Path})
}

// StreamEvents handles GET /api/v1/runs/current/events as a server-sent
// event stream of pipeline events.
func (h *RunHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, apperrors.NewInternalError("streaming not supported", nil))
		return
	}

	id, events := h.service.Subscribe()
	defer h.service.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("Failed to marshal event", "kind", ev.Kind, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload)
			flusher.Flush()
		}
	}
}
