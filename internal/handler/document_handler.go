package handler

import (
	"image/png"
	"net/http"
	"strconv"

	"smart-ocr-server/internal/domain"
	apperrors "smart-ocr-server/pkg/errors"

	"github.com/gorilla/mux"
)

// DocumentHandler serves document load, info, and page preview requests.
type DocumentHandler struct {
	service domain.ConversionService
	logger  domain.Logger
}

func NewDocumentHandler(service domain.ConversionService, logger domain.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		logger:  logger,
	}
}

type loadDocumentRequest struct {
	Path string `json:"path"`
}

// LoadDocument handles POST /api/v1/documents
func (h *DocumentHandler) LoadDocument(w http.ResponseWriter, r *http.Request) {
	var req loadDocumentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Path == "" {
		writeError(w, h.logger, apperrors.NewValidationError("path is required"))
		return
	}

	info, err := h.service.LoadDocument(r.Context(), req.Path)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// GetDocument handles GET /api/v1/documents/current
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Status()
	if snap.Document == nil {
		writeError(w, h.logger, apperrors.NewNotFoundError("no document loaded"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetPage handles GET /api/v1/documents/current/pages/{index} and returns
// the rendered page as PNG.
func (h *DocumentHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	indexStr := mux.Vars(r)["index"]
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		writeError(w, h.logger, apperrors.NewValidationError("page index must be an integer"))
		return
	}

	img, err := h.service.GetPage(r.Context(), index)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		h.logger.Error("Failed to encode page preview", err, "index", index)
	}
}
