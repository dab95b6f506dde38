package service

import (
	"context"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"smart-ocr-server/internal/domain"
	"smart-ocr-server/internal/pipeline"
	apperrors "smart-ocr-server/pkg/errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ConversionService owns the current document and at most one live
// conversion run. All mutable state is guarded by mu; the run goroutine
// reaches back only through the latch, the event hub, and short critical
// sections here.
type ConversionService struct {
	logger   domain.Logger
	detector domain.TypeDetector
	renderer domain.PageRenderer
	engine   *pipeline.Engine
	hub      *EventHub

	defaultBatchSize int

	mu      sync.Mutex
	doc     *domain.Document
	docInfo *domain.DocumentInfo
	run     *runState
	blocks  []string // committed batch texts, ascending page order
}

type runState struct {
	status domain.RunStatus
	latch  *pipeline.CancelLatch
}

func NewConversionService(
	detector domain.TypeDetector,
	renderer domain.PageRenderer,
	engine *pipeline.Engine,
	hub *EventHub,
	logger domain.Logger,
	defaultBatchSize int,
) *ConversionService {
	if defaultBatchSize < 1 {
		defaultBatchSize = 10
	}
	return &ConversionService{
		logger:           logger,
		detector:         detector,
		renderer:         renderer,
		engine:           engine,
		hub:              hub,
		defaultBatchSize: defaultBatchSize,
	}
}

// LoadDocument detects the file's type and page count and makes it the
// current document, replacing any previous one. Rejected while a run is
// active. Type detection and the first-page preview render run
// concurrently; a preview failure only logs.
func (s *ConversionService) LoadDocument(ctx context.Context, path string) (*domain.DocumentInfo, error) {
	s.mu.Lock()
	if s.runActiveLocked() {
		s.mu.Unlock()
		return nil, apperrors.NewConflictError(domain.ErrRunActive.Error())
	}
	s.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.NewValidationError("document file is not readable", err.Error())
	}

	var (
		fileType     domain.FileType
		pageCount    int
		previewReady bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ft, n, err := s.detector.Detect(path)
		if err != nil {
			return err
		}
		fileType, pageCount = ft, n
		return nil
	})
	g.Go(func() error {
		if _, err := s.renderer.RenderPage(gctx, path, 1); err != nil {
			s.logger.Warn("Could not render first page preview", "path", path, "error", err)
			return nil
		}
		previewReady = true
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	doc := domain.NewDocument()
	doc.FileType = fileType
	for i := 0; i < pageCount; i++ {
		doc.AddPage()
	}
	info := &domain.DocumentInfo{Path: path, FileType: fileType, PageCount: pageCount}

	s.mu.Lock()
	// Re-check: a run may have started while detection ran unlocked. The
	// active run keeps its document; this load loses.
	if s.runActiveLocked() {
		s.mu.Unlock()
		return nil, apperrors.NewConflictError(domain.ErrRunActive.Error())
	}
	s.doc = doc
	s.docInfo = info
	s.run = nil
	s.blocks = nil
	s.mu.Unlock()

	s.logger.Info("Document loaded", "path", path, "file_type", fileType, "pages", pageCount)
	s.hub.Publish(domain.Event{Kind: domain.EventPageCountKnown, PageCount: pageCount})
	if previewReady {
		s.hub.Publish(domain.Event{Kind: domain.EventPreviewReady, Page: 1})
	}
	s.hub.Publish(domain.Event{
		Kind:    domain.EventStatusChanged,
		Message: fmt.Sprintf("Loaded %s document with %d pages.", fileType, pageCount),
	})

	infoCopy := *info
	return &infoCopy, nil
}

// StartRun validates the requested range and launches the pipeline on a
// background goroutine. A second start while a run is active is rejected
// synchronously without touching the in-progress run.
func (s *ConversionService) StartRun(fromPage, toPage *int, batchSize int) (*domain.RunStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return nil, apperrors.NewValidationError(domain.ErrNoDocument.Error())
	}
	if !s.doc.HasPages() {
		return nil, apperrors.NewValidationError(domain.ErrNoPages.Error())
	}
	if s.runActiveLocked() {
		return nil, apperrors.NewConflictError(domain.ErrRunActive.Error())
	}

	totalPages := s.doc.PageCount()
	if batchSize < 1 {
		s.logger.Warn("Invalid batch size, using default", "batch_size", batchSize, "default", s.defaultBatchSize)
		batchSize = s.defaultBatchSize
	}

	from, to := 1, totalPages
	if fromPage != nil || toPage != nil {
		if fromPage == nil || toPage == nil {
			return nil, apperrors.NewValidationError("both 'from' and 'to' pages must be provided, or neither")
		}
		from, to = *fromPage, *toPage
		if from < 1 || from > totalPages {
			return nil, apperrors.NewValidationError(fmt.Sprintf("'from' page must be between 1 and %d", totalPages))
		}
		if to < 1 || to > totalPages {
			return nil, apperrors.NewValidationError(fmt.Sprintf("'to' page must be between 1 and %d", totalPages))
		}
		if from > to {
			return nil, apperrors.NewValidationError("'from' page must not be greater than 'to' page")
		}
	}

	rs := &runState{
		status: domain.RunStatus{
			RunID:      uuid.NewString(),
			State:      domain.RunStateRunning,
			FromPage:   from,
			ToPage:     to,
			BatchSize:  batchSize,
			PagesTotal: to - from + 1,
			Message:    fmt.Sprintf("Starting OCR for pages %d to %d...", from, to),
		},
		latch: pipeline.NewCancelLatch(),
	}
	s.run = rs

	go s.runConversion(s.docInfo.Path, rs)

	statusCopy := rs.status
	return &statusCopy, nil
}

// runConversion is the background half of StartRun. It runs the engine to
// a terminal state, commits results into the service and the document
// model, and reports the outcome through the event hub.
func (s *ConversionService) runConversion(path string, rs *runState) {
	s.hub.Publish(domain.Event{Kind: domain.EventStatusChanged, Message: rs.status.Message})

	emit := func(ev domain.Event) {
		s.mu.Lock()
		switch ev.Kind {
		case domain.EventBatchCommitted:
			s.blocks = append(s.blocks, ev.Text)
		case domain.EventStatusChanged:
			rs.status.Message = ev.Message
		}
		if ev.Progress > rs.status.PagesAttempted {
			rs.status.PagesAttempted = ev.Progress
		}
		s.mu.Unlock()
		s.hub.Publish(ev)
	}

	res := s.engine.Run(context.Background(), path, rs.status.FromPage, rs.status.ToPage, rs.status.BatchSize, rs.latch, emit)

	finalMessage := ""
	switch res.State {
	case domain.RunStateCompleted:
		finalMessage = "OCR process completed."
	case domain.RunStateCompletedWithErrors:
		finalMessage = "OCR finished, but encountered errors or no text was processed."
	case domain.RunStateCancelled:
		finalMessage = "OCR process cancelled by user."
	case domain.RunStateFailed:
		finalMessage = fmt.Sprintf("OCR process failed unexpectedly: %v", res.Err)
	}

	s.mu.Lock()
	rs.status.State = res.State
	rs.status.PagesAttempted = res.PagesAttempted
	rs.status.Message = finalMessage
	// Record committed page texts as extracted objects, delete + re-add on
	// reconversion. Failed pages leave the model untouched.
	for _, p := range res.Pages {
		if p.Failed {
			continue
		}
		pageIdx := p.Page - 1
		s.doc.DeletePageObjects(pageIdx)
		page := pageIdx
		s.doc.AddObject(&page, domain.ObjectKindText, p.Text, nil)
	}
	s.mu.Unlock()

	s.logger.Info("Conversion run finished", "run_id", rs.status.RunID, "state", res.State, "pages_attempted", res.PagesAttempted)
	s.hub.Publish(domain.Event{Kind: domain.EventStatusChanged, Message: finalMessage})
	s.hub.Publish(domain.Event{Kind: domain.EventRunFinished, Outcome: res.State, Message: finalMessage})
}

// CancelRun sets the cancellation latch for the active run. The run stops
// at its next checkpoint; cancellation is a terminal outcome, not an
// error.
func (s *ConversionService) CancelRun() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.runActiveLocked() {
		return apperrors.NewNotFoundError(domain.ErrNoActiveRun.Error())
	}
	s.run.latch.Cancel()
	s.run.status.Message = "Cancellation requested..."
	s.hub.Publish(domain.Event{Kind: domain.EventStatusChanged, Message: "Cancellation requested..."})
	s.logger.Info("Run cancellation requested", "run_id", s.run.status.RunID)
	return nil
}

// GetPage renders a single page for preview. The index is 0-based, as the
// document model counts pages.
func (s *ConversionService) GetPage(ctx context.Context, index int) (image.Image, error) {
	s.mu.Lock()
	if s.doc == nil {
		s.mu.Unlock()
		return nil, apperrors.NewNotFoundError(domain.ErrNoDocument.Error())
	}
	if index < 0 || index >= s.doc.PageCount() {
		pageCount := s.doc.PageCount()
		s.mu.Unlock()
		return nil, apperrors.NewValidationError(domain.ErrPageOutOfRange.Error(),
			fmt.Sprintf("index must be between 0 and %d", pageCount-1))
	}
	path := s.docInfo.Path
	s.mu.Unlock()

	img, err := s.renderer.RenderPage(ctx, path, index+1)
	if err != nil {
		return nil, apperrors.NewProcessingError(fmt.Sprintf("could not render page %d", index+1), err)
	}
	return img, nil
}

// Status returns a snapshot of the current document and run.
func (s *ConversionService) Status() *domain.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &domain.StatusSnapshot{}
	if s.docInfo != nil {
		info := *s.docInfo
		snap.Document = &info
	}
	if s.run != nil {
		status := s.run.status
		snap.Run = &status
	}
	return snap
}

// Results returns the committed text blocks accumulated so far, joined
// with blank-line separation. Safe to call while a run is in flight.
func (s *ConversionService) Results() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.blocks, "\n")
}

// SaveResults writes the accumulated results to path, UTF-8 encoded,
// overwriting any existing file.
func (s *ConversionService) SaveResults(path string) error {
	text := s.Results()
	if text == "" {
		return apperrors.NewValidationError("there is no text content to save")
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return apperrors.NewInternalError("could not save OCR output", err)
	}
	s.logger.Info("Results saved", "path", path, "bytes", len(text))
	s.hub.Publish(domain.Event{Kind: domain.EventStatusChanged, Message: "Results saved."})
	return nil
}

// Subscribe registers an event listener for pipeline events.
func (s *ConversionService) Subscribe() (int, <-chan domain.Event) {
	return s.hub.Subscribe()
}

// Unsubscribe removes a previously registered event listener.
func (s *ConversionService) Unsubscribe(id int) {
	s.hub.Unsubscribe(id)
}

func (s *ConversionService) runActiveLocked() bool {
	return s.run != nil && s.run.status.State == domain.RunStateRunning
}
