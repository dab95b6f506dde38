package pipeline

import (
	"context"
	"fmt"
	"strings"

	"smart-ocr-server/internal/domain"
)

// PageText is one committed page's recognized text.
type PageText struct {
	Page   int // 1-based
	Text   string
	Failed bool
}

// Result is the terminal outcome of one engine run. Blocks holds one
// entry per committed batch, in ascending page order; Pages holds the
// committed per-page texts the document model can be updated from.
type Result struct {
	State          domain.RunState
	Blocks         []string
	Pages          []PageText
	PagesAttempted int
	Err            error
}

// Engine drives the batch conversion loop: it partitions the requested
// page range into batches, renders each batch, recognizes each page, and
// commits per-batch results. It holds no run state between calls.
type Engine struct {
	renderer   domain.PageRenderer
	recognizer domain.Recognizer
	logger     domain.Logger
}

func NewEngine(renderer domain.PageRenderer, recognizer domain.Recognizer, logger domain.Logger) *Engine {
	return &Engine{
		renderer:   renderer,
		recognizer: recognizer,
		logger:     logger,
	}
}

// Run executes one conversion over pages fromPage..toPage (1-based,
// inclusive, validated by the caller). The latch is polled before each
// batch and around each recognition call; a batch interrupted by
// cancellation is dropped, so at most the last fully committed batch
// survives. Run never panics: engine-internal faults surface as a Failed
// result.
func (e *Engine) Run(ctx context.Context, path string, fromPage, toPage, batchSize int, latch *CancelLatch, emit func(domain.Event)) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("unexpected engine fault: %v", r)
			e.logger.Error("Conversion run failed", err, "path", path)
			result.State = domain.RunStateFailed
			result.Err = err
		}
	}()

	totalPages := toPage - fromPage + 1
	anyBatchSucceeded := false
	cancelled := false

	for batchStart := fromPage; batchStart <= toPage; batchStart += batchSize {
		if latch.Cancelled() {
			cancelled = true
			break
		}

		batchEnd := batchStart + batchSize - 1
		if batchEnd > toPage {
			batchEnd = toPage
		}
		emit(domain.Event{
			Kind:    domain.EventStatusChanged,
			Message: fmt.Sprintf("Loading batch: pages %d to %d...", batchStart, batchEnd),
		})

		images, err := e.renderer.RenderRange(ctx, path, batchStart, batchEnd)
		if err != nil {
			if latch.Cancelled() {
				cancelled = true
				break
			}
			e.logger.Error("Failed to render batch", err, "first_page", batchStart, "last_page", batchEnd)
			result.PagesAttempted += batchEnd - batchStart + 1
			placeholder := fmt.Sprintf("--- ERROR LOADING BATCH: Pages %d-%d ---\nError: %v\n", batchStart, batchEnd, err)
			result.Blocks = append(result.Blocks, placeholder)
			emit(domain.Event{Kind: domain.EventError, ErrorKind: "render", Message: err.Error(), Progress: result.PagesAttempted})
			emit(domain.Event{Kind: domain.EventBatchCommitted, Text: placeholder, Progress: result.PagesAttempted})
			continue
		}

		var batchBlocks []string
		var batchPages []PageText
		batchHadErrors := false

		for i, img := range images {
			if latch.Cancelled() {
				cancelled = true
				break
			}
			page := batchStart + i
			result.PagesAttempted++
			emit(domain.Event{
				Kind:     domain.EventStatusChanged,
				Message:  fmt.Sprintf("Recognizing page %d (%d/%d)...", page, result.PagesAttempted, totalPages),
				Page:     page,
				Progress: result.PagesAttempted,
			})

			text, err := e.recognizer.Recognize(ctx, img)
			if latch.Cancelled() {
				cancelled = true
				break
			}
			failed := false
			if err != nil {
				e.logger.Error("Recognition failed for page", err, "page", page)
				text = fmt.Sprintf("Error processing page %d: %v", page, err)
				batchHadErrors = true
				failed = true
				emit(domain.Event{Kind: domain.EventError, ErrorKind: "recognition", Page: page, Message: err.Error()})
			}
			batchBlocks = append(batchBlocks, fmt.Sprintf("--- Page %d ---\n%s\n", page, text))
			batchPages = append(batchPages, PageText{Page: page, Text: text, Failed: failed})
		}

		if cancelled {
			break
		}
		if len(batchBlocks) > 0 {
			batchText := strings.Join(batchBlocks, "\n")
			result.Blocks = append(result.Blocks, batchText)
			result.Pages = append(result.Pages, batchPages...)
			if !batchHadErrors {
				anyBatchSucceeded = true
			}
			emit(domain.Event{Kind: domain.EventBatchCommitted, Text: batchText, Progress: result.PagesAttempted})
			e.logger.Debug("Committed batch", "first_page", batchStart, "last_page", batchEnd)
		}
	}

	switch {
	case cancelled:
		result.State = domain.RunStateCancelled
	case anyBatchSucceeded:
		result.State = domain.RunStateCompleted
	default:
		result.State = domain.RunStateCompletedWithErrors
	}
	return result
}
