package render

import (
	"context"
	"fmt"
	"image"
	"time"

	"smart-ocr-server/internal/domain"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer rasterizes document pages with MuPDF via go-fitz. Each call
// opens its own document handle: fitz documents are not goroutine-safe and
// render calls may run while a preview is requested.
type FitzRenderer struct {
	logger  domain.Logger
	dpi     float64
	timeout time.Duration
}

func NewFitzRenderer(logger domain.Logger, dpi float64, timeout time.Duration) *FitzRenderer {
	if dpi <= 0 {
		dpi = 150
	}
	return &FitzRenderer{
		logger:  logger,
		dpi:     dpi,
		timeout: timeout,
	}
}

// RenderRange rasterizes pages firstPage..lastPage (1-based, inclusive)
// and returns them in page order.
func (r *FitzRenderer) RenderRange(ctx context.Context, path string, firstPage, lastPage int) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	ownDoc := true
	defer func() {
		if ownDoc {
			doc.Close()
		}
	}()

	if firstPage < 1 || lastPage > doc.NumPage() || firstPage > lastPage {
		return nil, fmt.Errorf("page range %d-%d outside document (1-%d)", firstPage, lastPage, doc.NumPage())
	}

	images := make([]image.Image, 0, lastPage-firstPage+1)
	for page := firstPage; page <= lastPage; page++ {
		img, handedOff, err := r.renderOne(ctx, doc, page)
		if handedOff {
			ownDoc = false
		}
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", page, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// RenderPage rasterizes a single page (1-based).
func (r *FitzRenderer) RenderPage(ctx context.Context, path string, page int) (image.Image, error) {
	images, err := r.RenderRange(ctx, path, page, page)
	if err != nil {
		return nil, err
	}
	return images[0], nil
}

// renderOne guards the cgo render call with the configured timeout so one
// stuck page cannot wedge the pipeline goroutine forever. When it stops
// waiting, the stuck call may still hold the document, so close ownership
// moves with it; the second return value reports that hand-off.
func (r *FitzRenderer) renderOne(ctx context.Context, doc *fitz.Document, page int) (image.Image, bool, error) {
	img, handedOff, err := guardRender(ctx, r.timeout, func() (image.Image, error) {
		return doc.ImageDPI(page-1, r.dpi)
	}, func() { doc.Close() })
	if handedOff {
		r.logger.Warn("Abandoned stuck page render", "page", page, "error", err)
	}
	return img, handedOff, err
}

type renderResult struct {
	img image.Image
	err error
}

// guardRender runs render on its own goroutine and waits up to timeout or
// ctx cancellation. When it gives up waiting, the render call is still in
// flight, so a drain goroutine takes over: it waits for render to return
// and only then runs abandon, keeping the cleanup off the live call.
func guardRender(ctx context.Context, timeout time.Duration, render func() (image.Image, error), abandon func()) (image.Image, bool, error) {
	resultCh := make(chan renderResult, 1)
	go func() {
		img, err := render()
		resultCh <- renderResult{img: img, err: err}
	}()

	select {
	case res := <-resultCh:
		return res.img, false, res.err
	case <-ctx.Done():
		go func() {
			<-resultCh
			abandon()
		}()
		return nil, true, ctx.Err()
	case <-time.After(timeout):
		go func() {
			<-resultCh
			abandon()
		}()
		return nil, true, fmt.Errorf("timeout after %v", timeout)
	}
}
