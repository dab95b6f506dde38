package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"

	"smart-ocr-server/internal/domain"
)

type testLogger struct{}

func (testLogger) Info(msg string, fields ...interface{})             {}
func (testLogger) Error(msg string, err error, fields ...interface{}) {}
func (testLogger) Debug(msg string, fields ...interface{})            {}
func (testLogger) Warn(msg string, fields ...interface{})             {}

// fakeRenderer encodes the page number as the image width so the fake
// recognizer can tell pages apart.
type fakeRenderer struct {
	calls      [][2]int
	failRanges map[int]bool // keyed by firstPage
}

func (r *fakeRenderer) RenderRange(ctx context.Context, path string, firstPage, lastPage int) ([]image.Image, error) {
	r.calls = append(r.calls, [2]int{firstPage, lastPage})
	if r.failRanges[firstPage] {
		return nil, errors.New("renderer exploded")
	}
	images := make([]image.Image, 0, lastPage-firstPage+1)
	for page := firstPage; page <= lastPage; page++ {
		images = append(images, image.NewRGBA(image.Rect(0, 0, page, 1)))
	}
	return images, nil
}

func (r *fakeRenderer) RenderPage(ctx context.Context, path string, page int) (image.Image, error) {
	images, err := r.RenderRange(ctx, path, page, page)
	if err != nil {
		return nil, err
	}
	return images[0], nil
}

type fakeRecognizer struct {
	failPages map[int]bool
	onPage    func(page int)
	panicOn   int
}

func (f *fakeRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	page := img.Bounds().Dx()
	if f.onPage != nil {
		f.onPage(page)
	}
	if f.panicOn != 0 && page == f.panicOn {
		panic("recognizer fault")
	}
	if f.failPages[page] {
		return "", errors.New("model unavailable")
	}
	return fmt.Sprintf("text of page %d", page), nil
}

func runEngine(t *testing.T, renderer *fakeRenderer, recognizer *fakeRecognizer, from, to, batchSize int, latch *CancelLatch, emit func(domain.Event)) Result {
	t.Helper()
	if emit == nil {
		emit = func(domain.Event) {}
	}
	engine := NewEngine(renderer, recognizer, testLogger{})
	return engine.Run(context.Background(), "test.pdf", from, to, batchSize, latch, emit)
}

func TestEngine_BatchBoundaries(t *testing.T) {
	renderer := &fakeRenderer{}
	res := runEngine(t, renderer, &fakeRecognizer{}, 1, 25, 10, NewCancelLatch(), nil)

	wantCalls := [][2]int{{1, 10}, {11, 20}, {21, 25}}
	if len(renderer.calls) != len(wantCalls) {
		t.Fatalf("expected %d render calls, got %v", len(wantCalls), renderer.calls)
	}
	for i, want := range wantCalls {
		if renderer.calls[i] != want {
			t.Fatalf("render call %d = %v, want %v", i, renderer.calls[i], want)
		}
	}

	if res.State != domain.RunStateCompleted {
		t.Fatalf("expected completed, got %s", res.State)
	}
	if len(res.Blocks) != 3 {
		t.Fatalf("expected 3 committed batches, got %d", len(res.Blocks))
	}
	if res.PagesAttempted != 25 {
		t.Fatalf("expected 25 pages attempted, got %d", res.PagesAttempted)
	}

	// Committed output preserves ascending page order.
	all := strings.Join(res.Blocks, "\n")
	last := -1
	for page := 1; page <= 25; page++ {
		pos := strings.Index(all, fmt.Sprintf("--- Page %d ---", page))
		if pos < 0 {
			t.Fatalf("page %d missing from output", page)
		}
		if pos <= last {
			t.Fatalf("page %d out of order", page)
		}
		last = pos
	}
}

func TestEngine_CancelAfterFirstCommitDropsRemainingBatches(t *testing.T) {
	renderer := &fakeRenderer{}
	latch := NewCancelLatch()
	emit := func(ev domain.Event) {
		if ev.Kind == domain.EventBatchCommitted {
			latch.Cancel()
		}
	}

	res := runEngine(t, renderer, &fakeRecognizer{}, 1, 25, 10, latch, emit)

	if res.State != domain.RunStateCancelled {
		t.Fatalf("expected cancelled, got %s", res.State)
	}
	if len(res.Blocks) != 1 {
		t.Fatalf("expected exactly batch 1 committed, got %d blocks", len(res.Blocks))
	}
	if len(renderer.calls) != 1 {
		t.Fatalf("expected no render call for batch 2, got %v", renderer.calls)
	}
	if !strings.Contains(res.Blocks[0], "--- Page 10 ---") || strings.Contains(res.Blocks[0], "--- Page 11 ---") {
		t.Fatalf("committed block has wrong pages: %q", res.Blocks[0])
	}
}

func TestEngine_CancelMidBatchDiscardsUncommittedPages(t *testing.T) {
	latch := NewCancelLatch()
	recognizer := &fakeRecognizer{onPage: func(page int) {
		if page == 3 {
			latch.Cancel()
		}
	}}

	res := runEngine(t, &fakeRenderer{}, recognizer, 1, 10, 10, latch, nil)

	if res.State != domain.RunStateCancelled {
		t.Fatalf("expected cancelled, got %s", res.State)
	}
	if len(res.Blocks) != 0 {
		t.Fatalf("expected no committed batches, got %v", res.Blocks)
	}
	if len(res.Pages) != 0 {
		t.Fatalf("expected no committed pages, got %d", len(res.Pages))
	}
}

func TestEngine_PageFailureDoesNotAbortBatch(t *testing.T) {
	recognizer := &fakeRecognizer{failPages: map[int]bool{7: true}}

	res := runEngine(t, &fakeRenderer{}, recognizer, 1, 10, 10, NewCancelLatch(), nil)

	if len(res.Blocks) != 1 {
		t.Fatalf("expected the batch committed, got %d blocks", len(res.Blocks))
	}
	block := res.Blocks[0]
	for page := 1; page <= 10; page++ {
		if !strings.Contains(block, fmt.Sprintf("--- Page %d ---", page)) {
			t.Fatalf("page %d missing from committed batch", page)
		}
	}
	if !strings.Contains(block, "Error processing page 7") {
		t.Fatalf("expected error annotation for page 7, got %q", block)
	}
	// The only batch had errors, so the run did not complete cleanly.
	if res.State != domain.RunStateCompletedWithErrors {
		t.Fatalf("expected completed_with_errors, got %s", res.State)
	}

	failed := 0
	for _, p := range res.Pages {
		if p.Failed {
			failed++
			if p.Page != 7 {
				t.Fatalf("unexpected failed page %d", p.Page)
			}
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly 1 failed page, got %d", failed)
	}
}

func TestEngine_RenderFailureSkipsBatchAndContinues(t *testing.T) {
	renderer := &fakeRenderer{failRanges: map[int]bool{1: true}}

	res := runEngine(t, renderer, &fakeRecognizer{}, 1, 20, 10, NewCancelLatch(), nil)

	if len(res.Blocks) != 2 {
		t.Fatalf("expected placeholder plus batch 2, got %d blocks", len(res.Blocks))
	}
	if !strings.Contains(res.Blocks[0], "--- ERROR LOADING BATCH: Pages 1-10 ---") {
		t.Fatalf("expected batch error placeholder, got %q", res.Blocks[0])
	}
	if !strings.Contains(res.Blocks[1], "--- Page 11 ---") {
		t.Fatalf("expected batch 2 committed, got %q", res.Blocks[1])
	}
	if res.PagesAttempted != 20 {
		t.Fatalf("expected progress to advance past skipped batch, got %d", res.PagesAttempted)
	}
	if res.State != domain.RunStateCompleted {
		t.Fatalf("expected completed (batch 2 succeeded), got %s", res.State)
	}
}

func TestEngine_PanicBecomesFailedResult(t *testing.T) {
	recognizer := &fakeRecognizer{panicOn: 2}

	res := runEngine(t, &fakeRenderer{}, recognizer, 1, 5, 5, NewCancelLatch(), nil)

	if res.State != domain.RunStateFailed {
		t.Fatalf("expected failed, got %s", res.State)
	}
	if res.Err == nil || !strings.Contains(res.Err.Error(), "recognizer fault") {
		t.Fatalf("expected fault message, got %v", res.Err)
	}
}

func TestCancelLatch_Idempotent(t *testing.T) {
	latch := NewCancelLatch()
	if latch.Cancelled() {
		t.Fatal("fresh latch must not be cancelled")
	}
	latch.Cancel()
	latch.Cancel()
	if !latch.Cancelled() {
		t.Fatal("latch must stay cancelled")
	}
}
