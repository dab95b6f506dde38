package recognize

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"smart-ocr-server/internal/domain"
)

// RecognitionError wraps any staging or backend failure for one page. The
// pipeline treats it as a per-page outcome, never as a run abort.
type RecognitionError struct {
	Message string
	Cause   error
}

func (e *RecognitionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RecognitionError) Unwrap() error {
	return e.Cause
}

// Adapter turns one raster page image into normalized text through the
// configured backend. It stages the image as a transient PNG file which is
// released on every exit path.
type Adapter struct {
	backend domain.RecognitionBackend
	prompt  string
	logger  domain.Logger
}

func NewAdapter(backend domain.RecognitionBackend, prompt string, logger domain.Logger) *Adapter {
	return &Adapter{
		backend: backend,
		prompt:  prompt,
		logger:  logger,
	}
}

// Recognize issues exactly one recognition request for img and blocks
// until the backend answers. It is only ever called from the pipeline
// goroutine.
func (a *Adapter) Recognize(ctx context.Context, img image.Image) (string, error) {
	imagePath, err := a.stageImage(img)
	if err != nil {
		return "", &RecognitionError{Message: "failed to stage page image", Cause: err}
	}
	defer func() {
		if err := os.Remove(imagePath); err != nil {
			a.logger.Warn("Failed to remove staged page image", "path", imagePath, "error", err)
		}
	}()

	raw, err := a.backend.Recognize(ctx, imagePath, a.prompt)
	if err != nil {
		return "", &RecognitionError{Message: "recognition backend call failed", Cause: err}
	}
	return Normalize(raw, a.logger), nil
}

func (a *Adapter) stageImage(img image.Image) (string, error) {
	tmp, err := os.CreateTemp("", "smartocr-page-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to encode page image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
