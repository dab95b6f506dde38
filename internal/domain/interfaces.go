package domain

import (
	"context"
	"image"
)

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetOCRProvider() string
	GetOCRModel() string
	GetOCRPrompt() string
	GetLMStudioBaseURL() string
	GetGCPProject() string
	GetGCPLocation() string
	GetRenderDPI() float64
	GetRenderTimeoutSec() int
	GetDefaultBatchSize() int
}

// PageRenderer rasterizes a contiguous page sub-range of a source document
// without rendering the whole file. Pages are 1-based, the range is
// inclusive, and images come back in page order.
type PageRenderer interface {
	RenderRange(ctx context.Context, path string, firstPage, lastPage int) ([]image.Image, error)
	RenderPage(ctx context.Context, path string, page int) (image.Image, error)
}

// RecognitionBackend issues one recognition request for a staged page
// image and returns the raw response payload. The shape of the payload is
// backend-specific; normalization happens in the adapter.
type RecognitionBackend interface {
	Recognize(ctx context.Context, imagePath, prompt string) ([]byte, error)
}

// Recognizer is the single-operation capability the pipeline calls per
// page: one raster image in, normalized plain text out. Failures come back
// as *recognize.RecognitionError values and never abort the caller.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// TypeDetector classifies a document file and computes its page count.
type TypeDetector interface {
	Detect(path string) (FileType, int, error)
}

// FlowDocConverter counts pages of flow-document formats (DOCX/ODT/RTF)
// by rendering to an intermediate paginated form. Implementations that
// lack the tooling return an error classified as a tooling failure.
type FlowDocConverter interface {
	CountPages(path string) (int, error)
}

// ConversionService defines the use-case operations of the OCR shell.
type ConversionService interface {
	LoadDocument(ctx context.Context, path string) (*DocumentInfo, error)
	StartRun(fromPage, toPage *int, batchSize int) (*RunStatus, error)
	CancelRun() error
	GetPage(ctx context.Context, index int) (image.Image, error)
	Status() *StatusSnapshot
	Results() string
	SaveResults(path string) error
	Subscribe() (int, <-chan Event)
	Unsubscribe(id int)
}
