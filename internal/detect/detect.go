package detect

import (
	"fmt"
	"path/filepath"
	"strings"

	"smart-ocr-server/internal/domain"
	apperrors "smart-ocr-server/pkg/errors"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Detector classifies a document file by extension and computes its page
// count with format-specific tooling.
type Detector struct {
	logger    domain.Logger
	converter domain.FlowDocConverter // optional; nil means no flow-document tooling
}

func NewDetector(logger domain.Logger, converter domain.FlowDocConverter) *Detector {
	return &Detector{
		logger:    logger,
		converter: converter,
	}
}

// Detect returns the classified file type and page count for the file at
// path. Missing tooling for a recognized format is fatal for this
// operation; an unrecognized extension degrades to UNKNOWN with zero
// pages instead of failing.
func (d *Detector) Detect(path string) (domain.FileType, int, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".pdf":
		pages, err := api.PageCountFile(path)
		if err != nil {
			return domain.FileTypePDF, 0, apperrors.NewToolingError("could not read PDF page info", err)
		}
		return domain.FileTypePDF, pages, nil

	case ".pptx":
		slides, err := countSlides(path)
		if err != nil {
			return domain.FileTypePPTX, 0, apperrors.NewToolingError("could not read PPTX slide count", err)
		}
		return domain.FileTypePPTX, slides, nil

	case ".tif", ".tiff":
		frames, err := countTIFFFrames(path)
		if err != nil {
			return domain.FileTypeTIFF, 0, apperrors.NewToolingError("could not read TIFF frame count", err)
		}
		return domain.FileTypeTIFF, frames, nil

	case ".docx", ".odt", ".rtf":
		fileType := domain.FileType(strings.ToUpper(strings.TrimPrefix(ext, ".")))
		if d.converter == nil {
			return fileType, 0, apperrors.NewToolingError(
				fmt.Sprintf("no converter configured for %s documents", fileType), nil)
		}
		pages, err := d.converter.CountPages(path)
		if err != nil {
			return fileType, 0, apperrors.NewToolingError(
				fmt.Sprintf("failed to count pages of %s document", fileType), err)
		}
		return fileType, pages, nil

	default:
		d.logger.Warn("Unrecognized document extension", "path", path, "ext", ext)
		return domain.FileTypeUnknown, 0, nil
	}
}
