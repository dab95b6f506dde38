package detect

import (
	"archive/zip"
	"fmt"
	"regexp"
)

var slideEntryRe = regexp.MustCompile(`^ppt/slides/slide[0-9]+\.xml$`)

// countSlides counts the slides of a pptx file. A pptx is a zip container
// with one ppt/slides/slideN.xml entry per slide.
func countSlides(path string) (int, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pptx container: %w", err)
	}
	defer reader.Close()

	count := 0
	for _, f := range reader.File {
		if slideEntryRe.MatchString(f.Name) {
			count++
		}
	}
	return count, nil
}
