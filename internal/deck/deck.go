// Package deck reads and rewrites Office Open XML presentations (.pptx).
//
// A deck is a zip package. Slide order comes from ppt/presentation.xml
// (p:sldIdLst) resolved through ppt/_rels/presentation.xml.rels, and slide
// extents come from p:sldSz. Only slide parts touched by the Annotator are
// rewritten; every other entry is copied through raw.
package deck

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
)

const (
	contentTypesPart     = "[Content_Types].xml"
	presentationPart     = "ppt/presentation.xml"
	presentationRelsPart = "ppt/_rels/presentation.xml.rels"

	nsPresentation  = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawing       = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsOfficeRels    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"
	relTypeSlide    = nsOfficeRels + "/slide"
	maxPartSize     = 256 << 20
	defaultSlideCX  = 9144000
	defaultSlideCY  = 6858000
	defaultMarker   = "__WATERMARK_NAME__"
	hundredthsPerPt = 100
)

var (
	// ErrInvalidContainer is returned for bytes that are not a usable .pptx package.
	ErrInvalidContainer = errors.New("invalid container")
	// ErrEmptyLabel is returned when Annotate is called without a label.
	ErrEmptyLabel = errors.New("label is required")
)

// Validate confirms data is a zip archive carrying the [Content_Types].xml
// manifest. It never mutates data.
func Validate(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("%w: not a zip archive: %v", ErrInvalidContainer, err)
	}
	for _, f := range zr.File {
		if f.Name == contentTypesPart {
			return nil
		}
	}
	return fmt.Errorf("%w: missing %s", ErrInvalidContainer, contentTypesPart)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidContainer, fmt.Sprintf(format, args...))
}
