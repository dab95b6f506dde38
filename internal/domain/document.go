package domain

// FileType is the classified format of a loaded document.
type FileType string

const (
	FileTypePDF     FileType = "PDF"
	FileTypePPTX    FileType = "PPTX"
	FileTypeTIFF    FileType = "TIFF"
	FileTypeDOCX    FileType = "DOCX"
	FileTypeODT     FileType = "ODT"
	FileTypeRTF     FileType = "RTF"
	FileTypeUnknown FileType = "UNKNOWN"
)

// ObjectKind classifies the payload of an extracted object. The pipeline
// currently only produces text objects; image and table kinds exist for
// region-tagged extraction.
type ObjectKind string

const (
	ObjectKindText  ObjectKind = "text"
	ObjectKindImage ObjectKind = "image"
	ObjectKindTable ObjectKind = "table"
)

// ExtractedObject is one recognized piece of content. Objects are created
// only through Document.AddObject and are never mutated in place;
// corrections are modeled as delete + re-add.
type ExtractedObject struct {
	Index       int        `json:"index"`
	Page        *int       `json:"page,omitempty"` // 0-based, nil for page-agnostic objects
	Kind        ObjectKind `json:"kind"`
	Content     string     `json:"content"`
	Coordinates []int      `json:"coordinates,omitempty"` // x0,y0,x1,y1; nil for plain text
}

// Document is the in-memory registry of page count and extracted objects.
// It knows nothing about I/O, rendering, or recognition. It is not
// goroutine-safe: the owning service serializes access.
type Document struct {
	FileType FileType

	pageCount int
	nextIndex int
	objects   []ExtractedObject
}

func NewDocument() *Document {
	return &Document{FileType: FileTypeUnknown}
}

// AddPage increments the page count by one. The caller is responsible for
// calling it once per detected page.
func (d *Document) AddPage() {
	d.pageCount++
}

// AddObject appends a new object with the next monotonic index and returns
// that index. The page is not validated against the page count: detection
// may happen after objects are added.
func (d *Document) AddObject(page *int, kind ObjectKind, content string, coordinates []int) int {
	obj := ExtractedObject{
		Index:       d.nextIndex,
		Page:        page,
		Kind:        kind,
		Content:     content,
		Coordinates: coordinates,
	}
	d.objects = append(d.objects, obj)
	d.nextIndex++
	return obj.Index
}

// GetObject returns the object with the given index. Absence is a normal
// outcome, not an error.
func (d *Document) GetObject(index int) (ExtractedObject, bool) {
	for _, obj := range d.objects {
		if obj.Index == index {
			return obj, true
		}
	}
	return ExtractedObject{}, false
}

// DeleteObject removes every object whose index matches and returns the
// number removed, so callers can detect a no-op delete. Freed indices are
// never reassigned.
func (d *Document) DeleteObject(index int) int {
	before := len(d.objects)
	kept := d.objects[:0]
	for _, obj := range d.objects {
		if obj.Index != index {
			kept = append(kept, obj)
		}
	}
	d.objects = kept
	return before - len(d.objects)
}

// DeletePageObjects removes all objects belonging to the given page and
// returns the number removed. A document without real pages has nothing to
// delete.
func (d *Document) DeletePageObjects(page int) int {
	if !d.HasPages() {
		return 0
	}
	before := len(d.objects)
	kept := d.objects[:0]
	for _, obj := range d.objects {
		if obj.Page != nil && *obj.Page == page {
			continue
		}
		kept = append(kept, obj)
	}
	d.objects = kept
	return before - len(d.objects)
}

func (d *Document) HasPages() bool {
	return d.pageCount > 0
}

func (d *Document) PageCount() int {
	return d.pageCount
}

// Objects returns a copy of the object list in insertion order.
func (d *Document) Objects() []ExtractedObject {
	out := make([]ExtractedObject, len(d.objects))
	copy(out, d.objects)
	return out
}
